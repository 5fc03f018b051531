package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"

	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04:05"

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

var exportHeaders = []string{"ID", "时间", "类型", "分类", "金额", "备注"}

// exportQuery 解析 start_time / end_time（都包含），其余过滤条件与交易列表相同
func exportQuery(c *gin.Context) (service.TransactionFilter, string, bool) {
	startStr, endStr := c.Query("start_time"), c.Query("end_time")
	if startStr == "" || endStr == "" {
		BadRequest(c, "请提供开始时间和结束时间")
		return service.TransactionFilter{}, "", false
	}

	f := filterFromQuery(c)
	f.StartDate = parseDate(startStr)
	if f.StartDate == nil {
		BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
		return f, "", false
	}
	f.EndDate = parseDate(endStr)
	if f.EndDate == nil {
		BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
		return f, "", false
	}
	if f.EndDate.Before(*f.StartDate) {
		BadRequest(c, "结束时间不能早于开始时间")
		return f, "", false
	}
	return f, startStr + "_" + endStr, true
}

func exportRow(t *models.Transaction) []string {
	category := ""
	if t.Category != nil {
		category = t.Category.Name
	}
	return []string{
		fmt.Sprintf("%d", t.ID),
		t.TransactionTime.Format(timeLayout),
		models.TypeLabel(t.Type),
		category,
		t.Amount.StringFixed(2),
		t.Memo,
	}
}

// ExportCSV 导出交易记录为 CSV
// @Summary 导出交易记录 (CSV)
// @Description 根据日期范围导出交易记录，带 UTF-8 BOM 以便 Excel 正确显示中文
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_time query string true "开始日期 (2024-01-01)"
// @Param end_time query string true "结束日期 (2024-12-31)"
// @Param type query string false "expense 或 income"
// @Param category_id query int false "分类ID"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	f, suffix, ok := exportQuery(c)
	if !ok {
		return
	}

	list, err := service.ListTransactions(database.DB, userID, f)
	if err != nil {
		ServiceError(c, err, "查询数据失败")
		return
	}

	buf := new(bytes.Buffer)
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}
	for i := range list {
		if err := writer.Write(exportRow(&list[i])); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions_%s.csv", suffix))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportJSON 导出交易记录为 JSON
// @Summary 导出交易记录 (JSON)
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Param start_time query string true "开始日期 (2024-01-01)"
// @Param end_time query string true "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=[]models.Transaction} "导出成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	f, _, ok := exportQuery(c)
	if !ok {
		return
	}

	list, err := service.ListTransactions(database.DB, userID, f)
	if err != nil {
		ServiceError(c, err, "查询数据失败")
		return
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, t := range list {
		if t.Type == models.TypeIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}

	Success(c, gin.H{
		"start_time":   c.Query("start_time"),
		"end_time":     c.Query("end_time"),
		"total_count":  len(list),
		"summary":      service.Summary{Income: income, Expense: expense, Balance: income.Sub(expense)},
		"transactions": list,
	})
}

// ExportExcel 导出交易记录为 Excel
// @Summary 导出交易记录 (Excel)
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_time query string true "开始日期 (2024-01-01)"
// @Param end_time query string true "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	f, suffix, ok := exportQuery(c)
	if !ok {
		return
	}

	list, err := service.ListTransactions(database.DB, userID, f)
	if err != nil {
		ServiceError(c, err, "查询数据失败")
		return
	}

	book, err := buildWorkbook(list)
	if err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
	defer book.Close()

	filename := url.PathEscape(fmt.Sprintf("收支记录_%s.xlsx", suffix))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+filename)
	c.Status(http.StatusOK)
	if err := book.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func cellBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

// buildWorkbook 一张工作表：表头、每笔交易一行、末尾收入/支出合计
func buildWorkbook(list []models.Transaction) (*excelize.File, error) {
	book := excelize.NewFile()
	sheet := "收支记录"
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, err := book.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}
	dataStyle, err := book.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}
	summaryStyle, err := book.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}

	for col, width := range map[string]float64{"A": 10, "B": 20, "C": 8, "D": 14, "E": 14, "F": 40} {
		_ = book.SetColWidth(sheet, col, col, width)
	}
	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = book.SetCellValue(sheet, cell, header)
	}
	_ = book.SetCellStyle(sheet, "A1", "F1", headerStyle)

	income, expense := decimal.Zero, decimal.Zero
	for i := range list {
		t := &list[i]
		row := i + 2
		values := exportRow(t)
		for j, v := range values {
			cell := fmt.Sprintf("%c%d", 'A'+j, row)
			if j == 4 {
				_ = book.SetCellValue(sheet, cell, t.Amount.InexactFloat64())
				continue
			}
			_ = book.SetCellValue(sheet, cell, v)
		}
		_ = book.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)

		if t.Type == models.TypeIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}

	summaryRow := len(list) + 2
	_ = book.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "合计")
	_ = book.MergeCell(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("D%d", summaryRow))
	_ = book.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("收入 %s / 支出 %s", income.StringFixed(2), expense.StringFixed(2)))
	_ = book.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(list)))
	_ = book.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)

	return book, nil
}

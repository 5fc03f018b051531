package api

import (
	"strconv"
	"time"

	"moneytrack/config"
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BudgetHandler 月度预算
type BudgetHandler struct{}

func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// BudgetRequest 设置预算，category_id 为空表示月度总预算
type BudgetRequest struct {
	Year       int             `json:"year" binding:"required,min=1,max=9999" example:"2024"`
	Month      int             `json:"month" binding:"required,min=1,max=12" example:"5"`
	CategoryID *uint           `json:"category_id" example:"1"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"number" example:"3000"`
}

// BudgetListResponse 某月预算及执行情况
type BudgetListResponse struct {
	Year     int                    `json:"year"`
	Month    int                    `json:"month"`
	Budgets  []models.Budget        `json:"budgets"`
	Statuses []service.BudgetStatus `json:"statuses"`
}

// List 某月的预算和执行情况
// @Summary 获取月度预算
// @Description 年月无效时使用当前月份；statuses 中总预算排在最前
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份"
// @Success 200 {object} Response{data=BudgetListResponse} "获取成功"
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	_, _, year, month := service.MonthRange(c.Query("year"), c.Query("month"), time.Now())

	budgets, err := service.ListBudgets(database.DB, userID, year, month)
	if err != nil {
		ServiceError(c, err, "获取预算失败")
		return
	}

	stats := service.NewStatsService(database.DB, config.BudgetWarningPercent())
	summary, err := stats.MonthSummary(userID, year, month)
	if err != nil {
		ServiceError(c, err, "获取预算失败")
		return
	}
	statuses, err := stats.BudgetStatuses(userID, year, month, summary.Expense)
	if err != nil {
		ServiceError(c, err, "获取预算失败")
		return
	}

	Success(c, BudgetListResponse{Year: year, Month: month, Budgets: budgets, Statuses: statuses})
}

// Upsert 设置预算，同月同分类已存在时覆盖金额
// @Summary 设置月度预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BudgetRequest true "预算信息"
// @Success 200 {object} Response{data=models.Budget} "保存成功"
// @Failure 400 {object} Response "参数错误或分类不是支出分类"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/budgets [put]
func (h *BudgetHandler) Upsert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	budget, created, err := service.UpsertBudget(database.DB, userID, req.Year, req.Month, req.CategoryID, req.Amount.Round(2))
	if err != nil {
		ServiceError(c, err, "保存预算失败")
		return
	}
	msg := "预算已更新"
	if created {
		msg = "预算已创建"
	}
	SuccessWithMessage(c, msg, budget)
}

// Delete 删除预算
// @Summary 删除预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "预算不存在"
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	if err := service.DeleteBudget(database.DB, userID, id); err != nil {
		ServiceError(c, err, "删除预算失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// monthTitle 例如 "2024年5月"
func monthTitle(year, month int) string {
	return strconv.Itoa(year) + "年" + strconv.Itoa(month) + "月"
}

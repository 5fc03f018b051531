package api

import (
	"strconv"
	"strings"
	"time"

	"moneytrack/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// parseID 解析路径参数 :id
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseDate 解析 YYYY-MM-DD，空值或格式错误返回 nil
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// parseDecimal 解析金额，空值或格式错误返回 nil
func parseDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// parseTransactionTime 支持 "2006-01-02 15:04:05"、"2006-01-02T15:04"（表单）和 "2006-01-02"
func parseTransactionTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), true
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339, dateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// filterFromQuery 从查询参数构造交易过滤条件，无法解析的条件被忽略
func filterFromQuery(c *gin.Context) service.TransactionFilter {
	f := service.TransactionFilter{
		Keyword:   c.Query("keyword"),
		StartDate: parseDate(c.Query("start_date")),
		EndDate:   parseDate(c.Query("end_date")),
		MinAmount: parseDecimal(c.Query("min_amount")),
		MaxAmount: parseDecimal(c.Query("max_amount")),
	}
	if id, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil {
		f.CategoryID = uint(id)
	}
	if t := c.Query("type"); t == "expense" || t == "income" {
		f.Type = t
	}
	return f
}

// parsePage 页码和每页条数
func parsePage(c *gin.Context, defaultSize, maxSize int) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

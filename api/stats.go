package api

import (
	"errors"
	"net/http"
	"time"

	"moneytrack/config"
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
)

// StatsHandler 统计与图表
type StatsHandler struct {
	now func() time.Time
}

func NewStatsHandler() *StatsHandler {
	return &StatsHandler{now: time.Now}
}

func (h *StatsHandler) service() *service.StatsService {
	return service.NewStatsService(database.DB, config.BudgetWarningPercent())
}

// Dashboard 首页数据
// @Summary 月度概览
// @Description 当月收入、支出、结余，预算执行情况和最近 5 笔交易。年月无效时使用当前月份。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份"
// @Success 200 {object} Response{data=service.Dashboard} "获取成功"
// @Router /api/v1/statistics/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	data, err := h.service().Dashboard(userID, c.Query("year"), c.Query("month"), h.now())
	if err != nil {
		ServiceError(c, err, "获取概览失败")
		return
	}
	Success(c, data)
}

// ChartData 图表数据
// @Summary 图表数据
// @Description 分类支出饼图和每日收支折线，折线数据每月每天一项
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份"
// @Success 200 {object} Response{data=service.ChartData} "获取成功"
// @Router /api/v1/statistics/chart-data [get]
func (h *StatsHandler) ChartData(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	data, err := h.service().ChartData(userID, c.Query("year"), c.Query("month"), h.now())
	if err != nil {
		ServiceError(c, err, "获取图表数据失败")
		return
	}
	Success(c, data)
}

// ChartImage 图表 PNG
// @Summary 图表图片
// @Tags 统计
// @Produce png
// @Security BearerAuth
// @Param year query int false "年份"
// @Param month query int false "月份"
// @Param kind query string false "pie 或 trend" default(pie)
// @Success 200 {file} binary "PNG 图片"
// @Failure 404 {object} Response "当月没有数据"
// @Router /api/v1/statistics/chart.png [get]
func (h *StatsHandler) ChartImage(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	stats := h.service()
	_, _, year, month := service.MonthRange(c.Query("year"), c.Query("month"), h.now())
	start, next := service.MonthBounds(year, month)

	var (
		png []byte
		err error
	)
	switch c.DefaultQuery("kind", "pie") {
	case "pie":
		var rows []service.CategoryAmount
		rows, err = stats.CategoryPie(userID, start, next)
		if err == nil {
			png, err = service.RenderPieChart(monthTitle(year, month)+"支出分类", rows)
		}
	case "trend":
		var series service.DailySeries
		series, err = stats.DailyTrend(userID, year, month)
		if err == nil {
			png, err = service.RenderTrendChart(monthTitle(year, month)+"每日收支", series)
		}
	default:
		BadRequest(c, "kind 只能是 pie 或 trend")
		return
	}

	if errors.Is(err, service.ErrNoChartData) {
		NotFound(c, err.Error())
		return
	}
	if err != nil {
		ServiceError(c, err, "生成图表失败")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

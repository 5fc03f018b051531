package api

import (
	"log"

	"moneytrack/config"
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler 收支记录
type TransactionHandler struct {
	alert *service.BudgetAlert
}

// NewTransactionHandler 创建收支记录处理器
func NewTransactionHandler(cfg *config.Config) *TransactionHandler {
	return &TransactionHandler{alert: service.NewBudgetAlert(cfg)}
}

// TransactionRequest 新建/修改交易请求
type TransactionRequest struct {
	CategoryID      uint            `json:"category_id" binding:"required" example:"1"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"number" example:"12.5"`
	Type            string          `json:"type" binding:"required,oneof=expense income" example:"expense"`
	TransactionTime string          `json:"transaction_time" example:"2024-05-20 12:30:00"` // 不传则为当前时间
	Memo            string          `json:"memo" binding:"max=200" example:"午餐"`
}

// CreateTransactionResponse 创建结果，附带因本笔支出刚刚超出的预算
type CreateTransactionResponse struct {
	Transaction  *models.Transaction    `json:"transaction"`
	BudgetAlerts []service.BudgetStatus `json:"budget_alerts,omitempty"`
}

func (r *TransactionRequest) input() (service.TransactionInput, bool) {
	t, ok := parseTransactionTime(r.TransactionTime)
	if !ok {
		return service.TransactionInput{}, false
	}
	return service.TransactionInput{
		CategoryID:      r.CategoryID,
		Amount:          r.Amount,
		Type:            r.Type,
		TransactionTime: t,
		Memo:            r.Memo,
	}, true
}

// List 搜索交易
// @Summary 查询交易列表
// @Description 支持备注关键字、分类、日期范围、金额范围过滤，按时间倒序；返回过滤后的收支合计
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param keyword query string false "备注关键字"
// @Param category_id query int false "分类ID"
// @Param type query string false "expense 或 income"
// @Param start_date query string false "开始日期 (YYYY-MM-DD)"
// @Param end_date query string false "结束日期 (YYYY-MM-DD)，包含当天"
// @Param min_amount query number false "最小金额"
// @Param max_amount query number false "最大金额"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数，最大 100" default(10)
// @Success 200 {object} Response{data=service.SearchResult} "获取成功"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, pageSize := parsePage(c, service.PageSizeAPI, service.PageSizeAPIMax)

	res, err := service.SearchTransactions(database.DB, userID, filterFromQuery(c), page, pageSize)
	if err != nil {
		ServiceError(c, err, "查询交易失败")
		return
	}
	Success(c, res)
}

// Get 交易详情
// @Summary 获取交易详情
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	tx, err := service.GetTransaction(database.DB, userID, id)
	if err != nil {
		ServiceError(c, err, "查询交易失败")
		return
	}
	Success(c, tx)
}

// Create 记一笔账
// @Summary 新建交易
// @Description 交易类型与分类类型相互独立。支出导致预算超支且开启邮件提醒时，返回 budget_alerts 并发送邮件。
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransactionRequest true "交易信息"
// @Success 200 {object} Response{data=CreateTransactionResponse} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	in, ok := req.input()
	if !ok {
		BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
		return
	}

	tx, err := service.CreateTransaction(database.DB, userID, in)
	if err != nil {
		ServiceError(c, err, "创建交易失败")
		return
	}

	alerts, err := h.alert.Check(database.DB, tx)
	if err != nil {
		log.Printf("检查预算失败: %v", err)
	}
	SuccessWithMessage(c, "创建成功", CreateTransactionResponse{Transaction: tx, BudgetAlerts: alerts})
}

// Update 修改交易
// @Summary 修改交易
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Param request body TransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	in, ok := req.input()
	if !ok {
		BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
		return
	}

	tx, err := service.UpdateTransaction(database.DB, userID, id, in)
	if err != nil {
		ServiceError(c, err, "更新交易失败")
		return
	}
	SuccessWithMessage(c, "更新成功", tx)
}

// Delete 删除交易
// @Summary 删除交易
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	if err := service.DeleteTransaction(database.DB, userID, id); err != nil {
		ServiceError(c, err, "删除交易失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

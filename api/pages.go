package api

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneytrack/config"
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"
	"moneytrack/webauth"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const flashCookie = "moneytrack_flash"

// Flash 一次性提示消息，Kind 为 success / warning / danger
type Flash struct {
	Kind    string
	Message string
}

func setFlash(c *gin.Context, kind, message string) {
	secure, sameSite := webauth.CookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(flashCookie, url.QueryEscape(kind+"|"+message), 60, "/", "", secure, true)
}

// popFlash 读取并清除提示消息
func popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	secure, sameSite := webauth.CookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(flashCookie, "", -1, "/", "", secure, true)

	value, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(value, "|")
	if !ok {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// PageHandler 服务端渲染页面，使用 Cookie 会话
type PageHandler struct {
	cfg   *config.Config
	alert *service.BudgetAlert
	now   func() time.Time
}

// NewPageHandler 创建页面处理器
func NewPageHandler(cfg *config.Config) *PageHandler {
	return &PageHandler{cfg: cfg, alert: service.NewBudgetAlert(cfg), now: time.Now}
}

func (h *PageHandler) stats() *service.StatsService {
	return service.NewStatsService(database.DB, h.cfg.Budget.WarningPercent)
}

func (h *PageHandler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Flash"] = popFlash(c)
	_, loggedIn := c.Get(middleware.ContextUserIDKey)
	data["LoggedIn"] = loggedIn
	c.HTML(status, name, data)
}

// serviceFlash 业务错误直接提示原因，其他错误记录日志并显示通用消息
func serviceFlash(c *gin.Context, err error, fallback string) {
	if serviceErrorStatus(err) == http.StatusInternalServerError {
		log.Printf("[%s] %s: %v", middleware.GetRequestID(c), fallback, err)
		setFlash(c, "danger", SafeErrorMessage(err, fallback))
		return
	}
	setFlash(c, "danger", err.Error())
}

// ---- 认证 ----

// LoginPage 登录页
func (h *PageHandler) LoginPage(c *gin.Context) {
	if _, err := webauth.SessionUserID(c); err == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "login.html", "登录", gin.H{"Next": webauth.SafeNext(c.Query("next"))})
}

// Login 用户名或邮箱登录，成功后跳转到站内 next
func (h *PageHandler) Login(c *gin.Context) {
	login := strings.TrimSpace(c.PostForm("login"))
	next := webauth.SafeNext(c.PostForm("next"))

	user, err := service.Authenticate(database.DB, login, c.PostForm("password"))
	if err != nil {
		h.render(c, http.StatusUnauthorized, "login.html", "登录", gin.H{
			"Next":  next,
			"Login": login,
			"Error": "无效的用户名/邮箱或密码",
		})
		return
	}

	webauth.SetSession(c, user.ID, h.cfg.JWT.ExpireTime)
	c.Redirect(http.StatusFound, next)
}

// RegisterPage 注册页
func (h *PageHandler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", "注册", nil)
}

// Register 注册成功后跳转登录页
func (h *PageHandler) Register(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	fail := func(msg string) {
		h.render(c, http.StatusBadRequest, "register.html", "注册", gin.H{
			"Username": username,
			"Email":    email,
			"Error":    msg,
		})
	}
	switch {
	case len(username) < 3 || len(username) > 64:
		fail("用户名长度应为 3-64 个字符")
		return
	case !strings.Contains(email, "@"):
		fail("请输入有效的邮箱地址")
		return
	case len(password) < 6:
		fail("密码至少 6 位")
		return
	case password != c.PostForm("password2"):
		fail("两次输入的密码不一致")
		return
	}

	if _, err := service.RegisterUser(database.DB, username, email, password); err != nil {
		if serviceErrorStatus(err) == http.StatusInternalServerError {
			fail(SafeErrorMessage(err, "注册失败"))
			return
		}
		fail(err.Error())
		return
	}
	setFlash(c, "success", "恭喜，您已成功注册！请登录。")
	c.Redirect(http.StatusFound, webauth.LoginPath)
}

// Logout 退出登录
func (h *PageHandler) Logout(c *gin.Context) {
	webauth.ClearSession(c)
	c.Redirect(http.StatusFound, webauth.LoginPath)
}

// ---- 仪表盘 ----

// Dashboard 首页：月度汇总、预算提醒、最近交易和快速记账表单
func (h *PageHandler) Dashboard(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	data, err := h.stats().Dashboard(userID, c.Query("year"), c.Query("month"), h.now())
	if err != nil {
		log.Printf("[%s] 加载首页失败: %v", middleware.GetRequestID(c), err)
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	expenseCats, err := service.ListCategories(database.DB, userID, models.TypeExpense)
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	incomeCats, err := service.ListCategories(database.DB, userID, models.TypeIncome)
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}

	h.render(c, http.StatusOK, "index.html", "仪表盘", gin.H{
		"D":                 data,
		"ExpenseCategories": expenseCats,
		"IncomeCategories":  incomeCats,
		"Today":             h.now().Format("2006-01-02T15:04"),
	})
}

// QuickAdd 首页记账表单，type 决定收入或支出
func (h *PageHandler) QuickAdd(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	back := "/?year=" + url.QueryEscape(c.PostForm("year")) + "&month=" + url.QueryEscape(c.PostForm("month"))

	in, ok := transactionForm(c)
	if !ok {
		c.Redirect(http.StatusFound, back)
		return
	}

	tx, err := service.CreateTransaction(database.DB, userID, in)
	if err != nil {
		serviceFlash(c, err, "记账失败")
		c.Redirect(http.StatusFound, back)
		return
	}

	msg := models.TypeLabel(tx.Type) + "记录已添加！"
	exceeded, err := h.alert.Check(database.DB, tx)
	if err != nil {
		log.Printf("[%s] 检查预算失败: %v", middleware.GetRequestID(c), err)
	}
	if len(exceeded) > 0 {
		names := make([]string, 0, len(exceeded))
		for _, s := range exceeded {
			names = append(names, s.Name)
		}
		setFlash(c, "warning", msg+" 注意：「"+strings.Join(names, "、")+"」已超出预算")
	} else {
		setFlash(c, "success", msg)
	}
	c.Redirect(http.StatusFound, back)
}

// transactionForm 解析交易表单，失败时写入提示消息
func transactionForm(c *gin.Context) (service.TransactionInput, bool) {
	categoryID, err := strconv.ParseUint(c.PostForm("category_id"), 10, 32)
	if err != nil {
		setFlash(c, "danger", "请选择分类")
		return service.TransactionInput{}, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		setFlash(c, "danger", "请输入有效的金额")
		return service.TransactionInput{}, false
	}
	t, ok := parseTransactionTime(c.PostForm("transaction_time"))
	if !ok {
		setFlash(c, "danger", "日期格式错误")
		return service.TransactionInput{}, false
	}
	return service.TransactionInput{
		CategoryID:      uint(categoryID),
		Amount:          amount,
		Type:            c.PostForm("type"),
		TransactionTime: t,
		Memo:            c.PostForm("memo"),
	}, true
}

// ChartData 首页图表使用的 JSON，结构与 API 相同但不带外层包装
func (h *PageHandler) ChartData(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	data, err := h.stats().ChartData(userID, c.Query("year"), c.Query("month"), h.now())
	if err != nil {
		ServiceError(c, err, "获取图表数据失败")
		return
	}
	c.JSON(http.StatusOK, data)
}

// ---- 交易 ----

// Transactions 交易查找页：组合过滤、分页和过滤后的收支合计
func (h *PageHandler) Transactions(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	res, err := service.SearchTransactions(database.DB, userID, filterFromQuery(c), page, service.PageSizeWeb)
	if err != nil {
		log.Printf("[%s] 查询交易失败: %v", middleware.GetRequestID(c), err)
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	categories, err := service.ListCategories(database.DB, userID, "")
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}

	query := c.Request.URL.Query()
	query.Del("page")
	h.render(c, http.StatusOK, "transactions.html", "交易查找", gin.H{
		"Result":     res,
		"TotalPages": res.TotalPages(),
		"Categories": categories,
		"Query":      c.Request.URL.Query(),
		"PageBase":   template.URL("/transactions?" + query.Encode() + "&page="),
	})
}

// EditTransactionPage 编辑交易表单
func (h *PageHandler) EditTransactionPage(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	tx, ok := h.ownTransaction(c, userID)
	if !ok {
		return
	}
	categories, err := service.ListCategories(database.DB, userID, "")
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	h.render(c, http.StatusOK, "transaction_edit.html", "编辑交易", gin.H{
		"Tx":         tx,
		"Categories": categories,
		"Time":       tx.TransactionTime.In(time.Local).Format("2006-01-02T15:04"),
	})
}

// EditTransaction 保存交易修改
func (h *PageHandler) EditTransaction(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/transactions")
		return
	}
	in, ok := transactionForm(c)
	if !ok {
		c.Redirect(http.StatusFound, "/transaction/edit/"+c.Param("id"))
		return
	}

	_, err := service.UpdateTransaction(database.DB, userID, id, in)
	switch {
	case errors.Is(err, service.ErrNotFound):
		setFlash(c, "danger", "交易不存在或没有权限编辑")
		c.Redirect(http.StatusFound, "/transactions")
	case err != nil:
		serviceFlash(c, err, "更新交易失败")
		c.Redirect(http.StatusFound, "/transaction/edit/"+c.Param("id"))
	default:
		setFlash(c, "success", "交易已更新。")
		c.Redirect(http.StatusFound, "/")
	}
}

// DeleteTransaction 删除后返回来源页
func (h *PageHandler) DeleteTransaction(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	back := refererPath(c, "/")
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, back)
		return
	}

	if err := service.DeleteTransaction(database.DB, userID, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			setFlash(c, "danger", "交易不存在或没有权限删除")
		} else {
			serviceFlash(c, err, "删除交易失败")
		}
		c.Redirect(http.StatusFound, back)
		return
	}
	setFlash(c, "success", "交易已删除。")
	c.Redirect(http.StatusFound, back)
}

func (h *PageHandler) ownTransaction(c *gin.Context, userID uint) (*models.Transaction, bool) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/transactions")
		return nil, false
	}
	tx, err := service.GetTransaction(database.DB, userID, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			setFlash(c, "danger", "交易不存在或没有权限编辑")
		} else {
			serviceFlash(c, err, "查询交易失败")
		}
		c.Redirect(http.StatusFound, "/transactions")
		return nil, false
	}
	return tx, true
}

// refererPath Referer 中的站内路径，无效时返回 fallback
func refererPath(c *gin.Context, fallback string) string {
	ref, err := url.Parse(c.Request.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != c.Request.Host) {
		return fallback
	}
	return webauth.SafeNext(ref.RequestURI())
}

// ---- 分类 ----

// Categories 分类管理页，按类型分组
func (h *PageHandler) Categories(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	expense, err := service.ListCategories(database.DB, userID, models.TypeExpense)
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	income, err := service.ListCategories(database.DB, userID, models.TypeIncome)
	if err != nil {
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	h.render(c, http.StatusOK, "categories.html", "分类管理", gin.H{
		"Expense": expense,
		"Income":  income,
	})
}

// CreateCategory 添加分类，同名同类型时提示
func (h *PageHandler) CreateCategory(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	_, err := service.CreateCategory(database.DB, userID, c.PostForm("name"), c.PostForm("type"), c.PostForm("color"))
	switch {
	case errors.Is(err, service.ErrCategoryExists):
		setFlash(c, "warning", "同名同类型的分类已存在。")
	case err != nil:
		serviceFlash(c, err, "添加分类失败")
	default:
		setFlash(c, "success", "分类已添加。")
	}
	c.Redirect(http.StatusFound, "/categories")
}

// EditCategory 重命名分类
func (h *PageHandler) EditCategory(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/categories")
		return
	}
	_, err := service.RenameCategory(database.DB, userID, id, c.PostForm("name"), c.PostForm("color"))
	switch {
	case errors.Is(err, service.ErrCategoryExists):
		setFlash(c, "warning", "该名称已被同类型的其他分类使用。")
	case err != nil:
		serviceFlash(c, err, "更新分类失败")
	default:
		setFlash(c, "success", "分类已更新。")
	}
	c.Redirect(http.StatusFound, "/categories")
}

// DeleteCategory 删除分类，仍被引用时提示原因
func (h *PageHandler) DeleteCategory(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/categories")
		return
	}
	if err := service.DeleteCategory(database.DB, userID, id); err != nil {
		serviceFlash(c, err, "删除分类失败")
	} else {
		setFlash(c, "success", "分类已删除。")
	}
	c.Redirect(http.StatusFound, "/categories")
}

// ---- 预算 ----

// BudgetPage 预算设置页：总预算和每个支出分类的预算
func (h *PageHandler) BudgetPage(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	_, _, year, month := service.MonthRange(c.Query("year"), c.Query("month"), h.now())

	total, rows, err := service.BudgetSheet(database.DB, userID, year, month)
	if err != nil {
		log.Printf("[%s] 加载预算失败: %v", middleware.GetRequestID(c), err)
		c.String(http.StatusInternalServerError, "加载页面失败")
		return
	}
	h.render(c, http.StatusOK, "budget.html", "预算设置", gin.H{
		"Year":  year,
		"Month": month,
		"Total": total,
		"Rows":  rows,
	})
}

// SaveBudget 设置某月预算，category_id 为空表示总预算
func (h *PageHandler) SaveBudget(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	year, _ := strconv.Atoi(c.PostForm("year"))
	month, _ := strconv.Atoi(c.PostForm("month"))
	back := "/budget?year=" + strconv.Itoa(year) + "&month=" + strconv.Itoa(month)

	var categoryID *uint
	if raw := c.PostForm("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			setFlash(c, "danger", "分类无效")
			c.Redirect(http.StatusFound, back)
			return
		}
		cid := uint(id)
		categoryID = &cid
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		setFlash(c, "danger", "请输入有效的金额")
		c.Redirect(http.StatusFound, back)
		return
	}

	_, created, err := service.UpsertBudget(database.DB, userID, year, month, categoryID, amount.Round(2))
	switch {
	case err != nil:
		serviceFlash(c, err, "保存预算失败")
	case created:
		setFlash(c, "success", "预算已设置。")
	default:
		setFlash(c, "success", "预算已更新。")
	}
	c.Redirect(http.StatusFound, back)
}

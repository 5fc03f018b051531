package router

import (
	"time"

	"moneytrack/api"
	"moneytrack/config"
	_ "moneytrack/docs"
	"moneytrack/middleware"
	"moneytrack/web"
	"moneytrack/webauth"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	loginMaxAttempts = 10
	loginWindow      = 5 * time.Minute
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	// 金额在 JSON 中输出为数字
	decimal.MarshalJSONWithoutQuotes = true

	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(CORSMiddleware())
	r.SetHTMLTemplate(web.Templates())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	registerPages(r, cfg)
	registerAPI(r, cfg)

	return r
}

// registerPages 服务端渲染页面，Cookie 会话
func registerPages(r *gin.Engine, cfg *config.Config) {
	pages := api.NewPageHandler(cfg)

	auth := r.Group("/auth")
	{
		auth.GET("/login", pages.LoginPage)
		auth.POST("/login", middleware.LoginRateLimit(loginMaxAttempts, loginWindow), pages.Login)
		auth.GET("/register", pages.RegisterPage)
		auth.POST("/register", pages.Register)
		auth.GET("/logout", pages.Logout)
	}

	site := r.Group("")
	site.Use(webauth.SessionAuth())
	{
		site.GET("/", pages.Dashboard)
		site.POST("/", pages.QuickAdd)
		site.GET("/chart-data", pages.ChartData)

		site.GET("/transactions", pages.Transactions)
		site.GET("/transaction/edit/:id", pages.EditTransactionPage)
		site.POST("/transaction/edit/:id", pages.EditTransaction)
		site.POST("/transaction/delete/:id", pages.DeleteTransaction)

		site.GET("/categories", pages.Categories)
		site.POST("/categories", pages.CreateCategory)
		site.POST("/categories/edit/:id", pages.EditCategory)
		site.POST("/categories/delete/:id", pages.DeleteCategory)

		site.GET("/budget", pages.BudgetPage)
		site.POST("/budget", pages.SaveBudget)
	}
}

// registerAPI JSON API v1，Bearer JWT
func registerAPI(r *gin.Engine, cfg *config.Config) {
	v1 := r.Group("/api/v1")

	// 认证相关路由（无需登录）
	authHandler := api.NewAuthHandler(cfg)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", middleware.LoginRateLimit(loginMaxAttempts, loginWindow), authHandler.Login)
		auth.POST("/password/request-reset", authHandler.RequestPasswordReset)
		auth.POST("/password/reset", authHandler.ResetPassword)
	}

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth())
	{
		authorized.GET("/auth/profile", authHandler.GetProfile)
		authorized.PUT("/auth/password", authHandler.ChangePassword)

		categoryHandler := api.NewCategoryHandler()
		categories := authorized.Group("/categories")
		{
			categories.GET("", categoryHandler.List)
			categories.POST("", categoryHandler.Create)
			categories.PUT("/:id", categoryHandler.Update)
			categories.DELETE("/:id", categoryHandler.Delete)
		}

		transactionHandler := api.NewTransactionHandler(cfg)
		transactions := authorized.Group("/transactions")
		{
			transactions.GET("", transactionHandler.List)
			transactions.POST("", transactionHandler.Create)
			transactions.GET("/:id", transactionHandler.Get)
			transactions.PUT("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
		}

		budgetHandler := api.NewBudgetHandler()
		budgets := authorized.Group("/budgets")
		{
			budgets.GET("", budgetHandler.List)
			budgets.PUT("", budgetHandler.Upsert)
			budgets.DELETE("/:id", budgetHandler.Delete)
		}

		statsHandler := api.NewStatsHandler()
		statistics := authorized.Group("/statistics")
		{
			statistics.GET("/dashboard", statsHandler.Dashboard)
			statistics.GET("/chart-data", statsHandler.ChartData)
			statistics.GET("/chart.png", statsHandler.ChartImage)
		}

		exportHandler := api.NewExportHandler()
		export := authorized.Group("/export")
		{
			export.GET("/csv", exportHandler.ExportCSV)
			export.GET("/json", exportHandler.ExportJSON)
			export.GET("/excel", exportHandler.ExportExcel)
		}
	}
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

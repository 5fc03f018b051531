package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"moneytrack/config"
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg          *config.Config
	emailService *service.EmailService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		emailService: service.NewEmailService(&cfg.Email),
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64" example:"alice"`
	Email    string `json:"email" binding:"required,email,max=120" example:"alice@example.com"`
	Password string `json:"password" binding:"required,min=6,max=50" example:"password123"`
}

// LoginRequest 登录请求（支持用户名或邮箱）
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"alice"` // 可为用户名或邮箱
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    string      `json:"token"`
	UserInfo models.User `json:"user_info"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建新用户，同时生成 9 个默认分类
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=models.User} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "用户名或邮箱已存在"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := service.RegisterUser(database.DB, req.Username, req.Email, req.Password)
	if err != nil {
		ServiceError(c, err, "注册失败")
		return
	}

	SuccessWithMessage(c, "注册成功", user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 用户名或邮箱登录，获取 JWT token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 429 {object} Response "尝试过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := service.Authenticate(database.DB, req.Username, req.Password)
	if err != nil {
		Unauthorized(c, "用户名或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	Success(c, LoginResponse{Token: token, UserInfo: *user})
}

// GetProfile 获取用户信息
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	Success(c, user)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"oldpassword123"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=50" example:"newpassword123"`
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "原密码错误"
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}
	if !service.CheckPassword(user.Password, req.OldPassword) {
		Unauthorized(c, "原密码错误")
		return
	}

	hashed, err := service.HashPassword(req.NewPassword)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}
	if err := database.DB.Model(&user).Update("password", hashed).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "修改密码失败"))
		return
	}

	SuccessWithMessage(c, "密码修改成功", nil)
}

// RequestResetRequest 请求重置密码
type RequestResetRequest struct {
	Email string `json:"email" binding:"required,email" example:"alice@example.com"`
}

// ResetPasswordRequest 使用验证码重置密码
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email" example:"alice@example.com"`
	Code        string `json:"code" binding:"required,len=6" example:"123456"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=50" example:"newpassword123"`
}

const resetRequestedMessage = "如果该邮箱已注册，您将收到密码重置验证码"

// RequestPasswordReset 发送密码重置验证码
// @Summary 请求密码重置验证码
// @Description 向注册邮箱发送 6 位验证码，10 分钟内有效。为了安全，即使邮箱未注册也返回成功。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RequestResetRequest true "邮箱地址"
// @Success 200 {object} Response "请求成功（无论邮箱是否注册）"
// @Failure 400 {object} Response "参数错误"
// @Failure 503 {object} Response "邮件服务未启用"
// @Router /api/v1/auth/password/request-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req RequestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请输入有效的邮箱地址")
		return
	}
	if !h.emailService.Enabled() {
		Error(c, http.StatusServiceUnavailable, "邮件服务未启用")
		return
	}

	email := strings.TrimSpace(req.Email)
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		SuccessWithMessage(c, resetRequestedMessage, nil)
		return
	}

	// 已有未使用的有效验证码
	var existing models.PasswordReset
	if err := database.DB.Where("user_id = ? AND used = ? AND expires_at > ?", user.ID, false, time.Now()).
		First(&existing).Error; err == nil {
		SuccessWithMessage(c, "验证码已发送，请检查您的邮箱（包括垃圾邮件）", nil)
		return
	}

	code, err := models.GenerateResetCode()
	if err != nil {
		InternalError(c, "生成验证码失败")
		return
	}
	reset := models.PasswordReset{
		UserID:    user.ID,
		Code:      code,
		Email:     email,
		ExpiresAt: time.Now().Add(models.PasswordResetTTL),
	}
	if err := database.DB.Create(&reset).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建验证码失败"))
		return
	}

	if err := h.emailService.SendPasswordResetCode(email, user.Username, code); err != nil {
		database.DB.Delete(&reset)
		InternalError(c, SafeErrorMessage(err, "邮件发送失败"))
		return
	}

	SuccessWithMessage(c, resetRequestedMessage, nil)
}

// ResetPassword 使用验证码重置密码
// @Summary 重置密码
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "邮箱、验证码和新密码"
// @Success 200 {object} Response "重置成功"
// @Failure 400 {object} Response "验证码无效或已过期"
// @Router /api/v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var reset models.PasswordReset
	if err := database.DB.Where("email = ? AND code = ?", strings.TrimSpace(req.Email), req.Code).
		Order("id DESC").
		First(&reset).Error; err != nil {
		BadRequest(c, "验证码无效")
		return
	}
	if !reset.IsValid() {
		if reset.Used {
			BadRequest(c, "验证码已使用")
		} else {
			BadRequest(c, "验证码已过期")
		}
		return
	}

	hashed, err := service.HashPassword(req.NewPassword)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password", hashed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&reset).Update("used", true).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "用户不存在")
		return
	}
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "重置密码失败"))
		return
	}

	SuccessWithMessage(c, "密码重置成功，请使用新密码登录", nil)
}

package api

import (
	"moneytrack/database"
	"moneytrack/middleware"
	"moneytrack/models"
	"moneytrack/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 分类管理
type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

type CategoryCreateRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100" example:"宠物"`
	Type  string `json:"type" binding:"required,oneof=expense income" example:"expense"`
	Color string `json:"color" binding:"omitempty,max=20" example:"#ef4444"`
}

type CategoryUpdateRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100" example:"吃饭"`
	Color string `json:"color" binding:"omitempty,max=20"`
}

// List 当前用户的分类，按名称排序
// @Summary 获取分类列表
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param type query string false "expense 或 income，不传返回全部"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	txType := c.Query("type")
	if txType != "" && !models.ValidType(txType) {
		BadRequest(c, service.ErrInvalidType.Error())
		return
	}

	list, err := service.ListCategories(database.DB, userID, txType)
	if err != nil {
		ServiceError(c, err, "获取分类失败")
		return
	}
	Success(c, list)
}

// Create 新建分类
// @Summary 新建分类
// @Description 同一用户下 (名称, 类型) 不可重复
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryCreateRequest true "分类信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 409 {object} Response "分类已存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cat, err := service.CreateCategory(database.DB, userID, req.Name, req.Type, req.Color)
	if err != nil {
		ServiceError(c, err, "创建分类失败")
		return
	}
	SuccessWithMessage(c, "创建成功", cat)
}

// Update 修改分类名称和颜色
// @Summary 修改分类
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param request body CategoryUpdateRequest true "分类信息"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 404 {object} Response "分类不存在"
// @Failure 409 {object} Response "同类型下已存在同名分类"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	var req CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cat, err := service.RenameCategory(database.DB, userID, id, req.Name, req.Color)
	if err != nil {
		ServiceError(c, err, "更新分类失败")
		return
	}
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除分类，仍被交易或预算引用时拒绝
// @Summary 删除分类
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "分类不存在"
// @Failure 409 {object} Response "分类仍被引用"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, ok := parseID(c)
	if !ok {
		BadRequest(c, "无效的ID")
		return
	}

	if err := service.DeleteCategory(database.DB, userID, id); err != nil {
		ServiceError(c, err, "删除分类失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

package service

import "errors"

var (
	ErrNotFound        = errors.New("记录不存在")
	ErrUsernameTaken   = errors.New("用户名已存在")
	ErrEmailTaken      = errors.New("邮箱已被注册")
	ErrCategoryExists  = errors.New("同类型下已存在同名分类")
	ErrCategoryInUse   = errors.New("分类仍被引用，无法删除")
	ErrInvalidCategory = errors.New("分类无效")
	ErrInvalidAmount   = errors.New("金额不能为负数")
	ErrInvalidType     = errors.New("类型必须是 expense 或 income")
	ErrInvalidPeriod   = errors.New("年月无效")
	ErrMemoTooLong     = errors.New("备注不能超过 200 个字符")
	ErrEmptyName       = errors.New("名称不能为空")
)

package models

import (
	"time"
)

// 收支类型
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

// ValidType 判断是否为合法的收支类型
func ValidType(t string) bool {
	return t == TypeExpense || t == TypeIncome
}

// TypeLabel 收支类型的中文名
func TypeLabel(t string) string {
	switch t {
	case TypeExpense:
		return "支出"
	case TypeIncome:
		return "收入"
	default:
		return t
	}
}

// Category 分类，归属于单个用户
// (user_id, name, type) 的唯一性由业务层检查，数据库不加约束
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Type      string    `json:"type" gorm:"size:10;not null;default:expense;index"`
	Color     string    `json:"color" gorm:"size:20;default:#64748b"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}

// DefaultCategory 注册时创建的预设分类
type DefaultCategory struct {
	Name  string
	Type  string
	Color string
}

// DefaultCategories 新用户的九个预设分类：6 个支出、3 个收入
var DefaultCategories = []DefaultCategory{
	{"餐饮", TypeExpense, "#ef4444"},
	{"交通", TypeExpense, "#3b82f6"},
	{"购物", TypeExpense, "#a855f7"},
	{"娱乐", TypeExpense, "#ec4899"},
	{"住房", TypeExpense, "#14b8a6"},
	{"其他支出", TypeExpense, "#64748b"},
	{"工资", TypeIncome, "#10b981"},
	{"理财", TypeIncome, "#f59e0b"},
	{"其他收入", TypeIncome, "#64748b"},
}

// NewDefaultCategories 为指定用户生成预设分类
func NewDefaultCategories(userID uint) []Category {
	cats := make([]Category, 0, len(DefaultCategories))
	for _, d := range DefaultCategories {
		cats = append(cats, Category{
			UserID: userID,
			Name:   d.Name,
			Type:   d.Type,
			Color:  d.Color,
		})
	}
	return cats
}

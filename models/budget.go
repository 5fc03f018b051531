package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget 月度预算
// CategoryID 为空表示当月总预算，否则为该分类的预算。
// 每个 (user, year, month, category) 至多一条，由 upsert 保证。
type Budget struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	UserID     uint            `json:"user_id" gorm:"index;not null"`
	CategoryID *uint           `json:"category_id" gorm:"index"`
	Year       int             `json:"year" gorm:"not null;index"`
	Month      int             `json:"month" gorm:"not null;index"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}

// IsTotal 是否为月度总预算
func (b *Budget) IsTotal() bool {
	return b.CategoryID == nil
}

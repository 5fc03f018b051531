package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemoMaxLength 备注最大长度（字符数）
const MemoMaxLength = 200

// Transaction 收支记录
// Type 与分类的类型相互独立，不做一致性约束
type Transaction struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"user_id" gorm:"index;not null"`
	CategoryID      uint            `json:"category_id" gorm:"index;not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Type            string          `json:"type" gorm:"size:10;not null;default:expense;index"`
	TransactionTime time.Time       `json:"transaction_time" gorm:"not null;index"`
	Memo            string          `json:"memo" gorm:"size:200"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

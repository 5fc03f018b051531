package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

// PasswordResetTTL 重置验证码有效期
const PasswordResetTTL = 10 * time.Minute

// PasswordReset 密码重置验证码
type PasswordReset struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Code      string    `json:"-" gorm:"size:6;not null;index"`
	Email     string    `json:"email" gorm:"size:120;not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Used      bool      `json:"used" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (PasswordReset) TableName() string {
	return "password_resets"
}

// IsExpired 检查验证码是否过期
func (p *PasswordReset) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// IsValid 检查验证码是否有效
func (p *PasswordReset) IsValid() bool {
	return !p.Used && !p.IsExpired()
}

// GenerateResetCode 生成6位数字验证码
func GenerateResetCode() (string, error) {
	b := make([]byte, 3)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	code := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	code = code%900000 + 100000 // 保证是6位数
	return fmt.Sprintf("%06d", code), nil
}

var randRead = func(b []byte) (int, error) {
	return rand.Read(b)
}

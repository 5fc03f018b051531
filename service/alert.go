package service

import (
	"fmt"
	"log"
	"time"

	"moneytrack/config"
	"moneytrack/models"

	"gorm.io/gorm"
)

// BudgetAlert 记一笔支出后检查预算，刚刚超支时发送邮件提醒
type BudgetAlert struct {
	email          *EmailService
	enabled        bool
	warningPercent int
	// 测试中用于等待异步发送完成
	sent func(err error)
}

// NewBudgetAlert 邮件服务和 budget.alert_email 都开启时生效
func NewBudgetAlert(cfg *config.Config) *BudgetAlert {
	return &BudgetAlert{
		email:          NewEmailService(&cfg.Email),
		enabled:        cfg.Email.Enabled && cfg.Budget.AlertEmail,
		warningPercent: cfg.Budget.WarningPercent,
	}
}

// Check 返回因 tx 刚刚超出的预算；邮件异步发送
func (a *BudgetAlert) Check(db *gorm.DB, tx *models.Transaction) ([]BudgetStatus, error) {
	if a == nil || !a.enabled || tx.Type != models.TypeExpense {
		return nil, nil
	}
	exceeded, err := NewStatsService(db, a.warningPercent).NewlyExceeded(tx)
	if err != nil || len(exceeded) == 0 {
		return exceeded, err
	}

	var user models.User
	if err := db.Select("id", "username", "email").First(&user, tx.UserID).Error; err != nil {
		return exceeded, fmt.Errorf("查询用户失败: %w", err)
	}
	if user.Email == "" {
		return exceeded, nil
	}

	t := tx.TransactionTime.In(time.Local)
	go func() {
		err := a.email.SendBudgetAlert(user.Email, user.Username, t.Year(), int(t.Month()), exceeded)
		if err != nil {
			log.Printf("发送预算提醒邮件失败: %v", err)
		}
		if a.sent != nil {
			a.sent(err)
		}
	}()
	return exceeded, nil
}

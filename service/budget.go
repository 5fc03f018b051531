package service

import (
	"errors"
	"fmt"

	"moneytrack/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpsertBudget 设置某月预算，已存在则更新金额
// categoryID 为 nil 表示月度总预算；分类预算只接受该用户的支出分类
func UpsertBudget(db *gorm.DB, userID uint, year, month int, categoryID *uint, amount decimal.Decimal) (*models.Budget, bool, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return nil, false, ErrInvalidPeriod
	}
	if amount.IsNegative() {
		return nil, false, ErrInvalidAmount
	}

	q := db.Where("user_id = ? AND year = ? AND month = ?", userID, year, month)
	if categoryID != nil {
		cat, err := GetCategory(db, userID, *categoryID)
		if err != nil {
			return nil, false, err
		}
		if cat.Type != models.TypeExpense {
			return nil, false, fmt.Errorf("%w: 只能为支出分类设置预算", ErrInvalidCategory)
		}
		q = q.Where("category_id = ?", *categoryID)
	} else {
		q = q.Where("category_id IS NULL")
	}

	var budget models.Budget
	err := q.First(&budget).Error
	switch {
	case err == nil:
		if err := db.Model(&budget).Update("amount", amount).Error; err != nil {
			return nil, false, fmt.Errorf("更新预算失败: %w", err)
		}
		budget.Amount = amount
		return &budget, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		budget = models.Budget{
			UserID:     userID,
			CategoryID: categoryID,
			Year:       year,
			Month:      month,
			Amount:     amount,
		}
		if err := db.Create(&budget).Error; err != nil {
			return nil, false, fmt.Errorf("创建预算失败: %w", err)
		}
		return &budget, true, nil
	default:
		return nil, false, fmt.Errorf("查询预算失败: %w", err)
	}
}

// ListBudgets 某月全部预算
func ListBudgets(db *gorm.DB, userID uint, year, month int) ([]models.Budget, error) {
	var list []models.Budget
	if err := db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询预算失败: %w", err)
	}
	return list, nil
}

// DeleteBudget 删除属于该用户的预算
func DeleteBudget(db *gorm.DB, userID, id uint) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Budget{})
	if res.Error != nil {
		return fmt.Errorf("删除预算失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryBudgetRow 预算页面的一行：支出分类及其当月预算
type CategoryBudgetRow struct {
	Category models.Category
	Budget   *models.Budget
}

// BudgetSheet 预算页面数据：总预算和每个支出分类的预算（可能为空）
func BudgetSheet(db *gorm.DB, userID uint, year, month int) (*models.Budget, []CategoryBudgetRow, error) {
	categories, err := ListCategories(db, userID, models.TypeExpense)
	if err != nil {
		return nil, nil, err
	}
	budgets, err := ListBudgets(db, userID, year, month)
	if err != nil {
		return nil, nil, err
	}

	var total *models.Budget
	byCategory := make(map[uint]*models.Budget, len(budgets))
	for i := range budgets {
		b := &budgets[i]
		if b.IsTotal() {
			total = b
			continue
		}
		byCategory[*b.CategoryID] = b
	}

	rows := make([]CategoryBudgetRow, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, CategoryBudgetRow{Category: c, Budget: byCategory[c.ID]})
	}
	return total, rows, nil
}

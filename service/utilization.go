package service

import (
	"time"

	"moneytrack/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// 预算使用程度
const (
	LevelOK      = "ok"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

// Utilization 预算使用百分比 = spent / amount * 100，保留两位小数
// 预算金额为 0 时返回 0
func Utilization(amount, spent decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(amount).Mul(hundred).Round(2)
}

// Overspend 超支金额，未超支时为 0
func Overspend(amount, spent decimal.Decimal) decimal.Decimal {
	over := spent.Sub(amount)
	if over.IsPositive() {
		return over
	}
	return decimal.Zero
}

// UtilizationLevel 根据百分比和提醒阈值给出 ok / warning / danger
func UtilizationLevel(percent decimal.Decimal, warningPercent int) string {
	switch {
	case percent.GreaterThan(hundred):
		return LevelDanger
	case percent.GreaterThanOrEqual(decimal.NewFromInt(int64(warningPercent))):
		return LevelWarning
	default:
		return LevelOK
	}
}

// BudgetStatus 单条预算与实际支出的对比
type BudgetStatus struct {
	BudgetID   uint            `json:"budget_id"`
	CategoryID *uint           `json:"category_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Overspend  decimal.Decimal `json:"overspend"`
	Percent    decimal.Decimal `json:"percent"`
	Level      string          `json:"level"`
}

// TotalBudgetName 月度总预算的显示名称
const TotalBudgetName = "月度总预算"

// NewBudgetStatus 计算预算状态
func NewBudgetStatus(b *models.Budget, name string, spent decimal.Decimal, warningPercent int) BudgetStatus {
	percent := Utilization(b.Amount, spent)
	return BudgetStatus{
		BudgetID:   b.ID,
		CategoryID: b.CategoryID,
		Name:       name,
		Amount:     b.Amount,
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Overspend:  Overspend(b.Amount, spent),
		Percent:    percent,
		Level:      UtilizationLevel(percent, warningPercent),
	}
}

// CategoryAmount 按分类汇总的金额
type CategoryAmount struct {
	Name  string          `json:"name" gorm:"column:name"`
	Total decimal.Decimal `json:"total" gorm:"column:total"`
}

// DatedAmount 带时间的金额，用于按日汇总
type DatedAmount struct {
	Type            string          `gorm:"column:type"`
	Amount          decimal.Decimal `gorm:"column:amount"`
	TransactionTime time.Time       `gorm:"column:transaction_time"`
}

// DailySeries 当月每日支出/收入，下标 0 对应 1 日
type DailySeries struct {
	Labels  []int
	Expense []decimal.Decimal
	Income  []decimal.Decimal
}

// BuildDailySeries 将记录按日汇总为定长数组，没有记录的日期为 0
// 不属于该月的记录被忽略
func BuildDailySeries(year, month int, rows []DatedAmount) DailySeries {
	days := DaysIn(year, month)
	series := DailySeries{
		Labels:  make([]int, days),
		Expense: make([]decimal.Decimal, days),
		Income:  make([]decimal.Decimal, days),
	}
	for i := 0; i < days; i++ {
		series.Labels[i] = i + 1
		series.Expense[i] = decimal.Zero
		series.Income[i] = decimal.Zero
	}
	for _, r := range rows {
		t := r.TransactionTime.In(time.Local)
		if t.Year() != year || int(t.Month()) != month {
			continue
		}
		idx := t.Day() - 1
		switch r.Type {
		case models.TypeExpense:
			series.Expense[idx] = series.Expense[idx].Add(r.Amount)
		case models.TypeIncome:
			series.Income[idx] = series.Income[idx].Add(r.Amount)
		}
	}
	return series
}

// Totals 每日数组之和
func (s DailySeries) Totals() (expense, income decimal.Decimal) {
	expense, income = decimal.Zero, decimal.Zero
	for i := range s.Expense {
		expense = expense.Add(s.Expense[i])
		income = income.Add(s.Income[i])
	}
	return expense, income
}

func toFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

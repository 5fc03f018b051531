package service

import (
	"testing"
	"time"

	"moneytrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func sumRows(v string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"total"}).AddRow(v)
}

func TestStatsService_SumAmount(t *testing.T) {
	db, mock := newMockDB(t)
	start, next := MonthBounds(2024, 5)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE user_id = \\? AND type = \\? AND transaction_time >= \\? AND transaction_time < \\?").
		WithArgs(1, models.TypeExpense, start, next).
		WillReturnRows(sumRows("30.00"))

	total, err := NewStatsService(db, 80).SumAmount(1, models.TypeExpense, start, next)
	require.NoError(t, err)
	assert.Equal(t, "30", total.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_SumAmount_NoRows(t *testing.T) {
	db, mock := newMockDB(t)
	start, next := MonthBounds(2024, 5)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions`").
		WillReturnRows(sumRows("0"))

	total, err := NewStatsService(db, 80).SumAmount(1, models.TypeIncome, start, next)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_SumAmount_UsersIsolated(t *testing.T) {
	db, mock := newMockDB(t)
	start, next := MonthBounds(2024, 5)

	// 两个用户都有"餐饮"，统计条件始终带 user_id
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE user_id = \\?").
		WithArgs(1, models.TypeExpense, start, next).
		WillReturnRows(sumRows("30.00"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE user_id = \\?").
		WithArgs(2, models.TypeExpense, start, next).
		WillReturnRows(sumRows("7.50"))

	svc := NewStatsService(db, 80)
	a, err := svc.SumAmount(1, models.TypeExpense, start, next)
	require.NoError(t, err)
	b, err := svc.SumAmount(2, models.TypeExpense, start, next)
	require.NoError(t, err)
	assert.Equal(t, "30", a.String())
	assert.Equal(t, "7.5", b.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_MonthSummary(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions`").
		WithArgs(1, models.TypeIncome, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sumRows("5000.00"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions`").
		WithArgs(1, models.TypeExpense, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sumRows("1234.50"))

	s, err := NewStatsService(db, 80).MonthSummary(1, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, "5000", s.Income.String())
	assert.Equal(t, "1234.5", s.Expense.String())
	assert.Equal(t, "3765.5", s.Balance.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_SpentInMonth(t *testing.T) {
	db, mock := newMockDB(t)

	// 5 月 31 日在范围内，6 月 1 日 00:00 为开区间上界
	mayStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	juneStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE category_id = \\? AND type = \\? AND transaction_time >= \\? AND transaction_time < \\?").
		WithArgs(3, models.TypeExpense, mayStart, juneStart).
		WillReturnRows(sumRows("30.00"))

	spent, err := NewStatsService(db, 80).SpentInMonth(3, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, "30", spent.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_SpentInMonth_NoTransactions(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions`").
		WillReturnRows(sumRows("0"))

	spent, err := NewStatsService(db, 80).SpentInMonth(9, 2024, 5)
	require.NoError(t, err)
	assert.True(t, spent.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_BudgetStatuses(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	budgetCols := []string{"id", "user_id", "category_id", "year", "month", "amount", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT \\* FROM `budgets` WHERE user_id = \\? AND year = \\? AND month = \\?").
		WithArgs(1, 2024, 5).
		WillReturnRows(sqlmock.NewRows(budgetCols).
			AddRow(2, 1, 3, 2024, 5, "100.00", now, now).
			AddRow(1, 1, nil, 2024, 5, "2000.00", now, now))
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE `categories`.`id` = \\?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "type", "color"}).
			AddRow(3, 1, "餐饮", models.TypeExpense, "#ef4444"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE category_id = \\?").
		WithArgs(3, models.TypeExpense, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sumRows("150.00"))

	list, err := NewStatsService(db, 80).BudgetStatuses(1, 2024, 5, d("1700"))
	require.NoError(t, err)
	require.Len(t, list, 2)

	// 总预算排在最前
	assert.Nil(t, list[0].CategoryID)
	assert.Equal(t, TotalBudgetName, list[0].Name)
	assert.Equal(t, "85", list[0].Percent.String())
	assert.Equal(t, LevelWarning, list[0].Level)

	assert.Equal(t, "餐饮", list[1].Name)
	assert.Equal(t, "150", list[1].Spent.String())
	assert.Equal(t, "50", list[1].Overspend.String())
	assert.Equal(t, "150", list[1].Percent.String())
	assert.Equal(t, LevelDanger, list[1].Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_BudgetStatuses_ZeroAmount(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category_id", "year", "month", "amount", "created_at", "updated_at"}).
			AddRow(1, 1, nil, 2024, 5, "0.00", now, now))

	list, err := NewStatsService(db, 80).BudgetStatuses(1, 2024, 5, d("300"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Percent.IsZero())
	assert.Equal(t, "300", list[0].Overspend.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_CategoryPie(t *testing.T) {
	db, mock := newMockDB(t)
	start, next := MonthBounds(2024, 5)

	mock.ExpectQuery("SELECT categories.name AS name, SUM\\(transactions.amount\\) AS total FROM `transactions` JOIN categories ON categories.id = transactions.category_id WHERE .* GROUP BY .*name.* ORDER BY total DESC, categories.name ASC").
		WithArgs(1, models.TypeExpense, start, next).
		WillReturnRows(sqlmock.NewRows([]string{"name", "total"}).
			AddRow("住房", "3000.00").
			AddRow("餐饮", "30.00"))

	pie, err := NewStatsService(db, 80).CategoryPie(1, start, next)
	require.NoError(t, err)
	require.Len(t, pie, 2)
	assert.Equal(t, "住房", pie[0].Name)
	assert.Equal(t, "3000", pie[0].Total.String())
	assert.Equal(t, "餐饮", pie[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_ChartData(t *testing.T) {
	db, mock := newMockDB(t)
	at := func(day int) time.Time { return time.Date(2024, 5, day, 12, 0, 0, 0, time.Local) }

	mock.ExpectQuery("SELECT categories.name AS name").
		WillReturnRows(sqlmock.NewRows([]string{"name", "total"}).AddRow("餐饮", "30.00"))
	mock.ExpectQuery("SELECT type, amount, transaction_time FROM `transactions` WHERE user_id = \\?").
		WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"type", "amount", "transaction_time"}).
			AddRow(models.TypeExpense, "10.00", at(3)).
			AddRow(models.TypeExpense, "15.00", at(3)).
			AddRow(models.TypeExpense, "5.00", at(31)).
			AddRow(models.TypeIncome, "8000.00", at(10)))

	data, err := NewStatsService(db, 80).ChartData(1, "2024", "5", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2024, data.Year)
	assert.Equal(t, 5, data.Month)
	assert.Equal(t, []string{"餐饮"}, data.PieData.Labels)
	assert.Equal(t, []float64{30}, data.PieData.Data)
	require.Len(t, data.LineData.Expense, 31)
	assert.Equal(t, 25.0, data.LineData.Expense[2])
	assert.Equal(t, 5.0, data.LineData.Expense[30])
	assert.Equal(t, 8000.0, data.LineData.Income[9])

	// 每日数组之和等于当月合计
	var sum float64
	for _, v := range data.LineData.Expense {
		sum += v
	}
	assert.Equal(t, 30.0, sum)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_ChartData_InvalidMonthFallsBack(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2023, 2, 14, 8, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT categories.name AS name").
		WillReturnRows(sqlmock.NewRows([]string{"name", "total"}))
	mock.ExpectQuery("SELECT type, amount, transaction_time").
		WillReturnRows(sqlmock.NewRows([]string{"type", "amount", "transaction_time"}))

	data, err := NewStatsService(db, 80).ChartData(1, "x", "13", now)
	require.NoError(t, err)
	assert.Equal(t, 2023, data.Year)
	assert.Equal(t, 2, data.Month)
	assert.Empty(t, data.PieData.Labels)
	assert.Len(t, data.LineData.Labels, 28)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_NewlyExceeded(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	tx := &models.Transaction{
		ID:              10,
		UserID:          1,
		CategoryID:      3,
		Amount:          d("60"),
		Type:            models.TypeExpense,
		TransactionTime: time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local),
	}

	mock.ExpectQuery("SELECT \\* FROM `budgets` WHERE user_id = \\? AND year = \\? AND month = \\? AND \\(category_id IS NULL OR category_id = \\?\\)").
		WithArgs(1, 2024, 5, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category_id", "year", "month", "amount", "created_at", "updated_at"}).
			AddRow(1, 1, nil, 2024, 5, "2000.00", now, now).
			AddRow(2, 1, 3, 2024, 5, "100.00", now, now))
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "type"}).
			AddRow(3, 1, "餐饮", models.TypeExpense))
	// 总预算未超
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE user_id = \\?").
		WillReturnRows(sumRows("500.00"))
	// 分类预算 90 -> 150，本笔导致超支
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions` WHERE category_id = \\?").
		WillReturnRows(sumRows("150.00"))

	exceeded, err := NewStatsService(db, 80).NewlyExceeded(tx)
	require.NoError(t, err)
	require.Len(t, exceeded, 1)
	assert.Equal(t, "餐饮", exceeded[0].Name)
	assert.Equal(t, "50", exceeded[0].Overspend.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_NewlyExceeded_AlreadyOver(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	tx := &models.Transaction{
		UserID: 1, CategoryID: 3, Amount: d("10"), Type: models.TypeExpense,
		TransactionTime: time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local),
	}

	mock.ExpectQuery("SELECT \\* FROM `budgets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category_id", "year", "month", "amount", "created_at", "updated_at"}).
			AddRow(1, 1, nil, 2024, 5, "100.00", now, now))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `transactions`").
		WillReturnRows(sumRows("150.00"))

	exceeded, err := NewStatsService(db, 80).NewlyExceeded(tx)
	require.NoError(t, err)
	assert.Empty(t, exceeded, "超支前已经超出，不重复提醒")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_NewlyExceeded_IncomeIgnored(t *testing.T) {
	db, mock := newMockDB(t)
	exceeded, err := NewStatsService(db, 80).NewlyExceeded(&models.Transaction{Type: models.TypeIncome})
	require.NoError(t, err)
	assert.Nil(t, exceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

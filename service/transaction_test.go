package service

import (
	"strings"
	"testing"
	"time"

	"moneytrack/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%`, EscapeLike("50%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\d`, EscapeLike(`c:\d`))
	assert.Equal(t, "午餐", EscapeLike("午餐"))
}

func TestTransactionFilter_Apply(t *testing.T) {
	db, _ := newMockDB(t)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.Local)
	minAmt, maxAmt := d("10"), d("100")

	f := TransactionFilter{
		Keyword:    "50%",
		CategoryID: 3,
		StartDate:  &start,
		EndDate:    &end,
		MinAmount:  &minAmt,
		MaxAmount:  &maxAmt,
	}
	stmt := f.Apply(db.Session(&gorm.Session{DryRun: true}).Model(&models.Transaction{})).
		Find(&[]models.Transaction{}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "transactions.memo LIKE ?")
	assert.Contains(t, sql, "transactions.category_id = ?")
	assert.Contains(t, sql, "transactions.transaction_time >= ?")
	assert.Contains(t, sql, "transactions.transaction_time < ?")
	assert.Contains(t, sql, "transactions.amount >= ?")
	assert.Contains(t, sql, "transactions.amount <= ?")
	assert.False(t, strings.Contains(sql, "transactions.type"))

	require.Len(t, stmt.Vars, 6)
	assert.Equal(t, `%50\%%`, stmt.Vars[0])
	// 结束日期包含当天：上界为次日零点
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local), stmt.Vars[3])
}

func TestTransactionFilter_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	stmt := TransactionFilter{Keyword: "   "}.
		Apply(db.Session(&gorm.Session{DryRun: true}).Model(&models.Transaction{})).
		Find(&[]models.Transaction{}).Statement
	assert.NotContains(t, stmt.SQL.String(), "WHERE")
}

func TestSearchTransactions(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `transactions` WHERE transactions.user_id = \\? AND transactions.memo LIKE \\?").
		WithArgs(1, "%午餐%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery("SELECT \\* FROM `transactions` WHERE .* ORDER BY transactions.transaction_time DESC, transactions.id DESC LIMIT 20 OFFSET 20").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "category_id", "amount", "type", "transaction_time", "memo"}).
			AddRow(1, 1, 3, "12.50", models.TypeExpense, now, "午餐"))
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE `categories`.`id` = \\?").
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(3, 1, "餐饮", models.TypeExpense, "#ef4444", now, now))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(transactions.amount\\), 0\\) FROM `transactions` WHERE .* AND transactions.type = \\?").
		WithArgs(1, "%午餐%", models.TypeIncome).
		WillReturnRows(sumRows("0"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(transactions.amount\\), 0\\) FROM `transactions`").
		WithArgs(1, "%午餐%", models.TypeExpense).
		WillReturnRows(sumRows("262.50"))

	res, err := SearchTransactions(db, 1, TransactionFilter{Keyword: "午餐"}, 2, PageSizeWeb)
	require.NoError(t, err)
	assert.Equal(t, int64(21), res.Total)
	assert.Equal(t, 2, res.TotalPages())
	require.Len(t, res.List, 1)
	assert.Equal(t, "餐饮", res.List[0].Category.Name)
	assert.Equal(t, "262.5", res.Totals.Expense.String())
	assert.Equal(t, "-262.5", res.Totals.Balance.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchResult_TotalPages(t *testing.T) {
	assert.Equal(t, 1, (&SearchResult{PageSize: 20}).TotalPages())
	assert.Equal(t, 1, (&SearchResult{Total: 20, PageSize: 20}).TotalPages())
	assert.Equal(t, 3, (&SearchResult{Total: 41, PageSize: 20}).TotalPages())
}

func TestCreateTransaction_Validation(t *testing.T) {
	db, mock := newMockDB(t)

	_, err := CreateTransaction(db, 1, TransactionInput{CategoryID: 3, Amount: d("-1"), Type: models.TypeExpense})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CreateTransaction(db, 1, TransactionInput{CategoryID: 3, Amount: d("1"), Type: "transfer"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = CreateTransaction(db, 1, TransactionInput{
		CategoryID: 3, Amount: d("1"), Type: models.TypeExpense,
		Memo: strings.Repeat("备", models.MemoMaxLength+1),
	})
	assert.ErrorIs(t, err, ErrMemoTooLong)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransaction_ForeignCategory(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `categories` WHERE id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(categoryCols))

	_, err := CreateTransaction(db, 2, TransactionInput{CategoryID: 3, Amount: d("1"), Type: models.TypeExpense})
	assert.ErrorIs(t, err, ErrInvalidCategory)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(3, 1, "餐饮", models.TypeExpense, "#ef4444", now, now))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	// 收支类型与分类类型相互独立
	tx, err := CreateTransaction(db, 1, TransactionInput{
		CategoryID:      3,
		Amount:          d("12.345"),
		Type:            models.TypeIncome,
		TransactionTime: time.Date(2024, 5, 31, 23, 59, 0, 0, time.Local),
		Memo:            " 退款 ",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(42), tx.ID)
	assert.Equal(t, "12.35", tx.Amount.String())
	assert.Equal(t, "退款", tx.Memo)
	assert.Equal(t, "餐饮", tx.Category.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransaction_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `transactions` WHERE id = \\? AND user_id = \\?").
		WithArgs(5, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.ErrorIs(t, DeleteTransaction(db, 2, 5), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

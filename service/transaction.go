package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"moneytrack/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 分页大小
const (
	PageSizeWeb     = 20
	PageSizeAPI     = 10
	PageSizeAPIMax  = 100
	TransactionSort = "transactions.transaction_time DESC, transactions.id DESC"
)

// TransactionInput 新建或修改交易的输入
type TransactionInput struct {
	CategoryID      uint
	Amount          decimal.Decimal
	Type            string
	TransactionTime time.Time
	Memo            string
}

func (in *TransactionInput) validate() error {
	if in.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !models.ValidType(in.Type) {
		return ErrInvalidType
	}
	in.Memo = strings.TrimSpace(in.Memo)
	if utf8.RuneCountInString(in.Memo) > models.MemoMaxLength {
		return ErrMemoTooLong
	}
	if in.TransactionTime.IsZero() {
		in.TransactionTime = time.Now()
	}
	return nil
}

// CreateTransaction 记一笔账，分类必须属于该用户
func CreateTransaction(db *gorm.DB, userID uint, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cat, err := GetCategory(db, userID, in.CategoryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCategory
		}
		return nil, err
	}

	tx := models.Transaction{
		UserID:          userID,
		CategoryID:      cat.ID,
		Amount:          in.Amount.Round(2),
		Type:            in.Type,
		TransactionTime: in.TransactionTime,
		Memo:            in.Memo,
	}
	if err := db.Create(&tx).Error; err != nil {
		return nil, fmt.Errorf("创建交易失败: %w", err)
	}
	tx.Category = cat
	return &tx, nil
}

// GetTransaction 获取属于该用户的交易
func GetTransaction(db *gorm.DB, userID, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := db.Preload("Category").Where("id = ? AND user_id = ?", id, userID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return &tx, nil
}

// UpdateTransaction 修改交易
func UpdateTransaction(db *gorm.DB, userID, id uint, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := GetTransaction(db, userID, id)
	if err != nil {
		return nil, err
	}
	cat, err := GetCategory(db, userID, in.CategoryID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCategory
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"category_id":      cat.ID,
		"amount":           in.Amount.Round(2),
		"type":             in.Type,
		"transaction_time": in.TransactionTime,
		"memo":             in.Memo,
	}
	if err := db.Model(&models.Transaction{ID: existing.ID}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新交易失败: %w", err)
	}

	existing.CategoryID = cat.ID
	existing.Amount = in.Amount.Round(2)
	existing.Type = in.Type
	existing.TransactionTime = in.TransactionTime
	existing.Memo = in.Memo
	existing.Category = cat
	return existing, nil
}

// DeleteTransaction 删除属于该用户的交易
func DeleteTransaction(db *gorm.DB, userID, id uint) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	if res.Error != nil {
		return fmt.Errorf("删除交易失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransactionFilter 交易搜索条件，零值字段不参与过滤
type TransactionFilter struct {
	Keyword    string
	CategoryID uint
	Type       string
	StartDate  *time.Time
	EndDate    *time.Time // 包含当天
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// EscapeLike 转义 LIKE 查询中的通配符 % 和 _
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Apply 把过滤条件加到查询上
func (f TransactionFilter) Apply(q *gorm.DB) *gorm.DB {
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		q = q.Where("transactions.memo LIKE ?", "%"+EscapeLike(kw)+"%")
	}
	if f.CategoryID != 0 {
		q = q.Where("transactions.category_id = ?", f.CategoryID)
	}
	if f.Type != "" {
		q = q.Where("transactions.type = ?", f.Type)
	}
	if f.StartDate != nil {
		q = q.Where("transactions.transaction_time >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		e := f.EndDate.In(time.Local)
		next := time.Date(e.Year(), e.Month(), e.Day()+1, 0, 0, 0, 0, time.Local)
		q = q.Where("transactions.transaction_time < ?", next)
	}
	if f.MinAmount != nil {
		q = q.Where("transactions.amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("transactions.amount <= ?", *f.MaxAmount)
	}
	return q
}

// SearchResult 搜索结果：当前页记录、总条数和过滤后的收支合计
type SearchResult struct {
	List     []models.Transaction `json:"list"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Totals   Summary              `json:"totals"`
}

// TotalPages 总页数
func (r *SearchResult) TotalPages() int {
	if r.PageSize <= 0 || r.Total == 0 {
		return 1
	}
	return int((r.Total + int64(r.PageSize) - 1) / int64(r.PageSize))
}

// SearchTransactions 按条件分页查询交易，时间倒序
func SearchTransactions(db *gorm.DB, userID uint, f TransactionFilter, page, pageSize int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = PageSizeAPI
	}
	scope := func() *gorm.DB {
		return f.Apply(db.Model(&models.Transaction{}).Where("transactions.user_id = ?", userID))
	}

	res := &SearchResult{Page: page, PageSize: pageSize}
	if err := scope().Count(&res.Total).Error; err != nil {
		return nil, fmt.Errorf("统计交易数量失败: %w", err)
	}
	if err := scope().Preload("Category").
		Order(TransactionSort).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&res.List).Error; err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}

	income, err := filteredSum(scope(), models.TypeIncome)
	if err != nil {
		return nil, err
	}
	expense, err := filteredSum(scope(), models.TypeExpense)
	if err != nil {
		return nil, err
	}
	res.Totals = Summary{Income: income, Expense: expense, Balance: income.Sub(expense)}
	return res, nil
}

// ListTransactions 不分页查询（导出用）
func ListTransactions(db *gorm.DB, userID uint, f TransactionFilter) ([]models.Transaction, error) {
	var list []models.Transaction
	if err := f.Apply(db.Model(&models.Transaction{}).Where("transactions.user_id = ?", userID)).
		Preload("Category").
		Order(TransactionSort).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return list, nil
}

func filteredSum(q *gorm.DB, txType string) (decimal.Decimal, error) {
	total := decimal.Zero
	row := q.Where("transactions.type = ?", txType).Select("COALESCE(SUM(transactions.amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("统计金额失败: %w", err)
	}
	return total, nil
}

package service

import (
	"fmt"
	"sort"
	"time"

	"moneytrack/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecentLimit 首页展示的最近交易条数
const RecentLimit = 5

// Summary 月度收支汇总
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// PieData 分类饼图数据
type PieData struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// LineData 每日趋势数据
type LineData struct {
	Labels  []int     `json:"labels"`
	Expense []float64 `json:"expense"`
	Income  []float64 `json:"income"`
}

// ChartData 图表接口返回
type ChartData struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	PieData  PieData  `json:"pie_data"`
	LineData LineData `json:"line_data"`
}

// Dashboard 首页数据
type Dashboard struct {
	Year    int                  `json:"year"`
	Month   int                  `json:"month"`
	Summary Summary              `json:"summary"`
	Budgets []BudgetStatus       `json:"budgets"`
	Recent  []models.Transaction `json:"recent"`
}

// StatsService 月度统计与预算对比
// 所有查询都是单次请求内的同步计算，不缓存结果
type StatsService struct {
	db             *gorm.DB
	warningPercent int
}

// NewStatsService 创建统计服务
func NewStatsService(db *gorm.DB, warningPercent int) *StatsService {
	if warningPercent <= 0 || warningPercent > 100 {
		warningPercent = 80
	}
	return &StatsService{db: db, warningPercent: warningPercent}
}

// SumAmount 统计用户在 [start, next) 内某类型的金额合计
// 上界开区间，最后一天 23:59:59 之后带毫秒的记录也计入当月
func (s *StatsService) SumAmount(userID uint, txType string, start, next time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	row := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND type = ? AND transaction_time >= ? AND transaction_time < ?", userID, txType, start, next).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("统计金额失败: %w", err)
	}
	return total, nil
}

// MonthSummary 某月收入、支出与结余
func (s *StatsService) MonthSummary(userID uint, year, month int) (Summary, error) {
	start, next := MonthBounds(year, month)
	income, err := s.SumAmount(userID, models.TypeIncome, start, next)
	if err != nil {
		return Summary{}, err
	}
	expense, err := s.SumAmount(userID, models.TypeExpense, start, next)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Income: income, Expense: expense, Balance: income.Sub(expense)}, nil
}

// SpentInMonth 某分类在指定年月的支出合计
func (s *StatsService) SpentInMonth(categoryID uint, year, month int) (decimal.Decimal, error) {
	start, next := MonthBounds(year, month)
	total := decimal.Zero
	row := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("category_id = ? AND type = ? AND transaction_time >= ? AND transaction_time < ?",
			categoryID, models.TypeExpense, start, next).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("统计分类支出失败: %w", err)
	}
	return total, nil
}

// BudgetStatuses 当月预算执行情况，总预算在前，分类预算按名称排序
// totalExpense 为当月支出合计，用于总预算
func (s *StatsService) BudgetStatuses(userID uint, year, month int, totalExpense decimal.Decimal) ([]BudgetStatus, error) {
	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("查询预算失败: %w", err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for i := range budgets {
		b := &budgets[i]
		if b.IsTotal() {
			statuses = append(statuses, NewBudgetStatus(b, TotalBudgetName, totalExpense, s.warningPercent))
			continue
		}
		spent, err := s.SpentInMonth(*b.CategoryID, year, month)
		if err != nil {
			return nil, err
		}
		name := ""
		if b.Category != nil {
			name = b.Category.Name
		}
		statuses = append(statuses, NewBudgetStatus(b, name, spent, s.warningPercent))
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		ti, tj := statuses[i].CategoryID == nil, statuses[j].CategoryID == nil
		if ti != tj {
			return ti
		}
		return statuses[i].Name < statuses[j].Name
	})
	return statuses, nil
}

// CategoryPie 窗口内支出按分类名称汇总，金额从大到小
func (s *StatsService) CategoryPie(userID uint, start, next time.Time) ([]CategoryAmount, error) {
	var rows []CategoryAmount
	err := s.db.Model(&models.Transaction{}).
		Select("categories.name AS name, SUM(transactions.amount) AS total").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ? AND transactions.transaction_time >= ? AND transactions.transaction_time < ?",
			userID, models.TypeExpense, start, next).
		Group("categories.name").
		Order("total DESC, categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计分类支出失败: %w", err)
	}
	return rows, nil
}

// DailyTrend 当月每日支出和收入
func (s *StatsService) DailyTrend(userID uint, year, month int) (DailySeries, error) {
	start, next := MonthBounds(year, month)
	var rows []DatedAmount
	err := s.db.Model(&models.Transaction{}).
		Select("type, amount, transaction_time").
		Where("user_id = ? AND transaction_time >= ? AND transaction_time < ?", userID, start, next).
		Scan(&rows).Error
	if err != nil {
		return DailySeries{}, fmt.Errorf("查询每日收支失败: %w", err)
	}
	return BuildDailySeries(year, month, rows), nil
}

// ChartData 图表数据，年月无法解析时使用 now 所在月份
func (s *StatsService) ChartData(userID uint, yearStr, monthStr string, now time.Time) (*ChartData, error) {
	_, _, year, month := MonthRange(yearStr, monthStr, now)
	start, next := MonthBounds(year, month)

	pie, err := s.CategoryPie(userID, start, next)
	if err != nil {
		return nil, err
	}
	series, err := s.DailyTrend(userID, year, month)
	if err != nil {
		return nil, err
	}

	data := &ChartData{
		Year:  year,
		Month: month,
		PieData: PieData{
			Labels: make([]string, 0, len(pie)),
			Data:   make([]float64, 0, len(pie)),
		},
		LineData: LineData{
			Labels:  series.Labels,
			Expense: toFloats(series.Expense),
			Income:  toFloats(series.Income),
		},
	}
	for _, p := range pie {
		data.PieData.Labels = append(data.PieData.Labels, p.Name)
		data.PieData.Data = append(data.PieData.Data, p.Total.InexactFloat64())
	}
	return data, nil
}

// RecentTransactions 最近录入的交易
func (s *StatsService) RecentTransactions(userID uint, limit int) ([]models.Transaction, error) {
	var list []models.Transaction
	if err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询最近交易失败: %w", err)
	}
	return list, nil
}

// Dashboard 首页：月度汇总、预算执行情况和最近交易
func (s *StatsService) Dashboard(userID uint, yearStr, monthStr string, now time.Time) (*Dashboard, error) {
	_, _, year, month := MonthRange(yearStr, monthStr, now)

	summary, err := s.MonthSummary(userID, year, month)
	if err != nil {
		return nil, err
	}
	budgets, err := s.BudgetStatuses(userID, year, month, summary.Expense)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentTransactions(userID, RecentLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Year:    year,
		Month:   month,
		Summary: summary,
		Budgets: budgets,
		Recent:  recent,
	}, nil
}

// NewlyExceeded 返回因这笔支出而刚刚超出的预算（分类预算和总预算）
// tx 必须已经入库
func (s *StatsService) NewlyExceeded(tx *models.Transaction) ([]BudgetStatus, error) {
	if tx.Type != models.TypeExpense {
		return nil, nil
	}
	t := tx.TransactionTime.In(time.Local)
	year, month := t.Year(), int(t.Month())

	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ? AND (category_id IS NULL OR category_id = ?)",
			tx.UserID, year, month, tx.CategoryID).
		Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("查询预算失败: %w", err)
	}

	var exceeded []BudgetStatus
	for i := range budgets {
		b := &budgets[i]
		var (
			spent decimal.Decimal
			name  string
			err   error
		)
		if b.IsTotal() {
			start, next := MonthBounds(year, month)
			spent, err = s.SumAmount(tx.UserID, models.TypeExpense, start, next)
			name = TotalBudgetName
		} else {
			spent, err = s.SpentInMonth(*b.CategoryID, year, month)
			if b.Category != nil {
				name = b.Category.Name
			}
		}
		if err != nil {
			return nil, err
		}
		before := spent.Sub(tx.Amount)
		if spent.GreaterThan(b.Amount) && !before.GreaterThan(b.Amount) {
			exceeded = append(exceeded, NewBudgetStatus(b, name, spent, s.warningPercent))
		}
	}
	return exceeded, nil
}

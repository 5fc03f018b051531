package service

import (
	"strconv"
	"strings"
	"time"
)

// MonthRange 根据年、月字符串计算该月的起止时间
// start 为当月 1 日 00:00:00，end 为当月最后一天 23:59:59。
// 年或月无法解析（或超出范围）时使用 now 所在的年月，不视为错误。
func MonthRange(yearStr, monthStr string, now time.Time) (start, end time.Time, year, month int) {
	year, month, ok := parseYearMonth(yearStr, monthStr)
	if !ok {
		year, month = now.Year(), int(now.Month())
	}
	start, end = MonthWindow(year, month)
	return start, end, year, month
}

// MonthWindow 某月的闭区间 [1 日 00:00:00, 最后一天 23:59:59]，用于展示
// 金额汇总一律使用 MonthBounds，避免漏掉 23:59:59 之后的亚秒记录
func MonthWindow(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end = time.Date(year, time.Month(month), DaysIn(year, month), 23, 59, 59, 0, time.Local)
	return start, end
}

// MonthBounds 返回 [当月 1 日, 下月 1 日) 的半开区间
func MonthBounds(year, month int) (start, next time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 1, 0)
}

// DaysIn 某月的天数，闰年二月为 29
func DaysIn(year, month int) int {
	// 下月第 0 天即本月最后一天
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseYearMonth(yearStr, monthStr string) (int, int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

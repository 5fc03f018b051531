package web

import (
	"embed"
	"html/template"
	"strconv"

	"moneytrack/models"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// FuncMap 页面模板可用的函数
var FuncMap = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"typeLabel": models.TypeLabel,
	"levelClass": func(level string) string {
		switch level {
		case "danger":
			return "bar-danger"
		case "warning":
			return "bar-warning"
		default:
			return "bar-ok"
		}
	},
	// 进度条宽度，超过 100% 按 100% 显示
	"barWidth": func(percent decimal.Decimal) string {
		if percent.GreaterThan(decimal.NewFromInt(100)) {
			return "100"
		}
		return percent.StringFixed(0)
	},
	"add": func(a, b int) int { return a + b },
	"itoa": strconv.Itoa,
	"utoa": func(u uint) string {
		return strconv.FormatUint(uint64(u), 10)
	},
	"uintEq": func(a uint, b *uint) bool {
		return b != nil && *b == a
	},
}

// Templates 解析嵌入的全部页面模板
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(FuncMap).ParseFS(templateFS, "templates/*.html"))
}

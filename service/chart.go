package service

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoChartData 没有可绘制的数据
var ErrNoChartData = errors.New("没有可绘制的数据")

// RenderPieChart 支出分类饼图（PNG）
func RenderPieChart(title string, rows []CategoryAmount) ([]byte, error) {
	values := make([]chart.Value, 0, len(rows))
	for _, r := range rows {
		if !r.Total.IsPositive() {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s", r.Name, r.Total.StringFixed(2)),
			Value: r.Total.InexactFloat64(),
		})
	}
	if len(values) == 0 {
		return nil, ErrNoChartData
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("绘制饼图失败: %w", err)
	}
	return buffer.Bytes(), nil
}

// RenderTrendChart 当月每日收支折线图（PNG）
func RenderTrendChart(title string, series DailySeries) ([]byte, error) {
	if len(series.Labels) == 0 {
		return nil, ErrNoChartData
	}

	xValues := make([]float64, len(series.Labels))
	for i, day := range series.Labels {
		xValues[i] = float64(day)
	}
	expense := toFloats(series.Expense)
	income := toFloats(series.Income)

	// 全为 0 时 go-chart 无法推算 Y 轴范围，这里固定从 0 开始
	top := 1.0
	for i := range expense {
		if expense[i] > top {
			top = expense[i]
		}
		if income[i] > top {
			top = income[i]
		}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1200,
		Height: 600,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return decimal.NewFromFloat(v.(float64)).StringFixed(0)
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "支出",
				XValues: xValues,
				YValues: expense,
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "收入",
				XValues: xValues,
				YValues: income,
				Style:   chart.Style{StrokeColor: chart.ColorGreen, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("绘制趋势图失败: %w", err)
	}
	return buffer.Bytes(), nil
}

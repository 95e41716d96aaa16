// Package charts renders sales report charts as PNG images
package charts

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/pkg/types"
)

// DailyPoint is one day of aggregated profit data, in baht
type DailyPoint struct {
	Date        time.Time
	GrossProfit float64
	NetProfit   float64
	Expenses    float64
}

// BuildDailyPoints groups transactions and expenses by close date across the
// inclusive [from, to] range. Days without activity appear as zero points so
// the x axis has no gaps.
func BuildDailyPoints(txns []types.Transaction, finance []types.FinanceTransaction, from, to time.Time) []DailyPoint {
	days := make(map[string]*DailyPoint)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		days[key] = &DailyPoint{Date: d}
	}

	for _, t := range txns {
		if len(t.DateClose) < 10 {
			continue
		}
		if p, ok := days[t.DateClose[:10]]; ok {
			p.GrossProfit += float64(poster.Satang(t.Profit)) / 100
		}
	}
	for _, f := range finance {
		if f.Amount >= 0 || len(f.Date) < 10 {
			continue
		}
		if p, ok := days[f.Date[:10]]; ok {
			p.Expenses += float64(-f.Amount) / 100
		}
	}

	points := make([]DailyPoint, 0, len(days))
	for _, p := range days {
		p.NetProfit = p.GrossProfit - p.Expenses
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// DailyProfit renders gross profit, net profit and expenses per day
func DailyProfit(points []DailyPoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no data points to chart")
	}

	xs := make([]time.Time, len(points))
	gross := make([]float64, len(points))
	net := make([]float64, len(points))
	expenses := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		gross[i] = p.GrossProfit
		net[i] = p.NetProfit
		expenses[i] = p.Expenses
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1000,
		Height: 500,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Gross Profit",
				XValues: xs,
				YValues: gross,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("4CAF50")},
			},
			chart.TimeSeries{
				Name:    "Net Profit",
				XValues: xs,
				YValues: net,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("2196F3")},
			},
			chart.TimeSeries{
				Name:    "Expenses",
				XValues: xs,
				YValues: expenses,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("F44336")},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering daily profit chart: %w", err)
	}
	return buf.Bytes(), nil
}

// TopProducts renders the best-selling products by revenue as a bar chart
func TopProducts(sales []types.ProductSale, title string, topN int) ([]byte, error) {
	if len(sales) == 0 {
		return nil, fmt.Errorf("no product sales to chart")
	}

	sorted := make([]types.ProductSale, len(sales))
	copy(sorted, sales)
	sort.Slice(sorted, func(i, j int) bool {
		return poster.Satang(sorted[i].PayedSum) > poster.Satang(sorted[j].PayedSum)
	})
	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}

	bars := make([]chart.Value, 0, len(sorted))
	for _, p := range sorted {
		name := p.ProductName
		if len(name) > 20 {
			name = name[:20]
		}
		bars = append(bars, chart.Value{
			Label: name,
			Value: float64(poster.Satang(p.PayedSum)) / 100,
		})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    1000,
		Height:   600,
		BarWidth: 50,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering products chart: %w", err)
	}
	return buf.Bytes(), nil
}

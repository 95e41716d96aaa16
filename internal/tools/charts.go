package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/barkeephq/barkeep/internal/charts"
	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/pkg/types"
)

// parsePosterDate parses the YYYYMMDD format the tool inputs use
func parsePosterDate(value string) (time.Time, error) {
	t, err := time.Parse("20060102", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", value)
	}
	return t, nil
}

// RegisterChartTools adds the chart-producing tools. These return a rendered
// PNG alongside a short acknowledgment, so the model sees a textual result
// and the caller receives the image out of band.
func RegisterChartTools(r *Registry, client *poster.Client) {
	r.MustRegister(&Tool{
		Name:        "generate_sales_chart",
		Description: "Generate a chart image of daily gross profit, net profit, and expenses for a date range. The chart is delivered to the user automatically.",
		InputSchema: dateRangeSchema(),
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			fromStr := stringArg(input, "date_from")
			if fromStr == "" {
				return types.ToolOutcome{}, fmt.Errorf("date_from is required")
			}
			toStr := stringArg(input, "date_to")
			if toStr == "" {
				toStr = fromStr
			}

			from, err := parsePosterDate(fromStr)
			if err != nil {
				return types.ToolOutcome{}, err
			}
			to, err := parsePosterDate(toStr)
			if err != nil {
				return types.ToolOutcome{}, err
			}

			txns, err := client.GetTransactions(ctx, fromStr, toStr)
			if err != nil {
				return types.ToolOutcome{}, err
			}
			finance, err := client.GetFinanceTransactions(ctx, fromStr, toStr)
			if err != nil {
				return types.ToolOutcome{}, err
			}

			title := fmt.Sprintf("Daily Profit %s - %s", from.Format("2 Jan"), to.Format("2 Jan 2006"))
			png, err := charts.DailyProfit(charts.BuildDailyPoints(txns, finance, from, to), title)
			if err != nil {
				return types.ToolOutcome{}, err
			}

			ack := fmt.Sprintf("Sales chart generated for %s to %s (%d transactions). It will be sent to the user.", fromStr, toStr, len(txns))
			return types.ArtifactOutcome(ack, png), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "generate_products_chart",
		Description: "Generate a chart image of the top products by revenue for a date range. The chart is delivered to the user automatically.",
		InputSchema: dateRangeSchema(),
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			fromStr := stringArg(input, "date_from")
			if fromStr == "" {
				return types.ToolOutcome{}, fmt.Errorf("date_from is required")
			}
			toStr := stringArg(input, "date_to")
			if toStr == "" {
				toStr = fromStr
			}

			sales, err := client.GetProductSales(ctx, fromStr, toStr)
			if err != nil {
				return types.ToolOutcome{}, err
			}

			title := fmt.Sprintf("Top Products %s - %s", fromStr, toStr)
			png, err := charts.TopProducts(sales, title, 10)
			if err != nil {
				return types.ToolOutcome{}, err
			}

			ack := fmt.Sprintf("Top products chart generated for %s to %s (%d products). It will be sent to the user.", fromStr, toStr, len(sales))
			return types.ArtifactOutcome(ack, png), nil
		},
	})
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/pkg/types"
)

// rawResultLimit caps the raw payload handed to the model in a live turn.
// Historical turns get compacted much harder when the history is trimmed.
const rawResultLimit = 50000

// dateRangeSchema is the shared input schema for date-ranged report tools
func dateRangeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date_from": map[string]any{
				"type":        "string",
				"description": "Start date in YYYYMMDD format",
			},
			"date_to": map[string]any{
				"type":        "string",
				"description": "End date in YYYYMMDD format (optional, defaults to date_from)",
			},
		},
		"required": []string{"date_from"},
	}
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

// stringArg extracts a string argument, tolerating absent keys
func stringArg(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// rawOutcome converts an API payload into a bounded text outcome
func rawOutcome(raw json.RawMessage) types.ToolOutcome {
	text := string(raw)
	if len(text) > rawResultLimit {
		text = text[:rawResultLimit] + "... (truncated)"
	}
	return types.TextOutcome(text)
}

// RegisterPosterTools adds the POS report tools to the registry
func RegisterPosterTools(r *Registry, client *poster.Client) {
	rangedTool := func(name, description string, fetch func(ctx context.Context, from, to string) (json.RawMessage, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: description,
			InputSchema: dateRangeSchema(),
			Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
				from := stringArg(input, "date_from")
				if from == "" {
					return types.ToolOutcome{}, fmt.Errorf("date_from is required")
				}
				raw, err := fetch(ctx, from, stringArg(input, "date_to"))
				if err != nil {
					return types.ToolOutcome{}, err
				}
				return rawOutcome(raw), nil
			},
		}
	}

	r.MustRegister(rangedTool(
		"get_transactions",
		"Get sales transactions for a date range. Returns list of transactions with totals, payment types, and timestamps.",
		client.GetTransactionsRaw,
	))
	r.MustRegister(rangedTool(
		"get_product_sales",
		"Get product-level sales data for a date range. Returns which products were sold and quantities.",
		client.GetProductSalesRaw,
	))
	r.MustRegister(rangedTool(
		"get_ingredient_usage",
		"Get ingredient usage/movement report for a date range. Shows how ingredients were consumed.",
		client.GetIngredientUsageRaw,
	))
	r.MustRegister(rangedTool(
		"get_finance_transactions",
		"Get finance transactions including expenses and income for a date range.",
		client.GetFinanceTransactionsRaw,
	))

	r.MustRegister(&Tool{
		Name:        "get_stock_levels",
		Description: "Get current inventory/stock levels for all ingredients and products.",
		InputSchema: emptySchema(),
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			raw, err := client.GetStockLevelsRaw(ctx)
			if err != nil {
				return types.ToolOutcome{}, err
			}
			return rawOutcome(raw), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "get_cash_shifts",
		Description: "Get cash register shift data including opening/closing amounts.",
		InputSchema: emptySchema(),
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			raw, err := client.GetCashShiftsRaw(ctx)
			if err != nil {
				return types.ToolOutcome{}, err
			}
			return rawOutcome(raw), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "get_transaction_products",
		Description: "Get products/items included in a specific transaction.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"transaction_id": map[string]any{
					"type":        "string",
					"description": "The transaction ID to get products for",
				},
			},
			"required": []string{"transaction_id"},
		},
		Handler: func(ctx context.Context, input map[string]any) (types.ToolOutcome, error) {
			id := stringArg(input, "transaction_id")
			if id == "" {
				return types.ToolOutcome{}, fmt.Errorf("transaction_id is required")
			}
			raw, err := client.GetTransactionProductsRaw(ctx, id)
			if err != nil {
				return types.ToolOutcome{}, err
			}
			return rawOutcome(raw), nil
		},
	})
}

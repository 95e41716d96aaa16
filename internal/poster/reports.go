package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/barkeephq/barkeep/pkg/types"
)

// GetTransactions returns decoded transactions for a date range
func (c *Client) GetTransactions(ctx context.Context, from, to string) ([]types.Transaction, error) {
	raw, err := c.GetTransactionsRaw(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var txns []types.Transaction
	if err := json.Unmarshal(raw, &txns); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}
	return txns, nil
}

// GetProductSales returns decoded product sales for a date range
func (c *Client) GetProductSales(ctx context.Context, from, to string) ([]types.ProductSale, error) {
	raw, err := c.GetProductSalesRaw(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var sales []types.ProductSale
	if err := json.Unmarshal(raw, &sales); err != nil {
		return nil, fmt.Errorf("decoding product sales: %w", err)
	}
	return sales, nil
}

// GetFinanceTransactions returns decoded finance transactions for a date range
func (c *Client) GetFinanceTransactions(ctx context.Context, from, to string) ([]types.FinanceTransaction, error) {
	raw, err := c.GetFinanceTransactionsRaw(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var txns []types.FinanceTransaction
	if err := json.Unmarshal(raw, &txns); err != nil {
		return nil, fmt.Errorf("decoding finance transactions: %w", err)
	}
	return txns, nil
}

// Satang parses a Poster monetary string into satang. The API mixes string
// and numeric encodings, so empty and malformed values count as zero.
func Satang(value string) int64 {
	if value == "" {
		return 0
	}
	// Some endpoints deliver decimals ("1050.00" satang)
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		value = value[:idx]
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Summarize aggregates transactions and expenses for display. Finance rows
// with negative amounts count as expenses, except cash payment postings which
// mirror sales income.
func Summarize(txns []types.Transaction, finance []types.FinanceTransaction) types.SalesSummary {
	var sum types.SalesSummary
	for _, t := range txns {
		if t.DateClose == "" && t.Status != "2" {
			sum.OpenOrders++
			continue
		}
		sum.Count++
		sum.Revenue += Satang(t.Sum)
		sum.Profit += Satang(t.Profit)
		sum.CashTotal += Satang(t.PayedCash)
		sum.CardTotal += Satang(t.PayedCard)
	}
	for _, f := range finance {
		if f.Amount >= 0 || strings.Contains(f.Comment, "Cash payments") {
			continue
		}
		sum.Expenses += -f.Amount
	}
	sum.NetProfit = sum.Profit - sum.Expenses
	return sum
}

// FormatBaht renders a satang amount as Thai Baht with thousands separators
func FormatBaht(satang int64) string {
	baht := satang / 100
	neg := baht < 0
	if neg {
		baht = -baht
	}

	digits := strconv.FormatInt(baht, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	out := "฿" + b.String()
	if neg {
		out = "-" + out
	}
	return out
}

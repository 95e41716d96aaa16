package poster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barkeephq/barkeep/pkg/types"
)

func TestSatang(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"125000", 125000},
		{"1050.00", 1050},
		{"1050.75", 1050},
		{"-500", -500},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Satang(tt.in), "Satang(%q)", tt.in)
	}
}

func TestSummarize(t *testing.T) {
	txns := []types.Transaction{
		{TransactionID: "1", DateClose: "2025-03-01 20:00:00", Sum: "250000", Profit: "90000", PayedCash: "250000"},
		{TransactionID: "2", DateClose: "2025-03-01 21:00:00", Sum: "100000", Profit: "40000", PayedCard: "100000"},
		{TransactionID: "3"}, // still open
	}
	finance := []types.FinanceTransaction{
		{TransactionID: "f1", Amount: -30000, CategoryName: "Supplies"},
		{TransactionID: "f2", Amount: -250000, Comment: "Cash payments 2025-03-01"},
		{TransactionID: "f3", Amount: 15000},
	}

	got := Summarize(txns, finance)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.OpenOrders)
	assert.Equal(t, int64(350000), got.Revenue)
	assert.Equal(t, int64(130000), got.Profit)
	assert.Equal(t, int64(250000), got.CashTotal)
	assert.Equal(t, int64(100000), got.CardTotal)
	// The cash payments posting mirrors sales income and is not an expense
	assert.Equal(t, int64(30000), got.Expenses)
	assert.Equal(t, int64(100000), got.NetProfit)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, nil)
	assert.Equal(t, types.SalesSummary{}, got)
}

func TestFormatBaht(t *testing.T) {
	tests := []struct {
		satang int64
		want   string
	}{
		{0, "฿0"},
		{100, "฿1"},
		{125000, "฿1,250"},
		{123456700, "฿1,234,567"},
		{-250000, "-฿2,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBaht(tt.satang), "FormatBaht(%d)", tt.satang)
	}
}

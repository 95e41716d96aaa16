package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/poster"
)

func chartRegistry(t *testing.T) *Registry {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "dash.getTransactions"):
			fmt.Fprint(w, `{"response":[
				{"transaction_id":"1","sum":"250000","total_profit":"90000","date_close_date":"2025-03-01 20:00:00"},
				{"transaction_id":"2","sum":"150000","total_profit":"60000","date_close_date":"2025-03-02 19:00:00"}
			]}`)
		case strings.Contains(r.URL.Path, "finance.getTransactions"):
			fmt.Fprint(w, `{"response":[{"transaction_id":"f1","amount":-20000,"date":"2025-03-01 10:00:00"}]}`)
		case strings.Contains(r.URL.Path, "dash.getProductsSales"):
			fmt.Fprint(w, `{"response":[
				{"product_id":"1","product_name":"Mojito","payed_sum":"300000"},
				{"product_id":"2","product_name":"Beer","payed_sum":"500000"}
			]}`)
		default:
			fmt.Fprint(w, `{"response":[]}`)
		}
	}))
	t.Cleanup(srv.Close)

	r := NewRegistry(zap.NewNop())
	RegisterChartTools(r, poster.NewClient("test", poster.WithBaseURL(srv.URL)))
	return r
}

func TestGenerateSalesChart(t *testing.T) {
	r := chartRegistry(t)

	outcome := r.Dispatch(context.Background(), "generate_sales_chart", map[string]any{
		"date_from": "20250301",
		"date_to":   "20250302",
	})
	require.False(t, outcome.IsError(), outcome.Text)
	assert.Contains(t, outcome.Text, "Sales chart generated")
	assert.Contains(t, outcome.Text, "2 transactions")
	assert.True(t, bytes.HasPrefix(outcome.Artifact, []byte{0x89, 'P', 'N', 'G'}))
}

func TestGenerateProductsChart(t *testing.T) {
	r := chartRegistry(t)

	outcome := r.Dispatch(context.Background(), "generate_products_chart", map[string]any{
		"date_from": "20250301",
	})
	require.False(t, outcome.IsError(), outcome.Text)
	assert.Contains(t, outcome.Text, "Top products chart generated")
	assert.True(t, bytes.HasPrefix(outcome.Artifact, []byte{0x89, 'P', 'N', 'G'}))
}

func TestGenerateSalesChartRejectsBadDates(t *testing.T) {
	r := chartRegistry(t)

	outcome := r.Dispatch(context.Background(), "generate_sales_chart", map[string]any{
		"date_from": "2025-03-01",
	})
	assert.True(t, outcome.IsError())
	assert.Contains(t, outcome.Text, "expected YYYYMMDD")

	outcome = r.Dispatch(context.Background(), "generate_sales_chart", map[string]any{})
	assert.True(t, outcome.IsError())
	assert.Contains(t, outcome.Text, "date_from is required")
}

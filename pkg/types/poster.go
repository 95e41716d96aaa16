package types

// Transaction is a closed or open sale from dash.getTransactions.
// Monetary fields are in satang (1/100 baht), as delivered by the API.
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	DateClose     string `json:"date_close_date,omitempty"`
	Status        string `json:"status,omitempty"`
	Sum           string `json:"sum"`
	Profit        string `json:"total_profit,omitempty"`
	PayedCash     string `json:"payed_cash,omitempty"`
	PayedCard     string `json:"payed_card,omitempty"`
}

// ProductSale is one row of dash.getProductsSales
type ProductSale struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Count       string `json:"count"`
	PayedSum    string `json:"payed_sum"`
	Profit      string `json:"product_profit,omitempty"`
}

// FinanceTransaction is one row of finance.getTransactions
type FinanceTransaction struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	Amount        int64  `json:"amount"`
	Comment       string `json:"comment,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
}

// CashShift is one row of finance.getCashShifts
type CashShift struct {
	ShiftID     string `json:"cash_shift_id"`
	DateStart   string `json:"date_start"`
	DateEnd     string `json:"date_end,omitempty"`
	AmountStart int64  `json:"amount_start"`
	AmountEnd   int64  `json:"amount_end,omitempty"`
}

// StockItem is one row of storage.getStorageLeftovers
type StockItem struct {
	IngredientID   string `json:"ingredient_id"`
	IngredientName string `json:"ingredient_name"`
	Left           string `json:"storage_ingredient_left"`
	Unit           string `json:"ingredient_unit,omitempty"`
}

// SalesSummary aggregates a set of transactions for display
type SalesSummary struct {
	Count      int   `json:"count"`
	Revenue    int64 `json:"revenue"`    // satang
	Profit     int64 `json:"profit"`     // satang
	CashTotal  int64 `json:"cash_total"` // satang
	CardTotal  int64 `json:"card_total"` // satang
	Expenses   int64 `json:"expenses"`   // satang, positive
	NetProfit  int64 `json:"net_profit"` // satang
	OpenOrders int   `json:"open_orders"`
}

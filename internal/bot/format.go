package bot

import (
	"fmt"
	"strings"

	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/pkg/types"
)

const startText = `Hi! I watch your Poster POS and answer questions about the bar.

/today - today's sales summary
/agent &lt;question&gt; - ask anything about sales, stock or finances
/help - full command list`

const helpText = `<b>Reports</b>
/today - today's sales
/week - last 7 days
/month - last 30 days
/summary YYYYMMDD [YYYYMMDD] - custom range

<b>Assistant</b>
/agent &lt;question&gt; - ask the assistant (charts included)
/clear - forget our conversation
/usage - your requests today
/limits - your current limits

<b>Notifications</b>
/subscribe - daily summary every morning
/unsubscribe - stop daily summaries

You can also just type a question without any command.`

// FormatSummary renders a sales summary as a Telegram HTML message
func FormatSummary(title string, s types.SalesSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", title)
	fmt.Fprintf(&b, "Orders: <b>%d</b>\n", s.Count)
	fmt.Fprintf(&b, "Revenue: <b>%s</b>\n", poster.FormatBaht(s.Revenue))
	fmt.Fprintf(&b, "Gross profit: <b>%s</b>\n", poster.FormatBaht(s.Profit))
	fmt.Fprintf(&b, "Expenses: <b>%s</b>\n", poster.FormatBaht(s.Expenses))
	fmt.Fprintf(&b, "Net profit: <b>%s</b>\n\n", poster.FormatBaht(s.NetProfit))
	fmt.Fprintf(&b, "Cash: %s / Card: %s", poster.FormatBaht(s.CashTotal), poster.FormatBaht(s.CardTotal))
	if s.OpenOrders > 0 {
		fmt.Fprintf(&b, "\nOpen orders: %d", s.OpenOrders)
	}
	return b.String()
}

// Package notifier pushes the scheduled daily sales summary to
// subscribed Telegram chats.
package notifier

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/bot"
	"github.com/barkeephq/barkeep/internal/config"
	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/pkg/telemetry"
)

// Notifier runs the daily summary job on a cron schedule
type Notifier struct {
	bot    *bot.Bot
	pos    *poster.Client
	cfg    *config.Config
	logger *zap.Logger
	cron   *cron.Cron
}

// New creates a notifier. Start must be called to begin scheduling.
func New(b *bot.Bot, pos *poster.Client, cfg *config.Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		bot:    b,
		pos:    pos,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the summary job and starts the scheduler
func (n *Notifier) Start(schedule string) error {
	_, err := n.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n.SendDailySummary(ctx)
	})
	if err != nil {
		return err
	}
	n.cron.Start()
	n.logger.Info("daily summary scheduled", zap.String("cron", schedule))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish
func (n *Notifier) Stop() {
	<-n.cron.Stop().Done()
}

// SendDailySummary reports yesterday's numbers to every subscriber
func (n *Notifier) SendDailySummary(ctx context.Context) {
	ctx, span := telemetry.StartDailySummarySpan(ctx)
	defer span.End()

	chats := n.cfg.SubscribedChats()
	if len(chats) == 0 {
		return
	}

	yesterday := time.Now().AddDate(0, 0, -1).Format("20060102")
	txns, err := n.pos.GetTransactions(ctx, yesterday, yesterday)
	if err != nil {
		telemetry.RecordError(span, err)
		n.logger.Error("daily summary fetch failed", zap.Error(err))
		return
	}
	finance, err := n.pos.GetFinanceTransactions(ctx, yesterday, yesterday)
	if err != nil {
		telemetry.RecordError(span, err)
		n.logger.Error("daily finance fetch failed", zap.Error(err))
		return
	}

	text := bot.FormatSummary("Yesterday's summary", poster.Summarize(txns, finance))
	for _, chatID := range chats {
		if err := n.bot.SendText(chatID, text); err != nil {
			n.logger.Error("daily summary send failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	n.logger.Info("daily summary sent", zap.Int("chats", len(chats)))
}

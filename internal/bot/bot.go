// Package bot wires the agent, quota store and sales reports into a
// Telegram command surface.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/agent"
	"github.com/barkeephq/barkeep/internal/config"
	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/internal/quota"
)

// Bot handles Telegram updates
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *agent.Engine
	quotas quota.Store
	pos    *poster.Client
	cfg    *config.Config
	logger *zap.Logger
}

// New connects to the Telegram API and returns a ready bot
func New(cfg *config.Config, engine *agent.Engine, quotas quota.Store, pos *poster.Client, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:    api,
		engine: engine,
		quotas: quotas,
		pos:    pos,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	if !msg.IsCommand() {
		// Plain text goes straight to the agent
		b.runAgent(ctx, chatID, userID, strings.TrimSpace(msg.Text))
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		b.reply(chatID, startText)
	case "help":
		b.reply(chatID, helpText)
	case "today":
		b.sendSummary(ctx, chatID, "Today", time.Now().Format("20060102"), "")
	case "week":
		from := time.Now().AddDate(0, 0, -6).Format("20060102")
		b.sendSummary(ctx, chatID, "Last 7 days", from, time.Now().Format("20060102"))
	case "month":
		from := time.Now().AddDate(0, 0, -29).Format("20060102")
		b.sendSummary(ctx, chatID, "Last 30 days", from, time.Now().Format("20060102"))
	case "summary":
		from, to, err := parseRangeArgs(args)
		if err != nil {
			b.reply(chatID, "Usage: /summary YYYYMMDD [YYYYMMDD]")
			return
		}
		b.sendSummary(ctx, chatID, fmt.Sprintf("%s..%s", from, to), from, to)
	case "agent":
		if args == "" {
			b.reply(chatID, "Usage: /agent &lt;question about your sales&gt;")
			return
		}
		b.runAgent(ctx, chatID, userID, args)
	case "clear":
		if err := b.engine.ClearConversation(ctx, userID); err != nil {
			b.logger.Error("clear failed", zap.String("user_id", userID), zap.Error(err))
			b.reply(chatID, "Failed to clear conversation history.")
			return
		}
		b.reply(chatID, "Conversation history cleared.")
	case "usage":
		used, limit, err := b.quotas.Usage(ctx, userID)
		if err != nil {
			b.reply(chatID, "Failed to read usage.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Agent usage today: <b>%d / %d</b>", used, limit))
	case "limits":
		b.handleLimits(ctx, chatID, userID, args)
	case "subscribe":
		b.cfg.Subscribe(userID)
		if err := b.cfg.SaveState(); err != nil {
			b.logger.Error("saving state", zap.Error(err))
		}
		b.reply(chatID, "Subscribed to the daily summary.")
	case "unsubscribe":
		b.cfg.Unsubscribe(userID)
		if err := b.cfg.SaveState(); err != nil {
			b.logger.Error("saving state", zap.Error(err))
		}
		b.reply(chatID, "Unsubscribed from the daily summary.")
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

// handleLimits lets admins override per-user quota limits:
// /limits <user_id> daily_limit|max_iterations <value>
func (b *Bot) handleLimits(ctx context.Context, chatID int64, userID, args string) {
	if args == "" {
		limits, err := b.quotas.Limits(ctx, userID)
		if err != nil {
			b.reply(chatID, "Failed to read limits.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Daily limit: <b>%d</b>\nMax iterations: <b>%d</b>",
			limits.EffectiveDailyLimit(), limits.EffectiveMaxIterations()))
		return
	}

	if !b.cfg.IsAdmin(userID) {
		b.reply(chatID, "Only admins can change limits.")
		return
	}
	parts := strings.Fields(args)
	if len(parts) != 3 {
		b.reply(chatID, "Usage: /limits &lt;user_id&gt; &lt;daily_limit|max_iterations&gt; &lt;value&gt;")
		return
	}
	value, err := strconv.Atoi(parts[2])
	if err != nil {
		b.reply(chatID, "Value must be an integer.")
		return
	}
	if err := b.quotas.SetLimit(ctx, parts[0], parts[1], value); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to set limit: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Set %s=%d for user %s.", parts[1], value, parts[0]))
}

// runAgent enforces the quota, runs one agent turn and delivers the
// text plus any chart images.
func (b *Bot) runAgent(ctx context.Context, chatID int64, userID, prompt string) {
	if prompt == "" {
		return
	}

	allowed, _, err := b.quotas.Check(ctx, userID)
	if err != nil {
		b.logger.Error("quota check failed", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "Something went wrong. Please try again later.")
		return
	}
	if !allowed {
		limits, _ := b.quotas.Limits(ctx, userID)
		b.reply(chatID, fmt.Sprintf("Daily limit reached (%d requests/day). Try again tomorrow.",
			limits.EffectiveDailyLimit()))
		return
	}
	if err := b.quotas.Record(ctx, userID); err != nil {
		b.logger.Error("quota record failed", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "Something went wrong. Please try again later.")
		return
	}

	b.sendTyping(chatID)

	limits, _ := b.quotas.Limits(ctx, userID)
	result, err := b.engine.Run(ctx, agent.RunRequest{
		UserID:        userID,
		Prompt:        prompt,
		MaxIterations: limits.EffectiveMaxIterations(),
		Source:        agent.SourceTelegram,
	})
	if err != nil {
		b.logger.Error("agent run failed", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "Something went wrong answering that. Please try again.")
		return
	}

	b.reply(chatID, result.Text)
	for i, artifact := range result.Artifacts {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("chart_%d.png", i+1),
			Bytes: artifact,
		})
		if _, err := b.api.Send(photo); err != nil {
			b.logger.Error("sending chart failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

// sendSummary fetches and formats a sales summary for the range
func (b *Bot) sendSummary(ctx context.Context, chatID int64, title, from, to string) {
	b.sendTyping(chatID)

	txns, err := b.pos.GetTransactions(ctx, from, to)
	if err != nil {
		b.logger.Error("summary fetch failed", zap.Error(err))
		b.reply(chatID, "Failed to fetch sales data. Please try again later.")
		return
	}
	finance, err := b.pos.GetFinanceTransactions(ctx, from, to)
	if err != nil {
		b.logger.Error("finance fetch failed", zap.Error(err))
		b.reply(chatID, "Failed to fetch finance data. Please try again later.")
		return
	}

	b.reply(chatID, FormatSummary(title, poster.Summarize(txns, finance)))
}

// reply sends an HTML-formatted message, falling back to plain text if
// Telegram rejects the markup.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("html send failed, retrying as plain text", zap.Int64("chat_id", chatID), zap.Error(err))
		plain := tgbotapi.NewMessage(chatID, text)
		if _, err := b.api.Send(plain); err != nil {
			b.logger.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("chat action failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// SendText delivers a message to a chat identified by its string ID.
// Used by the daily summary notifier.
func (b *Bot) SendText(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing chat id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

// parseRangeArgs parses "/summary YYYYMMDD [YYYYMMDD]" arguments
func parseRangeArgs(args string) (from, to string, err error) {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return "", "", fmt.Errorf("expected one or two dates, got %d", len(parts))
	}
	for _, p := range parts {
		if _, perr := time.Parse("20060102", p); perr != nil {
			return "", "", fmt.Errorf("invalid date %q: %w", p, perr)
		}
	}
	from = parts[0]
	to = parts[0]
	if len(parts) == 2 {
		to = parts[1]
	}
	return from, to, nil
}

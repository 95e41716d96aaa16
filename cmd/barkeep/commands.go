package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/agent"
	"github.com/barkeephq/barkeep/internal/bot"
	"github.com/barkeephq/barkeep/internal/conversation"
	"github.com/barkeephq/barkeep/internal/dashboard"
	"github.com/barkeephq/barkeep/internal/model"
	"github.com/barkeephq/barkeep/internal/notifier"
	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/internal/quota"
	"github.com/barkeephq/barkeep/internal/tools"
)

// openDB opens the SQLite database backing quota and conversation state
func openDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)
	return db, nil
}

// buildEngine assembles the agent engine and its collaborators
func buildEngine(logger *zap.Logger, quotas quota.Store, conversations conversation.Store) (*agent.Engine, *poster.Client, error) {
	client, err := model.NewAnthropicClient(cfg.AnthropicAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("creating model client: %w", err)
	}

	pos := poster.NewClient(cfg.PosterToken)

	registry := tools.NewRegistry(logger)
	tools.RegisterPosterTools(registry, pos)
	tools.RegisterChartTools(registry, pos)

	engine := agent.NewEngine(client, registry, conversations, logger)
	return engine, pos, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot, daily notifier and dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			quotas, err := quota.NewSQLiteStore(db)
			if err != nil {
				return fmt.Errorf("creating quota store: %w", err)
			}
			conversations, err := conversation.NewSQLiteStore(db)
			if err != nil {
				return fmt.Errorf("creating conversation store: %w", err)
			}

			engine, pos, err := buildEngine(logger, quotas, conversations)
			if err != nil {
				return err
			}

			tgBot, err := bot.New(cfg, engine, quotas, pos, logger)
			if err != nil {
				return err
			}

			daily := notifier.New(tgBot, pos, cfg, logger)
			if err := daily.Start(cfg.DailySummaryCron); err != nil {
				return fmt.Errorf("scheduling daily summary: %w", err)
			}
			defer daily.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 2)
			go func() {
				errCh <- tgBot.Run(ctx)
			}()

			var srv *dashboard.Server
			if cfg.DashboardAddr != "" {
				srv = dashboard.NewServer(cfg.DashboardAddr, cfg.DashboardToken, engine, quotas, pos, logger)
				go func() {
					errCh <- srv.Start()
				}()
			}

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				if err != nil && err != context.Canceled {
					logger.Error("component failed", zap.Error(err))
				}
			}

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("dashboard shutdown failed", zap.Error(err))
				}
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			quotas, err := quota.NewSQLiteStore(db)
			if err != nil {
				return fmt.Errorf("creating quota store: %w", err)
			}
			conversations, err := conversation.NewSQLiteStore(db)
			if err != nil {
				return fmt.Errorf("creating conversation store: %w", err)
			}

			engine, _, err := buildEngine(logger, quotas, conversations)
			if err != nil {
				return err
			}

			prompt := ""
			for i, a := range args {
				if i > 0 {
					prompt += " "
				}
				prompt += a
			}

			allowed, remaining, err := quotas.Check(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if !allowed {
				return fmt.Errorf("daily limit reached, try again tomorrow")
			}
			if err := quotas.Record(cmd.Context(), userID); err != nil {
				return err
			}

			limits, err := quotas.Limits(cmd.Context(), userID)
			if err != nil {
				return err
			}

			result, err := engine.Run(cmd.Context(), agent.RunRequest{
				UserID:        userID,
				Prompt:        prompt,
				MaxIterations: limits.EffectiveMaxIterations(),
				Source:        agent.SourceCLI,
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Text)
			for i, artifact := range result.Artifacts {
				name := fmt.Sprintf("chart_%d.png", i+1)
				if err := os.WriteFile(name, artifact, 0644); err != nil {
					return fmt.Errorf("writing %s: %w", name, err)
				}
				fmt.Printf("Saved %s\n", name)
			}
			fmt.Printf("(%d requests remaining today)\n", remaining-1)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID to run and bill the request as")
	return cmd
}

func summaryCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a sales summary for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				from = time.Now().Format("20060102")
			}
			pos := poster.NewClient(cfg.PosterToken)

			txns, err := pos.GetTransactions(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			finance, err := pos.GetFinanceTransactions(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			s := poster.Summarize(txns, finance)
			fmt.Printf("Orders:       %d\n", s.Count)
			fmt.Printf("Revenue:      %s\n", poster.FormatBaht(s.Revenue))
			fmt.Printf("Gross profit: %s\n", poster.FormatBaht(s.Profit))
			fmt.Printf("Expenses:     %s\n", poster.FormatBaht(s.Expenses))
			fmt.Printf("Net profit:   %s\n", poster.FormatBaht(s.NetProfit))
			fmt.Printf("Cash/Card:    %s / %s\n", poster.FormatBaht(s.CashTotal), poster.FormatBaht(s.CardTotal))
			if s.OpenOrders > 0 {
				fmt.Printf("Open orders:  %d\n", s.OpenOrders)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYYMMDD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYYMMDD, default same as from)")
	return cmd
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user_id>",
		Short: "Show a user's agent quota usage for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			quotas, err := quota.NewSQLiteStore(db)
			if err != nil {
				return err
			}
			used, limit, err := quotas.Usage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d / %d requests today\n", args[0], used, limit)
			return nil
		},
	}
}

func limitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Inspect or override per-user limits",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <user_id>",
			Short: "Show a user's effective limits",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				quotas, err := quota.NewSQLiteStore(db)
				if err != nil {
					return err
				}
				limits, err := quotas.Limits(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("daily_limit:    %d\n", limits.EffectiveDailyLimit())
				fmt.Printf("max_iterations: %d\n", limits.EffectiveMaxIterations())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <user_id> <key> <value>",
			Short: "Override daily_limit or max_iterations for a user",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("value must be an integer: %w", err)
				}

				db, err := openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				quotas, err := quota.NewSQLiteStore(db)
				if err != nil {
					return err
				}
				if err := quotas.SetLimit(cmd.Context(), args[0], args[1], value); err != nil {
					return err
				}
				fmt.Printf("Set %s=%d for %s\n", args[1], value, args[0])
				return nil
			},
		},
	)
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settlebot/internal/config"
	"github.com/mmynk/settlebot/internal/conversation"
	"github.com/mmynk/settlebot/internal/metrics"
	"github.com/mmynk/settlebot/internal/middleware"
	"github.com/mmynk/settlebot/internal/receipt"
	"github.com/mmynk/settlebot/internal/service"
	"github.com/mmynk/settlebot/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the metrics endpoint",
		Long: `Run the Telegram bot until interrupted.

Examples:
  SETTLEBOT_TELEGRAM_TOKEN=123:abc settlebot serve
  settlebot serve --config settlebot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.Storage.Driver)

	bot, err := telegram.New(cfg.Telegram.Token, telegram.Options{
		Workers:     cfg.Bot.Workers,
		PollTimeout: cfg.Telegram.PollTimeout,
		Debug:       cfg.Telegram.Debug,
	})
	if err != nil {
		return err
	}

	registry := service.NewRegistry(store)
	catalog := service.NewCatalog(store)
	ledger := service.NewLedger(store)
	machine := conversation.New(conversation.Config{
		Registry:       registry,
		Catalog:        catalog,
		Ledger:         ledger,
		Settlement:     service.NewSettlement(registry, catalog, ledger),
		Recognizer:     receipt.NewClient(cfg.Receipt.Token, cfg.Receipt.URL, cfg.Receipt.Timeout),
		Messenger:      bot,
		BroadcastLimit: cfg.Bot.BroadcastLimit,
	})
	handler := middleware.Chain(machine,
		middleware.WithSender(),
		middleware.Logging(),
		middleware.Metrics(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The metrics server follows the bot down.
		defer stop()
		return bot.Run(ctx, handler)
	})

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           middleware.HTTPLogging(mux),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Metrics server starting", "address", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	slog.Info("settlebot stopped")
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"dungeon-keeper/internal/bot"
	"dungeon-keeper/internal/content"
	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/i18n"
	"dungeon-keeper/internal/journal"
	"dungeon-keeper/internal/logging"
	"dungeon-keeper/internal/web"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.Component("main")

	quotes, err := content.Load(cfg.ContentPath)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	tr, err := i18n.Embedded(i18n.DefaultLang)
	if err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}
	log.Info("Content loaded", "quotes", len(quotes.Quotes), "topics", len(quotes.Topics), "languages", tr.Available())

	svcCfg := core.ServiceConfig{
		StaffChannelID: cfg.StaffChatID,
		SweepInterval:  cfg.SweepInterval,
		Content:        quotes,
	}

	var store *journal.Store
	if cfg.JournalPath != "" {
		log.Info("Initializing case journal...", "path", cfg.JournalPath)
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()
		svcCfg.Journal = store
	}

	users := bot.NewUserCache()
	api, err := bot.Dial(cfg.BotToken, func(err error, c tele.Context) {
		log.Error("Telegram error", "error", err)
	})
	if err != nil {
		return err
	}
	log.Info("Logged in to Telegram", "username", api.Me.Username)

	limiter := rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst)
	platform := bot.NewPlatform(api, tr, users, limiter)
	service := core.NewService(platform, svcCfg)

	telegramBot := bot.New(api, service, platform, users, tr, bot.Options{
		StaffChatID:   cfg.StaffChatID,
		PublicURL:     cfg.PublicURL,
		SessionSecret: cfg.SessionSecret,
		Dashboard:     cfg.DashboardEnabled(),
	})

	var srv *http.Server
	if cfg.DashboardEnabled() {
		if cfg.UsesDevSecret() {
			log.Warn("Using default session secret. Set SESSION_SECRET in production!")
		}
		opts := web.Options{
			SessionSecret: cfg.SessionSecret,
			PublicURL:     cfg.PublicURL,
			Names:         users,
		}
		if store != nil {
			opts.Transcripts = store
		}
		server, err := web.NewServer(service, tr, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize web server: %w", err)
		}
		srv = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      server.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Scheduler stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		telegramBot.Start(ctx)
	}()

	if srv != nil {
		go func() {
			log.Info("Starting HTTP server", "addr", srv.Addr, "public_url", cfg.PublicURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server failed", "error", err)
				stop()
			}
		}()
	}

	log.Info("DungeonKeeper is running", "staff_chat", cfg.StaffChatID, "journal", store != nil, "dashboard", srv != nil)
	<-ctx.Done()
	log.Info("Received shutdown signal, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during HTTP shutdown", "error", err)
		}
	}
	wg.Wait()

	stats := service.Stats()
	log.Info("Shutdown complete",
		"cases", stats.TotalCases,
		"open_cases", stats.OpenCases,
		"dropped_reminders", stats.QueuedReminders,
		"dropped_timers", stats.ActiveTimers,
	)
	return nil
}

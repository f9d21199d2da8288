package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"giftshop-bot/internal/bot"
	"giftshop-bot/internal/config"
	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/cryptopay"
	"giftshop-bot/internal/httpapi"
	"giftshop-bot/internal/logging"
	"giftshop-bot/internal/metrics"
	"giftshop-bot/internal/repository"
	"giftshop-bot/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll Telegram updates and run the scheduled jobs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logging.GormWriter{Log: logging.Component(log, "gorm")})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer sqlDB.Close()

	userRepo := repository.NewUserRepository(db)
	banRepo := repository.NewBanRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	eventRepo := repository.NewEventRepository(db)
	giftRepo := repository.NewGiftRepository(db)

	m := metrics.New()
	loc := cfg.Location()

	// an untyped nil keeps PaymentsEnabled false
	var gateway service.Gateway
	if cfg.PaymentsEnabled() {
		gateway = cryptopay.NewClient(cfg.CryptoPayToken, cfg.CryptoPayURL, cfg.CryptoPayTimeout)
	} else {
		log.Warn("CRYPTO_PAY_TOKEN is empty, payments are disabled")
	}
	if cfg.AdminID == 0 {
		log.Warn("ADMIN_ID is not set, report notices cannot be delivered")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.WithField("username", api.Self.UserName).Info("authorized on telegram")
	sender := bot.NewTelegramSender(api)

	admin := service.AdminIdentity{ID: cfg.AdminID, Handle: cfg.AdminUsername}
	audit := service.NewAuditService(eventRepo, userRepo, banRepo, logging.Component(log, "audit"))
	subs := service.NewSubscriptionService(gateway, userRepo, invoiceRepo, audit, logging.Component(log, "subscriptions"), m)
	broadcasts := service.NewBroadcastService(userRepo, sender, cfg.BroadcastInterval, logging.Component(log, "broadcast"), m)
	gifts := service.NewGiftService(giftRepo, sender, audit, logging.Component(log, "gifts"), m)

	telegramBot := bot.New(api, bot.Deps{
		Gate:          service.NewAccessGate(userRepo, banRepo, admin, logging.Component(log, "gate"), m),
		Resolver:      service.NewTargetResolver(userRepo),
		Subscriptions: subs,
		Broadcasts:    broadcasts,
		Audit:         audit,
		Bans:          banRepo,
		Reminders:     service.NewReminderService(userRepo, cfg.ReminderWindow),
		Conversations: conversation.NewStore(),
		Admin:         admin,
		Log:           logging.Component(log, "bot"),
		Metrics:       m,
		Location:      loc,
	})

	scheduler := service.NewSchedulerService(loc, logging.Component(log, "cron"))
	if cfg.ReminderTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReminderTime, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			if err := telegramBot.SendExpiryReminders(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("expiry reminders")
			}
		}); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}
	}
	if cfg.StatsInterval > 0 {
		refresh := func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			stats, err := audit.Stats(jobCtx)
			if err != nil {
				log.WithError(err).Warn("refresh stats")
				return
			}
			m.SetDirectory(stats.Users, stats.Subscribers, stats.Banned)
		}
		if _, err := scheduler.ScheduleInterval(cfg.StatsInterval, refresh); err != nil {
			return fmt.Errorf("schedule stats: %w", err)
		}
		refresh()
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.HTTPAddr != "" {
		router := httpapi.NewRouter(httpapi.Deps{
			Log:             logging.Component(log, "http"),
			Metrics:         m,
			Health:          sqlDB.PingContext,
			Gifts:           gifts,
			StorefrontToken: cfg.StorefrontToken,
		})
		if cfg.StorefrontToken == "" {
			log.Warn("STOREFRONT_TOKEN is empty, gift hook is disabled")
		}
		go func() {
			if err := httpapi.Run(ctx, cfg.HTTPAddr, router, logging.Component(log, "http")); err != nil {
				log.WithError(err).Error("http server stopped")
				stop()
			}
		}()
	}

	log.Info("gift shop bot started")
	if err := telegramBot.Start(ctx, api); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"masterclass-reconciler/internal/config"
	"masterclass-reconciler/internal/domain/ports/adapter"
	"masterclass-reconciler/internal/infra/adapters/email"
	"masterclass-reconciler/internal/infra/api"
	"masterclass-reconciler/internal/infra/db"
	"masterclass-reconciler/internal/infra/db/docstore"
	httpserver "masterclass-reconciler/internal/infra/http"
	"masterclass-reconciler/internal/infra/logging"
	"masterclass-reconciler/internal/infra/metrics"
	"masterclass-reconciler/internal/infra/payment"
	red "masterclass-reconciler/internal/infra/redis"
	"masterclass-reconciler/internal/infra/sched"
	"masterclass-reconciler/internal/infra/worker"
	"masterclass-reconciler/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	mintFor := flag.String("mint-operator", "", "print an operator token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	operators := api.NewOperatorAuth(cfg.Auth.OperatorSecret, cfg.Auth.OperatorTTL)
	if *mintFor != "" {
		tok, err := operators.Mint(*mintFor)
		if err != nil {
			log.Fatalf("mint operator token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] enabled")
	}
	if cfg.Payment.TestModeEnabled {
		logger.Warn().Msg("test-mode confirmations are enabled; operators can grant access without a gateway payment")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Store.Driver)

	// ---- Store ----
	store, closeStore, err := db.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	defer closeStore()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	reminderLog := red.NewReminderLog(redisClient, cfg.Reminders.ClaimTTL)

	// ---- Repositories ----
	ledgerRepo := docstore.NewLedgerRepo(store)
	resourceRepo := docstore.NewResourceRepoCacheDecorator(docstore.NewResourceRepo(store), redisClient, cfg.Redis.TTL, logger)

	// ---- Email ----
	var sender adapter.EmailSender
	switch cfg.Email.Provider {
	case "resend":
		sender = email.NewResendSender(cfg.Email.Resend.APIKey, cfg.Email.From, cfg.Email.Resend.BaseURL)
	case "smtp":
		sender = email.NewSMTPSender(cfg.Email.SMTP.Host, cfg.Email.SMTP.Port, cfg.Email.SMTP.Username, cfg.Email.SMTP.Password, cfg.Email.From, cfg.Email.FromName)
	default:
		sender = email.NewNoopSender(logger)
	}
	logger.Info().Str("provider", cfg.Email.Provider).Msg("email sender ready")

	// ---- Notification workers ----
	pool := worker.NewPool(cfg.Notify.Workers, cfg.Notify.Workers*64, logger)
	pool.Start(ctx)

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, logger)
	accessUC := usecase.NewAccessUseCase(resourceRepo, logger)
	notifyUC := usecase.NewNotificationUseCase(sender, ledgerRepo, pool, cfg.Email.AppURL, cfg.Notify.SendTimeout, logger)
	payUC := usecase.NewPaymentUseCase(
		ledgerUC, accessUC, resourceRepo, notifyUC,
		payment.NewHMACVerifier(cfg.Payment.KeySecret),
		rateLimiter,
		usecase.PaymentOptions{
			Currency:        cfg.Payment.Currency,
			TestModeEnabled: cfg.Payment.TestModeEnabled,
			VerifyRateLimit: cfg.Payment.VerifyRateLimit,
		},
		logger,
	)
	reminderUC := usecase.NewReminderUseCase(
		resourceRepo, ledgerRepo, reminderLog, notifyUC, locker,
		usecase.ReminderOptions{SendInterval: cfg.Reminders.SendInterval, LockTTL: cfg.Reminders.LockTTL},
		logger,
	)

	// ---- Background jobs ----
	var reminderWorker *sched.ReminderWorker
	if cfg.Reminders.Cron != "" {
		reminderWorker = sched.NewReminderWorker(cfg.Reminders.Cron, cfg.Reminders.SweepBudget, reminderUC, logger)
		if err := reminderWorker.Start(ctx); err != nil {
			logger.Fatal().Err(err).Str("spec", cfg.Reminders.Cron).Msg("reminder schedule")
		}
	}
	auditor := sched.NewPendingAuditor(cfg.Reminders.AuditInterval, cfg.Reminders.StalePendingAfter, ledgerUC, logger)
	go func() {
		if err := auditor.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("pending auditor stopped")
		}
	}()

	// ---- HTTP ----
	apiServer := api.NewServer(payUC, reminderUC, operators, cfg.Reminders.CronSecret, cfg.Reminders.SweepBudget, logger)
	server := httpserver.NewServer(cfg.HTTP.Port, api.NewRouter(apiServer, cfg.HTTP.RequestTimeout), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if reminderWorker != nil {
		reminderWorker.Stop()
	}
	pool.Stop()
	cancel()
	logger.Info().Msg("bye")
}

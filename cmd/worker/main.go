package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/limpio-app/limpio/internal/app"
	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	jobmetrics "github.com/limpio-app/limpio/internal/jobs"
	"github.com/limpio-app/limpio/internal/platform/db"
	"github.com/limpio-app/limpio/internal/quotes"
	"github.com/limpio-app/limpio/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	clientRepo := clients.NewRepository(pool)
	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, clientRepo, cfg.TaxRate)
	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(logger, quoteRepo, clientRepo, invoiceService, cfg.TaxRate, cfg.QuoteValidityDays)

	expireJob := jobs.NewExpireQuotesJob(quoteService, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExpireQuotes, Handler: expireJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.ExpireQuotesCronSpec, Task: jobs.NewExpireQuotesTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

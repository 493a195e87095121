package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/limpio-app/limpio/internal/app"
	"github.com/limpio-app/limpio/internal/auth"
	"github.com/limpio-app/limpio/internal/calendar"
	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/credentials"
	"github.com/limpio-app/limpio/internal/expenses"
	"github.com/limpio-app/limpio/internal/export"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/observability"
	"github.com/limpio-app/limpio/internal/platform/db"
	"github.com/limpio-app/limpio/internal/quotes"
	"github.com/limpio-app/limpio/internal/scheduling"
	"github.com/limpio-app/limpio/internal/shared"
	"github.com/limpio-app/limpio/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "limpio_session", cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	clientRepo := clients.NewRepository(pool)
	clientService := clients.NewService(clientRepo)
	clientHandler := clients.NewHandler(logger, clientService)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, clientRepo, cfg.TaxRate)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(logger, quoteRepo, clientRepo, invoiceService, cfg.TaxRate, cfg.QuoteValidityDays)
	quoteHandler := quotes.NewHandler(logger, quoteService)

	jobRepo := scheduling.NewRepository(pool)
	jobService := scheduling.NewService(logger, jobRepo, clientRepo, invoiceService)
	jobHandler := scheduling.NewHandler(logger, jobService)

	tokenCipher, err := credentials.NewCipher(cfg.CipherKey())
	if err != nil {
		logger.Error("init token cipher", slog.Any("error", err))
		os.Exit(1)
	}
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{gcal.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
	credentialRepo := credentials.NewRepository(pool)
	vault := credentials.NewVault(logger, credentialRepo, tokenCipher, oauthConfig)
	credentialsHandler := credentials.NewHandler(logger, vault)

	syncRepo := calendar.NewRepository(pool)
	bridge := calendar.NewBridge(logger, syncRepo, jobRepo, clientRepo,
		calendar.NewGoogleFactory(vault, cfg.GoogleCalendarID))
	jobService.SetSyncer(bridge)
	vault.OnRevoke(syncRepo.DeleteByAccount)
	calendarHandler := calendar.NewHandler(logger, bridge)

	expenseRepo := expenses.NewRepository(pool)
	expenseService := expenses.NewService(logger, expenseRepo)
	expenseHandler := expenses.NewHandler(logger, expenseService)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	exportService := export.NewService(logger, pdfClient, quoteService, invoiceService, clientService)
	exportHandler := export.NewHandler(logger, exportService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		ClientsHandler:     clientHandler,
		QuotesHandler:      quoteHandler,
		InvoicesHandler:    invoiceHandler,
		JobsHandler:        jobHandler,
		ExpensesHandler:    expenseHandler,
		CalendarHandler:    calendarHandler,
		CredentialsHandler: credentialsHandler,
		ExportHandler:      exportHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("server listening", slog.String("addr", cfg.AppAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/riteshkumar/greengrid/internal/config"
	"github.com/riteshkumar/greengrid/internal/export"
	"github.com/riteshkumar/greengrid/internal/handler"
	"github.com/riteshkumar/greengrid/internal/models"
	"github.com/riteshkumar/greengrid/internal/notify"
	"github.com/riteshkumar/greengrid/internal/repository"
	"github.com/riteshkumar/greengrid/internal/service"
)

// Orders listed by outside sellers when the book is seeded.
var seedOrders = []struct {
	seller string
	amount float64
	price  float64
}{
	{"solarcoop", 0.5, 5200},
	{"windfarm", 0.2, 4800},
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Initialise audit store
	audit, db, err := openAudit(ctx, cfg)
	if err != nil {
		logger.Error("failed to open audit store", "driver", cfg.AuditDriver, "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	logger.Info("audit store ready", "driver", cfg.AuditDriver)

	// Initialise notifiers
	recorder := notify.NewRecorder(100)
	notifiers := notify.Multi{notify.NewLogNotifier(logger), recorder}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn("telegram notifications disabled", "error", err.Error())
		} else {
			notifiers = append(notifiers, tg)
			logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
		}
	}

	// Initialise session
	session := service.NewSession(repository.NewMemoryLedger(), audit, notifiers, clock.New(), service.SessionConfig{
		AccountDomain:   cfg.AccountDomain,
		MeterInterval:   cfg.MeterInterval,
		SettlementDelay: cfg.SettlementDelay,
		SettlementPoll:  cfg.SettlementPoll,
		FeeRate:         cfg.MarketFeeRate,
		Exporter:        export.NewFileExporter(cfg.ExportDir),
	}, logger)
	if err := session.Start(); err != nil {
		logger.Error("failed to start session", "error", err.Error())
		os.Exit(1)
	}

	if cfg.SeedOrders {
		if err := session.Market.Seed(ctx, buildSeedOrders(cfg.AccountDomain)); err != nil {
			logger.Error("failed to seed order book", "error", err.Error())
			os.Exit(1)
		}
	}

	if cfg.AutoStartMeter {
		// no account yet, so register the default one first
		if _, err := session.Register(ctx, &models.RegisterAccountRequest{}); err != nil {
			logger.Error("failed to register default account", "error", err.Error())
			os.Exit(1)
		}
		if err := session.StartMetering(ctx); err != nil {
			logger.Error("failed to start metering", "error", err.Error())
			os.Exit(1)
		}
	}

	// Setup router
	router := handler.NewRouter(session, audit, recorder, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}
	session.Close()

	logger.Info("server exited gracefully")
}

// openAudit returns the configured audit store. The *sql.DB is nil for the
// in-memory store.
func openAudit(ctx context.Context, cfg *config.Config) (repository.AuditRepository, *sql.DB, error) {
	if cfg.AuditDriver == "memory" {
		return repository.NewMemoryAuditRepository(), nil, nil
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	repo, db, err := repository.OpenAuditRepository(openCtx, cfg.AuditDriver, cfg.AuditDSN)
	if err != nil {
		return nil, nil, err
	}
	return repo, db, nil
}

func buildSeedOrders(domain string) []models.Order {
	orders := make([]models.Order, 0, len(seedOrders))
	for _, o := range seedOrders {
		orders = append(orders, models.Order{
			SellerAccountID: service.AccountID(o.seller, domain),
			CreditAmount:    o.amount,
			PricePerCredit:  o.price,
		})
	}
	return orders
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

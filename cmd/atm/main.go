package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bankterm/atm-terminal/configs"
	"github.com/bankterm/atm-terminal/internal/services"
	"github.com/bankterm/atm-terminal/internal/terminal"
	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/database"
	"github.com/bankterm/atm-terminal/pkg/repositories"
)

func main() {
	// Initialize logger
	pkg.InitLogger()
	logger := pkg.Logger
	defer func() {
		_ = logger.Sync()
	}()

	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize postgres db
	db, disconnect, err := database.New(ctx, logger, database.Config{
		DSN:      cfg.DbAddr,
		MaxConns: cfg.MaxDbCons,
		MinConns: cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer disconnect()

	// Run migrations
	if err := database.RunMigrations(logger, cfg.DbAddr); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Setup dependencies
	accountRepo := repositories.NewAccountRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	accountService := services.NewAccountService(logger, db, accountRepo, transactionRepo, cfg.HistoryLimit)
	session := terminal.NewSession(logger, accountService, os.Stdin, os.Stdout)

	// Run the terminal in a goroutine so shutdown signals can interrupt it.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			logger.Error("session error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}
}

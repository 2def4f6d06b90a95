package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lmittmann/tint"

	"gcd-backend/config"
	"gcd-backend/controller"
	"gcd-backend/listener"
	"gcd-backend/parser"
	"gcd-backend/pkg/gemini"
	"gcd-backend/pkg/mailer"
	"gcd-backend/usecase"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. DB Connection
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("db ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database", "database", cfg.MySQL.Database)

	// 2. Dependency Injection
	var suggester gemini.Suggester = gemini.NoopSuggester{}
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Warn("gemini client unavailable, suggestions disabled", "error", err)
		} else {
			suggester = client
		}
	}

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		EmailDomain: cfg.EmailDomain,
	}, logger)

	parserCfg := parser.Config{
		EmailDomain:   cfg.EmailDomain,
		PlusLocalMode: parser.PlusLocalMode(cfg.PlusLocalMode),
	}

	negotiationUsecase := usecase.NewNegotiationUsecase(db, usecase.DefaultStores, suggester, sender, logger)
	inboundUsecase := usecase.NewInboundUsecase(db, usecase.DefaultStores, negotiationUsecase,
		parserCfg, cfg.RateConRoot, logger)
	negotiationController := controller.NewNegotiationController(negotiationUsecase)

	// 3. Inbound listener
	if cfg.ListenerEnabled && cfg.IMAP.Host != "" {
		l := listener.New(listener.Config{
			Host:              cfg.IMAP.Host,
			Port:              cfg.IMAP.Port,
			Username:          cfg.IMAP.Username,
			Password:          cfg.IMAP.Password,
			Mailbox:           cfg.IMAP.Mailbox,
			PollInterval:      time.Duration(cfg.PollSeconds) * time.Second,
			ReconnectInterval: time.Duration(cfg.ReconnectSecs) * time.Second,
		}, inboundUsecase, logger)
		go func() {
			if err := l.Run(ctx); err != nil {
				logger.Error("inbound listener stopped", "error", err)
			}
		}()
	} else {
		logger.Info("inbound listener disabled")
	}

	// 4. Routing
	http.HandleFunc("/negotiations/", negotiationController.HandleNegotiationAction)

	// 5. Start Server
	server := &http.Server{Addr: ":" + cfg.Port}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iyunix/go-chatstream/internal/config"
	"github.com/iyunix/go-chatstream/internal/handlers"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/notify"
	"github.com/iyunix/go-chatstream/internal/ratelimit"
	"github.com/iyunix/go-chatstream/internal/repository"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
	"github.com/iyunix/go-chatstream/internal/repository/message"
	"github.com/iyunix/go-chatstream/internal/repository/user"
	"github.com/iyunix/go-chatstream/internal/services/ai"
	"github.com/iyunix/go-chatstream/internal/services/chat"
	"github.com/iyunix/go-chatstream/internal/services/user_services"
	"github.com/iyunix/go-chatstream/internal/telemetry"
	"github.com/iyunix/go-chatstream/web"
)

const serviceName = "chatstream"

func main() {
	logger := logging.NewLogger(serviceName)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var traceOut io.Writer
	if cfg.OTelTracesStdout {
		traceOut = os.Stdout
	}
	tracer, err := telemetry.NewTracerProvider(serviceName, cfg.Environment, traceOut)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("database setup failed", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}

	// --- Repositories ---
	userRepo := user.NewGormUserRepository(db, logger)
	chatRepo := chatrepo.NewChatRepository(db, logger)
	messageRepo := message.NewMessageRepository(db, logger)

	// --- Services ---
	aiConfig := ai.ConfigFromApp(cfg)
	if err := aiConfig.Validate(); err != nil {
		logger.Error("invalid completion settings", "error", err)
		os.Exit(1)
	}
	gateway := ai.NewGatewayFromConfig(aiConfig, logger)

	notifier := newNotifier(cfg, logger)

	chatConfig := chat.ConfigFromApp(cfg)
	if err := chatConfig.Validate(); err != nil {
		logger.Error("invalid chat settings", "error", err)
		os.Exit(1)
	}
	titles := chat.NewTitleGenerator(chatConfig, chatRepo, messageRepo, gateway, notifier, logger)
	streaming := chat.NewStreamingService(chatConfig, chatRepo, messageRepo, gateway, titles, logger)
	watcher := chat.NewTitleWatcher(chatConfig, chatRepo, notifier, logger)
	registry := chat.NewRegistry(chatRepo, messageRepo, logger)
	authService := user_services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)

	loginLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAuthConfig())
	defer loginLimiter.Close()

	// --- Handlers ---
	renderer, err := handlers.NewRenderer(web.Templates(), logger)
	if err != nil {
		logger.Error("template setup failed", "error", err)
		os.Exit(1)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Pages:        handlers.NewPageHandler(renderer),
		Chats:        handlers.NewChatHandler(registry, renderer, logger),
		Streams:      handlers.NewStreamHandler(registry, streaming, watcher, logger),
		Auth:         handlers.NewAuthHandler(authService, renderer, cfg.IsProduction(), logger),
		Logs:         handlers.NewLogHandler(logger),
		Health:       handlers.NewHealthHandler(db),
		Tokens:       authService,
		LoginLimiter: loginLimiter,
		Static:       web.Static(),
		Logger:       logger,
	})

	// --- Server Configuration ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: completion and title streams stay open for as
		// long as the upstream or the title timeout needs.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"addr", srv.Addr,
			"upstream", cfg.HasUpstream(),
			"model", cfg.AssistantModel,
			"nats", cfg.NATSURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	// Titles already triggered still get written.
	titles.Wait()
	if err := notifier.Close(); err != nil {
		logger.Warn("notifier close failed", "error", err)
	}
	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
}

// newNotifier uses NATS when configured so title updates reach watchers on
// other instances; a process-local notifier otherwise.
func newNotifier(cfg *config.Config, logger logging.Logger) notify.Notifier {
	if cfg.NATSURL == "" {
		return notify.NewMemoryNotifier()
	}
	n, err := notify.NewNATSNotifier(cfg.NATSURL, logger)
	if err != nil {
		logger.Warn("NATS unavailable, title updates stay in-process", "url", cfg.NATSURL, "error", err)
		return notify.NewMemoryNotifier()
	}
	return n
}

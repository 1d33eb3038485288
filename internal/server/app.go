// Package server initializes and runs the application: configuration,
// storage, the WB client, the Telegram bot and the HTTP endpoint, with
// graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuzkabot/sellerbot/internal/bot"
	"github.com/kuzkabot/sellerbot/internal/cryptox"
	"github.com/kuzkabot/sellerbot/internal/logging"
	"github.com/kuzkabot/sellerbot/internal/server/auth"
	"github.com/kuzkabot/sellerbot/internal/server/config"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/repomanager"
	"github.com/kuzkabot/sellerbot/internal/server/services"
	"github.com/kuzkabot/sellerbot/internal/server/web"
	"github.com/kuzkabot/sellerbot/internal/wb"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	handler http.Handler
	tgAPI   *bot.API
	cache   wb.Cache
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	keyring, err := cfg.Keyring()
	if err != nil {
		return nil, fmt.Errorf("loading keyring: %w", err)
	}
	cipher, err := cryptox.New(keyring)
	if err != nil {
		return nil, fmt.Errorf("building cipher: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	conn := rm.Conn()
	binder := auth.NewBinder([]byte(cfg.SessionSecret), cfg.SessionValidityDuration)
	loginSvc := services.NewLoginService(conn, rm, binder, cfg.PublicBaseURL)
	credSvc := services.NewCredentialService(rm.Credentials(conn), rm.Users(conn), cipher)

	var cache wb.Cache
	if cfg.BalanceCachePath != "" {
		bc, err := wb.OpenBoltCache(cfg.BalanceCachePath)
		if err != nil {
			return nil, fmt.Errorf("opening balance cache: %w", err)
		}
		cache = bc
	} else {
		cache = wb.NewMemoryCache()
	}
	gateway := wb.NewGateway(wb.NewClient(logger), cache, cfg.BalanceCacheTTL)

	tgAPI := bot.NewAPI(cfg.BotToken, logger)
	tgBot := bot.New(tgAPI, loginSvc, credSvc, gateway, logger)

	handlers := web.NewHandlers(
		loginSvc, credSvc, rm.Users(conn), gateway,
		cfg.SessionValidityDuration, cfg.SecureCookies, logger,
	)
	router := web.NewRouter(handlers, tgBot.WebhookHandler(cfg.WebhookSecret), cfg.WebhookPath, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		repos:   rm,
		handler: router,
		tgAPI:   tgAPI,
		cache:   cache,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// registerWebhook points Telegram at this instance. Skipped when no bot
// token is configured, so the web part can run standalone.
func (app *App) registerWebhook(ctx context.Context) {
	if app.config.BotToken == "" || app.config.WebhookSecret == "" {
		app.logger.Warn(ctx, "bot token or webhook secret not set, skipping webhook registration")
		return
	}
	url := app.config.PublicBaseURL + app.config.WebhookPath
	if err := app.tgAPI.SetWebhook(ctx, url, app.config.WebhookSecret); err != nil {
		app.logger.Error(ctx, "registering webhook", "url", url, "error", err)
		return
	}
	app.logger.Info(ctx, "webhook registered", "url", url)
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)
	app.registerWebhook(ctx)

	srv := &http.Server{
		Addr:              app.config.EndpointAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server failed", "error", err)
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}

	if closer, ok := app.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error(ctx, "closing balance cache", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}

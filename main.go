package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alignercoach/core"
	"alignercoach/factories"
	"alignercoach/metrics"
	"alignercoach/server"
	"alignercoach/storage"

	"github.com/joho/godotenv"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "settings.json", "path to settings JSON file")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("settings file not loaded, using defaults")
	}
	settings.Session.InjectAPIKey(os.Getenv("SARVAM_API_KEY"))
	if os.Getenv("SARVAM_API_KEY") == "" {
		logger.Warn("SARVAM_API_KEY not set: chat, transcription, and synthesis will run degraded")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore := buildStore(ctx, settings, logger)
	defer closeStore()

	srv := server.New(settings, store, metrics.NewMetrics(), logger)
	srv.StartEviction(ctx, settings.SessionIdleTimeout)
	httpServer := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Infof("listening on %s", settings.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// buildStore selects the session store: Redis when configured, otherwise
// in-memory. A Redis failure falls back to memory rather than refusing to start.
func buildStore(ctx context.Context, settings factories.SettingsConfig, logger *core.Logger) (storage.SessionStore, func()) {
	if settings.RedisAddr == "" {
		return storage.NewMemoryStore(), func() {}
	}
	redisStore, err := storage.NewRedisStore(ctx, settings.RedisAddr, settings.SessionTTL)
	if err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("redis unavailable, falling back to in-memory session store")
		return storage.NewMemoryStore(), func() {}
	}
	logger.Infof("using redis session store at %s", settings.RedisAddr)
	return redisStore, func() { _ = redisStore.Close() }
}

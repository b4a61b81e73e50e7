package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/confrelay/relay/config"
	"github.com/confrelay/relay/internal/api"
	"github.com/confrelay/relay/internal/auth"
	"github.com/confrelay/relay/internal/hub"
	"github.com/confrelay/relay/internal/metrics"
	"github.com/confrelay/relay/internal/translator"
	"github.com/confrelay/relay/internal/tts"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	if cfg.Env == "dev" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := metrics.NewRecorder()
	if err != nil {
		logger.Fatal("initialize metrics recorder", zap.Error(err))
	}
	go rec.RunRollups(ctx)

	tr := buildTranslator(ctx, cfg, logger)
	dispatcher := buildDispatcher(cfg, rec, logger)

	h := hub.New(tr, dispatcher, rec, cfg.SegmentationKind, logger)
	go h.Run(ctx)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, h, issuer, rec, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("relay started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	logger.Info("relay shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := rec.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	logger.Info("relay exited")
}

func buildTranslator(ctx context.Context, cfg *config.Config, logger *zap.Logger) translator.Translator {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("no gemini api key configured, falling back to echo translator")
		return translator.EchoTranslator{}
	}
	gt, err := translator.NewGeminiTranslator(ctx, cfg.GeminiAPIKey, logger, 5*time.Minute)
	if err != nil {
		logger.Warn("gemini translator init failed, falling back to echo translator", zap.Error(err))
		return translator.EchoTranslator{}
	}
	return gt
}

func buildDispatcher(cfg *config.Config, rec *metrics.Recorder, logger *zap.Logger) *tts.Dispatcher {
	primary := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabsAPIKey,
		VoiceID: cfg.ElevenLabsVoiceID,
	})

	var secondary tts.Provider
	if cfg.FallbackTTSEndpoint != "" {
		secondary = tts.NewEdgeTTS(tts.EdgeConfig{Endpoint: cfg.FallbackTTSEndpoint})
	}

	return tts.NewDispatcher(primary, secondary, tts.DispatcherConfig{
		QueueThreshold: cfg.QueueThreshold,
		CriticalSize:   cfg.QueueCritical,
		MaxRate:        cfg.MaxRate,
	}, rec, logger)
}

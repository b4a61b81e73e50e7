package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/confrelay/relay/domain"
	"github.com/confrelay/relay/internal/auth"
	"github.com/confrelay/relay/internal/hub"
	"github.com/confrelay/relay/internal/metrics"
)

// relayVersion is the control plane's reported build version.
const relayVersion = "1.0.0"

// InitRoutes registers the control plane: health, metrics snapshot,
// speech-token issuance, the Prometheus scrape endpoint, and the duplex
// websocket upgrade.
func InitRoutes(e *echo.Echo, h *hub.Hub, issuer *auth.Issuer, rec *metrics.Recorder, logger *zap.Logger) {
	e.GET("/healthz", func(c echo.Context) error {
		return healthz(c, h)
	})
	e.GET("/api/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, rec.Snapshot())
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api/speech/token", func(c echo.Context) error {
		return speechToken(c, issuer, logger)
	})
	e.GET("/ws", func(c echo.Context) error {
		return serveWS(h, c, logger)
	})
}

func healthz(c echo.Context, h *hub.Hub) error {
	return c.JSON(http.StatusOK, HealthResponse{Ok: true, Method: string(h.SegmentationKind()), Version: relayVersion})
}

func speechToken(c echo.Context, issuer *auth.Issuer, logger *zap.Logger) error {
	code := c.QueryParam("code")
	role := c.QueryParam("role")
	if role == "" {
		role = "listener"
	}
	normalized, ok := domain.NormalizeCode(code)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_code", Message: "code must be exactly 4 characters"})
	}

	token, expiresAt, err := issuer.IssueSpeechToken(normalized, role)
	if err != nil {
		logger.Error("issue speech token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "token_issuance_failed"})
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt.Unix(), Code: normalized})
}

func serveWS(h *hub.Hub, c echo.Context, logger *zap.Logger) error {
	if err := h.ServeWS(c.Response(), c.Request()); err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "upgrade_failed", Message: err.Error()})
	}
	return nil
}

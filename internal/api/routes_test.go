package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/confrelay/relay/internal/auth"
	"github.com/confrelay/relay/internal/hub"
	"github.com/confrelay/relay/internal/metrics"
	"github.com/confrelay/relay/internal/segmentation"
	"github.com/confrelay/relay/internal/translator"
	"github.com/confrelay/relay/internal/tts"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Synthesize(ctx context.Context, text, language, voiceHint string, rate float64) (<-chan []byte, error) {
	out := make(chan []byte)
	close(out)
	return out, nil
}

// A Recorder registers its exporter with the process-wide Prometheus
// registry, so every test in this package shares one, as the relay does.
var (
	sharedRecOnce sync.Once
	sharedRec     *metrics.Recorder
	sharedRecErr  error
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	sharedRecOnce.Do(func() { sharedRec, sharedRecErr = metrics.NewRecorder() })
	if sharedRecErr != nil {
		t.Fatalf("NewRecorder: %v", sharedRecErr)
	}
	rec := sharedRec
	dispatcher := tts.NewDispatcher(stubProvider{}, nil, tts.DispatcherConfig{}, rec, zap.NewNop())
	h := hub.New(translator.EchoTranslator{}, dispatcher, rec, segmentation.KindFinalOnly, zap.NewNop())
	issuer := auth.NewIssuer("test-secret", time.Minute)

	e := echo.New()
	InitRoutes(e, h, issuer, rec, zap.NewNop())
	return e
}

func TestHealthzReturnsOK(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !body.Ok {
		t.Error("Ok = false, want true")
	}
	if body.Method != string(segmentation.KindFinalOnly) {
		t.Errorf("Method = %q, want %q", body.Method, segmentation.KindFinalOnly)
	}
	if body.Version == "" {
		t.Error("expected a non-empty version")
	}
}

func TestAPIMetricsReturnsSnapshot(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
}

func TestPrometheusMetricsEndpointServesText(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSpeechTokenIssuesTokenForValidCode(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/api/speech/token?code=abcd&role=speaker", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a non-empty token")
	}
	if resp.Code != "ABCD" {
		t.Errorf("Code = %q, want ABCD (normalized)", resp.Code)
	}
}

func TestSpeechTokenRejectsInvalidCode(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/api/speech/token?code=too-long-code&role=listener", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error != "invalid_code" {
		t.Errorf("Error = %q, want invalid_code", resp.Error)
	}
}

func TestSpeechTokenDefaultsRoleToListener(t *testing.T) {
	e := newTestEcho(t)
	req := httptest.NewRequest(http.MethodGet, "/api/speech/token?code=wxyz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

package config

import (
	"testing"
	"time"

	"github.com/confrelay/relay/internal/segmentation"
)

func TestLoadAppliesDefaultsWhenEnvUnset(t *testing.T) {
	for _, key := range []string{
		"RELAY_ENV", "RELAY_PORT", "RELAY_JWT_SECRET", "RELAY_TOKEN_TTL",
		"GEMINI_API_KEY", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID",
		"FALLBACK_TTS_ENDPOINT", "FALLBACK_TTS_API_KEY",
		"RELAY_QUEUE_THRESHOLD", "RELAY_QUEUE_CRITICAL", "RELAY_MAX_RATE",
		"RELAY_SEGMENTATION_KIND", "RELAY_METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Env != "production" {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.TokenTTL != 10*time.Minute {
		t.Errorf("TokenTTL = %v, want 10m", cfg.TokenTTL)
	}
	if cfg.QueueThreshold != 3 {
		t.Errorf("QueueThreshold = %d, want 3", cfg.QueueThreshold)
	}
	if cfg.QueueCritical != 10 {
		t.Errorf("QueueCritical = %d, want 10", cfg.QueueCritical)
	}
	if cfg.MaxRate != 1.5 {
		t.Errorf("MaxRate = %v, want 1.5", cfg.MaxRate)
	}
	if cfg.SegmentationKind != segmentation.KindHybrid {
		t.Errorf("SegmentationKind = %q, want %q", cfg.SegmentationKind, segmentation.KindHybrid)
	}
}

func TestLoadReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("RELAY_ENV", "staging")
	t.Setenv("RELAY_PORT", "9090")
	t.Setenv("RELAY_JWT_SECRET", "shh")
	t.Setenv("RELAY_TOKEN_TTL", "30s")
	t.Setenv("RELAY_QUEUE_THRESHOLD", "7")
	t.Setenv("RELAY_QUEUE_CRITICAL", "20")
	t.Setenv("RELAY_MAX_RATE", "2.0")
	t.Setenv("RELAY_SEGMENTATION_KIND", string(segmentation.KindContinuous))

	cfg := Load()

	if cfg.Env != "staging" {
		t.Errorf("Env = %q, want staging", cfg.Env)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.JWTSecret != "shh" {
		t.Errorf("JWTSecret = %q, want shh", cfg.JWTSecret)
	}
	if cfg.TokenTTL != 30*time.Second {
		t.Errorf("TokenTTL = %v, want 30s", cfg.TokenTTL)
	}
	if cfg.QueueThreshold != 7 {
		t.Errorf("QueueThreshold = %d, want 7", cfg.QueueThreshold)
	}
	if cfg.QueueCritical != 20 {
		t.Errorf("QueueCritical = %d, want 20", cfg.QueueCritical)
	}
	if cfg.MaxRate != 2.0 {
		t.Errorf("MaxRate = %v, want 2.0", cfg.MaxRate)
	}
	if cfg.SegmentationKind != segmentation.KindContinuous {
		t.Errorf("SegmentationKind = %q, want %q", cfg.SegmentationKind, segmentation.KindContinuous)
	}
}

func TestLoadIgnoresMalformedNumericOverrides(t *testing.T) {
	t.Setenv("RELAY_QUEUE_THRESHOLD", "not-a-number")
	t.Setenv("RELAY_MAX_RATE", "not-a-float")
	t.Setenv("RELAY_TOKEN_TTL", "not-a-duration")

	cfg := Load()

	if cfg.QueueThreshold != 3 {
		t.Errorf("QueueThreshold = %d, want fallback 3 for malformed input", cfg.QueueThreshold)
	}
	if cfg.MaxRate != 1.5 {
		t.Errorf("MaxRate = %v, want fallback 1.5 for malformed input", cfg.MaxRate)
	}
	if cfg.TokenTTL != 10*time.Minute {
		t.Errorf("TokenTTL = %v, want fallback 10m for malformed input", cfg.TokenTTL)
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/confrelay/relay/internal/segmentation"
)

// Config is the process-wide configuration, loaded once at startup from the
// environment (with an optional .env file for local development).
type Config struct {
	Env  string
	Port string

	JWTSecret     string
	TokenTTL      time.Duration

	GeminiAPIKey string

	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	FallbackTTSEndpoint string
	FallbackTTSAPIKey   string

	QueueThreshold int
	QueueCritical  int
	MaxRate        float64

	SegmentationKind segmentation.Kind

	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first, best-effort; real environment
// variables always take precedence.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("RELAY_ENV", "production"),
		Port: getEnv("RELAY_PORT", "8080"),

		JWTSecret: getEnv("RELAY_JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  getDuration("RELAY_TOKEN_TTL", 10*time.Minute),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),

		FallbackTTSEndpoint: getEnv("FALLBACK_TTS_ENDPOINT", ""),
		FallbackTTSAPIKey:   getEnv("FALLBACK_TTS_API_KEY", ""),

		QueueThreshold: getInt("RELAY_QUEUE_THRESHOLD", 3),
		QueueCritical:  getInt("RELAY_QUEUE_CRITICAL", 10),
		MaxRate:        getFloat("RELAY_MAX_RATE", 1.5),

		SegmentationKind: segmentation.Kind(getEnv("RELAY_SEGMENTATION_KIND", string(segmentation.KindHybrid))),

		MetricsAddr: getEnv("RELAY_METRICS_ADDR", ""),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

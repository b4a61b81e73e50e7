// Package metrics tracks the counters and rolling averages the
// observability section calls for, mirroring them into OpenTelemetry
// instruments for Prometheus scraping and producing the JSON snapshot
// served by the control plane.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder is the process-wide observability sink. It is safe for
// concurrent use from every session, language pipeline, and TTS worker.
type Recorder struct {
	provider *sdkmetric.MeterProvider

	translations    metric.Int64Counter
	latencyHist     metric.Float64Histogram
	errorCounter    metric.Int64Counter
	primaryUsed     metric.Int64Counter
	secondaryUsed   metric.Int64Counter
	rateAdjustments metric.Int64Counter
	dropped         metric.Int64Counter

	activeConnections int64
	peakConnections   int64

	mu               sync.Mutex
	sinceRollup      time.Time
	translationCount int64
	errorTally       map[string]int64
	primaryCount     int64
	secondaryCount   int64
	rateAdjustCount  int64
	queueDepthCur    int64
	queueDepthMax    int64
	droppedCount     int64

	latencySumMS   int64
	latencySamples int64
}

// NewRecorder builds a Recorder backed by an OTel MeterProvider wired to a
// Prometheus exporter (scraped separately from the control plane's JSON
// snapshot endpoint).
func NewRecorder() (*Recorder, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("github.com/confrelay/relay")

	translations, err := meter.Int64Counter("relay_translations_total")
	if err != nil {
		return nil, err
	}
	latencyHist, err := meter.Float64Histogram("relay_request_latency_ms")
	if err != nil {
		return nil, err
	}
	errorCounter, err := meter.Int64Counter("relay_errors_total")
	if err != nil {
		return nil, err
	}
	primaryUsed, err := meter.Int64Counter("relay_tts_primary_used_total")
	if err != nil {
		return nil, err
	}
	secondaryUsed, err := meter.Int64Counter("relay_tts_secondary_used_total")
	if err != nil {
		return nil, err
	}
	rateAdjustments, err := meter.Int64Counter("relay_rate_adjustments_total")
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("relay_queue_dropped_total")
	if err != nil {
		return nil, err
	}

	return &Recorder{
		provider:        provider,
		translations:    translations,
		latencyHist:     latencyHist,
		errorCounter:    errorCounter,
		primaryUsed:     primaryUsed,
		secondaryUsed:   secondaryUsed,
		rateAdjustments: rateAdjustments,
		dropped:         dropped,
		errorTally:      make(map[string]int64),
		sinceRollup:     time.Now(),
	}, nil
}

func (r *Recorder) ConnectionOpened() {
	n := atomic.AddInt64(&r.activeConnections, 1)
	for {
		peak := atomic.LoadInt64(&r.peakConnections)
		if n <= peak || atomic.CompareAndSwapInt64(&r.peakConnections, peak, n) {
			break
		}
	}
}

func (r *Recorder) ConnectionClosed() {
	atomic.AddInt64(&r.activeConnections, -1)
}

// TranslationCompleted records one translation call's latency.
func (r *Recorder) TranslationCompleted(ctx context.Context, latency time.Duration) {
	ms := float64(latency.Milliseconds())
	r.latencyHist.Record(ctx, ms)
	r.translations.Add(ctx, 1)

	r.mu.Lock()
	r.translationCount++
	r.latencySumMS += latency.Milliseconds()
	r.latencySamples++
	r.mu.Unlock()
}

// Error records a failure by kind (translator, tts_primary, tts_both,
// transport, validation, ...).
func (r *Recorder) Error(ctx context.Context, kind string) {
	r.errorCounter.Add(ctx, 1)
	r.mu.Lock()
	r.errorTally[kind]++
	r.mu.Unlock()
}

// TTSProviderUsed records which provider tier served a request.
func (r *Recorder) TTSProviderUsed(ctx context.Context, primary bool) {
	if primary {
		r.primaryUsed.Add(ctx, 1)
		r.mu.Lock()
		r.primaryCount++
		r.mu.Unlock()
		return
	}
	r.secondaryUsed.Add(ctx, 1)
	r.mu.Lock()
	r.secondaryCount++
	r.mu.Unlock()
}

// RateAdjusted records a significant adaptive-rate change.
func (r *Recorder) RateAdjusted(ctx context.Context) {
	r.rateAdjustments.Add(ctx, 1)
	r.mu.Lock()
	r.rateAdjustCount++
	r.mu.Unlock()
}

// QueueDepth records the current depth of a (session, language) queue,
// updating the process-wide high-water mark.
func (r *Recorder) QueueDepth(depth int64) {
	r.mu.Lock()
	r.queueDepthCur = depth
	if depth > r.queueDepthMax {
		r.queueDepthMax = depth
	}
	r.mu.Unlock()
}

// Dropped records queue-overflow drops.
func (r *Recorder) Dropped(ctx context.Context, count int64) {
	r.dropped.Add(ctx, count)
	r.mu.Lock()
	r.droppedCount += count
	r.mu.Unlock()
}

// Snapshot is the JSON payload served by GET /api/metrics.
type Snapshot struct {
	ActiveConnections int64            `json:"active_connections"`
	PeakConnections   int64            `json:"peak_connections"`
	Translations      int64            `json:"translations"`
	AvgLatencyMS      float64          `json:"avg_latency_ms"`
	ErrorsByKind      map[string]int64 `json:"errors_by_kind"`
	PrimaryTTSUsed    int64            `json:"primary_tts_used"`
	SecondaryTTSUsed  int64            `json:"secondary_tts_used"`
	RateAdjustments   int64            `json:"rate_adjustments"`
	QueueDepthCurrent int64            `json:"queue_depth_current"`
	QueueDepthMax     int64            `json:"queue_depth_max"`
	Dropped           int64            `json:"dropped"`
	SinceRollup       time.Time        `json:"since_rollup"`
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	avg := 0.0
	if r.latencySamples > 0 {
		avg = float64(r.latencySumMS) / float64(r.latencySamples)
	}
	errs := make(map[string]int64, len(r.errorTally))
	for k, v := range r.errorTally {
		errs[k] = v
	}
	return Snapshot{
		ActiveConnections: atomic.LoadInt64(&r.activeConnections),
		PeakConnections:   atomic.LoadInt64(&r.peakConnections),
		Translations:      r.translationCount,
		AvgLatencyMS:      avg,
		ErrorsByKind:      errs,
		PrimaryTTSUsed:    r.primaryCount,
		SecondaryTTSUsed:  r.secondaryCount,
		RateAdjustments:   r.rateAdjustCount,
		QueueDepthCurrent: r.queueDepthCur,
		QueueDepthMax:     r.queueDepthMax,
		Dropped:           r.droppedCount,
		SinceRollup:       r.sinceRollup,
	}
}

// RunRollups resets the per-period counters every hour while the running
// latency average (sum/sample count) is left untouched, so long-lived
// deployments don't overflow their counters without losing the average.
func (r *Recorder) RunRollups(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			r.translationCount = 0
			r.errorTally = make(map[string]int64)
			r.primaryCount = 0
			r.secondaryCount = 0
			r.rateAdjustCount = 0
			r.droppedCount = 0
			r.sinceRollup = time.Now()
			r.mu.Unlock()
		}
	}
}

// Shutdown flushes and releases the underlying meter provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

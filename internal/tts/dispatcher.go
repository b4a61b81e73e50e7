package tts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/confrelay/relay/internal/metrics"
)

const (
	baseRate             = 1.0
	rateStep             = 0.05
	defaultMaxRate       = 1.5
	defaultQueueThresh   = 3
	defaultCriticalSize  = 10
	consecutiveErrorCap  = 5
	providerDisableFor   = 60 * time.Second
	synthesizeTimeout    = 10 * time.Second
	persistentIdleFlush  = 500 * time.Millisecond

	// providerRequestsPerSecond throttles calls to each provider independent
	// of per-pipeline queueing, protecting a shared account's rate limit
	// when many sessions synthesize concurrently.
	providerRequestsPerSecond = 20
	providerBurst             = 10
)

// AudioHandler receives each audio chunk produced for a queued entry, in
// order, for forwarding to the session hub.
type AudioHandler func(entry *Entry, chunk []byte)

// Dispatcher owns every (session, language) pipeline and the shared
// primary/secondary provider pool.
type Dispatcher struct {
	logger    *zap.Logger
	metrics   *metrics.Recorder
	primary   Provider
	secondary Provider

	primaryLimiter   *rate.Limiter
	secondaryLimiter *rate.Limiter

	queueThreshold int
	criticalSize   int
	maxRate        float64

	mu        sync.Mutex
	pipelines map[string]*pipeline

	providerMu     sync.Mutex
	primaryErrors  int
	primaryDisabledUntil time.Time
}

// DispatcherConfig bounds the dispatcher's adaptive-rate and overflow behavior.
type DispatcherConfig struct {
	QueueThreshold int
	CriticalSize   int
	MaxRate        float64
}

// NewDispatcher builds a Dispatcher. secondary may be nil if no fallback
// provider is configured.
func NewDispatcher(primary, secondary Provider, cfg DispatcherConfig, rec *metrics.Recorder, logger *zap.Logger) *Dispatcher {
	if cfg.QueueThreshold <= 0 {
		cfg.QueueThreshold = defaultQueueThresh
	}
	if cfg.CriticalSize <= 0 {
		cfg.CriticalSize = defaultCriticalSize
	}
	if cfg.MaxRate <= 0 {
		cfg.MaxRate = defaultMaxRate
	}
	return &Dispatcher{
		logger:           logger,
		metrics:          rec,
		primary:          primary,
		secondary:        secondary,
		primaryLimiter:   rate.NewLimiter(rate.Limit(providerRequestsPerSecond), providerBurst),
		secondaryLimiter: rate.NewLimiter(rate.Limit(providerRequestsPerSecond), providerBurst),
		queueThreshold:   cfg.QueueThreshold,
		criticalSize:     cfg.CriticalSize,
		maxRate:          cfg.MaxRate,
		pipelines:        make(map[string]*pipeline),
	}
}

func pipelineKey(code, lang string) string { return code + "|" + lang }

// Persistent reports whether either configured provider supports
// persistent-mode streaming, preferring the primary, and returns it as a
// PersistentProvider when one does.
func (d *Dispatcher) Persistent() (PersistentProvider, bool) {
	if pp, ok := d.primary.(PersistentProvider); ok {
		return pp, true
	}
	if d.secondary != nil {
		if pp, ok := d.secondary.(PersistentProvider); ok {
			return pp, true
		}
	}
	return nil, false
}

// Enqueue submits one synthesis unit for (code, lang), creating its
// pipeline worker on first use. handler is invoked for every audio chunk
// produced, in order.
func (d *Dispatcher) Enqueue(ctx context.Context, code, lang, text, voiceHint string, handler AudioHandler) {
	p := d.pipelineFor(code, lang, handler)
	entry := &Entry{
		ID:         uuid.New(),
		Text:       text,
		Language:   lang,
		VoiceHint:  voiceHint,
		EnqueuedAt: time.Now(),
		Done:       make(chan Result, 1),
	}
	if !p.queue.Push(entry) {
		return
	}
	d.enforceOverflow(p)
	d.metrics.QueueDepth(int64(p.queue.Len()))
}

func (d *Dispatcher) pipelineFor(code, lang string, handler AudioHandler) *pipeline {
	key := pipelineKey(code, lang)
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pipelines[key]; ok {
		return p
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{
		code:        code,
		lang:        lang,
		queue:       NewQueue(),
		dispatcher:  d,
		currentRate: baseRate,
		cancel:      cancel,
		handler:     handler,
	}
	d.pipelines[key] = p
	go p.run(ctx)
	return p
}

// enforceOverflow drops the oldest entries once a pipeline's queue passes
// twice the critical size, rejecting their handles with ErrQueueClosed-free
// rejection (the caller simply never receives audio for them).
func (d *Dispatcher) enforceOverflow(p *pipeline) {
	dropped := p.queue.DropOverflow(d.criticalSize)
	if len(dropped) == 0 {
		return
	}
	for _, e := range dropped {
		e.Done <- Result{Rejected: true}
	}
	d.logger.Warn("tts queue overflow, dropping oldest entries",
		zap.String("session", p.code), zap.String("language", p.lang), zap.Int("dropped", len(dropped)))
	d.metrics.Dropped(context.Background(), int64(len(dropped)))
}

// CloseSession tears down a session's pipelines, e.g. when the speaker
// disconnects, rejecting the handles of entries still queued.
func (d *Dispatcher) CloseSession(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, p := range d.pipelines {
		if p.code == code {
			p.cancel()
			for _, e := range p.queue.Close() {
				e.Done <- Result{Rejected: true}
			}
			delete(d.pipelines, key)
		}
	}
}

// pipeline is one (session, language) worker: single consumer, adaptive
// rate, and primary/secondary provider fallback.
type pipeline struct {
	code, lang string
	queue      *Queue
	dispatcher *Dispatcher
	handler    AudioHandler
	cancel     context.CancelFunc

	mu          sync.Mutex
	currentRate float64
}

func (p *pipeline) run(ctx context.Context) {
	for {
		entry, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		p.dispatcher.metrics.QueueDepth(int64(p.queue.Len()))
		p.adjustRate()
		p.synthesizeOne(ctx, entry)
	}
}

// adjustRate raises the playback rate by rateStep for every item over
// queueThreshold still waiting behind the one about to play, capped at
// maxRate, and returns straight to baseRate once the depth is at or below
// queueThreshold.
func (p *pipeline) adjustRate() {
	depth := p.queue.Len()
	d := p.dispatcher

	p.mu.Lock()
	defer p.mu.Unlock()

	var target float64
	if depth > d.queueThreshold {
		excess := depth - d.queueThreshold
		target = baseRate + float64(excess)*rateStep
		if target > d.maxRate {
			target = d.maxRate
		}
	} else {
		target = baseRate
	}
	if target != p.currentRate {
		p.currentRate = target
		d.metrics.RateAdjusted(context.Background())
	}
}

func (p *pipeline) rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentRate
}

func (p *pipeline) synthesizeOne(ctx context.Context, entry *Entry) {
	d := p.dispatcher
	synthCtx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
	defer cancel()

	rate := p.rate()
	provider, usedPrimary, err := d.choose(synthCtx, entry.Text, p.lang, entry.VoiceHint, rate)
	if err != nil {
		d.logger.Error("all tts providers exhausted",
			zap.String("session", p.code), zap.String("language", p.lang), zap.Error(err))
		entry.Done <- Result{Err: err}
		d.metrics.Error(context.Background(), "tts_both")
		return
	}

	d.metrics.TTSProviderUsed(context.Background(), usedPrimary)
	entry.Done <- Result{Audio: provider}
	if p.handler == nil {
		return
	}
	for chunk := range provider {
		p.handler(entry, chunk)
	}
}

// choose synthesizes against the primary unless it is in its post-failure
// cooldown, falling back to the secondary on any primary error. A primary
// success resets its consecutive-error count.
func (d *Dispatcher) choose(ctx context.Context, text, lang, voiceHint string, rate float64) (<-chan []byte, bool, error) {
	d.providerMu.Lock()
	primaryDown := time.Now().Before(d.primaryDisabledUntil)
	d.providerMu.Unlock()

	if !primaryDown {
		if err := d.primaryLimiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("primary rate limiter: %w", err)
		}
		audio, err := d.primary.Synthesize(ctx, text, lang, voiceHint, rate)
		if err == nil {
			d.providerMu.Lock()
			d.primaryErrors = 0
			d.providerMu.Unlock()
			return audio, true, nil
		}
		d.recordPrimaryError()
		d.logger.Warn("primary tts failed, falling back", zap.Error(err))
	}

	if d.secondary == nil {
		return nil, false, fmt.Errorf("primary unavailable and no secondary configured")
	}
	if err := d.secondaryLimiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("secondary rate limiter: %w", err)
	}
	audio, err := d.secondary.Synthesize(ctx, text, lang, voiceHint, rate)
	if err != nil {
		return nil, false, fmt.Errorf("secondary tts failed: %w", err)
	}
	return audio, false, nil
}

func (d *Dispatcher) recordPrimaryError() {
	d.providerMu.Lock()
	defer d.providerMu.Unlock()
	d.primaryErrors++
	if d.primaryErrors > consecutiveErrorCap {
		d.primaryDisabledUntil = time.Now().Add(providerDisableFor)
		d.logger.Warn("primary tts provider disabled after consecutive failures",
			zap.Int("errors", d.primaryErrors), zap.Duration("cooldown", providerDisableFor))
	}
}

package tts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	persistentReconnectBase = 250 * time.Millisecond
	persistentReconnectMax  = 5 * time.Second
	persistentBackpressure  = 4 // audio chunks buffered before SendText blocks
)

// PersistentSession manages one open persistent-mode channel for a
// (session, language) pair, feeding it text deltas as they arrive from the
// segmentation engine and forwarding audio fragments to handler as they are
// produced.
//
// Back-pressure pauses delta sends rather than dropping audio mid-utterance:
// SendDelta blocks until the provider's channel has drained below
// persistentBackpressure, per the persistent-mode back-pressure contract.
type PersistentSession struct {
	provider PersistentProvider
	language string
	voice    string
	handler  AudioHandler
	logger   *zap.Logger

	mu      sync.Mutex
	channel PersistentChannel
	rate    float64
	pending int

	cancel context.CancelFunc
}

// OpenPersistentSession dials the provider's persistent channel and starts
// forwarding audio to handler until the returned session's Close is
// called or ctx is cancelled.
func OpenPersistentSession(ctx context.Context, provider PersistentProvider, language, voice string, handler AudioHandler, logger *zap.Logger) (*PersistentSession, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s := &PersistentSession{
		provider: provider,
		language: language,
		voice:    voice,
		handler:  handler,
		logger:   logger,
		rate:     baseRate,
		cancel:   cancel,
	}
	if err := s.connect(runCtx); err != nil {
		cancel()
		return nil, err
	}
	go s.reconnectLoop(runCtx)
	return s, nil
}

func (s *PersistentSession) connect(ctx context.Context) error {
	ch, err := s.provider.OpenPersistent(ctx, s.language, s.voice)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	go s.drain(ctx, ch)
	return nil
}

func (s *PersistentSession) drain(ctx context.Context, ch PersistentChannel) {
	for {
		select {
		case chunk, ok := <-ch.Audio():
			if !ok {
				s.mu.Lock()
				if s.channel == ch {
					s.channel = nil
				}
				s.mu.Unlock()
				return
			}
			s.mu.Lock()
			if s.pending > 0 {
				s.pending--
			}
			s.mu.Unlock()
			if s.handler != nil {
				s.handler(nil, chunk)
			}
		case <-ctx.Done():
			return
		}
	}
}

// reconnectLoop re-establishes the persistent channel with exponential
// backoff whenever it drops, until ctx is cancelled.
func (s *PersistentSession) reconnectLoop(ctx context.Context) {
	backoff := persistentReconnectBase
	idle := time.NewTicker(persistentIdleFlush)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			s.mu.Lock()
			down := s.channel == nil
			s.mu.Unlock()
			if !down {
				backoff = persistentReconnectBase
				continue
			}
			if err := s.connect(ctx); err != nil {
				s.logger.Warn("persistent tts reconnect failed", zap.Error(err), zap.Duration("retry_in", backoff))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff *= 2
				if backoff > persistentReconnectMax {
					backoff = persistentReconnectMax
				}
			} else {
				backoff = persistentReconnectBase
			}
		}
	}
}

// SendDelta pushes a text delta onto the open channel, blocking while the
// audio backlog is over persistentBackpressure rather than dropping bytes
// mid-utterance. Returns false if no channel is currently open, if ctx ends
// while the send is blocked, or if the channel rejects the delta.
func (s *PersistentSession) SendDelta(ctx context.Context, delta string) bool {
	s.mu.Lock()
	ch := s.channel
	for ch != nil && s.pending >= persistentBackpressure {
		s.mu.Unlock()
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
		s.mu.Lock()
		ch = s.channel
	}
	if ch == nil {
		s.mu.Unlock()
		return false
	}
	s.pending++
	rate := s.rate
	s.mu.Unlock()

	if err := ch.SendText(ctx, delta, rate); err != nil {
		s.logger.Warn("persistent tts send failed", zap.Error(err))
		return false
	}
	return true
}

// SetRate updates the playback rate applied to subsequent deltas.
func (s *PersistentSession) SetRate(rate float64) {
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
}

func (s *PersistentSession) Close() {
	s.cancel()
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

// Package translate translates release notes chunk by chunk and falls back to the
// original text wherever a backend fails.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/monitoring"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	ErrMissingCredentials = errors.New("translation backend credentials are not configured")
	ErrInvalidScript      = errors.New("translation is not written in the target script")
	ErrEmptyTranslation   = errors.New("translation backend returned no text")
)

// Backend translates one chunk of text.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Config controls chunking and pacing of backend calls.
type Config struct {
	Source     string
	Target     string
	ChunkSize  int           // Runes per chunk
	ChunkDelay time.Duration // Pause between two chunk calls
	Timeout    time.Duration // Per backend call
	Retries    int           // Extra attempts per chunk
}

// DefaultConfig translates English to Chinese.
func DefaultConfig() Config {
	return Config{
		Source:     "en",
		Target:     "zh",
		ChunkSize:  DefaultChunkSize,
		ChunkDelay: 100 * time.Millisecond,
		Timeout:    30 * time.Second,
		Retries:    1,
	}
}

// Result is the outcome of translating one text. UsedFallback is set when any part
// of Text is the untranslated original.
type Result struct {
	Text         string
	UsedFallback bool
	Chunks       int
	FailedChunks int
}

// Service translates texts through a Backend. It is safe for concurrent use.
type Service struct {
	backend  Backend
	disabled bool
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
	log      *zap.Logger

	missingOnce sync.Once
	configErr   error // reported instead of ErrMissingCredentials
}

// NewService wraps backend. A nil backend means the backend could not be configured:
// every call returns its input as a fallback and the problem is logged once.
func NewService(backend Backend, cfg Config, log *zap.Logger) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("translate")

	name := "none"
	if backend != nil {
		name = backend.Name()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "translate-" + name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Translation circuit breaker changed state",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Service{backend: backend, cfg: cfg, breaker: breaker, log: log}
}

// NewDisabled returns a service that never translates and never reports a fallback.
func NewDisabled() *Service {
	return &Service{disabled: true, cfg: DefaultConfig(), log: zap.NewNop()}
}

// Translate never fails: chunks that cannot be translated keep their original text.
func (s *Service) Translate(ctx context.Context, text string) Result {
	if s.disabled || strings.TrimSpace(text) == "" || !HasLetter(text) {
		return Result{Text: text}
	}

	chunks := SplitChunks(text, s.cfg.ChunkSize)
	if s.backend == nil {
		s.missingOnce.Do(func() {
			cause := s.configErr
			if cause == nil {
				cause = ErrMissingCredentials
			}
			s.log.Error("Translation is not configured, keeping original text", zap.Error(cause))
		})
		monitoring.TranslationFallbacks.Inc()
		return Result{Text: text, UsedFallback: true, Chunks: len(chunks), FailedChunks: len(chunks)}
	}

	result := Result{Chunks: len(chunks)}
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && s.cfg.ChunkDelay > 0 {
			if err := sleep(ctx, s.cfg.ChunkDelay); err != nil {
				// cancelled: keep the rest untranslated
				copy(out[i:], chunks[i:])
				result.FailedChunks += len(chunks) - i
				break
			}
		}

		translated, err := s.translateChunk(ctx, chunk)
		if err != nil {
			s.log.Warn("Chunk translation failed, keeping original",
				zap.Int("chunk", i+1), zap.Int("chunks", len(chunks)), zap.Error(err))
			monitoring.TranslatedChunks.WithLabelValues(s.backend.Name(), "fallback").Inc()
			out[i] = chunk
			result.FailedChunks++
			continue
		}
		monitoring.TranslatedChunks.WithLabelValues(s.backend.Name(), "ok").Inc()
		out[i] = translated
	}

	result.Text = JoinChunks(out)
	result.UsedFallback = result.FailedChunks > 0
	if result.UsedFallback {
		monitoring.TranslationFallbacks.Inc()
	}
	return result
}

// TranslateAsync runs Translate on its own goroutine.
func (s *Service) TranslateAsync(ctx context.Context, text string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- s.Translate(ctx, text)
	}()
	return ch
}

func (s *Service) translateChunk(ctx context.Context, chunk string) (string, error) {
	if !HasLetter(chunk) {
		return chunk, nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		translated, err := s.call(ctx, chunk)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
	}
	return "", lastErr
}

// call runs one backend request through the breaker. Empty and wrong-script replies
// are returned as errors from inside the breaker so they count toward tripping it.
func (s *Service) call(ctx context.Context, chunk string) (string, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}
		reply, err := s.backend.Translate(callCtx, chunk, s.cfg.Source, s.cfg.Target)
		if err != nil {
			return nil, err
		}
		translated := strings.TrimSpace(reply)
		if translated == "" {
			return nil, ErrEmptyTranslation
		}
		if !ValidScript(translated, s.cfg.Target) {
			return nil, ErrInvalidScript
		}
		return translated, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.backend.Name(), err)
	}
	return out.(string), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

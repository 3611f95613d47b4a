package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeBackend prefixes every chunk with 译: and fails the chunks containing fail.
type fakeBackend struct {
	mu    sync.Mutex
	fail  string
	err   error
	reply string
	calls []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if f.fail != "" && strings.Contains(text, f.fail) {
		return "", errors.New("backend unavailable")
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "译:" + text, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() Config {
	return Config{Source: "en", Target: "zh", ChunkSize: 10, Retries: 1}
}

func TestTranslate_PassThroughWithoutLetters(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, testConfig(), zap.NewNop())

	for _, in := range []string{"", "   ", "1.2.3 - 42\n\n---", "🚀 🎉"} {
		res := svc.Translate(context.Background(), in)
		assert.Equal(t, in, res.Text)
		assert.False(t, res.UsedFallback)
	}
	assert.Equal(t, 0, backend.callCount())
}

func TestTranslate_AllChunks(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, testConfig(), zap.NewNop())

	res := svc.Translate(context.Background(), "first\n\nsecond\n\nthird")
	assert.Equal(t, "译:first\n\n译:second\n\n译:third", res.Text)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 0, res.FailedChunks)
}

func TestTranslate_MiddleChunkFails(t *testing.T) {
	backend := &fakeBackend{fail: "second"}
	svc := NewService(backend, testConfig(), zap.NewNop())

	res := svc.Translate(context.Background(), "first\n\nsecond\n\nthird")
	assert.Equal(t, "译:first\n\nsecond\n\n译:third", res.Text)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, 1, res.FailedChunks)
	// one retry for the failing chunk
	assert.Equal(t, 4, backend.callCount())
}

func TestTranslate_InvalidScriptFallsBack(t *testing.T) {
	backend := &fakeBackend{reply: "still english"}
	svc := NewService(backend, testConfig(), zap.NewNop())

	res := svc.Translate(context.Background(), "hello")
	assert.Equal(t, "hello", res.Text)
	assert.True(t, res.UsedFallback)
}

func TestTranslate_EmptyReplyFallsBack(t *testing.T) {
	backend := &fakeBackend{reply: "   "}
	svc := NewService(backend, testConfig(), zap.NewNop())

	res := svc.Translate(context.Background(), "hello")
	assert.Equal(t, "hello", res.Text)
	assert.True(t, res.UsedFallback)
}

func TestTranslate_MissingBackendLogsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(nil, testConfig(), zap.New(core))

	for i := 0; i < 3; i++ {
		res := svc.Translate(context.Background(), "hello world")
		assert.Equal(t, "hello world", res.Text)
		assert.True(t, res.UsedFallback)
	}
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestTranslate_Disabled(t *testing.T) {
	res := NewDisabled().Translate(context.Background(), "hello")
	assert.Equal(t, Result{Text: "hello"}, res)
}

func TestTranslate_BreakerOpens(t *testing.T) {
	backend := &fakeBackend{err: errors.New("503")}
	cfg := testConfig()
	cfg.Retries = 0
	svc := NewService(backend, cfg, zap.NewNop())

	text := strings.TrimSuffix(strings.Repeat("abcdefgh\n\n", 10), "\n\n")
	res := svc.Translate(context.Background(), text)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, 10, res.FailedChunks)
	assert.Equal(t, 5, backend.callCount())
}

func TestTranslate_InvalidScriptTripsBreaker(t *testing.T) {
	backend := &fakeBackend{reply: "still english"}
	cfg := testConfig()
	cfg.Retries = 0
	svc := NewService(backend, cfg, zap.NewNop())

	text := strings.TrimSuffix(strings.Repeat("abcdefgh\n\n", 10), "\n\n")
	res := svc.Translate(context.Background(), text)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, 10, res.FailedChunks)
	assert.Equal(t, 5, backend.callCount())
}

func TestTranslate_PacesChunks(t *testing.T) {
	backend := &fakeBackend{}
	cfg := testConfig()
	cfg.ChunkDelay = 20 * time.Millisecond
	svc := NewService(backend, cfg, zap.NewNop())

	start := time.Now()
	res := svc.Translate(context.Background(), "first\n\nsecond\n\nthird")
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.False(t, res.UsedFallback)
}

func TestTranslate_CancelledKeepsRemainder(t *testing.T) {
	backend := &fakeBackend{}
	cfg := testConfig()
	cfg.ChunkDelay = time.Hour
	svc := NewService(backend, cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := svc.Translate(ctx, "first\n\nsecond\n\nthird")
	assert.Equal(t, "译:first\n\nsecond\n\nthird", res.Text)
	assert.Equal(t, 2, res.FailedChunks)
	assert.True(t, res.UsedFallback)
}

func TestTranslateAsync(t *testing.T) {
	svc := NewService(&fakeBackend{}, testConfig(), zap.NewNop())

	select {
	case res := <-svc.TranslateAsync(context.Background(), "hello"):
		require.Equal(t, "译:hello", res.Text)
	case <-time.After(time.Second):
		t.Fatal("translation did not complete")
	}
}

package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"go.uber.org/zap"
)

var languageNames = map[string]string{
	"zh":    "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
	"en":    "English",
	"ja":    "Japanese",
	"ko":    "Korean",
	"ru":    "Russian",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// prompt is shared by the LLM backends.
func prompt(source, target string) string {
	return fmt.Sprintf("You are a professional translator of software release notes. "+
		"Translate the user's markdown from %s to %s. Keep markdown structure, code, URLs, "+
		"names and version numbers unchanged. Reply with the translation only.",
		languageName(source), languageName(target))
}

// NewBackend creates the backend selected by TRANSLATOR. It returns a nil backend
// for "none" and ErrMissingCredentials when the selected backend has no key.
func NewBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(cfg.Translator) {
	case "tencent":
		backend, err = NewTencent(TencentConfig{
			SecretID:  cfg.TencentSecretID,
			SecretKey: cfg.TencentSecretKey,
			Region:    cfg.TencentRegion,
			ProjectID: cfg.TencentProjectID,
			Timeout:   cfg.TranslateTimeout,
		})
	case "openai":
		backend, err = NewOpenAI(OpenAIConfig{APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL})
	case "gemini":
		backend, err = NewGemini(ctx, GeminiConfig{APIKey: cfg.GeminiKey, Model: cfg.GeminiModel})
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid TRANSLATOR: %s. Must be 'tencent', 'openai', 'gemini' or 'none'", cfg.Translator)
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// ServiceFromConfig wires the configured backend into a Service. Backend
// configuration errors are logged and degrade the service to pass-through.
func ServiceFromConfig(ctx context.Context, cfg config.Config, log *zap.Logger) *Service {
	if strings.EqualFold(cfg.Translator, "none") || cfg.Translator == "" {
		return NewDisabled()
	}

	// A configuration error is reported by the service on first use.
	backend, configErr := NewBackend(ctx, cfg)
	if configErr != nil {
		backend = nil
		configErr = fmt.Errorf("translator %s: %w", cfg.Translator, configErr)
	}

	tc := DefaultConfig()
	if cfg.SourceLang != "" {
		tc.Source = cfg.SourceLang
	}
	if cfg.TargetLang != "" {
		tc.Target = cfg.TargetLang
	}
	if cfg.ChunkSize > 0 {
		tc.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkDelay > 0 {
		tc.ChunkDelay = cfg.ChunkDelay
	}
	if cfg.TranslateTimeout > 0 {
		tc.Timeout = cfg.TranslateTimeout
	}
	if cfg.TranslateRetries >= 0 {
		tc.Retries = cfg.TranslateRetries
	}
	svc := NewService(backend, tc, log)
	svc.configErr = configErr
	return svc
}

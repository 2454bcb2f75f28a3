package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/repoforge/repoforge/internal/branding"
	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/llm"
	"github.com/repoforge/repoforge/internal/logging"
	"github.com/repoforge/repoforge/internal/pipeline"
)

// Setting keys.
const (
	KeyProvider          = "provider"
	KeyModel             = "model"
	KeyAPIKey            = "api_key"
	KeyBaseURL           = "base_url"
	KeyStandardsSource   = "standards.source"
	KeyMaxAttempts       = "codegen.max_attempts"
	KeyInitialDelay      = "codegen.initial_delay"
	KeyMaxDelay          = "codegen.max_delay"
	KeyRequestsPerMinute = "codegen.requests_per_minute"
	KeyMaxTokens         = "codegen.max_tokens"
	KeyExcerptChars      = "codegen.excerpt_chars"
	KeyFeatureWorkers    = "pipeline.feature_workers"
	KeyHistoryPath       = "history.path"
	KeyHistoryKeep       = "history.keep"
	KeyMetricsTextfile   = "metrics.textfile"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
)

// Keys returns every settable key in display order.
func Keys() []string {
	return []string{
		KeyProvider, KeyModel, KeyAPIKey, KeyBaseURL, KeyStandardsSource,
		KeyMaxAttempts, KeyInitialDelay, KeyMaxDelay, KeyRequestsPerMinute, KeyMaxTokens, KeyExcerptChars,
		KeyFeatureWorkers, KeyHistoryPath, KeyHistoryKeep, KeyMetricsTextfile, KeyLogLevel, KeyLogFormat,
	}
}

var (
	intKeys      = []string{KeyMaxAttempts, KeyRequestsPerMinute, KeyMaxTokens, KeyExcerptChars, KeyFeatureWorkers, KeyHistoryKeep}
	durationKeys = []string{KeyInitialDelay, KeyMaxDelay}
)

func setDefaults() {
	viper.SetDefault(KeyProvider, llm.ProviderAnthropic)
	viper.SetDefault(KeyStandardsSource, branding.StandardsURL())
	viper.SetDefault(KeyMaxAttempts, codegen.DefaultRetryPolicy.MaxAttempts)
	viper.SetDefault(KeyInitialDelay, codegen.DefaultRetryPolicy.InitialDelay.String())
	viper.SetDefault(KeyMaxDelay, codegen.DefaultRetryPolicy.MaxDelay.String())
	viper.SetDefault(KeyRequestsPerMinute, 0)
	viper.SetDefault(KeyMaxTokens, 0)
	viper.SetDefault(KeyExcerptChars, codegen.DefaultExcerptChars)
	viper.SetDefault(KeyFeatureWorkers, pipeline.DefaultFeatureWorkers)
	viper.SetDefault(KeyHistoryPath, filepath.Join(Dir(), "history.db"))
	viper.SetDefault(KeyHistoryKeep, 200)
	viper.SetDefault(KeyLogLevel, "warn")
	viper.SetDefault(KeyLogFormat, logging.FormatConsole)
}

// checkValue rejects values that would fail later when resolved.
func checkValue(key, value string) error {
	switch {
	case slices.Contains(intKeys, key):
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
	case slices.Contains(durationKeys, key):
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a duration such as 500ms or 2s: %w", key, err)
		}
	case key == KeyProvider:
		if value != llm.ProviderAnthropic && value != llm.ProviderOpenAI {
			return fmt.Errorf("%s must be %s or %s, got %q", key, llm.ProviderAnthropic, llm.ProviderOpenAI, value)
		}
	case key == KeyLogLevel:
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
	}
	return nil
}

// Settings is the resolved view of the user config and environment.
type Settings struct {
	LLM             llm.Options
	StandardsSource string
	Retry           codegen.RetryPolicy
	RequestsPerMin  int
	MaxTokens       int
	ExcerptChars    int
	FeatureWorkers  int
	HistoryPath     string
	HistoryKeep     int
	MetricsTextfile string
	Log             logging.Config
}

// Resolve reads the current Viper state into Settings. Load must have been
// called first. The API key falls back to the provider's own environment
// variable (ANTHROPIC_API_KEY or OPENAI_API_KEY) when not set explicitly.
func Resolve() (Settings, error) {
	initial, err := duration(KeyInitialDelay)
	if err != nil {
		return Settings{}, err
	}
	maxDelay, err := duration(KeyMaxDelay)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		LLM: llm.Options{
			Provider: viper.GetString(KeyProvider),
			Model:    viper.GetString(KeyModel),
			APIKey:   viper.GetString(KeyAPIKey),
			BaseURL:  viper.GetString(KeyBaseURL),
		},
		StandardsSource: viper.GetString(KeyStandardsSource),
		Retry: codegen.RetryPolicy{
			MaxAttempts:   viper.GetInt(KeyMaxAttempts),
			InitialDelay:  initial,
			MaxDelay:      maxDelay,
			BackoffFactor: codegen.DefaultRetryPolicy.BackoffFactor,
			Jitter:        codegen.DefaultRetryPolicy.Jitter,
		},
		RequestsPerMin:  viper.GetInt(KeyRequestsPerMinute),
		MaxTokens:       viper.GetInt(KeyMaxTokens),
		ExcerptChars:    viper.GetInt(KeyExcerptChars),
		FeatureWorkers:  viper.GetInt(KeyFeatureWorkers),
		HistoryPath:     viper.GetString(KeyHistoryPath),
		HistoryKeep:     viper.GetInt(KeyHistoryKeep),
		MetricsTextfile: viper.GetString(KeyMetricsTextfile),
		Log: logging.Config{
			Level:  viper.GetString(KeyLogLevel),
			Format: viper.GetString(KeyLogFormat),
		},
	}
	if s.LLM.APIKey == "" {
		s.LLM.APIKey = providerKey(s.LLM.Provider)
	}
	if s.Retry.MaxAttempts < 1 {
		return Settings{}, fmt.Errorf("%s must be at least 1, got %d", KeyMaxAttempts, s.Retry.MaxAttempts)
	}
	if s.FeatureWorkers < 1 {
		return Settings{}, fmt.Errorf("%s must be at least 1, got %d", KeyFeatureWorkers, s.FeatureWorkers)
	}
	return s, nil
}

func duration(key string) (time.Duration, error) {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func providerKey(provider string) string {
	switch provider {
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

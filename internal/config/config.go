package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mandi/internal/fallback"
	"mandi/internal/locale"
	"mandi/internal/market"
	"mandi/internal/persona"
)

const (
	DefaultPersonaPath    = "./personas.json"
	DefaultDealDir        = "./deals"
	DefaultModel          = "gpt-5.2"
	DefaultRequestTimeout = 60 * time.Second
	DefaultAPIMaxRetries  = 2
	DefaultAITimeout      = 20 * time.Second
	DefaultLocale         = locale.Default
	DefaultRole           = persona.RoleBuyer
)

type Settings struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	APIMaxRetries  int

	Locale         locale.Code
	Role           persona.Role
	Seed           int64
	LowPriceRatio  float64
	TotalTolerance float64
	AITimeout      time.Duration
	PriceCacheTTL  time.Duration
	MySQLDSN       string
	DealDir        string
	LogLevel       slog.Level
}

// HasAI reports whether a hosted model is configured.
func (s Settings) HasAI() bool {
	return s.APIKey != ""
}

// Logger returns a text logger on w at the configured level.
func (s Settings) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.LogLevel}))
}

// LoadDotEnv reads KEY=value files into the environment without replacing
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func FromEnv() (Settings, error) {
	settings := Settings{
		APIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:        strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Model:          DefaultModel,
		RequestTimeout: DefaultRequestTimeout,
		APIMaxRetries:  DefaultAPIMaxRetries,
		Locale:         DefaultLocale,
		Role:           DefaultRole,
		LowPriceRatio:  fallback.DefaultLowPriceRatio,
		TotalTolerance: fallback.DefaultTotalTolerance,
		AITimeout:      DefaultAITimeout,
		PriceCacheTTL:  market.DefaultTTL,
		MySQLDSN:       strings.TrimSpace(os.Getenv("MANDI_MYSQL_DSN")),
		DealDir:        DefaultDealDir,
		LogLevel:       slog.LevelInfo,
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		settings.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("MANDI_LOCALE")); v != "" {
		settings.Locale = locale.Resolve(v)
	}
	if v := strings.TrimSpace(os.Getenv("MANDI_DEAL_DIR")); v != "" {
		settings.DealDir = v
	}
	if v := strings.TrimSpace(os.Getenv("MANDI_ROLE")); v != "" {
		role, err := persona.ParseRole(v)
		if err != nil || !role.Valid() {
			return Settings{}, fmt.Errorf("MANDI_ROLE has invalid value: %s", v)
		}
		settings.Role = role
	}
	if v := strings.TrimSpace(os.Getenv("MANDI_LOG_LEVEL")); v != "" {
		if err := settings.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Settings{}, fmt.Errorf("MANDI_LOG_LEVEL has invalid value: %s", v)
		}
	}

	var err error
	settings.RequestTimeout, err = parseOptionalDuration("OPENAI_REQUEST_TIMEOUT", settings.RequestTimeout, func(v time.Duration) bool { return v > 0 })
	if err != nil {
		return Settings{}, err
	}
	settings.APIMaxRetries, err = parseOptionalInt("OPENAI_API_MAX_RETRIES", settings.APIMaxRetries, func(v int) bool { return v >= 0 })
	if err != nil {
		return Settings{}, err
	}
	settings.Seed, err = parseOptionalInt64("MANDI_SEED", settings.Seed, nil)
	if err != nil {
		return Settings{}, err
	}
	settings.LowPriceRatio, err = parseOptionalFloat64("MANDI_LOW_PRICE_RATIO", settings.LowPriceRatio, func(v float64) bool { return v > 0 && v < 1 })
	if err != nil {
		return Settings{}, err
	}
	settings.TotalTolerance, err = parseOptionalFloat64("MANDI_TOTAL_TOLERANCE", settings.TotalTolerance, func(v float64) bool {
		return v >= fallback.MinTotalTolerance && v <= fallback.MaxTotalTolerance
	})
	if err != nil {
		return Settings{}, err
	}
	settings.AITimeout, err = parseOptionalDuration("MANDI_AI_TIMEOUT", settings.AITimeout, func(v time.Duration) bool { return v > 0 })
	if err != nil {
		return Settings{}, err
	}
	settings.PriceCacheTTL, err = parseOptionalDuration("MANDI_PRICE_CACHE_TTL", settings.PriceCacheTTL, func(v time.Duration) bool { return v > 0 })
	if err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func parseOptionalInt(env string, fallback int, valid func(int) bool) (int, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %d", env, v)
	}
	return v, nil
}

func parseOptionalInt64(env string, fallback int64, valid func(int64) bool) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %d", env, v)
	}
	return v, nil
}

func parseOptionalFloat64(env string, fallback float64, valid func(float64) bool) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %v", env, v)
	}
	return v, nil
}

func parseOptionalDuration(env string, fallback time.Duration, valid func(time.Duration) bool) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration (e.g. 45s, 2m): %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %s", env, v)
	}
	return v, nil
}

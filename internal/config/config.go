// Package config loads service settings from an optional TOML file and
// SGP4SVC_* environment variables. The environment wins over the file.
package config

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/Psnastudent/sgp4-service/internal/auth"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/sgp4"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SGP4SVC_"

// Config is the complete service configuration.
type Config struct {
	HTTP        HTTPConfig
	Auth        AuthConfig
	Propagation PropagationConfig
	Catalog     CatalogConfig
	Log         LogConfig
}

// HTTPConfig controls the listener and request limits.
type HTTPConfig struct {
	Addr             string
	TrustProxy       bool  // read client IPs from X-Forwarded-For / X-Real-IP
	MaxBodyBytes     int64 // largest accepted request body
	MaxConcurrentIP  int   // in-flight requests per client IP
	MaxConcurrent    int   // in-flight requests overall
	WriteTimeoutSecs int
}

// AuthConfig mirrors auth.Config in file form.
type AuthConfig struct {
	Enabled bool
	Token   string
}

// PropagationConfig selects the engine and sizes the worker pool.
type PropagationConfig struct {
	Workers  int
	Engine   string
	Gravity  string
	MaxBatch int
}

// CatalogConfig configures the TLE catalog passthrough.
type CatalogConfig struct {
	Enabled     bool
	SourceURL   string
	ExtraURLs   []string
	TimeoutSecs int
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:             ":8080",
			MaxBodyBytes:     8 << 20,
			MaxConcurrentIP:  8,
			MaxConcurrent:    256,
			WriteTimeoutSecs: 75,
		},
		Propagation: PropagationConfig{
			Workers:  runtime.NumCPU(),
			Engine:   propagation.EngineNative,
			Gravity:  sgp4.WGS72.Name,
			MaxBatch: 20000,
		},
		Catalog: CatalogConfig{
			Enabled:     true,
			TimeoutSecs: int(tle.DefaultFetchTimeout / time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is non-empty), then environment overrides. Invalid override values
// are logged and ignored; a broken file or an unusable result is an error.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	applyEnv(&cfg, logger)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first setting the service cannot start with.
func (c Config) Validate() error {
	if c.Auth.Enabled && c.Auth.Token == "" {
		return errors.New(EnvPrefix + "AUTH_TOKEN is required when auth is enabled")
	}
	if _, err := c.Gravity(); err != nil {
		return err
	}
	switch c.Propagation.Engine {
	case propagation.EngineNative, propagation.EngineReference:
	default:
		return errors.Errorf("unknown propagation engine %q", c.Propagation.Engine)
	}
	if c.Propagation.Workers < 1 {
		return errors.Errorf("propagation workers must be at least 1, got %d", c.Propagation.Workers)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Gravity resolves the configured gravity model.
func (c Config) Gravity() (sgp4.Gravity, error) {
	return sgp4.GravityByName(c.Propagation.Gravity)
}

// PropConfig converts the propagation section for propagation.NewPropagator.
func (c Config) PropConfig() propagation.PropConfig {
	return propagation.PropConfig{
		Workers:  c.Propagation.Workers,
		Engine:   c.Propagation.Engine,
		Gravity:  c.Propagation.Gravity,
		MaxBatch: c.Propagation.MaxBatch,
	}
}

// AuthMiddlewareConfig converts the auth section for auth.Middleware.
func (c Config) AuthMiddlewareConfig() auth.Config {
	return auth.Config{Enabled: c.Auth.Enabled, Token: c.Auth.Token}
}

// CatalogTimeout returns the catalog fetch timeout.
func (c Config) CatalogTimeout() time.Duration {
	if c.Catalog.TimeoutSecs <= 0 {
		return tle.DefaultFetchTimeout
	}
	return time.Duration(c.Catalog.TimeoutSecs) * time.Second
}

// NewLogger builds a logger writing to w from the log section.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, errors.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func applyEnv(cfg *Config, logger *slog.Logger) {
	if v := os.Getenv(EnvPrefix + "HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	envBool(logger, "TRUST_PROXY", &cfg.HTTP.TrustProxy)
	envInt64(logger, "MAX_BODY_BYTES", &cfg.HTTP.MaxBodyBytes)
	envInt(logger, "MAX_CONCURRENT_PER_IP", &cfg.HTTP.MaxConcurrentIP)
	envInt(logger, "MAX_CONCURRENT", &cfg.HTTP.MaxConcurrent)
	envInt(logger, "WRITE_TIMEOUT", &cfg.HTTP.WriteTimeoutSecs)

	envBool(logger, "AUTH_ENABLED", &cfg.Auth.Enabled)
	if v := os.Getenv(EnvPrefix + "AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	envInt(logger, "PROP_WORKERS", &cfg.Propagation.Workers)
	envInt(logger, "MAX_BATCH", &cfg.Propagation.MaxBatch)
	if v := os.Getenv(EnvPrefix + "ENGINE"); v != "" {
		cfg.Propagation.Engine = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "GRAVITY"); v != "" {
		cfg.Propagation.Gravity = strings.ToLower(v)
	}

	envBool(logger, "ENABLE_TLE_FETCH", &cfg.Catalog.Enabled)
	if v := os.Getenv(EnvPrefix + "TLE_SOURCE_URL"); v != "" {
		cfg.Catalog.SourceURL = v
	}
	if v := os.Getenv(EnvPrefix + "TLE_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Catalog.ExtraURLs = urls
	}
	envInt(logger, "TLE_FETCH_TIMEOUT", &cfg.Catalog.TimeoutSecs)

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(logger *slog.Logger, name string, dst *int) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+EnvPrefix+name+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func envInt64(logger *slog.Logger, name string, dst *int64) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		logger.Warn("invalid "+EnvPrefix+name+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func envBool(logger *slog.Logger, name string, dst *bool) {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid "+EnvPrefix+name+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = b
}

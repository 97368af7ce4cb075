// Package config loads algoviz settings from a config file, ALGOVIZ_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/layout"
)

// State backends.
const (
	StateMemory = "memory"
	StateRedis  = "redis"
)

// Render cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Defaults.
const (
	DefaultStepDelay    = 400 * time.Millisecond
	DefaultSpeed        = 1.0
	DefaultStateBackend = StateMemory
	DefaultCacheBackend = CacheFile
	DefaultKeyPrefix    = "algoviz"
	DefaultAddr         = "127.0.0.1:8080"
	DefaultHistoryLimit = 20
)

// Config is the top-level configuration struct for algoviz.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Playback PlaybackConfig  `mapstructure:"playback"`
	Layout   layout.Options  `mapstructure:"layout"`
	State    StateConfig     `mapstructure:"state"`
	History  history.Options `mapstructure:"history"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Server   ServerConfig    `mapstructure:"server"`
}

// PlaybackConfig controls how fast a run is played.
type PlaybackConfig struct {
	StepDelay time.Duration `mapstructure:"step_delay"`
	Speed     float64       `mapstructure:"speed"`
}

// StateConfig selects where the controller cells live.
type StateConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisURL  string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// CacheConfig selects where rendered SVGs are cached. The redis backend
// shares the state.redis_url server.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

// ServerConfig configures `algoviz serve`.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Playback.StepDelay < 0 {
		errs = append(errs, errors.New("playback.step_delay must not be negative"))
	}
	if c.Playback.Speed <= 0 {
		errs = append(errs, fmt.Errorf("playback.speed must be positive, got %v", c.Playback.Speed))
	}

	if c.Layout.RootX < 0 || c.Layout.LevelHeight < 0 || c.Layout.HorizontalUnit < 0 {
		errs = append(errs, errors.New("layout values must not be negative"))
	}

	switch c.State.Backend {
	case StateMemory:
	case StateRedis:
		if c.State.RedisURL == "" {
			errs = append(errs, errors.New("state.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state.backend %q (want memory or redis)", c.State.Backend))
	}
	if err := apperrors.ValidateKeyPrefix(c.State.KeyPrefix); err != nil {
		errs = append(errs, fmt.Errorf("state.key_prefix: %w", err))
	}

	switch c.History.Backend {
	case history.BackendFile, history.BackendNone:
	case history.BackendMongo:
		if c.History.MongoURI == "" {
			errs = append(errs, errors.New("history.mongo_uri is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown history.backend %q (want file, mongo or none)", c.History.Backend))
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.State.RedisURL == "" {
			errs = append(errs, errors.New("cache.backend redis requires state.redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q (want file, redis or none)", c.Cache.Backend))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/layout"
)

// configName is the config file name without extension.
const configName = ".algoviz"

// configType is the config file format.
const configType = "toml"

// envPrefix is the environment variable prefix for algoviz settings.
const envPrefix = "ALGOVIZ"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{StepDelay: DefaultStepDelay, Speed: DefaultSpeed},
		Layout:   layout.DefaultOptions(),
		State:    StateConfig{Backend: DefaultStateBackend, KeyPrefix: DefaultKeyPrefix},
		History:  history.Options{Backend: history.BackendFile},
		Cache:    CacheConfig{Backend: DefaultCacheBackend},
		Server:   ServerConfig{Addr: DefaultAddr},
	}
}

func applyDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("playback.step_delay", d.Playback.StepDelay)
	v.SetDefault("playback.speed", d.Playback.Speed)

	v.SetDefault("layout.root_x", d.Layout.RootX)
	v.SetDefault("layout.level_height", d.Layout.LevelHeight)
	v.SetDefault("layout.horizontal_unit", d.Layout.HorizontalUnit)

	v.SetDefault("state.backend", d.State.Backend)
	v.SetDefault("state.redis_url", "")
	v.SetDefault("state.key_prefix", d.State.KeyPrefix)

	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.dir", "")
	v.SetDefault("history.mongo_uri", "")
	v.SetDefault("history.database", history.DefaultMongoDatabase)
	v.SetDefault("history.collection", history.DefaultMongoCollection)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", "")

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.metrics", true)
}

// Package config loads the console settings from YAML, environment and defaults.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DAGCONSOLE"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	LevelDB     LevelDBConfig     `mapstructure:"leveldb"`
	Auth        AuthConfig        `mapstructure:"auth"`
	BlockSource BlockSourceConfig `mapstructure:"blocksource"`
	Annotation  AnnotationConfig  `mapstructure:"annotation"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

// LevelDBConfig points at the data directory. An empty path keeps state in memory.
type LevelDBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	SessionLifetime  time.Duration `mapstructure:"session_lifetime"`
	InactivityWindow time.Duration `mapstructure:"inactivity_window"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ActivityThrottle time.Duration `mapstructure:"activity_throttle"`
}

type BlockSourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	StreamURL      string        `mapstructure:"stream_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type AnnotationConfig struct {
	HitTolerance float64 `mapstructure:"hit_tolerance"`
	MinDrag      float64 `mapstructure:"min_drag"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8085)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/console.db")
	v.SetDefault("auth.base_url", "")
	v.SetDefault("auth.session_lifetime", 8*time.Hour)
	v.SetDefault("auth.inactivity_window", 30*time.Minute)
	v.SetDefault("auth.check_interval", 60*time.Second)
	v.SetDefault("auth.request_timeout", 10*time.Second)
	v.SetDefault("auth.activity_throttle", time.Second)
	v.SetDefault("blocksource.base_url", "")
	v.SetDefault("blocksource.stream_url", "")
	v.SetDefault("blocksource.reconnect_delay", 5*time.Second)
	v.SetDefault("annotation.hit_tolerance", 8.0)
	v.SetDefault("annotation.min_drag", 4.0)
}

// Load reads path, layering DAGCONSOLE_* environment variables on top.
// A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

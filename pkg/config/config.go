// Package config resolves moodiary settings from flags, MOODIARY_*
// environment variables, an optional .moodiary.yaml and built-in defaults,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/unowned-ai/moodiary/pkg/utils"
)

const (
	KeyDB        = "db"
	KeyBackend   = "backend"
	KeyWAL       = "wal"
	KeySync      = "sync"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyOutput    = "output"

	BackendSQLite = "sqlite"
	BackendDiskv  = "diskv"

	OutputPretty = "pretty"
	OutputJSON   = "json"

	envPrefix      = "MOODIARY"
	configName     = ".moodiary"
	configPathEnv  = "MOODIARY_CONFIG_PATH"
	defaultSync    = "FULL"
	defaultLevel   = "info"
	defaultFormat  = "text"
	defaultBackend = BackendSQLite
)

// Config is the resolved configuration.
type Config struct {
	DB      string    `json:"db"`
	Backend string    `json:"backend"`
	WAL     bool      `json:"wal"`
	Sync    string    `json:"sync"`
	Log     LogConfig `json:"log"`
	Output  string    `json:"output"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// JSON reports whether commands should print JSON.
func (c *Config) JSON() bool {
	return strings.EqualFold(c.Output, OutputJSON)
}

// New returns a viper instance with moodiary's defaults, env binding and
// config search path. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyBackend, defaultBackend)
	v.SetDefault(KeyWAL, true)
	v.SetDefault(KeySync, defaultSync)
	v.SetDefault(KeyLogLevel, defaultLevel)
	v.SetDefault(KeyLogFormat, defaultFormat)
	v.SetDefault(KeyOutput, OutputPretty)

	v.SetConfigName(configName) // .yaml is implicit
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(configPathEnv); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}
	return v
}

// Load reads .env (when present) and the config file, then validates and
// returns the merged settings.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		DB:      v.GetString(KeyDB),
		Backend: strings.ToLower(v.GetString(KeyBackend)),
		WAL:     v.GetBool(KeyWAL),
		Sync:    strings.ToUpper(v.GetString(KeySync)),
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Output: strings.ToLower(v.GetString(KeyOutput)),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSQLite, BackendDiskv:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendDiskv)
	}
	switch c.Sync {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid sync mode %q (want OFF, NORMAL, FULL or EXTRA)", c.Sync)
	}
	switch c.Output {
	case OutputPretty, OutputJSON:
	default:
		return fmt.Errorf("invalid output %q (want %s or %s)", c.Output, OutputPretty, OutputJSON)
	}
	return nil
}

// DataPath resolves where the selected backend keeps its data, creating
// parent directories as needed.
func (c *Config) DataPath() (string, error) {
	if c.Backend == BackendDiskv {
		return utils.ResolveAndEnsureDir(c.DB, utils.DefaultDiskvPath())
	}
	return utils.ResolveAndEnsureDBPath(c.DB)
}

// Package config loads the service configuration from defaults, an
// optional YAML file, a .env file and FORMATION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. FORMATION_SERVER_ADDR.
const EnvPrefix = "FORMATION"

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the top-level configuration.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Logging  logging.Config  `mapstructure:"logging"`
	LLM      llm.Config      `mapstructure:"llm"`
	Analysis feedback.Config `mapstructure:"analysis"`
	Events   EventsConfig    `mapstructure:"events"`
	Client   ClientConfig    `mapstructure:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the submission store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	// Path of the SQLite file. Empty means the default XDG data path.
	Path          string `mapstructure:"path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// EventsConfig configures the RabbitMQ publisher. An empty URL disables it.
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "")
	v.SetDefault("database.mongo_uri", "")
	v.SetDefault("database.mongo_database", "formation")

	logCfg := logging.DefaultConfig()
	v.SetDefault("logging.level", logCfg.Level)
	v.SetDefault("logging.directory", logCfg.Directory)
	v.SetDefault("logging.max_size", logCfg.MaxSize)
	v.SetDefault("logging.max_backups", logCfg.MaxBackups)
	v.SetDefault("logging.max_age", logCfg.MaxAge)
	v.SetDefault("logging.compress", logCfg.Compress)
	v.SetDefault("logging.console", logCfg.Console)

	// Every key needs a default for AutomaticEnv to see it on Unmarshal.
	llmCfg := llm.DefaultConfig()
	v.SetDefault("llm.provider", llmCfg.Provider)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", llmCfg.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", llmCfg.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", llmCfg.Gemini.Model)
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", llmCfg.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.openrouter.app_name", llmCfg.OpenRouter.AppName)
	v.SetDefault("llm.openrouter.site_url", "")
	v.SetDefault("llm.mock.response", "")
	v.SetDefault("llm.mock.delay", 0)
	v.SetDefault("llm.retry.max_attempts", llmCfg.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", llmCfg.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", llmCfg.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", llmCfg.Retry.Multiplier)

	anCfg := feedback.DefaultConfig()
	v.SetDefault("analysis.timeout", anCfg.Timeout)
	v.SetDefault("analysis.structured_output", anCfg.StructuredOutput)
	v.SetDefault("analysis.max_tokens", anCfg.MaxTokens)
	v.SetDefault("analysis.temperature", anCfg.Temperature)

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "formation.events")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 45*time.Second)
}

// Loader reads configuration and watches the file it came from.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a loader. An explicit file path overrides the search
// in ./, ./config and $XDG_CONFIG_HOME/formation.
func NewLoader(file string) *Loader {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("formation")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "formation"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load reads .env, the config file if any, and the environment. The LLM
// provider is discovered from conventional API key variables when not set.
func (l *Loader) Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	// No provider found is not an error here: commands that call the LLM
	// report it through LLM.Validate.
	cfg.LLM, _ = cfg.LLM.DiscoverConfig()
	return &cfg, nil
}

// File returns the config file in use, or "" when none was found.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration when the file changes and passes the new
// value to onChange. It does nothing when no file was loaded.
func (l *Loader) Watch(log *zap.Logger, onChange func(*Config)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("configuration file changed, reloading", zap.String("file", e.Name))
		cfg, err := l.decode()
		if err != nil {
			log.Error("error reloading configuration", zap.Error(err))
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Validate checks settings that do not depend on the command being run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode: %q", c.Server.Mode)
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}
	return nil
}

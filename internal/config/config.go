// Package config loads process settings from defaults, an optional
// taskmaster config file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaceholderBotToken is what an unedited telegram_config.json ships with.
const PlaceholderBotToken = "YOUR_BOT_TOKEN_HERE"

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Web     WebConfig     `mapstructure:"web"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Bot     BotSettings   `mapstructure:"bot"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DataConfig struct {
	Dir       string `mapstructure:"dir"`
	DBFile    string `mapstructure:"db_file"`
	InboxFile string `mapstructure:"inbox_file"`
}

type WebConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BotSettings locates the bot credential file and tunes the poll loop. The
// credential itself lives in the file, see LoadBotConfig.
type BotSettings struct {
	ConfigFile  string        `mapstructure:"config_file"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	Rate        time.Duration `mapstructure:"rate"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) DBPath() string {
	return c.dataPath(c.Data.DBFile)
}

func (c *Config) InboxPath() string {
	return c.dataPath(c.Data.InboxFile)
}

func (c *Config) BotConfigPath() string {
	return c.dataPath(c.Bot.ConfigFile)
}

func (c *Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	v.SetConfigName("taskmaster")
	v.AddConfigPath(".")
	v.AddConfigPath(v.GetString("data.dir"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.db_file", "todos.db")
	v.SetDefault("data.inbox_file", "pending_telegram_tasks.json")

	v.SetDefault("web.dir", "./web")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stderr")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("bot.config_file", "telegram_config.json")
	v.SetDefault("bot.poll_timeout", "60s")
	v.SetDefault("bot.rate", "1s")
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("server.host", "TASKMASTER_HOST")
	v.BindEnv("server.port", "TASKMASTER_PORT")
	v.BindEnv("server.read_timeout", "TASKMASTER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "TASKMASTER_WRITE_TIMEOUT")

	v.BindEnv("data.dir", "TASKMASTER_DATA_DIR")
	v.BindEnv("data.db_file", "TASKMASTER_DB_FILE")
	v.BindEnv("data.inbox_file", "TASKMASTER_INBOX_FILE")

	v.BindEnv("web.dir", "TASKMASTER_WEB_DIR")

	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")

	v.BindEnv("metrics.enabled", "TASKMASTER_METRICS")

	v.BindEnv("bot.config_file", "TASKMASTER_BOT_CONFIG")
	v.BindEnv("bot.poll_timeout", "TASKMASTER_BOT_POLL_TIMEOUT")
	v.BindEnv("bot.rate", "TASKMASTER_BOT_RATE")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Data.DBFile == "" || c.Data.InboxFile == "" {
		return fmt.Errorf("database and inbox file names are required")
	}
	if c.Bot.Rate < 0 || c.Bot.PollTimeout < 0 {
		return fmt.Errorf("bot rate and poll timeout must not be negative")
	}
	return nil
}

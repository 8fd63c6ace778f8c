package config

import (
	"time"

	"github.com/spf13/viper"
)

// BotConfig is the messaging bot credential plus the loop tuning from
// BotSettings. It is built once by the entry point and handed to whatever
// needs it.
type BotConfig struct {
	Token       string
	Enabled     bool
	PollTimeout time.Duration
	Rate        time.Duration
}

// Configured reports whether a real token has been filled in.
func (b BotConfig) Configured() bool {
	return b.Token != "" && b.Token != PlaceholderBotToken
}

// Active reports whether the listener should run.
func (b BotConfig) Active() bool {
	return b.Enabled && b.Configured()
}

// LoadBotConfig reads {"bot_token": "...", "enabled": true} from path. A
// missing or unreadable file yields a disabled config with the placeholder
// token, never an error.
func LoadBotConfig(path string, settings BotSettings) BotConfig {
	cfg := BotConfig{
		Token:       PlaceholderBotToken,
		PollTimeout: settings.PollTimeout,
		Rate:        settings.Rate,
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("bot_token", PlaceholderBotToken)
	v.SetDefault("enabled", false)
	if err := v.ReadInConfig(); err != nil {
		return cfg
	}

	cfg.Token = v.GetString("bot_token")
	cfg.Enabled = v.GetBool("enabled")
	return cfg
}

package config

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from a file and environment variables.
func Load(logger *slog.Logger, fileName string) (*Config, error) {
	v := viper.New()

	// 1. Set default values
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.maxConnsPerIP", 8)
	v.SetDefault("transport.readTimeout", "60s")
	v.SetDefault("chat.historyLimit", 100)
	v.SetDefault("chat.defaultRoom", "lobby")
	v.SetDefault("chat.ephemeralDelay", "10s")
	v.SetDefault("chat.profanityWords", []string{})
	v.SetDefault("rateLimit.maxMessages", 5)
	v.SetDefault("rateLimit.window", "10s")
	v.SetDefault("moderation.clearPolicy", "moderator")
	v.SetDefault("moderation.admins", []string{})
	v.SetDefault("admin.secret", "default-secret-change-me")
	v.SetDefault("admin.tokenTTL", "1h")

	// 2. Set config file details
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".") // look for config in the working directory

	// 3. Set up environment variable handling
	v.SetEnvPrefix("STARCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Read the configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		logger.Warn("Config file not found. ignoring error and relying on defaults/env vars")
	}

	// 5. Unmarshal the configuration into our struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import "time"

type Config struct {
	Server     ServerConfig
	Transport  TransportConfig
	Chat       ChatConfig
	RateLimit  RateLimitConfig  `mapstructure:"rateLimit"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Admin      AdminConfig
}

type ServerConfig struct {
	Address       string
	MaxConnsPerIP int `mapstructure:"maxConnsPerIP"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type ChatConfig struct {
	HistoryLimit   int           `mapstructure:"historyLimit"`
	DefaultRoom    string        `mapstructure:"defaultRoom"`
	EphemeralDelay time.Duration `mapstructure:"ephemeralDelay"`
	ProfanityWords []string      `mapstructure:"profanityWords"`
}

type RateLimitConfig struct {
	MaxMessages int           `mapstructure:"maxMessages"`
	Window      time.Duration `mapstructure:"window"`
}

type ModerationConfig struct {
	// ClearPolicy decides which role may issue +clear_msg: "any", "moderator" or "admin".
	ClearPolicy string   `mapstructure:"clearPolicy"`
	Admins      []string `mapstructure:"admins"`
}

type AdminConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"tokenTTL"`
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	BitSkins BitSkinsConfig `mapstructure:"bitskins"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Prices   PricesConfig   `mapstructure:"prices"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type BitSkinsConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	TOTPSecret string        `mapstructure:"totp_secret"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type GatewayConfig struct {
	// JWTSecret enables bearer token auth on the gateway when set.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PricesConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Games    []int  `mapstructure:"games"`
}

type TradingConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinBackoff  time.Duration `mapstructure:"min_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from path (or ./config and . when path is empty)
// and overlays environment variables such as BITSKINS_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "bitskins_trader.db")
	v.SetDefault("bitskins.base_url", "https://bitskins.com/api/v1")
	v.SetDefault("bitskins.timeout", 30*time.Second)
	v.SetDefault("prices.enabled", false)
	v.SetDefault("prices.schedule", "@every 15m")
	v.SetDefault("prices.games", []int{730})
	v.SetDefault("trading.max_attempts", 5)
	v.SetDefault("trading.min_backoff", 500*time.Millisecond)
	v.SetDefault("trading.max_backoff", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Credentials usually come from the environment, so bind them explicitly
	// for AutomaticEnv to see them during Unmarshal.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"bitskins.api_key", "bitskins.totp_secret", "gateway.jwt_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BitSkins.APIKey == "" || c.BitSkins.TOTPSecret == "" {
		return errors.New("config: bitskins.api_key and bitskins.totp_secret are required")
	}
	if c.Trading.MaxAttempts < 1 {
		return errors.New("config: trading.max_attempts must be at least 1")
	}
	return nil
}

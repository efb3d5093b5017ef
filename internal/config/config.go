package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"` // "sqlite" or "memory"
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Type    string        `mapstructure:"type"` // "redis" or "memory"
	TTL     time.Duration `mapstructure:"ttl"`  // zero means no expiry
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ProviderConfig struct {
	Default string       `mapstructure:"default"`
	Google  GoogleConfig `mapstructure:"google"`
}

type GoogleConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MinInterval    time.Duration `mapstructure:"min_interval"` // shortest allowed gap between messages
	Burst          int           `mapstructure:"burst"`        // messages tolerated inside the gap
	InitialBanTime time.Duration `mapstructure:"initial_ban_time"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Directory       string   `mapstructure:"directory"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("storage.sqlite.path", "SQLITE_PATH")
	viper.BindEnv("cache.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.redis.db", "REDIS_DB")
	viper.BindEnv("provider.google.api_key", "GOOGLE_API_KEY")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Redis address may come in as separate host/port env vars
	if redisHost := viper.GetString("REDIS_HOST"); redisHost != "" {
		redisPort := viper.GetString("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Cache.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("bot.update_timeout", 60)
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "data/gunther.db")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.type", "memory")
	viper.SetDefault("provider.default", "gapi")
	viper.SetDefault("provider.google.base_url", "https://translation.googleapis.com/language/translate/v2")
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.min_interval", 3*time.Second)
	viper.SetDefault("rate_limit.burst", 3)
	viper.SetDefault("rate_limit.initial_ban_time", 5*time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("i18n.directory", "configs/i18n")
	viper.SetDefault("i18n.languages", []string{"en", "ru"})
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Storage.Type != "sqlite" && cfg.Storage.Type != "memory" {
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("redis cache enabled but no address configured")
	}
	if cfg.Provider.Default == "gapi" && cfg.Provider.Google.APIKey == "" {
		return fmt.Errorf("google translate api key is required")
	}
	return nil
}

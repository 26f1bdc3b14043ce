package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App              AppConfig         `yaml:"app"`
	Telegram         TelegramConfig    `yaml:"telegram"`
	Marketplace      MarketplaceConfig `yaml:"marketplace"`
	Database         DatabaseConfig    `yaml:"database"`
	Redis            RedisConfig       `yaml:"redis"`
	Listener         ListenerConfig    `yaml:"listener"`
	Monitoring       MonitoringConfig  `yaml:"monitoring"`
	Logging          LoggingConfig     `yaml:"logging"`
	Exports          ExportConfig      `yaml:"exports"`
	Google           GoogleConfig      `yaml:"google"`
	Bot              BotConfig         `yaml:"bot"`
	Managers         []int64           `yaml:"managers"`
	ManagersContacts []string          `yaml:"managers_contacts"`
	Blacklist        []int64           `yaml:"blacklist"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

// MarketplaceConfig describes the remote marketplace REST API.
type MarketplaceConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ListenerConfig configures the HTTP listener that receives checkout
// return-URL redirects and serves the ops API.
type ListenerConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Port      int             `yaml:"port"`
	PublicURL string          `yaml:"public_url"`
	Auth      ListenerAuth    `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ListenerAuth struct {
	Enabled      bool        `yaml:"enabled"`
	HeaderAPIKey string      `yaml:"header_api_key"`
	HeaderExtra  string      `yaml:"header_extra"`
	APIKeys      []ClientKey `yaml:"api_keys"`
}

type ClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	OutcomesSpreadsheet string `yaml:"outcomes_spreadsheet_id"`
}

type BotConfig struct {
	PaginationSize    int `yaml:"pagination_size"`
	MaxWindowHours    int `yaml:"max_window_hours"`
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; config values may still reference its variables.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Marketplace.BaseURL == "" {
		return errors.New("marketplace base_url is required")
	}
	parsed, err := url.Parse(c.Marketplace.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("marketplace base_url %q is not an absolute URL", c.Marketplace.BaseURL)
	}

	return nil
}

func (c *Config) applyDefaults() {
	c.Marketplace.BaseURL = strings.TrimRight(c.Marketplace.BaseURL, "/")
	if c.Marketplace.TimeoutSeconds == 0 {
		c.Marketplace.TimeoutSeconds = 15
	}
	if c.Marketplace.CacheTTLSeconds == 0 {
		c.Marketplace.CacheTTLSeconds = 300
	}

	if c.Listener.Port == 0 {
		c.Listener.Port = 8080
	}
	if c.Listener.Auth.HeaderAPIKey == "" {
		c.Listener.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Listener.Auth.HeaderExtra == "" {
		c.Listener.Auth.HeaderExtra = "x-api-extra"
	}
	// auth on by default when the listener is on
	if c.Listener.Enabled && !c.Listener.Auth.Enabled {
		c.Listener.Auth.Enabled = true
	}

	if c.Bot.PaginationSize == 0 {
		c.Bot.PaginationSize = 8
	}
	if c.Bot.MaxWindowHours == 0 {
		c.Bot.MaxWindowHours = 24 * 14
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = 20
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = 60
	}
}

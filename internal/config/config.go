package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	News      NewsConfig      `yaml:"news"`
	Forum     ForumConfig     `yaml:"forum"`
	Inference InferenceConfig `yaml:"inference"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig holds the optional shared cache backend settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds memoization TTLs in seconds
type CacheConfig struct {
	ChannelTTLSeconds int `yaml:"channel_ttl_seconds"`
	VideosTTLSeconds  int `yaml:"videos_ttl_seconds"`
	SweepSeconds      int `yaml:"sweep_seconds"`
}

// ChannelTTL returns the channel resolution memoization TTL
func (c CacheConfig) ChannelTTL() time.Duration {
	return time.Duration(c.ChannelTTLSeconds) * time.Second
}

// VideosTTL returns the recent-videos memoization TTL
func (c CacheConfig) VideosTTL() time.Duration {
	return time.Duration(c.VideosTTLSeconds) * time.Second
}

// RateLimitConfig holds the two fixed-window rate domains
type RateLimitConfig struct {
	ClientMax            int `yaml:"client_max"`
	ClientWindowSeconds  int `yaml:"client_window_seconds"`
	ChannelMax           int `yaml:"channel_max"`
	ChannelWindowSeconds int `yaml:"channel_window_seconds"`
}

// ClientWindow returns the caller-identity window duration
func (c RateLimitConfig) ClientWindow() time.Duration {
	return time.Duration(c.ClientWindowSeconds) * time.Second
}

// ChannelWindow returns the channel-identity window duration
func (c RateLimitConfig) ChannelWindow() time.Duration {
	return time.Duration(c.ChannelWindowSeconds) * time.Second
}

// CatalogConfig holds the video catalog provider settings
type CatalogConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// NewsConfig holds the news search provider settings
type NewsConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ForumConfig holds the forum search provider settings
type ForumConfig struct {
	AuthURL      string `yaml:"auth_url"`
	APIURL       string `yaml:"api_url"`
	PublicURL    string `yaml:"public_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

// InferenceConfig holds the completion provider settings
type InferenceConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Load reads and parses the config file, applying env overrides and defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file
func (c *Config) applyEnv() {
	if v := os.Getenv("CATALOG_API_KEY"); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("FORUM_CLIENT_ID"); v != "" {
		c.Forum.ClientID = v
	}
	if v := os.Getenv("FORUM_CLIENT_SECRET"); v != "" {
		c.Forum.ClientSecret = v
	}
	if v := os.Getenv("INFERENCE_API_KEY"); v != "" {
		c.Inference.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8900
	}
	if c.Cache.ChannelTTLSeconds == 0 {
		c.Cache.ChannelTTLSeconds = 86400
	}
	if c.Cache.VideosTTLSeconds == 0 {
		c.Cache.VideosTTLSeconds = 3600
	}
	if c.Cache.SweepSeconds == 0 {
		c.Cache.SweepSeconds = 60
	}
	if c.RateLimit.ClientMax == 0 {
		c.RateLimit.ClientMax = 10
	}
	if c.RateLimit.ClientWindowSeconds == 0 {
		c.RateLimit.ClientWindowSeconds = 60
	}
	if c.RateLimit.ChannelMax == 0 {
		c.RateLimit.ChannelMax = 5
	}
	if c.RateLimit.ChannelWindowSeconds == 0 {
		c.RateLimit.ChannelWindowSeconds = 300
	}
	if c.Inference.Model == "" {
		c.Inference.Model = "gpt-4o-mini"
	}
}

// Validate checks that required settings are present and sane
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base_url is required")
	}
	if c.Catalog.APIKey == "" {
		return fmt.Errorf("catalog api_key is required")
	}
	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference base_url is required")
	}
	if c.Inference.APIKey == "" {
		return fmt.Errorf("inference api_key is required")
	}
	if c.RateLimit.ClientMax < 1 || c.RateLimit.ChannelMax < 1 {
		return fmt.Errorf("rate limit maximums must be positive")
	}
	return nil
}

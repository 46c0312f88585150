package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Rewe     ReweConfig     `mapstructure:"rewe"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ReweConfig holds shop API and session configuration
type ReweConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	APIPrefix            string   `mapstructure:"api_prefix"`
	StoreID              string   `mapstructure:"store_id"`
	ZipCode              string   `mapstructure:"zip_code"`
	SleepRequest         float64  `mapstructure:"sleep_request"` // seconds
	Timeout              int      `mapstructure:"timeout"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	CookieFile           string   `mapstructure:"cookie_file"`
	CacheSize            int      `mapstructure:"cache_size"`
	QuotaCooldown        int      `mapstructure:"quota_cooldown"` // seconds
	Proxies              []string `mapstructure:"proxies"`
}

// CrawlerConfig controls which catalog queries the crawl service runs
type CrawlerConfig struct {
	Attributes     []string `mapstructure:"attributes"`
	MaxPage        int      `mapstructure:"max_page"`
	ObjectsPerPage int      `mapstructure:"objects_per_page"`
	MaxWorkers     int      `mapstructure:"max_workers"`
	SaveInterval   int      `mapstructure:"save_interval"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// SleepInterval returns the fixed delay applied before every request.
func (c ReweConfig) SleepInterval() time.Duration {
	return time.Duration(c.SleepRequest * float64(time.Second))
}

// DSN returns the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// defaults and environment are enough to crawl
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Rewe.StoreID == "" {
		return nil, fmt.Errorf("rewe.store_id must be set")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rewe.base_url", "https://www.rewe.de/")
	v.SetDefault("rewe.api_prefix", "shop/api/")
	v.SetDefault("rewe.store_id", "8534540")
	v.SetDefault("rewe.zip_code", "56073")
	v.SetDefault("rewe.sleep_request", 1.0)
	v.SetDefault("rewe.timeout", 30)
	v.SetDefault("rewe.max_requests_per_second", 0)
	v.SetDefault("rewe.cookie_file", "./config.json")
	v.SetDefault("rewe.cache_size", 128)
	v.SetDefault("rewe.quota_cooldown", 1800)

	v.SetDefault("crawler.attributes", []string{"discounted"})
	v.SetDefault("crawler.max_page", 2)
	v.SetDefault("crawler.objects_per_page", 250)
	v.SetDefault("crawler.max_workers", 4)
	v.SetDefault("crawler.save_interval", 1)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "rewe")
	v.SetDefault("database.user", "rewe_user")
	v.SetDefault("database.password", "rewe_pass")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "rewe_consumer")
	v.SetDefault("redis.min_idle_time", 120)
}

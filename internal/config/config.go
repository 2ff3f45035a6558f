package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"newsboard/internal/newsapi"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPort = 3000

type Config struct {
	Port           int           `yaml:"port"`
	APIKey         string        `yaml:"api_key"`
	Endpoint       string        `yaml:"endpoint"`
	RedisAddr      string        `yaml:"redis"`
	BadgerPath     string        `yaml:"badger"`
	StaticDir      string        `yaml:"static_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Env            string        `yaml:"env"`
}

func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		Endpoint:       newsapi.DefaultEndpoint,
		RedisAddr:      "localhost:6379",
		BadgerPath:     "./badger-data",
		StaticDir:      "static",
		CacheTTL:       10 * time.Minute,
		RequestTimeout: 15 * time.Second,
		Env:            "development",
	}
}

// Load layers, lowest first: defaults, the YAML file at path, a .env file,
// environment variables, then args[0] as the port.
// A missing config file or .env file is not an error.
func Load(path string, args []string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if p, ok := parsePort(os.Getenv("PORT")); ok {
		cfg.Port = p
	}
	if key, ok := os.LookupEnv("NEWSAPI"); ok {
		cfg.APIKey = key
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}

	if len(args) > 0 {
		if p, ok := parsePort(args[0]); ok {
			cfg.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.RedisAddr == "" {
		return errors.New("redis address is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if _, ok := parsePort(strconv.Itoa(c.Port)); !ok {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func parsePort(s string) (int, bool) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, false
	}
	return p, true
}

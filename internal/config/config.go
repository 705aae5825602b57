package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "NEWSLOOP_CONFIG"
	apiKeyEnv     = "NEWS_API_KEY"
	redisAddrEnv  = "NEWSLOOP_REDIS_ADDR"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Badger BadgerConfig `yaml:"badger"`
	News   NewsConfig   `yaml:"news"`
	User   UserConfig   `yaml:"user"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// RedisConfig describes the document store connection.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// BadgerConfig describes the readable-content cache location.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// NewsConfig describes the external news source.
type NewsConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	APIKey   string `yaml:"apiKey"`
	Language string `yaml:"language"`
	Domains  string `yaml:"domains"`
}

// UserConfig is the CLI's local identity. The HTTP surface uses sessions
// instead.
type UserConfig struct {
	ID          string `yaml:"id"`
	Username    string `yaml:"username"`
	DisplayName string `yaml:"displayName"`
	PhotoURL    string `yaml:"photoUrl"`
}

// Load reads the config file (path from NEWSLOOP_CONFIG when set), applies
// defaults and env overrides. A missing file is not an error; defaults
// apply.
func Load(path string) (Config, error) {
	if env := os.Getenv(configPathEnv); env != "" {
		path = env
	}

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if key := os.Getenv(apiKeyEnv); key != "" {
		cfg.News.APIKey = key
	}
	if addr := os.Getenv(redisAddrEnv); addr != "" {
		cfg.Redis.Addr = addr
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Badger: BadgerConfig{Path: "./badger-data"},
		News: NewsConfig{
			BaseURL:  "https://newsapi.org/v2",
			Language: "en",
			Domains:  "bbc.co.uk,theguardian.com,reuters.com,apnews.com,npr.org",
		},
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"codejudge/internal/common/broker"
	"codejudge/internal/judge/bridge"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBrokerAddr  = "127.0.0.1:6379"
	DefaultBaseURL     = "http://127.0.0.1:8085"
	DefaultTimeout     = 10 * time.Second
	DefaultHistoryFile = "configs/.judge_cli_history"
)

// Config holds CLI configuration.
type Config struct {
	Broker      broker.RedisConfig `yaml:"broker"`
	Queues      bridge.Queues      `yaml:"queues"`
	BaseURL     string             `yaml:"baseURL"`
	Timeout     time.Duration      `yaml:"timeout"`
	HistoryFile string             `yaml:"historyFile"`
	PrettyJSON  *bool              `yaml:"prettyJSON"`
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.Addr == "" {
		cfg.Broker.Addr = DefaultBrokerAddr
	}
	cfg.Broker.ApplyDefaults()
	cfg.Queues.ApplyDefaults()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
}

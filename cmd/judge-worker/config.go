package main

import (
	"fmt"
	"os"
	"time"

	"codejudge/internal/common/broker"
	"codejudge/internal/common/db"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/bridge"
	"codejudge/internal/judge/executor"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/sandbox"
	"codejudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultStatusTTL       = 24 * time.Hour
)

// ServerConfig holds ops HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// BrokersConfig holds one Redis connection per broker role.
type BrokersConfig struct {
	Ingress broker.RedisConfig `yaml:"ingress"`
	Local   broker.RedisConfig `yaml:"local"`
}

// SandboxConfig holds isolate settings and the resource limits per stage.
type SandboxConfig struct {
	Isolate sandbox.Config  `yaml:"isolate"`
	Limits  executor.Config `yaml:"limits"`
}

// BridgeConfig holds loop settings.
type BridgeConfig struct {
	RetryDelay time.Duration `yaml:"retryDelay"`
	StatusTTL  time.Duration `yaml:"statusTTL"`
}

// AppConfig holds judge-worker config.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Brokers  BrokersConfig       `yaml:"brokers"`
	Database db.MySQLConfig      `yaml:"database"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Sandbox  SandboxConfig       `yaml:"sandbox"`
	Language language.Config     `yaml:"language"`
	Queues   bridge.Queues       `yaml:"queues"`
	Bridge   BridgeConfig        `yaml:"bridge"`
}

// loadYAML expands ${VAR} references before parsing so secrets can stay
// in the environment.
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Brokers.Ingress.Addr == "" {
		return nil, fmt.Errorf("ingress broker addr is required")
	}
	if cfg.Brokers.Local.Addr == "" {
		cfg.Brokers.Local.Addr = cfg.Brokers.Ingress.Addr
	}
	cfg.Brokers.Ingress.ApplyDefaults()
	cfg.Brokers.Local.ApplyDefaults()
	if cfg.Sandbox.Isolate.BoxID < 0 {
		return nil, fmt.Errorf("sandbox box id must not be negative")
	}
	cfg.Sandbox.Limits.ApplyDefaults()
	cfg.Queues.ApplyDefaults()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Bridge.RetryDelay <= 0 {
		cfg.Bridge.RetryDelay = bridge.DefaultRetryDelay
	}
	if cfg.Bridge.StatusTTL <= 0 {
		cfg.Bridge.StatusTTL = defaultStatusTTL
	}
	return &cfg, nil
}

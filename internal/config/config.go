package config

import (
	"log"
	"time"

	"taskflow/pkg/circuitbreaker"
	"taskflow/pkg/config"
)

// WorkflowConfig tunes the workflow engine.
type WorkflowConfig struct {
	// LockBackend: "redis" or "local"
	LockBackend       string        `yaml:"lock_backend"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
	LockWait          time.Duration `yaml:"lock_wait"`
	NumberingRetries  int           `yaml:"numbering_retries"`
	DefaultLabelColor string        `yaml:"default_label_color"`
	MostUsedLimit     int           `yaml:"most_used_limit"`
	UpcomingDays      int           `yaml:"upcoming_days"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type Config struct {
	DB       config.DBConfig       `yaml:"db"`
	MQ       config.MQConfig       `yaml:"mq"`
	Redis    config.RedisConfig    `yaml:"redis"`
	Server   config.ServerConfig   `yaml:"server"`
	OTel     config.OTelConfig     `yaml:"otel"`
	Workflow WorkflowConfig        `yaml:"workflow"`
	Outbox   OutboxConfig          `yaml:"outbox"`
	Notifier circuitbreaker.Config `yaml:"notifier"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom decodes the layered config, applies env overrides and fills defaults.
func LoadFrom(env, configDir string) (*Config, error) {
	var cfg Config
	if err := config.Decode(env, configDir, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOTelFromEnv(&cfg.OTel)

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	w := &c.Workflow
	if w.LockBackend == "" {
		w.LockBackend = "redis"
	}
	if w.LockTTL <= 0 {
		w.LockTTL = 5 * time.Second
	}
	if w.LockWait <= 0 {
		w.LockWait = 3 * time.Second
	}
	if w.NumberingRetries <= 0 {
		w.NumberingRetries = 3
	}
	if w.DefaultLabelColor == "" {
		w.DefaultLabelColor = "#007bff"
	}
	if w.MostUsedLimit <= 0 {
		w.MostUsedLimit = 10
	}
	if w.UpcomingDays <= 0 {
		w.UpcomingDays = 7
	}

	if c.Outbox.Interval <= 0 {
		c.Outbox.Interval = time.Second
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries <= 0 {
		c.Outbox.MaxRetries = 5
	}

	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}

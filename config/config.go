// Package config 服务配置：YAML文件、默认值与环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config 服务配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`

	// StrictStatusCodes 输入错误返回400而非500
	StrictStatusCodes bool `yaml:"strict_status_codes"`
}

// ModelConfig 模型制品配置
type ModelConfig struct {
	Dir            string `yaml:"dir"`
	ClassifierFile string `yaml:"classifier_file"`
	VectorizerFile string `yaml:"vectorizer_file"`
	CacheSize      int    `yaml:"cache_size"`
	Watch          bool   `yaml:"watch"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StoreConfig 审计库配置，Path为空时不启用
type StoreConfig struct {
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queue_size"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Model: ModelConfig{
			Dir:            "/opt/ml/model",
			ClassifierFile: "mymodel.joblib",
			VectorizerFile: "feature.joblib",
			CacheSize:      1024,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Store: StoreConfig{
			QueueSize: 256,
		},
	}
}

// Load 在默认值上读取path并应用环境变量，文件不存在不算错误
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if dir := getenv("SM_MODEL_DIR"); dir != "" {
		c.Model.Dir = dir
	}
	if dir := getenv("MODEL_DIR"); dir != "" {
		c.Model.Dir = dir
	}
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Model.Dir == "" {
		return errors.New("model.dir is required")
	}
	if c.Model.ClassifierFile == "" || c.Model.VectorizerFile == "" {
		return errors.New("model.classifier_file and model.vectorizer_file are required")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	if c.Store.Path != "" && c.Store.QueueSize <= 0 {
		return errors.New("store.queue_size must be positive")
	}
	return nil
}

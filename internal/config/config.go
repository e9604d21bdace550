package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Auth struct {
		// client label -> API key. API_KEY env var adds a "default" client.
		Keys map[string]string `yaml:"keys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Database struct {
		Driver       string `yaml:"driver"` // mysql | postgres
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		Name         string `yaml:"name"`
		SSLMode      string `yaml:"sslMode"` // postgres only
		MaxOpenConns int    `yaml:"maxOpenConns"`
		MaxIdleConns int    `yaml:"maxIdleConns"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	OpenAI struct {
		APIKey         string `yaml:"apiKey"`
		EmbeddingModel string `yaml:"embeddingModel"`
	} `yaml:"openai"`

	Browser struct {
		PoolSize      int      `yaml:"poolSize"`
		PageLoadQuota int      `yaml:"pageLoadQuota"`
		NavTimeoutSec int      `yaml:"navTimeoutSeconds"`
		Headless      *bool    `yaml:"headless"`
		UserAgents    []string `yaml:"userAgents"`
	} `yaml:"browser"`

	Scraper struct {
		MinDelaySec int `yaml:"minDelaySeconds"`
		MaxPerHour  int `yaml:"maxPerHour"`
		MaxRetries  int `yaml:"maxRetries"`
		MaxResults  int `yaml:"maxResults"`
		// nil means filter on, false turns it off explicitly
		FilterHighAuthority *bool `yaml:"filterHighAuthority"`
	} `yaml:"scraper"`

	Pipeline struct {
		Workers           int `yaml:"workers"`
		QueueSize         int `yaml:"queueSize"`
		MaxCompetitors    int `yaml:"maxCompetitors"`
		RequestTimeoutSec int `yaml:"requestTimeoutSeconds"`
		PhaseTimeoutSec   int `yaml:"phaseTimeoutSeconds"`
	} `yaml:"pipeline"`

	Weights struct {
		Similarity float64 `yaml:"similarity"`
		Backlinks  float64 `yaml:"backlinks"`
		Vitals     float64 `yaml:"vitals"`
		Technical  float64 `yaml:"technical"`
	} `yaml:"weights"`
}

// Load baca file config.yaml, lalu apply env overrides untuk secrets
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv: secrets tidak perlu masuk file config
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		if c.Auth.Keys == nil {
			c.Auth.Keys = make(map[string]string)
		}
		c.Auth.Keys["default"] = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

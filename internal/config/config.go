// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey    string `yaml:"openai_key"`
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	DefaultModel string `yaml:"default_model"`
}

type WorkflowConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type UploadConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// ThrottleConfig tunes the rate-limited executor and the retry layer.
// The defaults were tuned empirically against the extraction provider;
// keep batch-level delays longer than per-call delays, and per-call
// delays longer than per-item delays.
type ThrottleConfig struct {
	BaseInterval  time.Duration `yaml:"base_interval"`  // min spacing between call starts
	SuccessDelay  time.Duration `yaml:"success_delay"`  // pause after a successful call
	FailureDelay  time.Duration `yaml:"failure_delay"`  // pause after a failed call
	MaxMultiplier float64       `yaml:"max_multiplier"` // backoff multiplier ceiling

	RetryMax    int           `yaml:"retry_max"`
	RetryBase   time.Duration `yaml:"retry_base"`
	RetryCap    time.Duration `yaml:"retry_cap"`
	RetryJitter time.Duration `yaml:"retry_jitter"`
}

type IngestionConfig struct {
	AgencyID        string        `yaml:"agency_id"`
	MaxDocuments    int           `yaml:"max_documents"`
	DocumentDelay   time.Duration `yaml:"document_delay"` // between documents in a batch
	TicketDelay     time.Duration `yaml:"ticket_delay"`   // between tickets in a document
	FileCooldown    time.Duration `yaml:"file_cooldown"`  // after single-file overload
	BatchCooldown   time.Duration `yaml:"batch_cooldown"` // after whole-batch overload
	ContentTokenCap int           `yaml:"content_token_cap"`
	RepairInterval  time.Duration `yaml:"repair_interval"` // stuck-ticket repair worker
	RepairBatchSize int           `yaml:"repair_batch_size"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Upload    UploadConfig    `yaml:"upload"`
	Web       WebConfig       `yaml:"web"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Throttle  ThrottleConfig  `yaml:"throttle"`
	Ingestion IngestionConfig `yaml:"ingestion"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8090
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Workflow.Timeout <= 0 {
		cfg.Workflow.Timeout = 30 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	applyThrottleDefaults(&cfg.Throttle)
	applyIngestionDefaults(&cfg.Ingestion)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("either ai.openai_key or ai.gemini_key is required")
	}
	if cfg.Ingestion.DocumentDelay < cfg.Throttle.BaseInterval {
		return nil, errors.New("ingestion.document_delay must not undercut throttle.base_interval")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyThrottleDefaults(t *ThrottleConfig) {
	if t.BaseInterval <= 0 {
		t.BaseInterval = 8 * time.Second
	}
	if t.SuccessDelay <= 0 {
		t.SuccessDelay = 2 * time.Second
	}
	if t.FailureDelay <= 0 {
		t.FailureDelay = 5 * time.Second
	}
	if t.MaxMultiplier < 1 {
		t.MaxMultiplier = 5
	}
	if t.RetryMax <= 0 {
		t.RetryMax = 3
	}
	if t.RetryBase <= 0 {
		t.RetryBase = 15 * time.Second
	}
	if t.RetryCap <= 0 {
		t.RetryCap = 120 * time.Second
	}
	if t.RetryJitter <= 0 {
		t.RetryJitter = 5 * time.Second
	}
}

func applyIngestionDefaults(i *IngestionConfig) {
	if i.AgencyID == "" {
		i.AgencyID = "default"
	}
	if i.MaxDocuments <= 0 {
		i.MaxDocuments = 2
	}
	if i.DocumentDelay <= 0 {
		i.DocumentDelay = 10 * time.Second
	}
	if i.TicketDelay <= 0 {
		i.TicketDelay = 3 * time.Second
	}
	if i.FileCooldown <= 0 {
		i.FileCooldown = 5 * time.Minute
	}
	if i.BatchCooldown <= 0 {
		i.BatchCooldown = 10 * time.Minute
	}
	if i.ContentTokenCap <= 0 {
		i.ContentTokenCap = 8000
	}
	if i.RepairInterval <= 0 {
		i.RepairInterval = 15 * time.Minute
	}
	if i.RepairBatchSize <= 0 {
		i.RepairBatchSize = 10
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

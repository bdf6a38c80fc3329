// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AIConfig struct {
	OpenAI          ProviderConfig `yaml:"openai"`
	Gemini          ProviderConfig `yaml:"gemini"`
	Ollama          ProviderConfig `yaml:"ollama"`
	DeepSeek        ProviderConfig `yaml:"deepseek"`
	DefaultProvider string         `yaml:"default_provider"`
	// FallbackModel is the last step of the model resolution chain.
	FallbackModel    string        `yaml:"fallback_model"`
	FallbackProvider string        `yaml:"fallback_provider"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	ConcurrentLimit  int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type AgentConfig struct {
	HistoryLimit      int           `yaml:"history_limit"`
	MaxPromptChars    int           `yaml:"max_prompt_chars"`
	MaxHistoryEntries int           `yaml:"max_history_entries"`
	AllowGroups       bool          `yaml:"allow_groups"`
	StoreUnanswered   bool          `yaml:"store_unanswered"`
	RateLimit         int           `yaml:"rate_limit"` // replies per contact per window, 0 disables
	RateWindow        time.Duration `yaml:"rate_window"`
	DedupWindow       time.Duration `yaml:"dedup_window"`
}

type BillingConfig struct {
	USDToXAF float64 `yaml:"usd_to_xaf"`
}

type EventsConfig struct {
	Workers         int           `yaml:"workers"`
	Queue           int           `yaml:"queue"`
	ListenerTimeout time.Duration `yaml:"listener_timeout"`
}

type SchedulerConfig struct {
	CounterResetInterval time.Duration `yaml:"counter_reset_interval"`
}

type BridgeConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
	// PreviousKeys only decrypt bodies written before a key rotation.
	PreviousKeys []string `yaml:"previous_keys"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Agent     AgentConfig     `yaml:"agent"`
	Billing   BillingConfig   `yaml:"billing"`
	Events    EventsConfig    `yaml:"events"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads flags, the optional .env file and the YAML config.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// LoadFile parses one YAML file, applies env overrides and defaults, then validates.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.AI.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.AI.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.AI.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	setString(&cfg.AI.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.Bridge.JWTSecret, "BRIDGE_JWT_SECRET")
	setString(&cfg.Security.EncryptionKey, "ENCRYPTION_KEY")
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	if v := os.Getenv("USD_TO_XAF"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Billing.USDToXAF = f
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 60*time.Second)
	cfg.HTTP.ReadTimeout = orDuration(cfg.HTTP.ReadTimeout, 15*time.Second)
	cfg.HTTP.WriteTimeout = orDuration(cfg.HTTP.WriteTimeout, 75*time.Second)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDuration(cfg.Redis.TTL, time.Hour)

	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 500
	}
	if cfg.AI.Temperature <= 0 {
		cfg.AI.Temperature = 0.7
	}
	cfg.AI.RequestTimeout = orDuration(cfg.AI.RequestTimeout, 30*time.Second)
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.Ollama.BaseURL == "" {
		cfg.AI.Ollama.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.AI.DeepSeek.BaseURL == "" {
		cfg.AI.DeepSeek.BaseURL = "https://api.deepseek.com/v1"
	}

	if cfg.Agent.HistoryLimit <= 0 {
		cfg.Agent.HistoryLimit = 10
	}
	if cfg.Agent.MaxPromptChars <= 0 {
		cfg.Agent.MaxPromptChars = 7500
	}
	if cfg.Agent.MaxHistoryEntries <= 0 {
		cfg.Agent.MaxHistoryEntries = 20
	}
	cfg.Agent.RateWindow = orDuration(cfg.Agent.RateWindow, time.Minute)
	cfg.Agent.DedupWindow = orDuration(cfg.Agent.DedupWindow, 10*time.Minute)

	if cfg.Billing.USDToXAF <= 0 {
		cfg.Billing.USDToXAF = 600
	}
	if cfg.Events.Workers <= 0 {
		cfg.Events.Workers = 4
	}
	if cfg.Events.Queue <= 0 {
		cfg.Events.Queue = 256
	}
	cfg.Events.ListenerTimeout = orDuration(cfg.Events.ListenerTimeout, 30*time.Second)
	cfg.Scheduler.CounterResetInterval = orDuration(cfg.Scheduler.CounterResetInterval, 15*time.Minute)
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if k := len(c.Security.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return fmt.Errorf("security.encryption_key must be 16, 24 or 32 bytes; got %d", k)
	}
	if len(c.Security.PreviousKeys) > 0 && c.Security.EncryptionKey == "" {
		return errors.New("security.previous_keys requires security.encryption_key")
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

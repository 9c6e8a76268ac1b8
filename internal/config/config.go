package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config" yaml:"basic_config"`
	Completion  CompletionConfig          `json:"completion" yaml:"completion"`
	Providers   map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases" yaml:"databases"`
	Redis       RedisConfig               `json:"redis" yaml:"redis"`
	Log         LogConfig                 `json:"log" yaml:"log"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

type BasicConfig struct {
	ServerAddress            string `json:"server_address" yaml:"server_address"`
	UploadDir                string `json:"upload_dir" yaml:"upload_dir"`
	MaxUploadBytes           int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	SessionTTL               int    `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	TokenTTL                 int    `json:"token_ttl_hours" yaml:"token_ttl_hours"`
	TokenCleanInterval       int    `json:"token_clean_interval_minutes" yaml:"token_clean_interval_minutes"`
	CompletionTimeoutSeconds int    `json:"completion_timeout_seconds" yaml:"completion_timeout_seconds"`
	RateLimitPerMinute       int    `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	SecureCookies            bool   `json:"secure_cookies" yaml:"secure_cookies"`
}

// CompletionConfig selects the provider used for every completion call.
type CompletionConfig struct {
	Provider                  string  `json:"provider" yaml:"provider"`
	Model                     string  `json:"model" yaml:"model"`
	StructuredTemperature     *float32 `json:"structured_temperature" yaml:"structured_temperature"`
	ConversationalTemperature *float32 `json:"conversational_temperature" yaml:"conversational_temperature"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
	Params   string `json:"params" yaml:"params"`
}

// RedisConfig is optional; an empty Host keeps anonymous history in process memory.
type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// Load reads configuration from the provided path (defaults to config.json).
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := cfg.finalize(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file: sqlite in the working
// directory, the mock completion provider and in-memory anonymous history.
func Default() *Config {
	cfg := &Config{
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: "careerbot.db"},
		},
		Completion: CompletionConfig{Provider: "mock"},
	}
	_ = cfg.finalize(".")
	return cfg
}

func (c *Config) finalize(baseDir string) error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("at least one database must be configured")
	}
	for name, db := range c.Databases {
		if isSQLite(name) && db.DSN != "" && db.DSN != ":memory:" &&
			!strings.HasPrefix(db.DSN, "file:") && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(baseDir, db.DSN)
			c.Databases[name] = db
		}
	}

	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = ":3000"
	}
	if b.UploadDir == "" {
		b.UploadDir = filepath.Join(os.TempDir(), "careerbot-uploads")
	}
	if b.MaxUploadBytes <= 0 {
		b.MaxUploadBytes = 10 << 20
	}
	if b.SessionTTL <= 0 {
		b.SessionTTL = 24 * 60
	}
	if b.TokenTTL <= 0 {
		b.TokenTTL = 24
	}
	if b.TokenCleanInterval <= 0 {
		b.TokenCleanInterval = 60
	}
	if b.CompletionTimeoutSeconds <= 0 {
		b.CompletionTimeoutSeconds = 60
	}

	cc := &c.Completion
	if cc.Provider == "" {
		cc.Provider = "openai"
	}
	// nil means unset; an explicit 0 is kept
	if cc.StructuredTemperature == nil {
		cc.StructuredTemperature = float32Ptr(0.7)
	}
	if cc.ConversationalTemperature == nil {
		cc.ConversationalTemperature = float32Ptr(0.8)
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	// the selected provider picks up its key from the environment even
	// without a providers block
	if name := strings.ToLower(cc.Provider); name != "mock" {
		if _, ok := c.Providers[name]; !ok {
			c.Providers[name] = ProviderConfig{}
		}
	}
	for name, p := range c.Providers {
		if p.APIKey == "" {
			p.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
		}
		if p.APIKey == "" && name == "openai" {
			// The OpenAI-compatible provider is usually pointed at Groq.
			p.APIKey = os.Getenv("GROQ_API_KEY")
		}
		c.Providers[name] = p
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

func float32Ptr(v float32) *float32 { return &v }

func isSQLite(name string) bool {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

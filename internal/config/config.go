package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const minCallbackSecretLen = 32

// Config holds all configuration for the listingscope server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Engine     EngineConfig
	Reaper     ReaperConfig
	Share      ShareConfig
	RateLimit  RateLimitConfig
	Screenshot ScreenshotConfig
	AI         AIConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// PublicBaseURL is the externally reachable origin of this service. Callback
	// and share URLs are built from it.
	PublicBaseURL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

type RedisConfig struct {
	URL string
}

// EngineConfig configures the outbound webhook to the external workflow engine
// and the secret that signs its callback URLs.
type EngineConfig struct {
	WebhookURL     string
	Timeout        time.Duration
	CallbackSecret string
}

type ReaperConfig struct {
	// ProcessingTimeout is how long a project may sit in processing without any
	// update before it is failed. Zero disables the reaper.
	ProcessingTimeout time.Duration
	Interval          time.Duration
	BatchSize         int
}

type ShareConfig struct {
	CacheTTL time.Duration
}

type RateLimitConfig struct {
	APIRequestsPerMin int
	PublicRPS         float64
	PublicBurst       int
	// Ingest callbacks come from a few engine hosts in bursts, so they get
	// their own per-IP budget.
	IngestRPS   float64
	IngestBurst int
}

type ScreenshotConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

var validProviders = map[string]bool{
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("LISTINGSCOPE_PORT", 8080),
			Env:           envString("LISTINGSCOPE_ENV", "development"),
			PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout:  envDuration("DATABASE_CONNECT_TIMEOUT", 2*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Engine: EngineConfig{
			WebhookURL:     os.Getenv("ENGINE_WEBHOOK_URL"),
			Timeout:        envDuration("ENGINE_TIMEOUT", 5*time.Second),
			CallbackSecret: os.Getenv("CALLBACK_SECRET"),
		},
		Reaper: ReaperConfig{
			ProcessingTimeout: envDuration("PROCESSING_TIMEOUT", time.Hour),
			Interval:          envDuration("REAPER_INTERVAL", 5*time.Minute),
			BatchSize:         envInt("REAPER_BATCH", 100),
		},
		Share: ShareConfig{
			CacheTTL: envDuration("SHARE_CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			APIRequestsPerMin: envInt("API_RATE_LIMIT_PER_MIN", 60),
			PublicRPS:         envFloat("PUBLIC_RATE_LIMIT_RPS", 5),
			PublicBurst:       envInt("PUBLIC_RATE_LIMIT_BURST", 20),
			IngestRPS:         envFloat("INGEST_RATE_LIMIT_RPS", 100),
			IngestBurst:       envInt("INGEST_RATE_LIMIT_BURST", 500),
		},
		Screenshot: ScreenshotConfig{
			BaseURL: strings.TrimRight(os.Getenv("SCREENSHOT_BASE_URL"), "/"),
			Timeout: envDuration("SCREENSHOT_TIMEOUT", 45*time.Second),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o"),
			},
			Anthropic: AnthropicConfig{
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  envString("OTEL_SERVICE_NAME", "listingscope"),
			SampleRatio:  envFloat("OTEL_SAMPLE_RATIO", 0.1),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if !isHTTPURL(c.Server.PublicBaseURL) {
		return fmt.Errorf("PUBLIC_BASE_URL must start with http:// or https://, got %q", c.Server.PublicBaseURL)
	}

	if c.Engine.WebhookURL == "" {
		return fmt.Errorf("ENGINE_WEBHOOK_URL is required")
	}
	if !isHTTPURL(c.Engine.WebhookURL) {
		return fmt.Errorf("ENGINE_WEBHOOK_URL must start with http:// or https://, got %q", c.Engine.WebhookURL)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive")
	}
	if len(c.Engine.CallbackSecret) < minCallbackSecretLen {
		return fmt.Errorf("CALLBACK_SECRET must be at least %d bytes", minCallbackSecretLen)
	}

	if c.Reaper.ProcessingTimeout < 0 {
		return fmt.Errorf("PROCESSING_TIMEOUT must not be negative")
	}
	if c.Reaper.ProcessingTimeout > 0 && c.Reaper.Interval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive when PROCESSING_TIMEOUT is set")
	}

	if c.Screenshot.BaseURL != "" && !isHTTPURL(c.Screenshot.BaseURL) {
		return fmt.Errorf("SCREENSHOT_BASE_URL must start with http:// or https://, got %q", c.Screenshot.BaseURL)
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, vllm, openai, anthropic; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "vllm" && c.AI.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

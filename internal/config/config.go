package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/marutilai/open-deep-research/internal/provider/openai"
)

// Config represents the research toolkit configuration.
type Config struct {
	Agent    AgentConfig
	Research ResearchConfig
	Redis    RedisConfig
	Server   ServerConfig
	CORS     CORSConfig
	OpenAI   openai.Config
}

// AgentConfig contains the deep-research agent service settings.
type AgentConfig struct {
	BaseURL     string `env:"AGENT_API_URL"      envDefault:"http://127.0.0.1:2024"`
	AssistantID string `env:"AGENT_ASSISTANT_ID" envDefault:"Deep Researcher"`
	Timeout     int    `env:"AGENT_TIMEOUT"      envDefault:"600"` // seconds
	SearchAPI   string `env:"AGENT_SEARCH_API"   envDefault:"openai"`
	PingTimeout int    `env:"AGENT_PING_TIMEOUT" envDefault:"5"` // seconds
}

// RequestTimeout returns the per-call budget.
func (c *AgentConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ResearchConfig contains research run settings.
type ResearchConfig struct {
	Mode         string  `env:"RESEARCH_MODE"          envDefault:"balanced"`
	OutputDir    string  `env:"RESEARCH_OUTPUT_DIR"    envDefault:"ma_research_outputs"`
	CacheDir     string  `env:"RESEARCH_CACHE_DIR"     envDefault:"research_cache"`
	CacheBackend string  `env:"RESEARCH_CACHE_BACKEND" envDefault:"file"` // file, redis, none
	PaceSeconds  float64 `env:"RESEARCH_PACE_SECONDS"  envDefault:"2"`
	PricingFile  string  `env:"RESEARCH_PRICING_FILE"`
	SamplesFile  string  `env:"RESEARCH_SAMPLES_FILE"  envDefault:"sample_companies.txt"`
}

// Pace returns the minimum interval between agent calls.
func (c *ResearchConfig) Pace() time.Duration {
	return time.Duration(c.PaceSeconds * float64(time.Second))
}

// RedisConfig contains the redis result cache settings.
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR"            envDefault:"localhost:6379"`
	Password      string `env:"REDIS_PASSWORD"`
	DB            int    `env:"REDIS_DB"              envDefault:"0"`
	CacheTTLHours int    `env:"REDIS_CACHE_TTL_HOURS" envDefault:"168"`
}

// TTL returns the expiry of cached results; zero keeps them forever.
func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int  `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int  `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int  `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
	DevAgent     bool `env:"VIEWER_DEV_AGENT"     envDefault:"false"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*AgentConfig
	*ResearchConfig
	*RedisConfig
	*ServerConfig
	*CORSConfig
	*openai.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Agent,
		&cfg.Research,
		&cfg.Redis,
		&cfg.Server,
		&cfg.CORS,
		&cfg.OpenAI,
	}
}

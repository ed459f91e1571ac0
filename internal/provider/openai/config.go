package openai

// Config contains OpenAI summarizer configuration.
// All fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
//
// SummaryModel and SummaryMaxTokens shape the summary request itself.
type Config struct {
	APIKey           string `env:"OPENAI_API_KEY"`
	BaseURL          string `env:"OPENAI_BASE_URL"           envDefault:"https://api.openai.com/v1"`
	Timeout          int    `env:"OPENAI_TIMEOUT"            envDefault:"60"`
	MaxRetries       int    `env:"OPENAI_MAX_RETRIES"        envDefault:"3"`
	SummaryModel     string `env:"OPENAI_SUMMARY_MODEL"      envDefault:"gpt-4.1-mini"`
	SummaryMaxTokens int    `env:"OPENAI_SUMMARY_MAX_TOKENS" envDefault:"400"`
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

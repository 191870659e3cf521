package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DND_ENV (or .env by default), then
// loads the corresponding .secret file if it exists. All config is flat env
// vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DND_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "openai" if not set.
// Valid values: openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingModel returns the embedding model name. Empty means the
// provider's default.
func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
}

// EmbeddingBaseURL overrides the embedding endpoint, for OpenAI-compatible
// self-hosted servers. Empty means the provider's default.
func EmbeddingBaseURL() string {
	return os.Getenv("EMBEDDING_BASE_URL")
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// ValidationThreshold returns the minimum rule-compliance score (0-100) an
// accepted candidate must reach. Defaults to 85.
func ValidationThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("VALIDATION_THRESHOLD"), 64)
	if err != nil || t <= 0 || t > 100 {
		return 85
	}
	return t
}

// MaxRevisionAttempts returns the revision loop bound. Defaults to 2.
func MaxRevisionAttempts() int {
	n, err := strconv.Atoi(os.Getenv("MAX_REVISION_ATTEMPTS"))
	if err != nil || n < 0 {
		return 2
	}
	return n
}

// ConsistencyBandLow and ConsistencyBandHigh bound the borderline compliance
// scores that trigger the self-consistency check. Defaults: 70-85.
func ConsistencyBandLow() float64 {
	v, err := strconv.ParseFloat(os.Getenv("CONSISTENCY_BAND_LOW"), 64)
	if err != nil || v <= 0 {
		return 70
	}
	return v
}

func ConsistencyBandHigh() float64 {
	v, err := strconv.ParseFloat(os.Getenv("CONSISTENCY_BAND_HIGH"), 64)
	if err != nil || v <= 0 {
		return 85
	}
	return v
}

// GenerationTimeout bounds each call to the generation service.
// Defaults to 30s.
func GenerationTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("GENERATION_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// WorkingMemoryLimit returns the size of the raw-event working window.
// Defaults to 10.
func WorkingMemoryLimit() int {
	n, err := strconv.Atoi(os.Getenv("WORKING_MEMORY_LIMIT"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// CompressionSweepInterval is how often the background worker looks for
// characters whose working memory overflowed. Defaults to 5m.
func CompressionSweepInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("COMPRESSION_SWEEP_SECONDS"))
	if err != nil || secs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(secs) * time.Second
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

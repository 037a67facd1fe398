package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by RELIEFPATH_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("RELIEFPATH_ENV")
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
	return intEnv("SERVER_PORT", 8080)
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

// LLMModel returns the model identifier for the language-model collaborator.
// Empty means the provider default.
func LLMModel() string {
	return os.Getenv("LLM_MODEL")
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

// EmbeddingModel overrides the embedding model. Empty means the provider default.
func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
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

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// DefaultMaxIterations is clamped to 1..3.
func DefaultMaxIterations() int {
	n := intEnv("DEFAULT_MAX_ITERATIONS", 3)
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}

func DefaultTopK() int {
	return intEnv("DEFAULT_TOP_K", 4)
}

func MaxContextChunks() int {
	return intEnv("MAX_CONTEXT_CHUNKS", 8)
}

// LLMCallTimeout bounds every single language-model call.
func LLMCallTimeout() time.Duration {
	return durationEnv("LLM_CALL_TIMEOUT", 20*time.Second)
}

// RequestDeadline bounds the retrieval iteration loop of one request.
func RequestDeadline() time.Duration {
	return durationEnv("REQUEST_DEADLINE", 60*time.Second)
}

func ParallelRetrieval() bool {
	v, err := strconv.ParseBool(os.Getenv("PARALLEL_RETRIEVAL"))
	return err == nil && v
}

// GraphMergeThreshold is the token-set overlap above which two entity
// labels are merged. Defaults to 0.8.
func GraphMergeThreshold() float64 {
	v, err := strconv.ParseFloat(os.Getenv("GRAPH_MERGE_THRESHOLD"), 64)
	if err != nil || v <= 0 || v > 1 {
		return 0.8
	}
	return v
}

func GraphMaxPathDepth() int {
	return intEnv("GRAPH_MAX_PATH_DEPTH", 4)
}

// ToleranceDefaults parses TOLERANCE_DEFAULTS, e.g. "debt=2000,income=0".
// Malformed, negative or non-finite pairs are skipped and reported in the
// returned error; the valid pairs are still returned.
func ToleranceDefaults() (map[string]float64, error) {
	out := map[string]float64{}
	raw := os.Getenv("TOLERANCE_DEFAULTS")
	if raw == "" {
		return out, nil
	}
	var errs []error
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		tag, value, ok := strings.Cut(pair, "=")
		tag = strings.TrimSpace(tag)
		if !ok || tag == "" {
			errs = append(errs, fmt.Errorf("tolerance %q: expected tag=value", pair))
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			errs = append(errs, fmt.Errorf("tolerance %q: must be a finite non-negative number", pair))
			continue
		}
		out[tag] = f
	}
	return out, errors.Join(errs...)
}

// CriteriaFile points at a YAML criteria definition file. Empty means the
// criteria table in Postgres is used.
func CriteriaFile() string {
	return os.Getenv("CRITERIA_FILE")
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
	return intEnv("RATE_LIMIT_BURST", 20)
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

func intEnv(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

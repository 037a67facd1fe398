package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "LLM_PROVIDER", "EMBEDDING_PROVIDER", "DEFAULT_MAX_ITERATIONS",
		"DEFAULT_TOP_K", "MAX_CONTEXT_CHUNKS", "LLM_CALL_TIMEOUT", "REQUEST_DEADLINE",
		"PARALLEL_RETRIEVAL", "GRAPH_MERGE_THRESHOLD", "GRAPH_MAX_PATH_DEPTH",
		"TOLERANCE_DEFAULTS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	assert.Equal(t, ":8080", ServerAddr())
	assert.Equal(t, "openai", LLMProvider())
	assert.Equal(t, "openai", EmbeddingProvider())
	assert.Equal(t, 3, DefaultMaxIterations())
	assert.Equal(t, 4, DefaultTopK())
	assert.Equal(t, 8, MaxContextChunks())
	assert.Equal(t, 20*time.Second, LLMCallTimeout())
	assert.Equal(t, 60*time.Second, RequestDeadline())
	assert.False(t, ParallelRetrieval())
	assert.Equal(t, 0.8, GraphMergeThreshold())
	assert.Equal(t, 4, GraphMaxPathDepth())
	tolerances, err := ToleranceDefaults()
	assert.NoError(t, err)
	assert.Empty(t, tolerances)
	assert.Equal(t, 100.0, RateLimitRPS())
	assert.Equal(t, 20, RateLimitBurst())
	assert.Equal(t, "info", LogLevel())
}

func TestDefaultMaxIterations_Clamped(t *testing.T) {
	t.Setenv("DEFAULT_MAX_ITERATIONS", "9")
	assert.Equal(t, 3, DefaultMaxIterations())

	t.Setenv("DEFAULT_MAX_ITERATIONS", "2")
	assert.Equal(t, 2, DefaultMaxIterations())

	t.Setenv("DEFAULT_MAX_ITERATIONS", "-1")
	assert.Equal(t, 3, DefaultMaxIterations(), "invalid values fall back to the default")
}

func TestGraphMergeThreshold_RejectsOutOfRange(t *testing.T) {
	t.Setenv("GRAPH_MERGE_THRESHOLD", "0.9")
	assert.Equal(t, 0.9, GraphMergeThreshold())

	t.Setenv("GRAPH_MERGE_THRESHOLD", "1.5")
	assert.Equal(t, 0.8, GraphMergeThreshold())
}

func TestDurations(t *testing.T) {
	t.Setenv("LLM_CALL_TIMEOUT", "5s")
	t.Setenv("REQUEST_DEADLINE", "bogus")

	assert.Equal(t, 5*time.Second, LLMCallTimeout())
	assert.Equal(t, 60*time.Second, RequestDeadline())
}

func TestToleranceDefaults(t *testing.T) {
	t.Setenv("TOLERANCE_DEFAULTS", "debt=2000, income = 5,assets,broken=x,negative=-1,nan=NaN,inf=+Inf,=3")

	tolerances, err := ToleranceDefaults()

	assert.Equal(t, map[string]float64{"debt": 2000, "income": 5}, tolerances)
	require.Error(t, err)
	for _, bad := range []string{"assets", "broken=x", "negative=-1", "nan=NaN", "inf=+Inf", "=3"} {
		assert.Contains(t, err.Error(), bad)
	}
}

func TestAPIKeysFollowProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	t.Setenv("LLM_PROVIDER", "anthropic")
	assert.Equal(t, "sk-anthropic", LLMAPIKey())

	t.Setenv("LLM_PROVIDER", "mock")
	assert.Empty(t, LLMAPIKey())

	t.Setenv("EMBEDDING_PROVIDER", "")
	assert.Equal(t, "sk-openai", EmbeddingAPIKey())
}

func TestLoad_ReadsEnvAndSecretFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RELIEFPATH_TEST_VALUE=from-env\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("RELIEFPATH_TEST_SECRET=from-secret\n"), 0o600))

	t.Setenv("RELIEFPATH_ENV", envFile)
	t.Setenv("RELIEFPATH_TEST_VALUE", "")
	t.Setenv("RELIEFPATH_TEST_SECRET", "")
	require.NoError(t, os.Unsetenv("RELIEFPATH_TEST_VALUE"))
	require.NoError(t, os.Unsetenv("RELIEFPATH_TEST_SECRET"))

	require.NoError(t, Load())

	assert.Equal(t, "from-env", os.Getenv("RELIEFPATH_TEST_VALUE"))
	assert.Equal(t, "from-secret", os.Getenv("RELIEFPATH_TEST_SECRET"))
}

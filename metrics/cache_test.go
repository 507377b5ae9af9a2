package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadMetrics(t *testing.T) {
	metricsDir := filepath.Join(t.TempDir(), "metrics")

	jobMetrics := JobMetrics{
		Tool:           "poolbackup",
		LastRunSuccess: true,
		LastDuration:   42.5,
		ItemsFailed:    0,
		CompletedAt:    time.Now().Truncate(time.Second),
	}
	envMetrics := &EnvMetrics{PoolSizeBytes: 1 << 40}

	require.NoError(t, WriteMetricsFiles(metricsDir, jobMetrics, envMetrics))

	gotJob, gotEnv, err := ReadJSONMetrics(metricsDir, "poolbackup")
	require.NoError(t, err)
	assert.Equal(t, jobMetrics.Tool, gotJob.Tool)
	assert.True(t, gotJob.LastRunSuccess)
	assert.Equal(t, 42.5, gotJob.LastDuration)
	require.NotNil(t, gotEnv)
	assert.Equal(t, envMetrics.PoolSizeBytes, gotEnv.PoolSizeBytes)
}

func TestWriteMetricsFiles_NilEnvPreservesSharedFile(t *testing.T) {
	metricsDir := t.TempDir()

	// a pool run records the env snapshot
	require.NoError(t, WriteMetricsFiles(metricsDir, JobMetrics{Tool: "poolbackup"}, &EnvMetrics{PoolSizeBytes: 123456}))

	// a later non-pool run must not touch the shared environment file
	require.NoError(t, WriteMetricsFiles(metricsDir, JobMetrics{Tool: "smartreport"}, nil))

	_, env, err := ReadJSONMetrics(metricsDir, "poolbackup")
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, int64(123456), env.PoolSizeBytes)

	// the non-pool tool sees the same shared snapshot
	_, env, err = ReadJSONMetrics(metricsDir, "smartreport")
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, int64(123456), env.PoolSizeBytes)
}

func TestReadJSONMetrics_MissingJobFile(t *testing.T) {
	_, _, err := ReadJSONMetrics(t.TempDir(), "poolbackup")
	require.Error(t, err)
}

func TestReadJSONMetrics_EnvFileOptional(t *testing.T) {
	metricsDir := t.TempDir()
	require.NoError(t, WriteMetricsFiles(metricsDir, JobMetrics{Tool: "smartreport"}, nil))

	// tools outside the pool never write env metrics, the read still works
	_, env, err := ReadJSONMetrics(metricsDir, "smartreport")
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestWriteMetricsFiles_NoTempFileLeftBehind(t *testing.T) {
	metricsDir := t.TempDir()
	require.NoError(t, WriteMetricsFiles(metricsDir, JobMetrics{Tool: "composectl"}, &EnvMetrics{}))

	entries, err := os.ReadDir(metricsDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestLoadFromCacheAndExpose(t *testing.T) {
	metricsDir := t.TempDir()
	require.NoError(t, WriteMetricsFiles(metricsDir, JobMetrics{Tool: "poolbackup", LastRunSuccess: true}, &EnvMetrics{PoolSizeBytes: 99}))

	require.NoError(t, LoadFromCacheAndExpose(metricsDir, "poolbackup"))
	require.Error(t, LoadFromCacheAndExpose(metricsDir, "composectl"), "tools without a cache file report an error")
}

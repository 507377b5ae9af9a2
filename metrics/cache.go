package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// reads metrics from jsonfiles for one tool. env metrics come back nil when
// the shared environment file is absent.
func ReadJSONMetrics(metricsDir, tool string) (JobMetrics, *EnvMetrics, error) {
	var job JobMetrics

	jobPath := filepath.Join(metricsDir, tool+"_job_metrics.json")
	envPath := filepath.Join(metricsDir, "environment_metrics.json")

	jobFile, err := os.ReadFile(jobPath)
	if err != nil {
		return job, nil, fmt.Errorf("reading job metrics: %w", err)
	}
	if err := json.Unmarshal(jobFile, &job); err != nil {
		return job, nil, fmt.Errorf("parsing job metrics: %w", err)
	}

	// env metrics file is optional, tools that never touch the pool skip it
	envFile, err := os.ReadFile(envPath)
	if err != nil {
		return job, nil, nil
	}
	var env EnvMetrics
	if err := json.Unmarshal(envFile, &env); err != nil {
		return job, nil, fmt.Errorf("parsing env metrics: %w", err)
	}
	return job, &env, nil
}

func writeAtomicJSON(metricsFilePath string, data any) error {
	tmpFilePath := metricsFilePath + ".tmp"
	f, err := os.Create(tmpFilePath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmpFilePath, metricsFilePath)
}

// WriteMetricsFiles persists job metrics, plus env metrics when they were
// sampled this run. The environment file is shared across tools, so callers
// that never sampled pass nil and leave the last sample in place.
func WriteMetricsFiles(metricsDir string, jobMetrics JobMetrics, envMetrics *EnvMetrics) error {

	if err := os.MkdirAll(metricsDir, 0755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}

	jobPath := filepath.Join(metricsDir, jobMetrics.Tool+"_job_metrics.json")
	if err := writeAtomicJSON(jobPath, jobMetrics); err != nil {
		return fmt.Errorf("writing job metrics: %w", err)
	}

	if envMetrics != nil {
		envPath := filepath.Join(metricsDir, "environment_metrics.json")
		if err := writeAtomicJSON(envPath, *envMetrics); err != nil {
			return fmt.Errorf("writing env metrics: %w", err)
		}
	}
	return nil
}

// LoadFromCacheAndExpose re-applies cached metrics to the gauges
func LoadFromCacheAndExpose(metricsDir, tool string) error {
	job, env, err := ReadJSONMetrics(metricsDir, tool)
	if err != nil {
		return err
	}
	ApplyPrometheusMetrics(job, env)
	return nil
}

package metrics

import "time"

// JobMetrics captures the outcome of a single tool run
type JobMetrics struct {
	Tool           string    `json:"tool"`
	LastRunSuccess bool      `json:"last_run_success"`
	LastDuration   float64   `json:"last_duration_seconds"`
	ItemsFailed    int       `json:"items_failed"`
	CompletedAt    time.Time `json:"completed_at"`
}

// EnvMetrics captures ambient pool state sampled after a run
type EnvMetrics struct {
	PoolSizeBytes int64 `json:"pool_size_bytes"`
}

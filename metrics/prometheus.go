package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbeisser1/homelab/sysutil"
)

// Prometheus metric declarations.
var jobSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "homelab_last_run_success",
	Help: "Last run success status per tool (1=success, 0=failure)",
}, []string{"tool"})

var jobDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "homelab_last_job_duration_seconds",
	Help: "Duration of last run in seconds per tool",
}, []string{"tool"})

var jobItemsFailed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "homelab_last_job_items_failed",
	Help: "Failed item count of last run per tool",
}, []string{"tool"})

var poolSize = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "homelab_pool_size_bytes",
	Help: "Total size in bytes of the storage pool",
})

// Register metrics on package initialization.
func init() {
	prometheus.MustRegister(jobSuccess, jobDuration, jobItemsFailed, poolSize)
}

// ApplyPrometheusMetrics sets gauge values from cached metrics structs
func ApplyPrometheusMetrics(job JobMetrics, env *EnvMetrics) {
	jobSuccess.WithLabelValues(job.Tool).Set(boolToFloat(job.LastRunSuccess))
	jobDuration.WithLabelValues(job.Tool).Set(job.LastDuration)
	jobItemsFailed.WithLabelValues(job.Tool).Set(float64(job.ItemsFailed))

	// pool size is shared state, only a fresh or cached sample may touch it
	if env != nil {
		poolSize.Set(float64(env.PoolSizeBytes))
	}
}

// SamplePoolSize refreshes the pool size gauge & returns the env snapshot,
// nil when the pool could not be walked
func SamplePoolSize(poolPath string) *EnvMetrics {
	size, err := sysutil.GetDirectorySize(poolPath)
	if err != nil {
		return nil
	}
	poolSize.Set(float64(size))
	return &EnvMetrics{PoolSizeBytes: size}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// open metrics endpoint for duration, cron-run tools only expose briefly
func StartMetricsServer(addr string, duration time.Duration) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		http.ListenAndServe(addr, nil)
	}()
	time.Sleep(duration)
}

package cli

import (
	"fmt"
	"time"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/metrics"
)

// suite version, shared by every binary
const Version = "v0.4.1"

// Tools names every binary in the suite, used to refresh cached gauges
// before a scrape window
var Tools = []string{"poolbackup", "composectl", "permfix", "smartreport", "htmlpack", "mdnotes"}

// Bootstrap resolves & loads the config, initializes the environment dirs
// and wires up logging for one tool. configPath may be empty to use the
// /etc pointer file.
func Bootstrap(tool, configPath string) (*config.ConfigFile, error) {
	if configPath == "" {
		resolved, err := config.GetConfigFilePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config.yml, try -setup first: %v", err)
		}
		configPath = resolved
	}

	configFile, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %v", err)
	}

	homelabBase, _, _ := config.InitEnvironment(*configFile)
	logger.InitLogging(homelabBase, tool, configFile.LogLevel, configFile.LogFormat, configFile.LogTextColour)

	return configFile, nil
}

// FinishRun records job metrics, logs the completion banner and optionally
// holds the metrics endpoint open for a scrape window
func FinishRun(configFile *config.ConfigFile, jobctx *job.JobContext, success bool, itemsFailed int) {
	duration := jobctx.DurationSeconds()

	jobMetrics := metrics.JobMetrics{
		Tool:           jobctx.Tool,
		LastRunSuccess: success,
		LastDuration:   duration,
		ItemsFailed:    itemsFailed,
		CompletedAt:    time.Now(),
	}

	// only the pool-touching tool refreshes the shared env snapshot, the
	// rest pass nil and leave the cached sample alone
	var envMetrics *metrics.EnvMetrics
	if jobctx.Tool == "poolbackup" && configFile.Backup.SourceDir != "" {
		envMetrics = metrics.SamplePoolSize(configFile.Backup.SourceDir)
	}

	metrics.ApplyPrometheusMetrics(jobMetrics, envMetrics)

	metricsDir := configFile.MetricsDir
	if metricsDir == "" {
		metricsDir = configFile.DefaultHomelabDir + "/metrics"
	}
	if err := metrics.WriteMetricsFiles(metricsDir, jobMetrics, envMetrics); err != nil {
		logger.LogxWithFields("warn", fmt.Sprintf("Failed to persist metrics: %v", err), map[string]interface{}{
			"package": "cli",
			"tool":    jobctx.Tool,
		})
	}

	logger.LogxWithFields("info", fmt.Sprintf("Job finished, execution time: %.2fs", duration), map[string]interface{}{
		"package":  "cli",
		"tool":     jobctx.Tool,
		"target":   jobctx.Target,
		"job_id":   jobctx.JobID,
		"duration": fmt.Sprintf("%.2fs", duration),
		"failed":   itemsFailed,
		"success":  success,
	})

	if configFile.EnableMetrics && configFile.ListenAddress != "" {
		listenDuration := time.Duration(configFile.ListenDuration) * time.Second
		if listenDuration <= 0 {
			listenDuration = 60 * time.Second
		}

		// re-expose the other tools' cached gauges so one scrape window
		// carries the whole suite
		for _, otherTool := range Tools {
			if otherTool == jobctx.Tool {
				continue
			}
			if err := metrics.LoadFromCacheAndExpose(metricsDir, otherTool); err != nil {
				logger.LogxWithFields("debug", fmt.Sprintf("No cached metrics for %s: %v", otherTool, err), map[string]interface{}{
					"package": "cli",
					"tool":    jobctx.Tool,
				})
			}
		}


		logger.LogxWithFields("debug", fmt.Sprintf("Exposing /metrics on %s for %s", configFile.ListenAddress, listenDuration), map[string]interface{}{
			"package": "cli",
			"tool":    jobctx.Tool,
		})
		metrics.StartMetricsServer(configFile.ListenAddress, listenDuration)
	}
}

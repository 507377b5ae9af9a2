package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

// snapraid prints this when the array state is clean
const SnapraidCleanMarker = "No error detected."

// how much command output is kept in the step log
const outputTailLimit = 4000

// StepResult records one external invocation for the mailed report
type StepResult struct {
	Name     string
	Command  string
	Duration time.Duration
	Output   string
	Err      error
}

// Orchestrator drives the fixed rclone + snapraid sequence with
// fail-fast abort on the hard gates
type Orchestrator struct {
	Runner sysutil.Runner
	Config config.BackupConfig
	Job    *job.JobContext

	results []StepResult
	aborted bool
}

func NewOrchestrator(runner sysutil.Runner, cfg config.BackupConfig, jobctx *job.JobContext) *Orchestrator {
	return &Orchestrator{
		Runner: runner,
		Config: cfg,
		Job:    jobctx,
	}
}

// debug level logging output fields for backup package
func (o *Orchestrator) logBaseFields() map[string]interface{} {
	coreFields := logger.CoreLogFields(o.Job, "backup")
	fields := logger.MergeFields(coreFields, map[string]interface{}{
		"source":  o.Config.SourceDir,
		"remotes": len(o.Config.Remotes),
	})
	return fields
}

// CheckConflicts refuses the run when a conflicting named process is active,
// a coarse mutual-exclusion signal between unrelated maintenance scripts
func (o *Orchestrator) CheckConflicts() error {
	for _, procName := range o.Config.ConflictProcs {
		if sysutil.ProcessRunning(o.Runner, procName) {
			return fmt.Errorf("conflicting process %q is already running", procName)
		}
	}
	return nil
}

// runStep executes one external command, appending its outcome to the step log
func (o *Orchestrator) runStep(name, command string, args ...string) *StepResult {
	verboseFields := o.logBaseFields()
	logger.LogxWithFields("debug", fmt.Sprintf("Running step %s: %s %s", name, command, strings.Join(args, " ")), verboseFields)

	start := time.Now()
	output, err := o.Runner.Output(command, args...)
	result := StepResult{
		Name:     name,
		Command:  command + " " + strings.Join(args, " "),
		Duration: time.Since(start),
		Output:   tail(output, outputTailLimit),
		Err:      err,
	}
	o.results = append(o.results, result)

	if err != nil {
		logger.LogxWithFields("error", fmt.Sprintf("Step %s failed: %v", name, err), logger.MergeFields(verboseFields, map[string]interface{}{
			"step":    name,
			"success": false,
		}))
	} else {
		logger.LogxWithFields("info", fmt.Sprintf("Step %s completed in %.1fs", name, result.Duration.Seconds()), logger.MergeFields(verboseFields, map[string]interface{}{
			"step":    name,
			"success": true,
		}))
	}

	return &o.results[len(o.results)-1]
}

// Run executes the full backup sequence. Hard gate failures abort the
// remaining steps; the returned error describes the first one.
func (o *Orchestrator) Run() error {
	cfg := o.Config

	// gate: array must be clean before pushing anything anywhere
	status := o.runStep("snapraid-status", "snapraid", "-c", cfg.SnapraidConfig, "status")
	if status.Err != nil {
		o.aborted = true
		return fmt.Errorf("snapraid status failed, aborting backup sequence: %v", status.Err)
	}
	if !strings.Contains(status.Output, SnapraidCleanMarker) {
		o.aborted = true
		status.Err = fmt.Errorf("snapraid status output missing %q", SnapraidCleanMarker)
		return fmt.Errorf("snapraid reports array errors, aborting backup sequence")
	}

	// gate: one rclone copy per named remote
	for _, remote := range cfg.Remotes {
		dest := fmt.Sprintf("%s:%s", remote.Name, remote.Dest)
		copyStep := o.runStep("rclone-copy-"+remote.Name, "rclone", "copy", cfg.SourceDir, dest)
		if copyStep.Err != nil {
			o.aborted = true
			return fmt.Errorf("rclone copy to %s failed, aborting backup sequence: %v", dest, copyStep.Err)
		}
	}

	// gate: sync parity
	sync := o.runStep("snapraid-sync", "snapraid", "-c", cfg.SnapraidConfig, "sync")
	if sync.Err != nil {
		o.aborted = true
		return fmt.Errorf("snapraid sync failed, aborting backup sequence: %v", sync.Err)
	}

	// scrub is advisory unless configured strict
	scrub := o.runStep("snapraid-scrub", "snapraid",
		"-c", cfg.SnapraidConfig,
		"-p", fmt.Sprintf("%d", cfg.ScrubPercent),
		"-o", fmt.Sprintf("%d", cfg.ScrubOlderDays),
		"scrub")
	if scrub.Err != nil && cfg.StrictScrub {
		o.aborted = true
		return fmt.Errorf("snapraid scrub failed with strict_scrub enabled: %v", scrub.Err)
	}

	// closing status for the report, never a gate
	o.runStep("snapraid-status-post", "snapraid", "-c", cfg.SnapraidConfig, "status")

	return nil
}

// Results exposes the recorded step log
func (o *Orchestrator) Results() []StepResult {
	return o.results
}

// FailedSteps counts steps that returned an error
func (o *Orchestrator) FailedSteps() int {
	count := 0
	for _, result := range o.results {
		if result.Err != nil {
			count++
		}
	}
	return count
}

// Aborted reports whether a hard gate cut the sequence short
func (o *Orchestrator) Aborted() bool {
	return o.aborted
}

// StepLog renders the plain-text step log attached to the report mail
func (o *Orchestrator) StepLog() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "backup job %s\n", o.Job.JobID)
	fmt.Fprintf(&sb, "started %s\n\n", o.Job.StartTime.Format(time.RFC3339))
	for _, result := range o.results {
		state := "OK"
		if result.Err != nil {
			state = "FAILED"
		}
		fmt.Fprintf(&sb, "=== %s [%s] (%.1fs)\n", result.Name, state, result.Duration.Seconds())
		fmt.Fprintf(&sb, "$ %s\n", result.Command)
		if result.Err != nil {
			fmt.Fprintf(&sb, "error: %v\n", result.Err)
		}
		if result.Output != "" {
			sb.WriteString(result.Output)
			if !strings.HasSuffix(result.Output, "\n") {
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}
	if o.aborted {
		sb.WriteString("sequence aborted after first hard failure, remaining steps skipped\n")
	}
	return sb.String()
}

// keeps only the last n bytes of command output
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "...(truncated)...\n" + s[len(s)-n:]
}

package backup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
)

// fakeRunner replays canned output keyed by the joined command line
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (f *fakeRunner) key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeRunner) Run(name string, args ...string) error {
	key := f.key(name, args)
	f.calls = append(f.calls, key)
	return f.errs[key]
}

func (f *fakeRunner) Output(name string, args ...string) (string, error) {
	key := f.key(name, args)
	f.calls = append(f.calls, key)
	return f.outputs[key], f.errs[key]
}

func testConfig() config.BackupConfig {
	return config.BackupConfig{
		SourceDir:      "/pool",
		SnapraidConfig: "/etc/snapraid.conf",
		ScrubPercent:   8,
		ScrubOlderDays: 10,
		Remotes: []config.RcloneRemote{
			{Name: "koofr-remote", Dest: "backups/pool"},
			{Name: "filen-remote", Dest: "backups/pool"},
		},
	}
}

func newTestOrchestrator(cfg config.BackupConfig) (*Orchestrator, *fakeRunner) {
	runner := newFakeRunner()
	jobctx := job.NewJobContext("poolbackup", cfg.SourceDir)
	return NewOrchestrator(runner, cfg, jobctx), runner
}

func TestRun_FullSequence(t *testing.T) {
	cfg := testConfig()
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = "self test...\nNo error detected.\n"

	err := o.Run()
	require.NoError(t, err)
	assert.False(t, o.Aborted())
	assert.Equal(t, 0, o.FailedSteps())

	want := []string{
		"snapraid -c /etc/snapraid.conf status",
		"rclone copy /pool koofr-remote:backups/pool",
		"rclone copy /pool filen-remote:backups/pool",
		"snapraid -c /etc/snapraid.conf sync",
		"snapraid -c /etc/snapraid.conf -p 8 -o 10 scrub",
		"snapraid -c /etc/snapraid.conf status",
	}
	assert.Equal(t, want, runner.calls)
	assert.Len(t, o.Results(), 6)
}

func TestRun_StatusCommandFailureAborts(t *testing.T) {
	cfg := testConfig()
	o, runner := newTestOrchestrator(cfg)

	runner.errs["snapraid -c /etc/snapraid.conf status"] = fmt.Errorf("exit status 1")

	err := o.Run()
	require.Error(t, err)
	assert.True(t, o.Aborted())
	assert.Len(t, runner.calls, 1, "nothing should run after a failed status gate")
}

func TestRun_DirtyArrayAborts(t *testing.T) {
	cfg := testConfig()
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = "DANGER! In the array there are 3 errors!\n"

	err := o.Run()
	require.Error(t, err)
	assert.True(t, o.Aborted())
	assert.Len(t, runner.calls, 1)
	assert.Equal(t, 1, o.FailedSteps(), "missing clean marker should mark the step failed")
}

func TestRun_RcloneFailureAborts(t *testing.T) {
	cfg := testConfig()
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = SnapraidCleanMarker
	runner.errs["rclone copy /pool koofr-remote:backups/pool"] = fmt.Errorf("exit status 3")

	err := o.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "koofr-remote")
	assert.True(t, o.Aborted())

	// the second remote and everything after must be skipped
	for _, call := range runner.calls {
		assert.NotContains(t, call, "filen-remote")
		assert.NotContains(t, call, "sync")
	}
}

func TestRun_ScrubFailureIsAdvisory(t *testing.T) {
	cfg := testConfig()
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = SnapraidCleanMarker
	runner.errs["snapraid -c /etc/snapraid.conf -p 8 -o 10 scrub"] = fmt.Errorf("exit status 1")

	err := o.Run()
	require.NoError(t, err, "scrub failure should not fail a non-strict run")
	assert.False(t, o.Aborted())
	assert.Equal(t, 1, o.FailedSteps())
	assert.Len(t, o.Results(), 6, "closing status still runs")
}

func TestRun_ScrubFailureStrict(t *testing.T) {
	cfg := testConfig()
	cfg.StrictScrub = true
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = SnapraidCleanMarker
	runner.errs["snapraid -c /etc/snapraid.conf -p 8 -o 10 scrub"] = fmt.Errorf("exit status 1")

	err := o.Run()
	require.Error(t, err)
	assert.True(t, o.Aborted())
}

func TestCheckConflicts(t *testing.T) {
	cfg := testConfig()
	cfg.ConflictProcs = []string{"snapraid", "rclone"}
	o, runner := newTestOrchestrator(cfg)

	err := o.CheckConflicts()
	require.NoError(t, err)

	runner.outputs["pgrep -x rclone"] = "4242\n"
	err = o.CheckConflicts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rclone")
}

func TestStepLog(t *testing.T) {
	cfg := testConfig()
	cfg.Remotes = nil
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = SnapraidCleanMarker
	runner.errs["snapraid -c /etc/snapraid.conf sync"] = fmt.Errorf("exit status 1")

	err := o.Run()
	require.Error(t, err)

	log := o.StepLog()
	assert.Contains(t, log, o.Job.JobID)
	assert.Contains(t, log, "=== snapraid-status [OK]")
	assert.Contains(t, log, "=== snapraid-sync [FAILED]")
	assert.Contains(t, log, "sequence aborted after first hard failure")
}

func TestTailTruncation(t *testing.T) {
	long := strings.Repeat("x", 5000)
	short := "short output"

	assert.Equal(t, short, tail(short, outputTailLimit))

	truncated := tail(long, 100)
	assert.True(t, strings.HasPrefix(truncated, "...(truncated)...\n"))
	assert.True(t, strings.HasSuffix(truncated, "x"))
	assert.Less(t, len(truncated), 200)
}

func TestBuildReportMail(t *testing.T) {
	cfg := testConfig()
	cfg.Remotes = nil
	o, runner := newTestOrchestrator(cfg)

	runner.outputs["snapraid -c /etc/snapraid.conf status"] = SnapraidCleanMarker
	require.NoError(t, o.Run())

	msg := o.BuildReportMail(true)
	assert.Contains(t, msg.Subject, "Pool Backup OK")
	assert.Contains(t, msg.HTMLBody, "snapraid-sync")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, fmt.Sprintf("backup-%s.log", o.Job.JobID), msg.Attachments[0].Filename)

	failMsg := o.BuildReportMail(false)
	assert.Contains(t, failMsg.Subject, "Pool Backup ALERT")
}

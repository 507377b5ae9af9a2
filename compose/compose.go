package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

// fixed compose filename every project must carry
const ComposeFileName = "compose.yml"

// Manager applies a lifecycle action to the fixed project list,
// counting failures instead of aborting
type Manager struct {
	Runner   sysutil.Runner
	Projects []config.ComposeProject
	Job      *job.JobContext
}

func NewManager(runner sysutil.Runner, projects []config.ComposeProject, jobctx *job.JobContext) *Manager {
	return &Manager{
		Runner:   runner,
		Projects: projects,
		Job:      jobctx,
	}
}

// debug level logging output fields for compose package
func (m *Manager) logBaseFields() map[string]interface{} {
	coreFields := logger.CoreLogFields(m.Job, "compose")
	fields := logger.MergeFields(coreFields, map[string]interface{}{
		"projects": len(m.Projects),
	})
	return fields
}

// locates & validates the project composefile
func (m *Manager) composeFile(project config.ComposeProject) (string, error) {
	composeFilePath := filepath.Join(project.Dir, ComposeFileName)
	fi, err := os.Stat(composeFilePath)
	if err != nil {
		return "", fmt.Errorf("project %s has no %s at %s: %v", project.Name, ComposeFileName, project.Dir, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("project %s: %s is a directory", project.Name, composeFilePath)
	}
	return composeFilePath, nil
}

// returns whether any services are running from target composefile
func (m *Manager) checkRunState(composeFilePath string) (bool, error) {
	output, err := m.Runner.Output("docker", "compose", "-f", composeFilePath, "ps", "--services", "--filter", "status=running")
	if err != nil {
		return false, fmt.Errorf("failed to obtain compose service status: %v", err)
	}
	return strings.TrimSpace(output) != "", nil
}

// applies one compose action against one project
func (m *Manager) applyAction(project config.ComposeProject, action string) error {
	composeFilePath, err := m.composeFile(project)
	if err != nil {
		return err
	}

	switch action {
	case "up":
		return m.Runner.Run("docker", "compose", "-f", composeFilePath, "up", "-d")
	case "down":
		return m.Runner.Run("docker", "compose", "-f", composeFilePath, "down")
	case "restart":
		if err := m.Runner.Run("docker", "compose", "-f", composeFilePath, "down"); err != nil {
			return fmt.Errorf("down failed during restart: %v", err)
		}
		return m.Runner.Run("docker", "compose", "-f", composeFilePath, "up", "-d")
	case "status":
		running, err := m.checkRunState(composeFilePath)
		if err != nil {
			return err
		}
		state := "stopped"
		if running {
			state = "running"
		}
		logger.LogxWithFields("info", fmt.Sprintf("Project %s is %s", project.Name, state), logger.MergeFields(m.logBaseFields(), map[string]interface{}{
			"project": project.Name,
			"state":   state,
		}))
		return nil
	default:
		return fmt.Errorf("unknown compose action %q", action)
	}
}

// Apply walks the project list in order, issuing the action per project.
// A failing project never stops the loop, aggregate count is returned.
func (m *Manager) Apply(action string) (failed int) {
	verboseFields := m.logBaseFields()

	if len(m.Projects) == 0 {
		logger.LogxWithFields("warn", "No compose projects configured, nothing to do", verboseFields)
		return 0
	}

	for _, project := range m.Projects {
		projectFields := logger.MergeFields(verboseFields, map[string]interface{}{
			"project": project.Name,
			"action":  action,
		})

		logger.LogxWithFields("debug", fmt.Sprintf("Applying %s to project %s", action, project.Name), projectFields)

		if err := m.applyAction(project, action); err != nil {
			failed++
			logger.LogxWithFields("error", fmt.Sprintf("Project %s failed: %v", project.Name, err), logger.MergeFields(projectFields, map[string]interface{}{
				"success": false,
			}))
			continue
		}

		if action != "status" {
			logger.LogxWithFields("info", fmt.Sprintf("Project %s: %s completed", project.Name, action), logger.MergeFields(projectFields, map[string]interface{}{
				"success": true,
			}))
		}
	}

	logger.LogxWithFields("info", fmt.Sprintf("Compose %s finished, %d/%d projects failed", action, failed, len(m.Projects)), logger.MergeFields(verboseFields, map[string]interface{}{
		"action":  action,
		"failed":  failed,
		"success": failed == 0,
	}))

	return failed
}

package perms

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

// Policy is the fixed ownership/permission convention enforced on the pool:
// shared group, setgid dirs, group-writable files
type Policy struct {
	Group        string
	GID          int
	DirMode      os.FileMode
	FileMode     os.FileMode
	ExecFileMode os.FileMode
}

// NewPolicy resolves the shared group & parses the configured octal modes
func NewPolicy(cfg config.PermsConfig) (*Policy, error) {
	group, err := user.LookupGroup(cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("shared group %q not found: %v", cfg.Group, err)
	}
	gid, err := strconv.Atoi(group.Gid)
	if err != nil {
		return nil, fmt.Errorf("unparseable gid %q for group %s: %v", group.Gid, cfg.Group, err)
	}

	dirMode, err := config.ParseOctalMode(cfg.DirMode)
	if err != nil {
		return nil, err
	}
	fileMode, err := config.ParseOctalMode(cfg.FileMode)
	if err != nil {
		return nil, err
	}
	execFileMode, err := config.ParseOctalMode(cfg.ExecFileMode)
	if err != nil {
		return nil, err
	}

	return &Policy{
		Group:        cfg.Group,
		GID:          gid,
		DirMode:      dirMode,
		FileMode:     fileMode,
		ExecFileMode: execFileMode,
	}, nil
}

// DesiredMode returns the mode the policy wants for an entry
func (p *Policy) DesiredMode(isDir bool, currentMode os.FileMode) os.FileMode {
	if isDir {
		return p.DirMode
	}
	// files with any owner-execute bit keep execute for the group
	if currentMode&0100 != 0 {
		return p.ExecFileMode
	}
	return p.FileMode
}

// Normalizer walks a tree applying the policy, counting per-entry failures
// and continuing past them
type Normalizer struct {
	Runner sysutil.Runner
	Policy *Policy
	Job    *job.JobContext
	DryRun bool

	Changed int
	Failed  int
}

func NewNormalizer(runner sysutil.Runner, policy *Policy, jobctx *job.JobContext, dryRun bool) *Normalizer {
	return &Normalizer{
		Runner: runner,
		Policy: policy,
		Job:    jobctx,
		DryRun: dryRun,
	}
}

// debug level logging output fields for perms package
func (n *Normalizer) logBaseFields() map[string]interface{} {
	coreFields := logger.CoreLogFields(n.Job, "perms")
	fields := logger.MergeFields(coreFields, map[string]interface{}{
		"group":   n.Policy.Group,
		"dry_run": n.DryRun,
	})
	return fields
}

// Walk normalizes every entry under root
func (n *Normalizer) Walk(root string) error {
	if err := sysutil.ValidateDirectoryString(root); err != nil {
		return err
	}

	verboseFields := n.logBaseFields()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			n.Failed++
			logger.LogxWithFields("error", fmt.Sprintf("Walk error at %s: %v", path, walkErr), verboseFields)
			return nil // keep walking siblings
		}

		// symlinks are left untouched, chmod would follow the target
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		// git repositories get the shared-repository treatment once per repo
		if entry.IsDir() && entry.Name() != ".git" {
			if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
				n.ensureGitShared(path)
			}
		}

		if err := n.normalizeEntry(path, entry); err != nil {
			n.Failed++
			logger.LogxWithFields("error", fmt.Sprintf("Failed to normalize %s: %v", path, err), verboseFields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %v", root, err)
	}

	logger.LogxWithFields("info", fmt.Sprintf("Normalization finished, %d entries changed, %d failures", n.Changed, n.Failed), logger.MergeFields(verboseFields, map[string]interface{}{
		"changed": n.Changed,
		"failed":  n.Failed,
		"success": n.Failed == 0,
	}))
	return nil
}

// normalizeEntry applies group ownership + mode to a single path
func (n *Normalizer) normalizeEntry(path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return fmt.Errorf("stat: %v", err)
	}

	verboseFields := n.logBaseFields()
	entryChanged := false

	// group ownership
	if stat, ok := info.Sys().(*syscall.Stat_t); ok && int(stat.Gid) != n.Policy.GID {
		if n.DryRun {
			logger.LogxWithFields("info", fmt.Sprintf("[dry-run] would chgrp %s %s", n.Policy.Group, path), verboseFields)
		} else if err := os.Chown(path, -1, n.Policy.GID); err != nil {
			return fmt.Errorf("chgrp: %v", err)
		}
		entryChanged = true
	}

	// mode
	desired := n.Policy.DesiredMode(info.IsDir(), info.Mode())
	current := info.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky)
	if current != desired {
		if n.DryRun {
			logger.LogxWithFields("info", fmt.Sprintf("[dry-run] would chmod %o %s", desired, path), verboseFields)
		} else if err := os.Chmod(path, desired); err != nil {
			return fmt.Errorf("chmod: %v", err)
		}
		entryChanged = true
	}

	if entryChanged {
		n.Changed++
		if !n.DryRun {
			logger.LogxWithFields("debug", fmt.Sprintf("Normalized %s", path), verboseFields)
		}
	}
	return nil
}

// ensureGitShared sets core.sharedRepository=group on a repo so the whole
// hosted group can push without breaking each other's perms
func (n *Normalizer) ensureGitShared(repoDir string) {
	verboseFields := logger.MergeFields(n.logBaseFields(), map[string]interface{}{
		"repo": repoDir,
	})

	output, err := n.Runner.Output("git", "-C", repoDir, "config", "core.sharedRepository")
	current := strings.TrimSpace(output)
	if err == nil && (current == "group" || current == "true" || current == "1") {
		return
	}

	if n.DryRun {
		logger.LogxWithFields("info", fmt.Sprintf("[dry-run] would set core.sharedRepository=group on %s", repoDir), verboseFields)
		return
	}

	if err := n.Runner.Run("git", "-C", repoDir, "config", "core.sharedRepository", "group"); err != nil {
		n.Failed++
		logger.LogxWithFields("error", fmt.Sprintf("Failed to mark repo shared: %v", err), verboseFields)
		return
	}
	logger.LogxWithFields("info", fmt.Sprintf("Marked git repo %s as group-shared", repoDir), verboseFields)
}

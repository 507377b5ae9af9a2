package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFile_FullConfig(t *testing.T) {
	baseDir := t.TempDir()
	projectDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
default_homelab_directory: %s
log_level: debug
log_format: json
mail:
  smtp_host: smtp.example.net:587
  from: homelab@bitrealm.dev
  to:
    - snapraid@bitrealm.dev
backup:
  source_directory: /pool
  snapraid_config: /etc/snapraid.conf
  rclone_remotes:
    - name: koofr-remote
      dest: backups/pool
    - name: filen-remote
      dest: backups/pool
  conflicting_processes:
    - snapraid
    - rclone
compose:
  projects:
    - name: immich
      dir: %s
smart:
  devices:
    - /dev/sdb
    - /dev/sdc
`, baseDir, projectDir))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, baseDir, cfg.DefaultHomelabDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "smtp.example.net:587", cfg.Mail.SMTPHost)
	assert.Equal(t, []string{"snapraid@bitrealm.dev"}, cfg.Mail.To)
	require.Len(t, cfg.Backup.Remotes, 2)
	assert.Equal(t, "koofr-remote", cfg.Backup.Remotes[0].Name)
	assert.Equal(t, []string{"snapraid", "rclone"}, cfg.Backup.ConflictProcs)
	require.Len(t, cfg.Compose.Projects, 1)
	assert.Equal(t, "immich", cfg.Compose.Projects[0].Name)
	assert.Equal(t, []string{"/dev/sdb", "/dev/sdc"}, cfg.Smart.Devices)
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	baseDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf("default_homelab_directory: %s\n", baseDir))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, baseDir, cfg.LockDir, "lock dir falls back to the base dir")
	assert.Equal(t, "hosted", cfg.Perms.Group)
	assert.Equal(t, "2775", cfg.Perms.DirMode)
	assert.Equal(t, "664", cfg.Perms.FileMode)
	assert.Equal(t, "775", cfg.Perms.ExecFileMode)
	assert.Equal(t, 4, cfg.HTMLPack.Jobs)
	assert.Equal(t, 50, cfg.HTMLPack.BatchSize)
	assert.Equal(t, "htmlpack_part", cfg.HTMLPack.OutputPrefix)
	assert.Equal(t, 8, cfg.Backup.ScrubPercent)
	assert.Equal(t, 10, cfg.Backup.ScrubOlderDays)
	assert.Equal(t, "info", cfg.LogLevel, "invalid log level falls back silently")
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfigFile_MissingBaseDir(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")
	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_homelab_directory")
}

func TestLoadConfigFile_NonexistentBaseDir(t *testing.T) {
	path := writeConfig(t, "default_homelab_directory: /nope/missing\n")
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestLoadConfigFile_RemotesRequireSource(t *testing.T) {
	baseDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
default_homelab_directory: %s
backup:
  rclone_remotes:
    - name: koofr-remote
      dest: backups/pool
`, baseDir))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_directory")
}

func TestLoadConfigFile_RemoteMissingName(t *testing.T) {
	baseDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
default_homelab_directory: %s
backup:
  source_directory: /pool
  rclone_remotes:
    - dest: backups/pool
`, baseDir))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestLoadConfigFile_InvalidComposeProject(t *testing.T) {
	baseDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
default_homelab_directory: %s
compose:
  projects:
    - name: nodir
`, baseDir))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestLoadConfigFile_InvalidPermMode(t *testing.T) {
	baseDir := t.TempDir()
	path := writeConfig(t, fmt.Sprintf(`
default_homelab_directory: %s
perms:
  dir_mode: "99x"
`, baseDir))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestLoadConfigFile_BadYAML(t *testing.T) {
	path := writeConfig(t, "default_homelab_directory: [unclosed\n")
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestParseOctalMode(t *testing.T) {
	mode, err := ParseOctalMode("664")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0664), mode)

	mode, err = ParseOctalMode("2775")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0775)|os.ModeSetgid, mode)

	mode, err = ParseOctalMode("4755")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755)|os.ModeSetuid, mode)

	mode, err = ParseOctalMode("1777")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0777)|os.ModeSticky, mode)

	_, err = ParseOctalMode("abc")
	require.Error(t, err)
}

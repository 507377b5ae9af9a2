package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mbeisser1/homelab/sysutil"
)

// MailConfig holds SMTP submission settings shared by all report mail
type MailConfig struct {
	SMTPHost string   `yaml:"smtp_host"` // host:port
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// RcloneRemote names a configured rclone remote profile + destination path
type RcloneRemote struct {
	Name string `yaml:"name"` // e.g. koofr-remote
	Dest string `yaml:"dest"` // path on the remote
}

type BackupConfig struct {
	SourceDir       string         `yaml:"source_directory"`
	Remotes         []RcloneRemote `yaml:"rclone_remotes"`
	SnapraidConfig  string         `yaml:"snapraid_config"`
	ScrubPercent    int            `yaml:"scrub_percent"`
	ScrubOlderDays  int            `yaml:"scrub_older_than_days"`
	StrictScrub     bool           `yaml:"strict_scrub"`
	ConflictProcs   []string       `yaml:"conflicting_processes"`
	MailLogOnFinish bool           `yaml:"mail_log"`
}

type ComposeProject struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

type ComposeConfig struct {
	Projects []ComposeProject `yaml:"projects"`
}

type PermsConfig struct {
	Group        string `yaml:"group"`          // shared group, e.g. hosted
	DirMode      string `yaml:"dir_mode"`       // octal string, e.g. "2775"
	FileMode     string `yaml:"file_mode"`      // e.g. "664"
	ExecFileMode string `yaml:"exec_file_mode"` // e.g. "775"
}

type SmartConfig struct {
	Devices []string `yaml:"devices"`
}

type HTMLPackConfig struct {
	Jobs         int    `yaml:"jobs"`
	BatchSize    int    `yaml:"batch_size"`
	OutputPrefix string `yaml:"output_prefix"`
}

type ConfigFile struct {
	DefaultHomelabDir string `yaml:"default_homelab_directory"`
	LockDir           string `yaml:"lock_directory"`

	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTextColour bool   `yaml:"log_text_format_colouring"`

	EnableMetrics  bool   `yaml:"enable_metrics"`
	MetricsDir     string `yaml:"metrics_directory"`
	ListenAddress  string `yaml:"listen_address"`
	ListenDuration int    `yaml:"listen_duration"`

	Mail     MailConfig     `yaml:"mail"`
	Backup   BackupConfig   `yaml:"backup"`
	Compose  ComposeConfig  `yaml:"compose"`
	Perms    PermsConfig    `yaml:"perms"`
	Smart    SmartConfig    `yaml:"smart"`
	HTMLPack HTMLPackConfig `yaml:"htmlpack"`
}

// system-wide config reference path
const ConfigFilePointer = "/etc/.homelab-pointerfile.conf"

// determines configfile path based on global pointerfile
func GetConfigFilePath() (string, error) {
	// opens configfile pointer file to reference path to yamlfile
	pointerFileData, err := os.ReadFile(ConfigFilePointer)
	if err != nil {
		return "", fmt.Errorf("could not read %s: %v", ConfigFilePointer, err)
	}
	// strings data from pointerfile and gathers path location
	targetConfigPath := strings.TrimSpace(string(pointerFileData))
	if _, err := os.Stat(targetConfigPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file in path %s does not exist", targetConfigPath)
	}
	return targetConfigPath, nil
}

// parse & validate config file
func LoadConfigFile(targetConfigPath string) (*ConfigFile, error) {

	// read config data from config file
	configFileData, err := os.ReadFile(targetConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// unmarshal yaml into configfile var
	var config ConfigFile
	if err := yaml.Unmarshal(configFileData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	//> CFG FILE VALIDATIONS
	// validate that base homelab dir is defined & valid
	if config.DefaultHomelabDir == "" {
		return nil, fmt.Errorf("missing required config: default_homelab_directory")
	}
	if err := sysutil.ValidateDirectoryString(config.DefaultHomelabDir); err != nil {
		return nil, fmt.Errorf("invalid required config: default_homelab_directory: %v", err)
	}

	if config.LockDir == "" {
		config.LockDir = config.DefaultHomelabDir
	}

	// validate backup source when remotes are configured
	if len(config.Backup.Remotes) > 0 && config.Backup.SourceDir == "" {
		return nil, fmt.Errorf("missing required config: backup.source_directory")
	}
	for _, remote := range config.Backup.Remotes {
		if remote.Name == "" {
			return nil, fmt.Errorf("invalid backup.rclone_remotes entry: missing name")
		}
	}

	// validate compose project entries
	for _, project := range config.Compose.Projects {
		if project.Name == "" || project.Dir == "" {
			return nil, fmt.Errorf("invalid compose project entry: both name and dir are required")
		}
	}

	// perm policy defaults
	if config.Perms.Group == "" {
		config.Perms.Group = "hosted"
	}
	if config.Perms.DirMode == "" {
		config.Perms.DirMode = "2775"
	}
	if config.Perms.FileMode == "" {
		config.Perms.FileMode = "664"
	}
	if config.Perms.ExecFileMode == "" {
		config.Perms.ExecFileMode = "775"
	}
	for _, modeString := range []string{config.Perms.DirMode, config.Perms.FileMode, config.Perms.ExecFileMode} {
		if _, err := ParseOctalMode(modeString); err != nil {
			return nil, fmt.Errorf("invalid perms mode %q: %v", modeString, err)
		}
	}

	// htmlpack defaults
	if config.HTMLPack.Jobs <= 0 {
		config.HTMLPack.Jobs = 4
	}
	if config.HTMLPack.BatchSize <= 0 {
		config.HTMLPack.BatchSize = 50
	}
	if config.HTMLPack.OutputPrefix == "" {
		config.HTMLPack.OutputPrefix = "htmlpack_part"
	}

	// scrub defaults
	if config.Backup.ScrubPercent <= 0 {
		config.Backup.ScrubPercent = 8
	}
	if config.Backup.ScrubOlderDays <= 0 {
		config.Backup.ScrubOlderDays = 10
	}

	// validate log_level
	// warn if invalid, default to "info"
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	// walk map, if no keys match valid log levels then warn & set config.LogLevel to `info`
	if !validLogLevels[config.LogLevel] {
		log.Printf("invalid `log_level` supplied, defaulting to `info`")
		config.LogLevel = "info"
	}

	// validate log_format
	// warn if invalid, default to "text"
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[config.LogFormat] {
		log.Printf("invalid `log_format` supplied, defaulting to `text`")
		config.LogFormat = "text"
	}

	return &config, nil
}

// ParseOctalMode parses strings like "2775" or "664" into a file mode
func ParseOctalMode(modeString string) (os.FileMode, error) {
	parsed, err := strconv.ParseUint(modeString, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("not a valid octal mode: %v", err)
	}
	mode := os.FileMode(parsed & 0777)
	// translate setgid/setuid/sticky bits from the numeric form
	if parsed&04000 != 0 {
		mode |= os.ModeSetuid
	}
	if parsed&02000 != 0 {
		mode |= os.ModeSetgid
	}
	if parsed&01000 != 0 {
		mode |= os.ModeSticky
	}
	return mode, nil
}

// handles writes between true configfile at /etc/ and configfile reference in declared parent dir
func SaveTrueConfigReference(configFilePath string) error {
	return os.WriteFile(ConfigFilePointer, []byte(configFilePath), 0644)
}

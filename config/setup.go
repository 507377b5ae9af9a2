package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// sets up homelab parent dirs used for logs, metrics & locks
func InitEnvironment(configFile ConfigFile) (string, string, string) {
	var err error

	homelabBase := strings.TrimSuffix(configFile.DefaultHomelabDir, "/")
	metricsDir := configFile.MetricsDir
	if metricsDir == "" {
		metricsDir = filepath.Join(homelabBase, "metrics")
	}
	lockDir := configFile.LockDir
	if lockDir == "" {
		lockDir = homelabBase
	}

	if err = os.MkdirAll(homelabBase, 0755); err != nil {
		log.Fatalf("ERR: Error creating directory %s: %v", homelabBase, err)
	}
	if err = os.MkdirAll(metricsDir, 0755); err != nil {
		log.Fatalf("ERR: Error creating directory %s: %v", metricsDir, err)
	}
	if err = os.MkdirAll(lockDir, 0755); err != nil {
		log.Fatalf("ERR: Error creating directory %s: %v", lockDir, err)
	}

	return homelabBase, metricsDir, lockDir
}

// guided setup tool for initial init
func SetupTool() {

	fmt.Println("|----- Homelab Ops Setup -----|")
	fmt.Println("                               ")

	// prompt for root directory
	var rootDir string
	fmt.Println("Please specify the root directory for homelab logs, metrics & locks")
	fmt.Println("Leave blank for /var/homelab, which works in most cases")
	fmt.Print("Root directory (default: /var/homelab): ")
	fmt.Scanln(&rootDir)
	if rootDir == "" {
		rootDir = "/var/homelab"
	}

	rootDir = strings.TrimSuffix(rootDir, "/")
	if !strings.HasSuffix(rootDir, "homelab") {
		rootDir = filepath.Join(rootDir, "homelab")
	}
	fmt.Printf("Using root dir: %s\n", rootDir)

	configFile := ConfigFile{
		DefaultHomelabDir: rootDir,
	}
	homelabBase, metricsDir, lockDir := InitEnvironment(configFile)

	fmt.Printf("Root directory initialized at: %s\n", homelabBase)
	fmt.Printf("Metrics directory: %s\n", metricsDir)
	fmt.Printf("Lock directory: %s\n", lockDir)

	// check for existing config.yml
	configFilePath := filepath.Join(homelabBase, "config.yml")

	// if DNE then write the default config
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		if err := createDefaultConfig(configFilePath, rootDir); err != nil {
			log.Fatalf("ERROR: Failed to create config.yml %v", err)
		}
		fmt.Printf("Default config.yml created at %s\n", configFilePath)
	} else {
		fmt.Printf("Existing config.yml found at %s, leaving it alone\n", configFilePath)
	}

	// save true config at /etc/ reference
	if err := SaveTrueConfigReference(configFilePath); err != nil {
		log.Fatalf("ERROR: Failed to save true config reference: %v", err)
	}

	fmt.Println("Setup complete, edit config.yml before the first cron run")
}

// create default config and write to ./config.yml
func createDefaultConfig(configFilePath, rootDir string) error {
	// Template for default config.yml
	defaultConfig := fmt.Sprintf(`# [ LOCAL DEFAULTS ]
default_homelab_directory: %s
lock_directory: %s

# [ LOGGING ]
log_level: info       # 'debug', 'info', 'warn', 'error', 'fatal'
log_format: text      # 'json' or 'text'
log_text_format_colouring: true

# [ METRICS ]
enable_metrics: false
metrics_directory: %s/metrics
listen_address: 127.0.0.1:9812
listen_duration: 60

# [ MAIL ]
# reports are submitted over SMTP, leave smtp_host empty to disable mail
mail:
  smtp_host: 127.0.0.1:587
  from: homelab@bitrealm.dev
  to:
    - snapraid@bitrealm.dev
  username: ""
  password: ""

# [ BACKUP ]
backup:
  source_directory: /pool
  rclone_remotes:
    - name: koofr-remote
      dest: nas-backup
    - name: filen-remote
      dest: nas-backup
  snapraid_config: /etc/snapraid.conf
  scrub_percent: 8
  scrub_older_than_days: 10
  strict_scrub: false
  conflicting_processes:
    - snapraid
    - rclone
  mail_log: true

# [ COMPOSE ]
compose:
  projects: []
  # - name: jellyfin
  #   dir: /pool/hosted/jellyfin

# [ PERMISSIONS ]
perms:
  group: hosted
  dir_mode: "2775"
  file_mode: "664"
  exec_file_mode: "775"

# [ SMART ]
smart:
  devices:
    - /dev/sdb
    - /dev/sdc
    - /dev/sdd
    - /dev/sde

# [ HTMLPACK ]
htmlpack:
  jobs: 4
  batch_size: 50
  output_prefix: htmlpack_part
`, rootDir, rootDir, rootDir)

	// Write default config file
	return os.WriteFile(configFilePath, []byte(defaultConfig), 0644)
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/backup"
	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/lockfile"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/mailer"
	"github.com/mbeisser1/homelab/sysutil"
)

const tool = "poolbackup"

// main loop
func main() {
	// version & setup flags
	appVersion := flag.Bool("version", false, "Display app version information")
	initEnvBool := flag.Bool("setup", false, "Run setup utility")

	// core job flags
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")
	noMail := flag.Bool("no-mail", false, "Skip the completion mail even when mail_log is enabled")
	strictScrub := flag.Bool("strict-scrub", false, "Treat a scrub failure as fatal for this run")

	// custom help messaging
	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("poolbackup %s  ~  rclone + snapraid maintenance sequence\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Options]")
		fmt.Println("  -setup")
		fmt.Println("     Run setup utility to init the homelab environment (default is /var/homelab/)")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("  -no-mail")
		fmt.Println("     Skip the completion mail for this run")
		fmt.Println("  -strict-scrub")
		fmt.Println("     Abort the sequence when snapraid scrub fails")
		fmt.Println("\n[Sequence]")
		fmt.Println("  snapraid status (gate) -> rclone copy per remote (gate) ->")
		fmt.Println("  snapraid sync (gate) -> snapraid scrub -> snapraid status")
		fmt.Println("\n[Examples]")
		fmt.Println("  First time setup")
		fmt.Println("    poolbackup -setup")
		fmt.Println("\n  Nightly cron entry")
		fmt.Println("    15 3 * * * /usr/local/bin/poolbackup")
	}

	flag.Parse()

	// special flags
	if *appVersion {
		fmt.Printf("poolbackup version: %s\n", cli.Version)
		os.Exit(0)
	}
	if *initEnvBool {
		config.SetupTool()
		os.Exit(0)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	if *strictScrub {
		configFile.Backup.StrictScrub = true
	}

	jobCTX := job.NewJobContext(tool, configFile.Backup.SourceDir)
	coreFields := logger.CoreLogFields(jobCTX, "main")

	// single-flight guard, overlapping cron runs skip rather than double-run
	lock := lockfile.New(configFile.LockDir, tool)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			logger.LogxWithFields("info", "Another poolbackup run holds the lock, skipping this run", coreFields)
			os.Exit(0)
		}
		logger.LogxWithFields("fatal", fmt.Sprintf("Failed to acquire lock: %v", err), coreFields)
	}
	defer lock.Release()

	runner := sysutil.ExecRunner{}
	orchestrator := backup.NewOrchestrator(runner, configFile.Backup, jobCTX)

	// coarse mutual exclusion against unrelated maintenance scripts
	if err := orchestrator.CheckConflicts(); err != nil {
		logger.LogxWithFields("warn", fmt.Sprintf("Skipping run: %v", err), coreFields)
		os.Exit(0)
	}

	logger.LogxWithFields("info", "New backup job added", logger.MergeFields(coreFields, map[string]interface{}{
		"remotes": len(configFile.Backup.Remotes),
		"version": cli.Version,
	}))

	runErr := orchestrator.Run()
	success := runErr == nil
	if runErr != nil {
		logger.LogxWithFields("error", fmt.Sprintf("Backup sequence failed: %v", runErr), logger.MergeFields(coreFields, map[string]interface{}{
			"success": false,
		}))
	}

	// email the accumulated step log on completion, success or failure
	if configFile.Backup.MailLogOnFinish && !*noMail {
		message := orchestrator.BuildReportMail(success)
		if err := mailer.Send(configFile.Mail, message); err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("Failed to send report mail: %v", err), coreFields)
		}
	}

	cli.FinishRun(configFile, jobCTX, success, orchestrator.FailedSteps())

	if !success {
		os.Exit(1)
	}
}

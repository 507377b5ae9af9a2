package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/perms"
	"github.com/mbeisser1/homelab/sysutil"
)

const tool = "permfix"

func main() {
	appVersion := flag.Bool("version", false, "Display app version information")
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")
	targetDir := flag.String("target-dir", "", "Directory tree to normalize (required)")
	dryRun := flag.Bool("dry-run", false, "Print planned changes without applying them")

	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("permfix %s  ~  shared-group ownership & mode normalizer\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Options]")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("  -target-dir <dir>")
		fmt.Println("     Directory tree to normalize, usually somewhere under /pool")
		fmt.Println("  -dry-run")
		fmt.Println("     Print planned changes without applying them")
		fmt.Println("\n[Policy]")
		fmt.Println("  directories -> group <group>, setgid 2775")
		fmt.Println("  files       -> group <group>, 664 (775 when owner-executable)")
		fmt.Println("  git repos   -> core.sharedRepository=group")
		fmt.Println("\n[Examples]")
		fmt.Println("  permfix -target-dir /pool/hosted")
		fmt.Println("  permfix -target-dir /pool/hosted -dry-run")
	}

	flag.Parse()

	if *appVersion {
		fmt.Printf("permfix version: %s\n", cli.Version)
		os.Exit(0)
	}

	if *targetDir == "" {
		fmt.Println("ERROR: -target-dir is required")
		flag.Usage()
		os.Exit(1)
	}

	// chgrp/chmod on the pool require root
	if os.Geteuid() != 0 {
		fmt.Println("Please run permfix with sudo or as the root user")
		os.Exit(1)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	jobCTX := job.NewJobContext(tool, *targetDir)
	jobCTX.DryRun = *dryRun
	coreFields := logger.CoreLogFields(jobCTX, "main")

	policy, err := perms.NewPolicy(configFile.Perms)
	if err != nil {
		logger.LogxWithFields("fatal", fmt.Sprintf("Invalid permission policy: %v", err), coreFields)
	}

	logger.LogxWithFields("info", fmt.Sprintf("Normalizing %s to group %s", *targetDir, policy.Group), logger.MergeFields(coreFields, map[string]interface{}{
		"dry_run": *dryRun,
		"version": cli.Version,
	}))

	normalizer := perms.NewNormalizer(sysutil.ExecRunner{}, policy, jobCTX, *dryRun)
	if err := normalizer.Walk(*targetDir); err != nil {
		logger.LogxWithFields("error", fmt.Sprintf("Normalization failed: %v", err), coreFields)
		cli.FinishRun(configFile, jobCTX, false, normalizer.Failed)
		os.Exit(1)
	}

	cli.FinishRun(configFile, jobCTX, normalizer.Failed == 0, normalizer.Failed)

	if normalizer.Failed > 0 {
		os.Exit(1)
	}
}

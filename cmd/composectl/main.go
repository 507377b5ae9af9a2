package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/compose"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

const tool = "composectl"

// actions accepted as the single positional argument
var validActions = map[string]bool{
	"up":      true,
	"down":    true,
	"restart": true,
	"status":  true,
}

func main() {
	appVersion := flag.Bool("version", false, "Display app version information")
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")
	onlyProject := flag.String("project", "", "Limit the action to one named project")

	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("composectl %s  ~  docker compose lifecycle for fixed projects\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Usage]")
		fmt.Println("  composectl [flags] <up|down|restart|status>")
		fmt.Println("\n[Options]")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("  -project <name>")
		fmt.Println("     Limit the action to one named project from the config")
		fmt.Println("\n[Examples]")
		fmt.Println("  Bring every configured project up")
		fmt.Println("    composectl up")
		fmt.Println("\n  Stop a single project")
		fmt.Println("    composectl -project jellyfin down")
	}

	flag.Parse()

	if *appVersion {
		fmt.Printf("composectl version: %s\n", cli.Version)
		os.Exit(0)
	}

	action := flag.Arg(0)
	if !validActions[action] {
		fmt.Println("ERROR: action must be one of: up, down, restart, status")
		flag.Usage()
		os.Exit(1)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	projects := configFile.Compose.Projects
	if *onlyProject != "" {
		found := false
		for _, project := range projects {
			if project.Name == *onlyProject {
				projects = projects[:0:0]
				projects = append(projects, project)
				found = true
				break
			}
		}
		if !found {
			fmt.Printf("ERROR: project %q not found in config\n", *onlyProject)
			os.Exit(1)
		}
	}

	jobCTX := job.NewJobContext(tool, action)
	coreFields := logger.CoreLogFields(jobCTX, "main")

	logger.LogxWithFields("info", fmt.Sprintf("Applying %s to %d project(s)", action, len(projects)), logger.MergeFields(coreFields, map[string]interface{}{
		"action":  action,
		"version": cli.Version,
	}))

	manager := compose.NewManager(sysutil.ExecRunner{}, projects, jobCTX)
	failed := manager.Apply(action)

	cli.FinishRun(configFile, jobCTX, failed == 0, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/mailer"
	"github.com/mbeisser1/homelab/smart"
	"github.com/mbeisser1/homelab/sysutil"
)

const tool = "smartreport"

func main() {
	appVersion := flag.Bool("version", false, "Display app version information")
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")
	noMail := flag.Bool("no-mail", false, "Print the report status without sending mail")

	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("smartreport %s  ~  smartctl health report over mail\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Options]")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("  -no-mail")
		fmt.Println("     Collect & log the report without sending mail")
		fmt.Println("\n[Examples]")
		fmt.Println("  Weekly cron entry")
		fmt.Println("    0 7 * * 1 /usr/local/bin/smartreport")
	}

	flag.Parse()

	if *appVersion {
		fmt.Printf("smartreport version: %s\n", cli.Version)
		os.Exit(0)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	if len(configFile.Smart.Devices) == 0 {
		fmt.Println("ERROR: no devices configured under smart.devices")
		os.Exit(1)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	jobCTX := job.NewJobContext(tool, host)
	coreFields := logger.CoreLogFields(jobCTX, "main")

	logger.LogxWithFields("info", fmt.Sprintf("Collecting SMART data from %d device(s)", len(configFile.Smart.Devices)), logger.MergeFields(coreFields, map[string]interface{}{
		"version": cli.Version,
	}))

	collector := smart.NewCollector(sysutil.ExecRunner{}, jobCTX)

	var reports []smart.DriveReport
	alerts := 0
	for _, device := range configFile.Smart.Devices {
		report := collector.Collect(device)
		if report.HasAlert() {
			alerts++
		}
		reports = append(reports, report)
	}

	message := smart.BuildMail(host, reports)
	status := "OK"
	if alerts > 0 {
		status = "ALERT"
	}

	if *noMail {
		logger.LogxWithFields("info", fmt.Sprintf("SMART report %s (%d drives, %d alerts), mail skipped", status, len(reports), alerts), coreFields)
	} else if err := mailer.Send(configFile.Mail, message); err != nil {
		logger.LogxWithFields("error", fmt.Sprintf("Failed to send SMART report: %v", err), coreFields)
		cli.FinishRun(configFile, jobCTX, false, alerts)
		os.Exit(1)
	} else {
		logger.LogxWithFields("info", fmt.Sprintf("SMART report sent (%s)", status), logger.MergeFields(coreFields, map[string]interface{}{
			"alerts": alerts,
		}))
	}

	cli.FinishRun(configFile, jobCTX, alerts == 0, alerts)

	if alerts > 0 {
		os.Exit(1)
	}
}

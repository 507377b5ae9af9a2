package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/htmlpack"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/sysutil"
)

const tool = "htmlpack"

func main() {
	appVersion := flag.Bool("version", false, "Display app version information")
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")
	srcDir := flag.String("src", "", "Source tree containing HTML files (required)")
	dstDir := flag.String("dst", "", "Destination tree for converted files (convert mode)")
	jobs := flag.Int("jobs", 0, "Max concurrent conversions, overrides config")
	zipMode := flag.Bool("zip", false, "Package HTML + assets into batch zips instead of converting")
	zipOut := flag.String("zip-out", ".", "Output directory for batch zips")
	batchSize := flag.Int("batch-size", 0, "HTML files per zip, overrides config")

	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("htmlpack %s  ~  self-contained HTML conversion & batch packaging\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Options]")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("  -src <dir>")
		fmt.Println("     Source tree to scan for *.html files")
		fmt.Println("  -dst <dir>")
		fmt.Println("     Destination tree for converted output (convert mode)")
		fmt.Println("  -jobs <n>")
		fmt.Println("     Max conversions in flight")
		fmt.Println("  -zip")
		fmt.Println("     Batch-zip mode: package HTML + referenced assets into archives")
		fmt.Println("  -zip-out <dir>")
		fmt.Println("     Where batch zips are written (default: current directory)")
		fmt.Println("  -batch-size <n>")
		fmt.Println("     HTML files per zip archive")
		fmt.Println("\n[Examples]")
		fmt.Println("  Convert a notes export to self-contained HTML")
		fmt.Println("    htmlpack -src /pool/notes/export -dst /pool/notes/standalone -jobs 8")
		fmt.Println("\n  Package an export into 50-file zips, resumable")
		fmt.Println("    htmlpack -src /pool/notes/export -zip -zip-out /pool/outbox")
	}

	flag.Parse()

	if *appVersion {
		fmt.Printf("htmlpack version: %s\n", cli.Version)
		os.Exit(0)
	}

	if *srcDir == "" {
		fmt.Println("ERROR: -src is required")
		flag.Usage()
		os.Exit(1)
	}
	if !*zipMode && *dstDir == "" {
		fmt.Println("ERROR: -dst is required in convert mode")
		flag.Usage()
		os.Exit(1)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	if *jobs <= 0 {
		*jobs = configFile.HTMLPack.Jobs
	}
	if *batchSize <= 0 {
		*batchSize = configFile.HTMLPack.BatchSize
	}

	jobCTX := job.NewJobContext(tool, *srcDir)
	coreFields := logger.CoreLogFields(jobCTX, "main")

	if *zipMode {
		// archives & the resume state file both need writeable directories
		if err := sysutil.ValidateDirectoryWriteable(*zipOut); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
		if err := sysutil.ValidateDirectoryWriteable(*srcDir); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
		batcher := htmlpack.NewBatcher(*srcDir, *zipOut, configFile.HTMLPack.OutputPrefix, *batchSize, jobCTX)
		archives, err := batcher.Run()
		if err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("Batch packaging failed after %d archive(s): %v", archives, err), coreFields)
			cli.FinishRun(configFile, jobCTX, false, 1)
			os.Exit(1)
		}
		cli.FinishRun(configFile, jobCTX, true, 0)
		return
	}

	converter := htmlpack.NewConverter(sysutil.ExecRunner{}, jobCTX, *jobs)
	_, failed, err := converter.ConvertTree(*srcDir, *dstDir)
	if err != nil {
		logger.LogxWithFields("error", fmt.Sprintf("Conversion run failed: %v", err), coreFields)
		cli.FinishRun(configFile, jobCTX, false, failed)
		os.Exit(1)
	}

	cli.FinishRun(configFile, jobCTX, failed == 0, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

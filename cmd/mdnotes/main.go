package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbeisser1/homelab/cli"
	"github.com/mbeisser1/homelab/job"
	"github.com/mbeisser1/homelab/logger"
	"github.com/mbeisser1/homelab/notes"
)

const tool = "mdnotes"

func main() {
	appVersion := flag.Bool("version", false, "Display app version information")
	configPath := flag.String("config", "", "Path to config.yml (default: /etc pointer file)")

	// concat flags
	concatDir := flag.String("concat", "", "Concatenate .md files in this directory into <Dir>.md by Created date")
	recursive := flag.Bool("recursive", false, "Process the directory and all subdirectories")
	deleteSources := flag.Bool("delete", false, "Delete source .md files after writing the combined file")

	// fixer flags
	fixTitles := flag.String("fix-titles", "", "Normalize malformed title blocks in this markdown file")
	fixHeaders := flag.String("fix-headers", "", "Move leading Created table rows under the first H1 across this tree")
	force := flag.Bool("force", false, "Rewrite headers even when a **Created:** line already exists")
	write := flag.Bool("write", false, "Apply header fixes in place (otherwise dry-run)")

	dryRun := flag.Bool("dry-run", false, "Print planned changes without writing or deleting")

	flag.Usage = func() {
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Printf("mdnotes %s  ~  markdown note maintenance\n", cli.Version)
		fmt.Println("-------------------------------------------------------------------------")
		fmt.Println("[Options]")
		fmt.Println("  -version")
		fmt.Println("     Display app version information")
		fmt.Println("  -config <file>")
		fmt.Println("     Explicit config.yml path, overrides the /etc pointer file")
		fmt.Println("\n  [Concat]")
		fmt.Println("  -concat <dir>")
		fmt.Println("     Concatenate .md files into <Dir>.md sorted by **Created:** date")
		fmt.Println("  -recursive")
		fmt.Println("     One combined file per directory under the root")
		fmt.Println("  -delete")
		fmt.Println("     Delete source files after writing the combined file")
		fmt.Println("\n  [Fixers]")
		fmt.Println("  -fix-titles <file>")
		fmt.Println("     Collapse malformed export title blocks into '# Title' + '**Created:** date'")
		fmt.Println("  -fix-headers <dir>")
		fmt.Println("     Move '| Created | ... |' table rows under the first H1 (dry-run unless -write)")
		fmt.Println("  -force / -write")
		fmt.Println("     Header fixer modifiers")
		fmt.Println("\n  -dry-run")
		fmt.Println("     Preview concat & title fixes without writing")
		fmt.Println("\n[Examples]")
		fmt.Println("  mdnotes -concat /pool/notes/journal -recursive -dry-run")
		fmt.Println("  mdnotes -fix-titles /pool/notes/appointments.md")
		fmt.Println("  mdnotes -fix-headers /pool/notes -write")
	}

	flag.Parse()

	if *appVersion {
		fmt.Printf("mdnotes version: %s\n", cli.Version)
		os.Exit(0)
	}

	modes := 0
	for _, mode := range []string{*concatDir, *fixTitles, *fixHeaders} {
		if mode != "" {
			modes++
		}
	}
	if modes != 1 {
		fmt.Println("ERROR: exactly one of -concat, -fix-titles or -fix-headers is required")
		flag.Usage()
		os.Exit(1)
	}

	configFile, err := cli.Bootstrap(tool, *configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	jobCTX := job.NewJobContext(tool, *concatDir+*fixTitles+*fixHeaders)
	jobCTX.DryRun = *dryRun
	coreFields := logger.CoreLogFields(jobCTX, "main")

	switch {
	case *concatDir != "":
		opts := notes.ConcatOptions{
			Recursive:     *recursive,
			DeleteSources: *deleteSources && !*dryRun,
			DryRun:        *dryRun,
		}
		if err := notes.WalkAndProcess(*concatDir, opts); err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("Concat failed: %v", err), coreFields)
			cli.FinishRun(configFile, jobCTX, false, 1)
			os.Exit(1)
		}

	case *fixTitles != "":
		if _, err := notes.FixTitleFile(*fixTitles, *dryRun); err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("Title fix failed: %v", err), coreFields)
			cli.FinishRun(configFile, jobCTX, false, 1)
			os.Exit(1)
		}

	case *fixHeaders != "":
		opts := notes.FixHeaderOptions{Write: *write, Force: *force}
		scanned, changed, err := notes.FixHeaderTree(*fixHeaders, opts)
		if err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("Header fix failed: %v", err), coreFields)
			cli.FinishRun(configFile, jobCTX, false, 1)
			os.Exit(1)
		}
		logger.LogxWithFields("info", fmt.Sprintf("Header fix done, scanned %d, changed %d", scanned, changed), coreFields)
	}

	cli.FinishRun(configFile, jobCTX, true, 0)
}

package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mbeisser1/homelab/logger"
)

// undated files sort last
const undatedSentinel = "9999-99-99"

// primary format: "**Created:** 2016-11-13"
var createdBoldRe = regexp.MustCompile(`(?i)^\s*\*\*\s*Created\s*:\s*\*\*\s*([0-9]{4}-[0-9]{2}-[0-9]{2})\s*$`)

// backward-compat formats
var createdTableRe = regexp.MustCompile(`(?i)^\|\s*Created\s*\|\s*([0-9]{4}-[0-9]{2}-[0-9]{2})\s*\|\s*$`)
var createdLegacyRe = regexp.MustCompile(`(?i)^\s*Created\s*at\s*:\s*([0-9]{4}-[0-9]{2}-[0-9]{2})\s*$`)

// ExtractCreatedDate pulls the Created date (YYYY-MM-DD) out of a markdown
// file, supporting the bold, table & legacy formats. Missing dates return
// the sentinel so undated files sort last.
func ExtractCreatedDate(mdPath string) string {
	data, err := os.ReadFile(mdPath)
	if err != nil {
		return undatedSentinel
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		for _, re := range []*regexp.Regexp{createdBoldRe, createdTableRe, createdLegacyRe} {
			if match := re.FindStringSubmatch(trimmed); match != nil {
				return match[1]
			}
		}
	}
	return undatedSentinel
}

type datedFile struct {
	date string
	path string
}

// ConcatOptions controls the per-directory concat behaviour
type ConcatOptions struct {
	Recursive     bool
	DeleteSources bool
	DryRun        bool
}

// ProcessDirectory concatenates all .md files in dir (excluding the output
// file itself) into <DirName>.md, sorted by Created date then filename.
// Returns true when work was (or would be) done.
func ProcessDirectory(dirPath string, opts ConcatOptions) (bool, error) {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return false, nil
	}

	folderName := filepath.Base(dirPath)
	outFile := filepath.Join(dirPath, folderName+".md")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return false, fmt.Errorf("reading %s: %v", dirPath, err)
	}

	// gather *.md files, excluding the output file (re-runs safe)
	var dated []datedFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if entry.Name() == filepath.Base(outFile) {
			continue
		}
		path := filepath.Join(dirPath, entry.Name())
		dated = append(dated, datedFile{date: ExtractCreatedDate(path), path: path})
	}
	if len(dated) == 0 {
		return false, nil
	}

	// sort by date then by filename for stability
	sort.Slice(dated, func(i, j int) bool {
		if dated[i].date != dated[j].date {
			return dated[i].date < dated[j].date
		}
		return filepath.Base(dated[i].path) < filepath.Base(dated[j].path)
	})

	fields := map[string]interface{}{
		"package": "notes",
		"dir":     dirPath,
		"files":   len(dated),
	}

	if opts.DryRun {
		logger.LogxWithFields("info", fmt.Sprintf("[dry-run] would write %s from %d files", outFile, len(dated)), fields)
		for _, df := range dated {
			logger.LogxWithFields("info", fmt.Sprintf("[dry-run]   %s  %s", df.date, filepath.Base(df.path)), fields)
		}
		return true, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", folderName)
	for _, df := range dated {
		fmt.Fprintf(&sb, "# %s\n", strings.TrimSuffix(filepath.Base(df.path), ".md"))
		content, err := os.ReadFile(df.path)
		if err != nil {
			fmt.Fprintf(&sb, "_Error reading %s: %v_\n", filepath.Base(df.path), err)
		} else {
			sb.Write(content)
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(outFile, []byte(sb.String()), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %v", outFile, err)
	}
	logger.LogxWithFields("info", fmt.Sprintf("Wrote %s", outFile), fields)

	// optionally delete originals
	if opts.DeleteSources {
		for _, df := range dated {
			if err := os.Remove(df.path); err != nil {
				logger.LogxWithFields("warn", fmt.Sprintf("Could not delete %s: %v", df.path, err), fields)
			}
		}
	}

	return true, nil
}

// WalkAndProcess runs the concat over root, optionally descending into
// every subdirectory (one output per directory)
func WalkAndProcess(root string, opts ConcatOptions) error {
	if opts.DryRun && opts.DeleteSources {
		logger.LogxWithFields("info", "dry-run specified, deletes will be skipped", map[string]interface{}{
			"package": "notes",
		})
	}

	processedAny := false

	process := func(dir string) error {
		done, err := ProcessDirectory(dir, opts)
		if err != nil {
			return err
		}
		processedAny = processedAny || done
		return nil
	}

	if err := process(root); err != nil {
		return err
	}

	if opts.Recursive {
		var subDirs []string
		err := filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() && path != root {
				subDirs = append(subDirs, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %s: %v", root, err)
		}
		sort.Strings(subDirs)
		for _, dir := range subDirs {
			if err := process(dir); err != nil {
				return err
			}
		}
	}

	if !processedAny {
		logger.LogxWithFields("info", "No markdown files found to process", map[string]interface{}{
			"package": "notes",
			"root":    root,
		})
	}
	return nil
}

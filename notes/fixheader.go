package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mbeisser1/homelab/logger"
)

// exports sometimes lead with a `| Created | ... |` table row before the
// first heading; it belongs under the H1 as a `**Created:** ...` line
var (
	createdRowRe  = regexp.MustCompile(`(?i)^\s*\|\s*Created\s*\|\s*([^\|]+?)\s*\|\s*$`)
	h1HeadingRe   = regexp.MustCompile(`^\s*#\s+.*$`)
	isoDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	createdBoldLC = "**created:**"
)

// TransformHeader moves a leading Created table row under the first H1.
// Returns empty string when no change applies. With force, an existing
// **Created:** line is replaced instead of skipped.
func TransformHeader(text string, force bool) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return ""
	}

	// strip a BOM on the first line
	lines[0] = strings.TrimPrefix(lines[0], "\ufeff")

	i := 0
	for i < len(lines) && isBlank(lines[i]) {
		i++
	}
	if i >= len(lines) {
		return ""
	}

	createdMatch := createdRowRe.FindStringSubmatch(lines[i])
	if createdMatch == nil {
		return ""
	}
	rawDate := strings.TrimSpace(createdMatch[1])
	// prefer YYYY-MM-DD if present, else keep raw text
	if iso := isoDateRe.FindString(rawDate); iso != "" {
		rawDate = iso
	}

	i++
	for i < len(lines) && isBlank(lines[i]) {
		i++
	}
	if i >= len(lines) {
		return ""
	}

	// require a first-level heading next
	if !h1HeadingRe.MatchString(lines[i]) {
		return ""
	}
	headingLine := strings.TrimRight(lines[i], " \t")
	i++

	// check if a Created line already exists right after the H1
	j := i
	for j < len(lines) && isBlank(lines[j]) {
		j++
	}
	if j < len(lines) && strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[j])), createdBoldLC) {
		if !force {
			// already transformed
			return ""
		}
		// drop the existing created line, plus one optional blank after it
		j++
		if j < len(lines) && isBlank(lines[j]) {
			j++
		}
		i = j
	}

	out := []string{headingLine, "**Created:** " + rawDate, ""}
	out = append(out, lines[i:]...)

	newText := strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
	if newText == text {
		return ""
	}
	return newText
}

// FixHeaderOptions controls the tree-wide header fix
type FixHeaderOptions struct {
	Write bool // apply in place, otherwise dry-run
	Force bool
}

// FixHeaderTree scans root for *.md files and applies the header transform.
// Returns scanned & changed counts.
func FixHeaderTree(root string, opts FixHeaderOptions) (int, int, error) {
	scanned, changed := 0, 0

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			return nil
		}
		scanned++

		fields := map[string]interface{}{
			"package": "notes",
			"file":    path,
		}

		original, err := os.ReadFile(path)
		if err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("read failed %s: %v", path, err), fields)
			return nil
		}

		newText := TransformHeader(string(original), opts.Force)
		if newText == "" {
			return nil
		}
		changed++

		if !opts.Write {
			logger.LogxWithFields("info", fmt.Sprintf("[dry-run] would change %s", path), fields)
			return nil
		}
		if err := os.WriteFile(path, []byte(newText), 0644); err != nil {
			logger.LogxWithFields("error", fmt.Sprintf("write failed %s: %v", path, err), fields)
			return nil
		}
		logger.LogxWithFields("info", fmt.Sprintf("Rewrote header in %s", path), fields)
		return nil
	})
	if err != nil {
		return scanned, changed, fmt.Errorf("walking %s: %v", root, err)
	}

	return scanned, changed, nil
}

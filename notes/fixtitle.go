package notes

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mbeisser1/homelab/logger"
)

// a malformed export block looks like:
//
//	## Appointment 2019 Jan 20 (2020-01-19)
//	# 2020-01-19
//	**Created:**
//	# Appointment 2019 Jan 20
//
// and is collapsed into:
//
//	# Appointment 2019 Jan 20
//	**Created:** 2020-01-19
var (
	h2ParenDateRe = regexp.MustCompile(`^\s*##\s+(.+?)\s*\(\s*(\d{4}-\d{2}-\d{2})\s*\)\s*$`)
	h1DateOnlyRe  = regexp.MustCompile(`^\s*#\s+(\d{4}-\d{2}-\d{2})\s*$`)
	createdLineRe = regexp.MustCompile(`^\s*\*\*Created:\*\*\s*(.*?)\s*$`)
	h1TitleRe     = regexp.MustCompile(`^\s*#\s+(.+?)\s*$`)
)

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// preserve Windows newlines if present
func detectNewlineStyle(text string) string {
	if strings.Contains(text, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// tryMatchBlock attempts to match the full 4-line block (blank lines allowed
// between) starting at lines[start]. Returns matched, end index (exclusive),
// final title and date.
func tryMatchBlock(lines []string, start int) (bool, int, string, string) {
	i := start
	n := len(lines)

	// 1) H2 with paren date
	if i >= n {
		return false, 0, "", ""
	}
	h2Match := h2ParenDateRe.FindStringSubmatch(lines[i])
	if h2Match == nil {
		return false, 0, "", ""
	}
	i++

	for i < n && isBlank(lines[i]) {
		i++
	}

	// 2) H1 with date
	if i >= n {
		return false, 0, "", ""
	}
	h1DateMatch := h1DateOnlyRe.FindStringSubmatch(lines[i])
	if h1DateMatch == nil {
		return false, 0, "", ""
	}
	dateH1 := h1DateMatch[1]
	i++

	for i < n && isBlank(lines[i]) {
		i++
	}

	// 3) **Created:** line (may be empty content)
	if i >= n {
		return false, 0, "", ""
	}
	if createdLineRe.FindStringSubmatch(lines[i]) == nil {
		return false, 0, "", ""
	}
	i++

	for i < n && isBlank(lines[i]) {
		i++
	}

	// 4) H1 final title
	if i >= n {
		return false, 0, "", ""
	}
	h1TitleMatch := h1TitleRe.FindStringSubmatch(lines[i])
	if h1TitleMatch == nil {
		return false, 0, "", ""
	}

	finalTitle := strings.TrimSpace(h1TitleMatch[1])
	end := i + 1

	// prefer the H1 date, the H2 paren date is the fallback
	finalDate := dateH1
	if finalDate == "" {
		finalDate = h2Match[2]
	}
	return true, end, finalTitle, finalDate
}

// TransformTitles normalizes every matching block in text, returning the new
// text and the replacement count. Newline style & trailing newline survive.
func TransformTitles(text string) (string, int) {
	nl := detectNewlineStyle(text)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	// strip the artificial trailing element from a trailing newline
	hadTrailingNewline := strings.HasSuffix(text, "\n")
	if hadTrailingNewline && len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var out []string
	replaced := 0
	i := 0
	for i < len(lines) {
		matched, endIdx, title, date := tryMatchBlock(lines, i)
		if matched {
			// replace entire block with the two normalized lines
			out = append(out, "# "+title)
			out = append(out, "**Created:** "+date)
			replaced++
			i = endIdx
		} else {
			out = append(out, lines[i])
			i++
		}
	}

	result := strings.Join(out, nl)
	if hadTrailingNewline {
		result += nl
	}
	return result, replaced
}

// FixTitleFile applies the transform to one markdown file
func FixTitleFile(path string, dryRun bool) (int, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %v", path, err)
	}

	newText, count := TransformTitles(string(original))

	fields := map[string]interface{}{
		"package": "notes",
		"file":    path,
		"blocks":  count,
	}

	if dryRun {
		logger.LogxWithFields("info", fmt.Sprintf("[dry-run] %s: would fix %d block(s)", path, count), fields)
		return count, nil
	}
	if count == 0 {
		logger.LogxWithFields("debug", fmt.Sprintf("%s: no changes", path), fields)
		return 0, nil
	}

	if err := os.WriteFile(path, []byte(newText), 0644); err != nil {
		return 0, fmt.Errorf("writing %s: %v", path, err)
	}
	logger.LogxWithFields("info", fmt.Sprintf("%s: fixed %d block(s)", path, count), fields)
	return count, nil
}

package notes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const malformedBlock = `## Appointment 2019 Jan 20 (2020-01-19)

# 2020-01-19

**Created:**

# Appointment 2019 Jan 20

body text
`

func TestTransformTitles_Basic(t *testing.T) {
	out, count := TransformTitles(malformedBlock)
	assert.Equal(t, 1, count)
	assert.Equal(t, "# Appointment 2019 Jan 20\n**Created:** 2020-01-19\n\nbody text\n", out)
}

func TestTransformTitles_NoBlankLines(t *testing.T) {
	in := "## Note (2021-05-05)\n# 2021-05-05\n**Created:**\n# Note\nbody\n"
	out, count := TransformTitles(in)
	assert.Equal(t, 1, count)
	assert.Equal(t, "# Note\n**Created:** 2021-05-05\nbody\n", out)
}

func TestTransformTitles_MultipleBlocks(t *testing.T) {
	in := strings.Repeat(malformedBlock+"\n", 3)
	_, count := TransformTitles(in)
	assert.Equal(t, 3, count)
}

func TestTransformTitles_NoMatchUnchanged(t *testing.T) {
	in := "# Perfectly fine note\n**Created:** 2020-01-19\n\nbody\n"
	out, count := TransformTitles(in)
	assert.Equal(t, 0, count)
	assert.Equal(t, in, out)
}

func TestTransformTitles_PartialBlockUnchanged(t *testing.T) {
	// an H2 with a paren date but no following H1 date is left alone
	in := "## Note (2021-05-05)\n\nbody only\n"
	out, count := TransformTitles(in)
	assert.Equal(t, 0, count)
	assert.Equal(t, in, out)
}

func TestTransformTitles_PreservesCRLF(t *testing.T) {
	in := strings.ReplaceAll(malformedBlock, "\n", "\r\n")
	out, count := TransformTitles(in)
	assert.Equal(t, 1, count)
	assert.Contains(t, out, "# Appointment 2019 Jan 20\r\n**Created:** 2020-01-19\r\n")
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n", "no bare newlines in a crlf file")
}

func TestTransformTitles_NoTrailingNewline(t *testing.T) {
	in := strings.TrimSuffix(malformedBlock, "\n")
	out, count := TransformTitles(in)
	assert.Equal(t, 1, count)
	assert.False(t, strings.HasSuffix(out, "\n"), "missing trailing newline stays missing")
}

func TestFixTitleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte(malformedBlock), 0644))

	count, err := FixTitleFile(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Appointment 2019 Jan 20\n**Created:** 2020-01-19\n"))
}

func TestFixTitleFile_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte(malformedBlock), 0644))

	count, err := FixTitleFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, malformedBlock, string(data), "dry-run must not rewrite the file")
}

func TestFixTitleFile_Missing(t *testing.T) {
	_, err := FixTitleFile(filepath.Join(t.TempDir(), "nope.md"), false)
	require.Error(t, err)
}

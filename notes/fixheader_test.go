package notes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformHeader_Basic(t *testing.T) {
	in := "| Created | 2019-02-01 |\n\n# Meeting Notes\nbody\n"
	out := TransformHeader(in, false)
	assert.Equal(t, "# Meeting Notes\n**Created:** 2019-02-01\n\nbody\n", out)
}

func TestTransformHeader_ExtractsISODate(t *testing.T) {
	in := "| Created | Monday 2019-02-01 10:30 |\n# Notes\nbody\n"
	out := TransformHeader(in, false)
	assert.Contains(t, out, "**Created:** 2019-02-01\n")
}

func TestTransformHeader_KeepsRawTextWithoutISODate(t *testing.T) {
	in := "| Created | last spring |\n# Notes\nbody\n"
	out := TransformHeader(in, false)
	assert.Contains(t, out, "**Created:** last spring\n")
}

func TestTransformHeader_NoCreatedRow(t *testing.T) {
	in := "# Notes\n\nbody\n"
	assert.Empty(t, TransformHeader(in, false))
}

func TestTransformHeader_NoHeadingAfterRow(t *testing.T) {
	in := "| Created | 2019-02-01 |\n\nplain text, no heading\n"
	assert.Empty(t, TransformHeader(in, false))
}

func TestTransformHeader_AlreadyTransformed(t *testing.T) {
	in := "| Created | 2019-02-01 |\n# Notes\n**Created:** 2018-01-01\nbody\n"
	assert.Empty(t, TransformHeader(in, false), "existing Created line skips the file")

	out := TransformHeader(in, true)
	assert.Contains(t, out, "**Created:** 2019-02-01\n")
	assert.NotContains(t, out, "2018-01-01", "force replaces the stale Created line")
}

func TestTransformHeader_StripsBOM(t *testing.T) {
	in := "\ufeff| Created | 2019-02-01 |\n# Notes\nbody\n"
	out := TransformHeader(in, false)
	assert.Contains(t, out, "# Notes\n**Created:** 2019-02-01\n")
	assert.NotContains(t, out, "\ufeff")
}

func TestFixHeaderTree(t *testing.T) {
	root := t.TempDir()
	fixable := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(fixable, []byte("| Created | 2019-02-01 |\n# A\nbody\n"), 0644))
	clean := filepath.Join(root, "sub", "b.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(clean), 0755))
	require.NoError(t, os.WriteFile(clean, []byte("# B\nbody\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not markdown"), 0644))

	// dry-run counts but leaves files alone
	scanned, changed, err := FixHeaderTree(root, FixHeaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, scanned)
	assert.Equal(t, 1, changed)

	data, err := os.ReadFile(fixable)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Created |")

	// write mode applies
	_, changed, err = FixHeaderTree(root, FixHeaderOptions{Write: true})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	data, err = os.ReadFile(fixable)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# A\n**Created:** 2019-02-01\n")

	// second write pass is a no-op
	_, changed, err = FixHeaderTree(root, FixHeaderOptions{Write: true})
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lock := New(dir, "poolbackup")

	require.NoError(t, lock.Acquire())
	assert.FileExists(t, lock.Path())

	data, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	require.NoError(t, lock.Release())
}

func TestSecondHolderGetsErrHeld(t *testing.T) {
	dir := t.TempDir()
	first := New(dir, "poolbackup")
	second := New(dir, "poolbackup")

	require.NoError(t, first.Acquire())
	err := second.Acquire()
	assert.ErrorIs(t, err, ErrHeld)

	// releasing the first holder frees the lock
	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestDifferentNamesDoNotConflict(t *testing.T) {
	dir := t.TempDir()
	backupLock := New(dir, "poolbackup")
	smartLock := New(dir, "smartreport")

	require.NoError(t, backupLock.Acquire())
	require.NoError(t, smartLock.Acquire())

	backupLock.Release()
	smartLock.Release()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	lock := New(t.TempDir(), "poolbackup")
	assert.NoError(t, lock.Release())
}

func TestAcquireCreatesLockDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks", "nested")
	lock := New(dir, "poolbackup")
	require.NoError(t, lock.Acquire())
	defer lock.Release()
	assert.DirExists(t, dir)
}

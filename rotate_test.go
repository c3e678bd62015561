package hiviz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRotatingFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	f := newRotatingFile(path)
	defer f.close()

	rotated, err := f.write([]byte("hello\n"), 0, 0)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, "hello\n", readFile(t, path))
}

func TestRotatingFileAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	f := newRotatingFile(path)
	_, err := f.write([]byte("new\n"), 1024, 1)
	require.NoError(t, err)
	require.NoError(t, f.close())

	assert.Equal(t, "old\nnew\n", readFile(t, path))
}

func TestRotatingFileOneRotationPerCrossing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	f := newRotatingFile(path)
	defer f.close()

	line := []byte(strings.Repeat("x", 59) + "\n") // 60 bytes

	rotated, err := f.write(line, 100, 3)
	require.NoError(t, err)
	assert.False(t, rotated)

	rotated, err = f.write(line, 100, 3) // 120 > 100
	require.NoError(t, err)
	assert.True(t, rotated)

	assert.Equal(t, strings.Repeat(string(line), 2), readFile(t, backupName(path, 1)))
	assert.Empty(t, readFile(t, path))

	rotated, err = f.write(line, 100, 3)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.NoFileExists(t, backupName(path, 2))
}

func TestRotatingFileDiscardsOldestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	f := newRotatingFile(path)
	defer f.close()

	const backups = 3
	// each write crosses the limit on its own, so each one rotates
	for i := 1; i <= backups+1; i++ {
		rotated, err := f.write([]byte(strings.Repeat(string(rune('0'+i)), 20)+"\n"), 10, backups)
		require.NoError(t, err)
		require.True(t, rotated)
	}

	// newest first: .1 holds write 4, .3 holds write 2, write 1 is gone
	assert.True(t, strings.HasPrefix(readFile(t, backupName(path, 1)), "4"))
	assert.True(t, strings.HasPrefix(readFile(t, backupName(path, 2)), "3"))
	assert.True(t, strings.HasPrefix(readFile(t, backupName(path, 3)), "2"))
	assert.NoFileExists(t, backupName(path, 4))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, backups+1)
}

func TestRotatingFileWithoutBackupsTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	f := newRotatingFile(path)
	defer f.close()

	rotated, err := f.write([]byte(strings.Repeat("a", 30)+"\n"), 10, 0)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.Empty(t, readFile(t, path))
	assert.NoFileExists(t, backupName(path, 1))

	_, err = f.write([]byte("b\n"), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "b\n", readFile(t, path))
}

func TestRotatingFileNoLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	f := newRotatingFile(path)
	defer f.close()

	for i := 0; i < 100; i++ {
		rotated, err := f.write([]byte("line\n"), 0, 5)
		require.NoError(t, err)
		require.False(t, rotated)
	}
	assert.Equal(t, 500, len(readFile(t, path)))
}

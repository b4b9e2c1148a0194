package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFixtureFiles(t *testing.T) {
	dir := t.TempDir()
	for name, size := range map[string]int{"MR1.j2k": 30, "CT1.j2k": 10, "CT1.RAW": 20, "notes.txt": 5} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.j2k"), 0o755))

	files, err := ListFixtureFiles(dir, ".J2K")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "CT1", files[0].Name)
	assert.Equal(t, int64(10), files[0].Size)
	assert.Equal(t, ".j2k", files[0].Ext)
	assert.Equal(t, "MR1", files[1].Name)

	all, err := ListFixtureFiles(dir)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	index := IndexByName(files)
	assert.Contains(t, index, "CT1")
	assert.Equal(t, filepath.Join(dir, "MR1.j2k"), index["MR1"].Path)
}

func TestListFixtureFilesMissingDir(t *testing.T) {
	_, err := ListFixtureFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

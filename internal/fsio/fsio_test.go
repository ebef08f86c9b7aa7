package fsio

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileIfExists(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dir/file.txt", []byte("content"), 0o644))

	data, found, err := ReadFileIfExists(fs, "/dir/file.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "content", string(data))

	data, found, err = ReadFileIfExists(fs, "/dir/missing.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, WriteFile(fs, "/a/b/c/file.txt", []byte("x")))

	data, err := afero.ReadFile(fs, "/a/b/c/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file.txt", []byte("x"), 0o644))

	require.NoError(t, RemoveIfExists(fs, "/file.txt"))
	exists, err := afero.Exists(fs, "/file.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Absence is success, repeated removal included.
	assert.NoError(t, RemoveIfExists(fs, "/file.txt"))
	assert.NoError(t, RemoveIfExists(fs, "/never-existed"))
}

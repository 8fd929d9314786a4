package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, `
[merge]
inputs = ["bin/App.wmod", "bin/Lib.wmod"]
output = "out/Merged.wmod"
search = ["refs"]
union = false
target = "exe"

[attributes]
copy = true
policy = "union"

[signing]
key_file = "keys/app.snk"
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, f.Root)
	assert.Equal(t, []string{filepath.Join(dir, "bin", "App.wmod"), filepath.Join(dir, "bin", "Lib.wmod")}, f.Config.Merge.Inputs)
	assert.Equal(t, filepath.Join(dir, "out", "Merged.wmod"), f.Config.Merge.Output)
	assert.Equal(t, filepath.Join(dir, "keys", "app.snk"), f.Config.Signing.KeyFile)
	assert.Equal(t, "exe", f.Config.Merge.Target)
	assert.True(t, f.Config.Attributes.Copy)

	assert.True(t, f.Defined("merge", "union"))
	assert.False(t, f.Defined("merge", "internalize"))
	assert.Empty(t, f.Config.Attributes.File)
}

func TestLoadRequiresMergeSection(t *testing.T) {
	path := write(t, t.TempDir(), "[attributes]\ncopy = true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMergeSectionMissing))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := write(t, t.TempDir(), "[merge]\nunion = true\nunoin = false\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge.unoin")
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := write(t, t.TempDir(), "[merge\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse TOML")
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, "[merge]\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, FileName), path)
}

func TestNilFileDefined(t *testing.T) {
	var f *File
	assert.False(t, f.Defined("merge"))
}

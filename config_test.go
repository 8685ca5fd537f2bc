package golisp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadConfigOverlaysOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "golisp.toml")
	const body = `
[heap]
page_size = 64

[repl]
prompt = "lisp> "
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Heap.PageSize)
	assert.Equal(t, "lisp> ", cfg.Repl.Prompt)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, NewConfig().Heap.CeilingBytes, cfg.Heap.CeilingBytes)
	assert.Equal(t, NewConfig().Repl.BootstrapFile, cfg.Repl.BootstrapFile)
}

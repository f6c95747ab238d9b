package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/internal/fault"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobdeck.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
project = "billing"
member = "COPYJOB"
path = "/jcl/prod"
libs = ["/jcl/shared", "/jcl/procs"]
extension = "jcl"
database = "billing.db"
tier = "P"
max_depth = 8
max_symbol_passes = 5
drop_tables = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "billing", cfg.Project)
	assert.Equal(t, "COPYJOB", cfg.Member)
	assert.Equal(t, SystemDir, cfg.System)
	assert.Equal(t, []string{"/jcl/shared", "/jcl/procs"}, cfg.Libs)
	assert.Equal(t, byte('P'), cfg.TierByte())
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.True(t, cfg.DropTables)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
member = "COPYJOB"
path = "/jcl"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "COPYJOB", cfg.Project, "project defaults to the member name")
	assert.Equal(t, SystemDir, cfg.System)
	assert.Equal(t, "jobdeck.db", cfg.Database)
	assert.Equal(t, byte('X'), cfg.TierByte())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nosuch.toml"))
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodeConfigInvalid))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing member", Config{Path: "/jcl"}},
		{"missing path and libs", Config{Member: "COPYJOB"}},
		{"bad system", Config{Member: "X", Path: "/jcl", System: "tape"}},
		{"multi-letter tier", Config{Member: "X", Path: "/jcl", Tier: "XY"}},
		{"lowercase tier", Config{Member: "X", Path: "/jcl", Tier: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, fault.HasCode(err, fault.CodeConfigInvalid))
		})
	}
}

func TestLibraryOrder(t *testing.T) {
	cfg := Config{Member: "X", Path: "/jcl/main", Libs: []string{"/jcl/a", "/jcl/b"}}
	require.NoError(t, cfg.Validate())
	lib := cfg.Library()
	assert.Equal(t, []string{"/jcl/main", "/jcl/a", "/jcl/b"}, lib.Roots())
}

func TestTargetPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "COPYJOB.jcl"), []byte("//X JOB"), 0o644))

	cfg := Config{Member: "COPYJOB", Path: dir, Extension: "jcl"}
	require.NoError(t, cfg.Validate())

	path, err := cfg.TargetPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "COPYJOB.jcl"), path)

	cfg.Member = "MISSING"
	_, err = cfg.TargetPath()
	assert.True(t, fault.HasCode(err, fault.CodeMemberNotFound))
}

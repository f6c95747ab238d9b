package member

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/internal/fault"
)

func writeMember(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
}

func TestSearchPathOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeMember(t, first, "COPYJOB.jcl", "//FIRST JOB")
	writeMember(t, second, "COPYJOB.jcl", "//SECOND JOB")
	writeMember(t, second, "ONLYTWO.jcl", "//ONLY JOB")

	lib := NewSearchPath([]string{first, second}, WithExtension("jcl"))

	text, err := lib.Lookup("COPYJOB")
	require.NoError(t, err)
	assert.Equal(t, "//FIRST JOB", text, "earlier location must win")

	text, err = lib.Lookup("ONLYTWO")
	require.NoError(t, err)
	assert.Equal(t, "//ONLY JOB", text)

	assert.True(t, lib.Exists("COPYJOB"))
	assert.False(t, lib.Exists("MISSING"))
}

func TestSearchPathPrepend(t *testing.T) {
	base := t.TempDir()
	override := t.TempDir()
	writeMember(t, base, "PROC1", "//BASE PROC")
	writeMember(t, override, "PROC1", "//OVERRIDE PROC")

	lib := NewSearchPath([]string{base})
	lib.Prepend(override)

	text, err := lib.Lookup("PROC1")
	require.NoError(t, err)
	assert.Equal(t, "//OVERRIDE PROC", text)
	assert.Equal(t, []string{override, base}, lib.Roots())
}

func TestSearchPathNotFound(t *testing.T) {
	dir := t.TempDir()
	writeMember(t, dir, "COPYJOB", "//JOB1 JOB")

	lib := NewSearchPath([]string{dir})
	_, err := lib.Lookup("COPYJO")
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodeMemberNotFound))
	assert.Equal(t, "COPYJOB", contextValue(t, err, "suggestion"))
}

func contextValue(t *testing.T, err error, key string) interface{} {
	t.Helper()
	var f *fault.Fault
	require.True(t, errors.As(err, &f))
	v, ok := f.GetContext(key)
	require.True(t, ok, "missing context key %q", key)
	return v
}

func TestSearchPathPDSConvention(t *testing.T) {
	lib := NewSearchPath([]string{"SYS1.PROCLIB"}, WithPDSConvention())
	assert.Equal(t, "//'SYS1.PROCLIB(MYPROC)'", lib.memberPath("SYS1.PROCLIB", "MYPROC"))
	// PDS paths cannot be probed; presence is assumed until the open fails.
	assert.True(t, lib.Exists("ANYTHING"))
}

func TestMemoryLibrary(t *testing.T) {
	lib := Memory{
		"COPYJOB": "//JOB1 JOB",
		"COMMDD":  "//DD1 DD DUMMY",
	}

	text, err := lib.Lookup("COMMDD")
	require.NoError(t, err)
	assert.Equal(t, "//DD1 DD DUMMY", text)
	assert.True(t, lib.Exists("COPYJOB"))
	assert.False(t, lib.Exists("NOPE"))

	_, err = lib.Lookup("COMMD")
	require.Error(t, err)
	assert.True(t, fault.HasCode(err, fault.CodeMemberNotFound))
	assert.Equal(t, "COMMDD", contextValue(t, err, "suggestion"))
}

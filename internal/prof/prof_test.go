package prof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "run.trace"),
	}
	s, err := Start(opts)
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	for _, p := range []string{opts.CPU, opts.Mem, opts.Trace} {
		st, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, st.Size(), p)
	}
}

func TestStartFailsCleanly(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	require.Error(t, err)

	// профилировщик CPU не должен остаться запущенным
	s, err := Start(Options{CPU: filepath.Join(t.TempDir(), "cpu.pprof")})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}

func TestEmptyOptions(t *testing.T) {
	s, err := Start(Options{})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
	assert.NoError(t, (*Session)(nil).Stop())
}

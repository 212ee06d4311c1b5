package corelog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdLoggerWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	l := NewStdLogger(LevelInfo)
	l.Out = f
	l.Log(Entry{Level: LevelInfo, Category: "scheduler", WorkerID: 2, FiberID: -1, Message: "worker started"})

	require.NoError(t, f.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category":"scheduler"`)
	assert.Contains(t, string(data), `"worker":2`)
}

func TestStdLoggerRespectsLevel(t *testing.T) {
	l := NewStdLogger(LevelWarn)
	assert.False(t, l.Enabled(LevelDebug))
	assert.True(t, l.Enabled(LevelError))
}

func TestGlobalDefaultsToNoop(t *testing.T) {
	SetGlobal(nil)
	assert.False(t, Global().Enabled(LevelError))
}

func TestSetGlobal(t *testing.T) {
	l := NewStdLogger(LevelDebug)
	SetGlobal(l)
	defer SetGlobal(nil)
	assert.Same(t, l, Global())
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("pool", &buf, WARN)

	l.Info("не должно попасть")
	l.Warn("очередь %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [pool] очередь 3")

	buf.Reset()
	l.SetLevels(DEBUG, ERROR)
	l.Debug("отладка")
	assert.Contains(t, buf.String(), "[DEBUG]")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, INFO, ParseLevel("нечто"))
}

func TestComponentLoggerIsShared(t *testing.T) {
	a := GetComponentLogger("scheduler")
	b := GetComponentLogger("scheduler")
	assert.Same(t, a, b)
	assert.Contains(t, GetLoggerManager().ListComponents(), "scheduler")
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	lm := &LoggerManager{loggers: make(map[string]*Logger)}

	optionsMu.Lock()
	saved := options
	options = Options{Dir: dir, FileEnabled: true, ConsoleLevel: ERROR, FileLevel: DEBUG}
	optionsMu.Unlock()
	t.Cleanup(func() {
		optionsMu.Lock()
		options = saved
		optionsMu.Unlock()
	})

	l, err := lm.GetLogger("cache")
	require.NoError(t, err)
	l.Debug("запись %s", "в файл")
	require.NoError(t, lm.CloseAll())

	files, err := filepath.Glob(filepath.Join(dir, "cache_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "запись в файл")
}

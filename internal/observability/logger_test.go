package observability

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type entry struct {
	level  string
	msg    string
	fields []Field
}

type memoryLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (m *memoryLogger) record(level, msg string, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{level: level, msg: msg, fields: fields})
}

func (m *memoryLogger) Debug(msg string, fields ...Field) { m.record("debug", msg, fields) }
func (m *memoryLogger) Info(msg string, fields ...Field)  { m.record("info", msg, fields) }
func (m *memoryLogger) Warn(msg string, fields ...Field)  { m.record("warn", msg, fields) }
func (m *memoryLogger) Error(msg string, fields ...Field) { m.record("error", msg, fields) }

func TestSetLoggerNilFallsBackToNoop(t *testing.T) {
	mem := &memoryLogger{}
	SetLogger(mem)
	require.Same(t, mem, Log())
	SetLogger(nil)
	require.NotNil(t, Log())
	Log().Warn("dropped")
}

func TestWithPrependsFields(t *testing.T) {
	mem := &memoryLogger{}
	scoped := With(mem, Field{Key: "session_id", Value: "abc"})
	scoped = With(scoped, Field{Key: "component", Value: "router"})
	scoped.Warn("hello", Field{Key: "k", Value: 1})

	require.Len(t, mem.entries, 1)
	got := mem.entries[0]
	require.Equal(t, "warn", got.level)
	require.Equal(t, []Field{
		{Key: "session_id", Value: "abc"},
		{Key: "component", Value: "router"},
		{Key: "k", Value: 1},
	}, got.fields)
}

func TestLogrusLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(logrus.DebugLevel)

	logger := NewLogrusFrom(base)
	logger.Info("frame routed", Field{Key: "channel", Value: "depth"}, Field{Key: "error", Value: errors.New("boom")})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "frame routed", decoded["msg"])
	require.Equal(t, "depth", decoded["channel"])
	require.Equal(t, "boom", decoded["error"])
	require.Equal(t, "info", decoded["level"])
}

func TestLogrusLoggerReportsCallingSite(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	logger := NewLogrusFrom(base)
	logger.Info("direct")
	scoped := With(logger, Field{Key: "component", Value: "router"})
	scoped.Warn("scoped")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(line, &decoded))
		file, _ := decoded["file"].(string)
		require.True(t, strings.HasPrefix(file, "logger_test.go:"), "file=%q", file)
	}
}

func TestNewLogrusLoggerRejectsBadConfig(t *testing.T) {
	_, err := NewLogrusLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
	_, err = NewLogrusLogger(LogConfig{Format: "xml"})
	require.Error(t, err)
}

func TestNewLogrusLoggerRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.log")
	logger, err := NewLogrusLogger(LogConfig{Level: "debug", Format: "text", Output: path})
	require.NoError(t, err)
	logger.Debug("written")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "written")
}

func TestCloseAllRunsEveryStep(t *testing.T) {
	mem := &memoryLogger{}
	var ran []string
	err := CloseAll(mem, "shutdown",
		Closer{Name: "client", Close: func() error { ran = append(ran, "client"); return errors.New("closed twice") }},
		Closer{Name: "skip"},
		Closer{Name: "telemetry", Close: func() error { ran = append(ran, "telemetry"); return nil }},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "client: closed twice")
	require.Equal(t, []string{"client", "telemetry"}, ran)
	require.Len(t, mem.entries, 1)
	require.Equal(t, "error", mem.entries[0].level)

	require.NoError(t, CloseAll(mem, "shutdown"))
}

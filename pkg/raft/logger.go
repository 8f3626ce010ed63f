package raft

// Logger is the minimal logging surface the core depends on. Production
// wiring backs it with github.com/galdor/go-log; tests use NoopLogger or a
// recording stub.
type Logger interface {
	Debug(int, string, ...interface{})
	Info(string, ...interface{})
	Error(string, ...interface{})
}

// NoopLogger discards everything. Used when a Node is constructed without
// an explicit Logger.
type NoopLogger struct{}

func (NoopLogger) Debug(int, string, ...interface{}) {}
func (NoopLogger) Info(string, ...interface{})       {}
func (NoopLogger) Error(string, ...interface{})      {}

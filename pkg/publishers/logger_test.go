package publishers

import "sync"

// recordingLogger captures log messages by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	r.entries = append(r.entries, level+" "+msg)
	r.mu.Unlock()
}

func (r *recordingLogger) InfoObj(msg, _ string, _ interface{})  { r.record("info", msg) }
func (r *recordingLogger) DebugObj(msg, _ string, _ interface{}) { r.record("debug", msg) }
func (r *recordingLogger) WarnObj(msg, _ string, _ interface{})  { r.record("warn", msg) }
func (r *recordingLogger) ErrorObj(msg, _ string, _ interface{}) { r.record("error", msg) }

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

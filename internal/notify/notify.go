// Package notify carries non-fatal, user-visible notices out of the core.
// The core never fails a caller over a recoverable condition; instead it
// returns a safe value and emits a notice here. The UI shell decides how to
// present notices; tests record them.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level classifies a notice for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one user-visible message.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Log is a Notifier that writes notices to slog. It is the default when the
// caller does not supply one.
type Log struct{}

// Notify logs the notice at a level matching its severity.
func (Log) Notify(_ context.Context, level Level, message string) {
	switch level {
	case LevelError:
		slog.Warn("notice", "level", level, "message", message)
	default:
		slog.Info("notice", "level", level, "message", message)
	}
}

// Recorder is a Notifier that stores notices for inspection in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends the notice to the record.
func (r *Recorder) Notify(_ context.Context, level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
}

// Notices returns a copy of all recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Reset clears recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

var _ Notifier = Log{}
var _ Notifier = (*Recorder)(nil)

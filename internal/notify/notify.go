// Package notify is the fire-and-forget status surface. Sinks must not block
// the caller and must be safe for concurrent use.
package notify

import (
	"sync"
	"time"
)

type Level int

const (
	LevelInfo Level = iota
	LevelOK
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelError:
		return "error"
	}
	return "info"
}

const DefaultTimeout = 2500 * time.Millisecond

type Notification struct {
	Message string
	Level   Level
	// Timeout is how long the notification stays visible; zero means the sink default.
	Timeout time.Duration
}

type Sink interface {
	Notify(n Notification)
}

// Discard drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Notification) {}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Count returns how many recorded notifications have the given message.
func (r *Recorder) Count(message string) int {
	n := 0
	for _, it := range r.All() {
		if it.Message == message {
			n++
		}
	}
	return n
}

// Errors returns the messages recorded at LevelError.
func (r *Recorder) Errors() []string {
	var out []string
	for _, it := range r.All() {
		if it.Level == LevelError {
			out = append(out, it.Message)
		}
	}
	return out
}

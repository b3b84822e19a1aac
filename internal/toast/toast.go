// Package toast is the transient user-message layer. Coordinators report
// user-visible outcomes here instead of returning errors to the render path.
package toast

import (
	"sync"
	"time"
)

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Toast is one transient message.
type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier accepts toasts.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Queue buffers toasts until the next page render drains them.
// The oldest toasts are dropped beyond its capacity.
type Queue struct {
	mu    sync.Mutex
	items []Toast
	limit int
}

// NewQueue creates a queue holding at most limit toasts.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 5
	}
	return &Queue{limit: limit}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }
func (q *Queue) Error(msg string)   { q.push(LevelError, msg) }
func (q *Queue) Info(msg string)    { q.push(LevelInfo, msg) }

func (q *Queue) push(level Level, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, Toast{Level: level, Message: msg, At: time.Now()})
	if over := len(q.items) - q.limit; over > 0 {
		q.items = q.items[over:]
	}
}

// Drain returns and removes all pending toasts.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
func (Discard) Info(string)    {}

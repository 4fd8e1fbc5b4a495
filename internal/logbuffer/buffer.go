package logbuffer

import (
	"bytes"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry defines the format of a log entry for the API.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// RingBuffer is a fixed-size, thread-safe buffer for log entries.
type RingBuffer struct {
	entries []LogEntry
	size    int
	start   int
	count   int
	mu      sync.Mutex
}

// NewRingBuffer creates a new ring buffer of the given size.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Add adds a log entry to the buffer.
func (rb *RingBuffer) Add(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries[(rb.start+rb.count)%rb.size] = entry
	if rb.count < rb.size {
		rb.count++
	} else {
		rb.start = (rb.start + 1) % rb.size
	}
}

// GetAll returns a slice of all log entries in order.
func (rb *RingBuffer) GetAll() []LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	result := make([]LogEntry, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.entries[(rb.start+i)%rb.size]
	}
	return result
}

// Run implements zerolog.Hook so the daemon log stream is exposed over the
// API without a second sink configuration.
func (rb *RingBuffer) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level == zerolog.NoLevel || message == "" {
		return
	}
	rb.Add(LogEntry{Time: time.Now(), Level: level.String(), Message: message})
}

// LineRing captures raw output lines of a supervised child process.
// It implements io.Writer so it can be handed to exec.Cmd directly.
type LineRing struct {
	lines []string
	size  int
	mu    sync.Mutex
	rest  []byte
}

func NewLineRing(size int) *LineRing {
	return &LineRing{size: size}
}

func (lr *LineRing) Write(p []byte) (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.rest = append(lr.rest, p...)
	for {
		idx := bytes.IndexByte(lr.rest, '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(lr.rest[:idx], "\r"))
		lr.rest = lr.rest[idx+1:]
		if line == "" {
			continue
		}
		lr.lines = append(lr.lines, line)
		if len(lr.lines) > lr.size {
			lr.lines = lr.lines[len(lr.lines)-lr.size:]
		}
	}
	return len(p), nil
}

// Tail returns up to n most recent lines in chronological order.
func (lr *LineRing) Tail(n int) []string {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if n <= 0 || n > len(lr.lines) {
		n = len(lr.lines)
	}
	out := make([]string, n)
	copy(out, lr.lines[len(lr.lines)-n:])
	return out
}

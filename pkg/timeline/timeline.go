// Package timeline keeps a bounded, in-order history of completed
// request/response pairs for inspection. The buffer is a ring: once the
// configured capacity is exceeded the oldest entries are dropped.
package timeline

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the timeline when no capacity is configured.
const DefaultCapacity = 100

// maxSnippet caps stored request/response body snippets.
const maxSnippet = 2048

// Entry is an immutable record of one completed request/response pair.
type Entry struct {
	// ID is a unique identifier for the entry.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request URL path.
	Path string `json:"path"`

	// OperationID is the matched OpenAPI operation, if any.
	OperationID string `json:"operationId,omitempty"`

	// Status is the response status code.
	Status int `json:"status"`

	// DurationMs is the request processing time in milliseconds.
	DurationMs int64 `json:"durationMs"`

	// RequestBody is a snippet of the request body (truncated).
	RequestBody string `json:"requestBody,omitempty"`

	// ResponseBody is a snippet of the response body (truncated).
	ResponseBody string `json:"responseBody,omitempty"`

	// Simulated marks responses produced by an active simulation rather
	// than a handler.
	Simulated bool `json:"simulated,omitempty"`
}

// Timeline is a fixed-capacity ring buffer of entries in arrival order.
type Timeline struct {
	mu       sync.RWMutex
	entries  []*Entry
	capacity int
	total    int
}

// New creates a timeline with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Timeline{capacity: capacity}
}

// Append adds an entry, evicting the oldest when the buffer is full. Body
// snippets are truncated to a fixed limit before storage.
func (t *Timeline) Append(e *Entry) {
	e.RequestBody = truncate(e.RequestBody)
	e.ResponseBody = truncate(e.ResponseBody)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, e)
	t.total++
	if len(t.entries) > t.capacity {
		// Drop the oldest; copy to release the backing array slot.
		t.entries = append(t.entries[:0:0], t.entries[1:]...)
	}
}

// Slice returns the most recent n entries in arrival order. n <= 0 returns
// everything currently buffered.
func (t *Timeline) Slice(n int) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]*Entry, n)
	copy(out, t.entries[len(t.entries)-n:])
	return out
}

// Count returns the number of buffered entries.
func (t *Timeline) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Total returns the number of entries ever appended, including evicted ones.
func (t *Timeline) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Clear drops all buffered entries and returns how many were dropped.
func (t *Timeline) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.entries)
	t.entries = nil
	return n
}

// Capacity returns the configured maximum length.
func (t *Timeline) Capacity() int {
	return t.capacity
}

func truncate(s string) string {
	if len(s) > maxSnippet {
		return s[:maxSnippet]
	}
	return s
}

// Package history keeps the flat log of actions taken during a task run.
package history

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	maxParamLength  = 30
	maxResultLength = 100
)

// Record is one executed action.
type Record struct {
	Timestamp time.Time
	Params    map[string]interface{}
	Tool      string
	Result    string
	Error     string
	Success   bool
}

// Summary renders the record as a single prompt line:
// "✓ tool(key='value') -> result".
func (r Record) Summary() string {
	status := "✓"
	if !r.Success {
		status = "✗"
	}

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, fmt.Sprintf("%s=%s", k, formatParam(r.Params[k])))
	}

	if r.Error != "" {
		return fmt.Sprintf("%s %s(%s) -> ERROR: %s", status, r.Tool, strings.Join(params, ", "), r.Error)
	}
	return fmt.Sprintf("%s %s(%s) -> %s", status, r.Tool, strings.Join(params, ", "), truncate(r.Result, maxResultLength))
}

func formatParam(v interface{}) string {
	if s, ok := v.(string); ok {
		return "'" + truncate(s, maxParamLength) + "'"
	}
	return fmt.Sprintf("%v", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// History is an append-only action log. Safe for concurrent use.
type History struct {
	records []Record
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates an empty history.
func New() *History {
	return &History{now: time.Now}
}

// Add appends a record and returns its position.
func (h *History) Add(tool string, params map[string]interface{}, result string, success bool, errMsg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, Record{
		Timestamp: h.now(),
		Tool:      tool,
		Params:    params,
		Result:    result,
		Success:   success,
		Error:     errMsg,
	})
	return len(h.records) - 1
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// At returns the record at position i.
func (h *History) At(i int) (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.records) {
		return Record{}, false
	}
	return h.records[i], true
}

// Last returns up to n most recent records, oldest first.
func (h *History) Last(n int) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]Record, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

// Summaries renders the last n records as prompt lines.
func (h *History) Summaries(n int) []string {
	recent := h.Last(n)
	out := make([]string, len(recent))
	for i, r := range recent {
		out[i] = r.Summary()
	}
	return out
}

// LastError returns the most recent failed record.
func (h *History) LastError() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.records) - 1; i >= 0; i-- {
		if !h.records[i].Success {
			return h.records[i], true
		}
	}
	return Record{}, false
}

// LastFailed reports whether the most recent action failed.
func (h *History) LastFailed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return false
	}
	return !h.records[len(h.records)-1].Success
}

// SuccessRate returns the fraction of successful records, 0 when empty.
func (h *History) SuccessRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.records {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.records))
}

// Reset clears all records.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

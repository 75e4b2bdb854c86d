package mcpserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunInfo is what list_runs reports about one run.
type RunInfo struct {
	ID             string  `json:"id"`
	Task           string  `json:"task"`
	Status         string  `json:"status"`
	Summary        string  `json:"summary,omitempty"`
	Error          string  `json:"error,omitempty"`
	CostUSD        float64 `json:"cost_usd"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
}

type run struct {
	info      RunInfo
	startedAt time.Time
	endedAt   time.Time
}

// runStore keeps the runs of this process in start order. State lives only
// as long as the server.
type runStore struct {
	mu    sync.Mutex
	runs  map[string]*run
	order []string
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*run)}
}

func (s *runStore) start(description string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = &run{
		info:      RunInfo{ID: id, Task: description, Status: "running"},
		startedAt: time.Now(),
	}
	s.order = append(s.order, id)
	return id
}

func (s *runStore) finish(id string, out RunTaskOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.info.Status = out.Status
		r.info.Summary = out.Summary
		r.info.Error = out.Error
		r.info.CostUSD = out.CostUSD
		r.endedAt = time.Now()
	}
}

func (s *runStore) abort(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.info.Status = "failed"
		r.info.Error = err.Error()
		r.endedAt = time.Now()
	}
}

// list returns copies of the runs, filtered by status when one is given.
func (s *runStore) list(status string, now time.Time) []RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RunInfo, 0, len(s.order))
	for _, id := range s.order {
		r := s.runs[id]
		if status != "" && r.info.Status != status {
			continue
		}
		info := r.info
		end := r.endedAt
		if end.IsZero() {
			end = now
		}
		info.ElapsedSeconds = int(end.Sub(r.startedAt).Seconds())
		out = append(out, info)
	}
	return out
}

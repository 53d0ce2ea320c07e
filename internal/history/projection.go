package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StatusRunning marks a run without a RunFinished event.
const StatusRunning = "running"

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Manifest     string        `json:"manifest,omitempty"`
	Unit         string        `json:"unit,omitempty"`
	Operations   []string      `json:"operations,omitempty"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Executed     int           `json:"executed"`
	Failed       []string      `json:"failed,omitempty"`
	Merges       int           `json:"merges"`
	FilesMerged  int           `json:"files_merged"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Projection keeps a bounded, newest-first view of run history rebuilt from a Store.
type Projection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewProjection creates a projection over store keeping at most maxSize runs.
func NewProjection(store Store, maxSize int) *Projection {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &Projection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild replays every stored event.
func (p *Projection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

// Apply folds a single event into the projection.
func (p *Projection) Apply(e *Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *Projection) applyLocked(e *Event) {
	if e.RunID == "" {
		return
	}
	s, ok := p.runs[e.RunID]
	if !ok {
		s = &RunSummary{RunID: e.RunID, Status: StatusRunning, StartedAt: e.Timestamp}
		p.runs[e.RunID] = s
	}

	switch e.Type {
	case TypeRunStarted:
		var payload RunStartedPayload
		if Decode(e, &payload) == nil {
			s.Manifest = payload.Manifest
			s.Unit = payload.Unit
			s.Operations = payload.Operations
		}
		s.StartedAt = e.Timestamp

	case TypeOperationCompleted:
		s.Executed++

	case TypeOperationFailed:
		s.Executed++
		var payload OperationPayload
		if Decode(e, &payload) == nil {
			s.Failed = append(s.Failed, payload.Operation)
		}

	case TypeRepositoryMerged:
		s.Merges++
		var payload MergePayload
		if Decode(e, &payload) == nil {
			s.FilesMerged += payload.Files
		}

	case TypeRunFinished:
		finished := e.Timestamp
		s.FinishedAt = &finished
		var payload RunFinishedPayload
		if Decode(e, &payload) == nil {
			s.Status = payload.Outcome
			s.Duration = time.Duration(payload.DurationMS) * time.Millisecond
			s.ErrorMessage = payload.Error
		}
	}
}

// History returns up to the configured number of runs, newest first.
func (p *Projection) History() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		cp := *s
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > p.maxSize {
		out = out[:p.maxSize]
	}
	return out
}

// Run returns the summary of one run.
func (p *Projection) Run(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

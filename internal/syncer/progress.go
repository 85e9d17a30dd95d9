package syncer

import (
	"sync"
	"time"
)

// State is the orchestrator's externally visible state.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateMerging     State = "merging"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Running reports whether the state describes an in-flight run.
func (s State) Running() bool {
	return s == StateFetching || s == StateNormalizing || s == StateMerging
}

// Progress is a point-in-time snapshot of a syncer, safe to serve to a
// polling client while the run is still writing.
type Progress struct {
	SourceTag    string            `json:"source_tag"`
	State        State             `json:"state"`
	RunID        string            `json:"run_id,omitempty"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	ElapsedMS    int64             `json:"elapsed_ms"`
	CurrentUnit  string            `json:"current_unit,omitempty"`
	BatchIndex   int               `json:"batch_index"`
	BatchTotal   int               `json:"batch_total"`
	UnitStatuses map[string]string `json:"unit_statuses,omitempty"`
}

// progressState is the writer side. Reads take the RLock and copy, so a
// concurrent poller never blocks the pipeline for long.
type progressState struct {
	mu           sync.RWMutex
	sourceTag    string
	state        State
	runID        string
	startedAt    time.Time
	currentUnit  string
	batchIndex   int
	batchTotal   int
	unitStatuses map[string]string
}

func newProgressState(tag string) *progressState {
	return &progressState{sourceTag: tag, state: StateIdle}
}

func (p *progressState) begin(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateFetching
	p.runID = runID
	p.startedAt = time.Now().UTC()
	p.currentUnit = ""
	p.batchIndex = 0
	p.batchTotal = 0
	p.unitStatuses = make(map[string]string)
}

func (p *progressState) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *progressState) setTotal(total int) {
	p.mu.Lock()
	p.batchTotal = total
	p.mu.Unlock()
}

func (p *progressState) setCurrent(unit string, index int) {
	p.mu.Lock()
	p.currentUnit = unit
	p.batchIndex = index
	p.mu.Unlock()
}

func (p *progressState) setUnitStatus(unit, status string) {
	p.mu.Lock()
	p.unitStatuses[unit] = status
	p.mu.Unlock()
}

func (p *progressState) finish(s State) {
	p.mu.Lock()
	p.state = s
	p.currentUnit = ""
	p.mu.Unlock()
}

func (p *progressState) snapshot() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := Progress{
		SourceTag:   p.sourceTag,
		State:       p.state,
		RunID:       p.runID,
		CurrentUnit: p.currentUnit,
		BatchIndex:  p.batchIndex,
		BatchTotal:  p.batchTotal,
	}
	if !p.startedAt.IsZero() {
		t := p.startedAt
		out.StartedAt = &t
		if p.state.Running() {
			out.ElapsedMS = time.Since(p.startedAt).Milliseconds()
		}
	}
	if len(p.unitStatuses) > 0 {
		out.UnitStatuses = make(map[string]string, len(p.unitStatuses))
		for k, v := range p.unitStatuses {
			out.UnitStatuses[k] = v
		}
	}
	return out
}

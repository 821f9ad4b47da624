package tasks

import "sync"

// Phase identifies the stage an active sync is in.
type Phase int

const (
	FetchingMetadata Phase = iota
	FetchingEntries
	Processing
)

func (p Phase) String() string {
	switch p {
	case FetchingMetadata:
		return "fetching_metadata"
	case FetchingEntries:
		return "fetching_entries"
	case Processing:
		return "processing"
	default:
		return ""
	}
}

// State is the sync state machine position.
//
// Unsynced is the only state reachable while the cache is empty. A failed
// background sync lands in StateError with the prior snapshot retained, and
// retries from there move back through one of the syncing states.
type State int

const (
	Unsynced State = iota
	SyncingBlocking
	Synced
	SyncingBackground
	StateError
)

func (s State) String() string {
	switch s {
	case Unsynced:
		return "unsynced"
	case SyncingBlocking:
		return "syncing_blocking"
	case Synced:
		return "synced"
	case SyncingBackground:
		return "syncing_background"
	case StateError:
		return "error"
	default:
		return ""
	}
}

// progressState is a snapshot of the transient sync progress record. It
// exists only for the lifetime of the process and is discarded when the
// sync finishes.
type progressState struct {
	active     bool
	background bool
	phase      Phase
	current    int
	total      int
	lastError  string
}

// guardedProgress owns the progress record and the in-flight-sync flag
// behind one mutex. Acquire doubles as the mutual-exclusion gate: it fails
// instead of queueing when a sync is already active.
type guardedProgress struct {
	mu    sync.Mutex
	state progressState
}

func newGuardedProgress() *guardedProgress {
	return &guardedProgress{}
}

// acquire claims the in-flight flag, resetting progress and any prior
// error. Returns false when a sync is already active.
func (g *guardedProgress) acquire(background bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.active {
		return false
	}

	g.state = progressState{active: true, background: background}
	return true
}

// release clears the in-flight flag and the transient counters, keeping
// only the last error for status reporting.
func (g *guardedProgress) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = progressState{lastError: g.state.lastError}
}

func (g *guardedProgress) set(phase Phase, current, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.phase = phase
	g.state.current = current
	g.state.total = total
}

func (g *guardedProgress) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.lastError = err.Error()
}

func (g *guardedProgress) snapshot() progressState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

package web

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"mandi/internal/orchestrator"
)

const sessionRetention = 2 * time.Hour

// sessionRegistry holds the live sessions of the HTTP surface. Idle
// sessions are dropped on the next add once they pass the retention.
type sessionRegistry struct {
	mu        sync.Mutex
	entries   map[string]*sessionEntry
	retention time.Duration
	now       func() time.Time
}

func newSessionRegistry(retention time.Duration, now func() time.Time) *sessionRegistry {
	return &sessionRegistry{
		entries:   make(map[string]*sessionEntry),
		retention: retention,
		now:       now,
	}
}

func (r *sessionRegistry) add(s *orchestrator.Session) *sessionEntry {
	now := r.now()
	entry := newSessionEntry(s, now)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	r.entries[s.ID] = entry
	return entry
}

func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry, ok
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *sessionRegistry) sweepLocked(now time.Time) {
	if r.retention <= 0 {
		return
	}
	for id, entry := range r.entries {
		if now.Sub(entry.lastActive()) > r.retention {
			delete(r.entries, id)
		}
	}
}

// sessionEntry serialises every change to one session and wakes watchers
// after each change.
type sessionEntry struct {
	mu       sync.Mutex
	session  *orchestrator.Session
	changed  chan struct{}
	lastSeen atomic.Int64
}

func newSessionEntry(s *orchestrator.Session, now time.Time) *sessionEntry {
	e := &sessionEntry{
		session: s,
		changed: make(chan struct{}),
	}
	e.lastSeen.Store(now.UnixNano())
	return e
}

func (e *sessionEntry) do(now time.Time, fn func(s *orchestrator.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.session.Turns)
	stage := e.session.Stage
	err := fn(e.session)
	e.lastSeen.Store(now.UnixNano())
	if len(e.session.Turns) != before || e.session.Stage != stage {
		close(e.changed)
		e.changed = make(chan struct{})
	}
	return err
}

// watch returns a channel closed on the next change. Take it before the
// snapshot so that no change slips between the two.
func (e *sessionEntry) watch() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

// lastActive reads without the entry lock so a sweep never waits on a
// session that is mid-call.
func (e *sessionEntry) lastActive() time.Time {
	return time.Unix(0, e.lastSeen.Load())
}

// view returns a deep copy safe to encode after the lock is released.
func (e *sessionEntry) view() *orchestrator.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := json.Marshal(e.session)
	if err != nil {
		cp := *e.session
		return &cp
	}
	var cp orchestrator.Session
	if err := json.Unmarshal(data, &cp); err != nil {
		cp = *e.session
	}
	return &cp
}

type sessionUpdate struct {
	Type   string              `json:"type"`
	Turns  []orchestrator.Turn `json:"turns"`
	Cursor int                 `json:"cursor"`
	Stage  orchestrator.Stage  `json:"stage"`
	Offer  orchestrator.Offer  `json:"offer"`
	Deal   *orchestrator.Deal  `json:"deal,omitempty"`
}

// snapshot returns the turns after cursor together with the current terms.
func (e *sessionEntry) snapshot(cursor int) sessionUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()

	turns := e.session.Turns
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(turns) {
		cursor = len(turns)
	}
	update := sessionUpdate{
		Type:   eventUpdate,
		Turns:  append([]orchestrator.Turn(nil), turns[cursor:]...),
		Cursor: len(turns),
		Stage:  e.session.Stage,
		Offer:  e.session.Offer,
	}
	if e.session.Deal != nil {
		deal := *e.session.Deal
		update.Deal = &deal
	}
	return update
}

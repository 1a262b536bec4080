package candidate

import (
	"context"
	"sync"
	"time"

	"github.com/aiwot/reputation-engine/internal/wotevent"
	"github.com/aiwot/reputation-engine/internal/woterrors"
)

// Signer is the external collaborator that turns a candidate's exported
// fields into a signed, ready-to-publish event. eventRef, when non-empty, is
// the pre-publication event the candidate was built from (e.g. a
// service-result receipt) and should be carried into the signed event's
// reference tag. Signature production is explicitly out of scope for this
// package; Store only calls through this seam.
type Signer interface {
	Sign(typ, target, comment, eventRef string) (wotevent.Event, error)
}

// Publisher is the subset of the Relay Aggregator the store needs to push a
// signed event out.
type Publisher interface {
	PublishAll(ctx context.Context, ev wotevent.Event) ([]PublishResult, error)
}

// PublishResult mirrors relay.PublishResult without importing the relay
// package, keeping the store's dependency graph one-directional (store never
// imports relay; relay-aware callers adapt at the boundary).
type PublishResult struct {
	Relay    string
	Accepted bool
	Reason   string
}

// PersistFunc is invoked synchronously with the full exported candidate list
// after every state change. Its errors are swallowed: persistence is
// best-effort and must never corrupt in-memory state.
type PersistFunc func(candidates []Candidate)

// NotifyFunc is invoked after a new candidate is added.
type NotifyFunc func(c Candidate)

// Config controls store behavior.
type Config struct {
	MaxAge        time.Duration // default 24h
	MaxCandidates int           // default 1000
	Persist       PersistFunc
	Notify        NotifyFunc
}

func (c Config) maxAge() time.Duration {
	if c.MaxAge <= 0 {
		return 24 * time.Hour
	}
	return c.MaxAge
}

func (c Config) maxCandidates() int {
	if c.MaxCandidates <= 0 {
		return 1000
	}
	return c.MaxCandidates
}

// Store is the in-memory, mutex-guarded Candidate Store. All state
// transitions are sequential per candidate id and observed in arrival order
// by every caller, regardless of how many goroutines call into the store.
type Store struct {
	mu    sync.Mutex
	cfg   Config
	byID  map[string]*Candidate
	order []string // insertion order, stable across sweeps
}

// New builds an empty Store.
func New(cfg Config) *Store {
	return &Store{
		cfg:  cfg,
		byID: make(map[string]*Candidate),
	}
}

// Load seeds the store from a previously-persisted export. Terminal states
// are preserved: a loaded rejected/published candidate is never re-exposed
// as actionable.
func (s *Store) Load(candidates []Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range candidates {
		c := candidates[i]
		s.byID[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
}

// NewCandidate carries the fields a caller supplies when proposing a
// candidate. EventRef and Metadata are both optional: EventRef is the
// pre-publication event a candidate was built from (e.g. a service-result
// receipt's source event), distinct from EventID, which is only populated
// once the candidate is actually published.
type NewCandidate struct {
	Type     string
	Target   string
	Comment  string
	Source   string
	EventRef string
	Metadata map[string]string
}

// Add validates and inserts a new pending candidate.
func (s *Store) Add(in NewCandidate) (Candidate, error) {
	if err := validateRequiredFields(in.Type, in.Target, in.Comment); err != nil {
		return Candidate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictIfFullLocked()

	now := time.Now()
	c := Candidate{
		ID:        newID(),
		Type:      in.Type,
		Target:    in.Target,
		Comment:   in.Comment,
		Source:    in.Source,
		EventRef:  in.EventRef,
		Metadata:  in.Metadata,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[c.ID] = &c
	s.order = append(s.order, c.ID)

	s.persistLocked()
	if s.cfg.Notify != nil {
		s.cfg.Notify(c)
	}
	return c, nil
}

// evictIfFullLocked makes room for one more candidate when the store is at
// capacity: first a terminal-state candidate (oldest by created_at), falling
// back to the oldest pending one if no terminal candidate exists. Callers
// must hold s.mu.
func (s *Store) evictIfFullLocked() {
	if len(s.order) < s.cfg.maxCandidates() {
		return
	}

	var terminalOldest, pendingOldest string
	var terminalTime, pendingTime time.Time
	for _, id := range s.order {
		c := s.byID[id]
		if c == nil {
			continue
		}
		if c.Status.terminal() {
			if terminalOldest == "" || c.CreatedAt.Before(terminalTime) {
				terminalOldest, terminalTime = id, c.CreatedAt
			}
		} else if c.Status == StatusPending {
			if pendingOldest == "" || c.CreatedAt.Before(pendingTime) {
				pendingOldest, pendingTime = id, c.CreatedAt
			}
		}
	}

	victim := terminalOldest
	if victim == "" {
		victim = pendingOldest
	}
	if victim == "" {
		return
	}
	s.removeLocked(victim)
}

func (s *Store) removeLocked(id string) {
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// sweepExpiredLocked moves any pending candidate older than max_age to
// expired. Callers must hold s.mu.
func (s *Store) sweepExpiredLocked() {
	cutoff := time.Now().Add(-s.cfg.maxAge())
	for _, id := range s.order {
		c := s.byID[id]
		if c == nil || c.Status != StatusPending {
			continue
		}
		if c.CreatedAt.Before(cutoff) {
			c.Status = StatusExpired
			c.UpdatedAt = time.Now()
		}
	}
}

// List returns candidates matching filter, sorted by created_at descending,
// after lazily sweeping expired pending candidates.
func (s *Store) List(filter Filter) []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpiredLocked()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []Candidate
	for _, id := range s.order {
		c := s.byID[id]
		if c == nil {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Target != "" && c.Target != filter.Target {
			continue
		}
		if filter.Source != "" && c.Source != filter.Source {
			continue
		}
		out = append(out, *c)
	}
	sortByCreatedAtDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns a single candidate by id.
func (s *Store) Get(id string) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byID[id]
	if c == nil {
		return Candidate{}, woterrors.NotFound(id)
	}
	return *c, nil
}

// SweepExpired forces the lazy expiry sweep to run immediately, independent
// of List or Stats. It exists so a scheduled sweeper can keep pending
// candidates moving to expired even when nothing is calling List.
func (s *Store) SweepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepExpiredLocked()
}

// Stats counts candidates by status, after lazily sweeping expired pending
// candidates.
func (s *Store) Stats() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpiredLocked()

	counts := make(map[Status]int)
	for _, id := range s.order {
		if c := s.byID[id]; c != nil {
			counts[c.Status]++
		}
	}
	return counts
}

// Edits carries optional overrides applied by Confirm.
type Edits struct {
	Comment  string
	Type     string
	Metadata map[string]string
}

// Confirm transitions id from pending to confirmed, applying optional edits.
func (s *Store) Confirm(id string, edits Edits) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byID[id]
	if c == nil {
		return Candidate{}, woterrors.NotFound(id)
	}
	if c.Status != StatusPending {
		return Candidate{}, woterrors.InvalidTransition(id, string(c.Status), string(StatusConfirmed))
	}

	if edits.Comment != "" {
		c.Comment = edits.Comment
	}
	if edits.Type != "" {
		c.Type = edits.Type
	}
	if edits.Metadata != nil {
		c.Metadata = edits.Metadata
	}
	c.Status = StatusConfirmed
	c.UpdatedAt = time.Now()

	s.persistLocked()
	return *c, nil
}

// Reject transitions id from pending to rejected, recording reason.
func (s *Store) Reject(id, reason string) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byID[id]
	if c == nil {
		return Candidate{}, woterrors.NotFound(id)
	}
	if c.Status != StatusPending {
		return Candidate{}, woterrors.InvalidTransition(id, string(c.Status), string(StatusRejected))
	}

	c.Status = StatusRejected
	c.Reason = reason
	c.UpdatedAt = time.Now()

	s.persistLocked()
	return *c, nil
}

// MarkPublished transitions id from confirmed to published, recording the
// resulting event id.
func (s *Store) MarkPublished(id, eventID string) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byID[id]
	if c == nil {
		return Candidate{}, woterrors.NotFound(id)
	}
	if c.Status != StatusConfirmed {
		return Candidate{}, woterrors.InvalidTransition(id, string(c.Status), string(StatusPublished))
	}

	c.Status = StatusPublished
	c.EventID = eventID
	c.UpdatedAt = time.Now()

	s.persistLocked()
	return *c, nil
}

// persistLocked invokes the configured persistence callback with the full
// exported list. Callers must hold s.mu. Panics from the callback are
// recovered so a misbehaving sink can never corrupt in-memory state.
func (s *Store) persistLocked() {
	if s.cfg.Persist == nil {
		return
	}
	defer func() { _ = recover() }()

	snapshot := make([]Candidate, 0, len(s.order))
	for _, id := range s.order {
		if c := s.byID[id]; c != nil {
			snapshot = append(snapshot, *c)
		}
	}
	s.cfg.Persist(snapshot)
}

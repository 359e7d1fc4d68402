package session

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an operation names a participant id that is
// not (or no longer) registered.
var ErrNotFound = errors.New("participant not found")

// entry is the registry's internal record for one participant.
type entry struct {
	participant Participant
	lastSeen    time.Time
	seq         uint64
}

// Registry is the single source of truth for live participants. A registry
// entry exists iff the corresponding connection is open and within the
// liveness TTL. All methods are safe for concurrent use; each mutation is
// exclusive, so no two mutations on the same id are observed as interleaved.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	room    Room
	maxName int
	nextSeq uint64
	now     func() time.Time
}

// NewRegistry creates an empty Registry for the given room.
//
// Precondition: room dimensions must be positive; maxNameLength must be >= 1.
func NewRegistry(room Room, maxNameLength int) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		room:    room,
		maxName: maxNameLength,
		now:     time.Now,
	}
}

// Room returns the registry's room dimensions.
func (r *Registry) Room() Room {
	return r.room
}

// Register inserts a provisional participant with a generated id, a guest
// name, a random spawn position inside the room, and a color from the
// palette. Ids are never reused: every registration gets a fresh one.
//
// Postcondition: Returns the created participant snapshot.
func (r *Registry) Register() Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := Participant{
		ID:    uuid.NewString(),
		Name:  guestName(),
		X:     rand.IntN(r.room.Width + 1),
		Y:     rand.IntN(r.room.Height + 1),
		Color: randomColor(),
	}
	r.nextSeq++
	r.entries[p.ID] = &entry{
		participant: p,
		lastSeen:    r.now(),
		seq:         r.nextSeq,
	}
	return p
}

// UpdatePosition moves a participant, clamping the target into room bounds,
// and refreshes its last-seen timestamp.
//
// Postcondition: The stored position satisfies the bounds invariant.
// Returns the updated snapshot, or ErrNotFound.
func (r *Registry) UpdatePosition(id string, x, y int) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	e.participant.X, e.participant.Y = r.room.Clamp(x, y)
	e.lastSeen = r.now()
	return e.participant, nil
}

// Rename changes a participant's display name, trimming whitespace and
// truncating to the configured maximum length, and refreshes last-seen.
//
// Precondition: name must be non-empty after trimming (callers drop empty names).
// Postcondition: Returns the updated snapshot, or ErrNotFound.
func (r *Registry) Rename(id, name string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	e.participant.Name = clampName(name, r.maxName)
	e.lastSeen = r.now()
	return e.participant, nil
}

// Remove deletes a participant. Removing an id that is already gone returns
// ErrNotFound, which idempotent teardown paths may ignore.
//
// Postcondition: The id no longer appears in any snapshot.
func (r *Registry) Remove(id string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	delete(r.entries, id)
	return e.participant, nil
}

// Touch refreshes a participant's last-seen timestamp. Touching a removed
// id is a no-op.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
	}
}

// Get returns the current snapshot for the given id.
//
// Postcondition: Returns (participant, true) if found, or (zero, false) otherwise.
func (r *Registry) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Participant{}, false
	}
	return e.participant, true
}

// Snapshot returns all live participants ordered by registration sequence,
// for full-state sync on join.
func (r *Registry) Snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type seqParticipant struct {
		seq uint64
		p   Participant
	}
	rows := make([]seqParticipant, 0, len(r.entries))
	for _, e := range r.entries {
		rows = append(rows, seqParticipant{seq: e.seq, p: e.participant})
	}
	// registration order, oldest first
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]Participant, len(rows))
	for i, row := range rows {
		out[i] = row.p
	}
	return out
}

// Stale returns the ids of participants whose last activity predates the
// given TTL, for heartbeat-independent eviction.
func (r *Registry) Stale(ttl time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.now().Add(-ttl)
	var ids []string
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of live participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

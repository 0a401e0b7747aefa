package reservation

import (
	"sync"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
)

type holdKey struct {
	screeningID uint64
	seat        model.SeatRef
	connID      string
}

func keyOf(h model.Hold) holdKey {
	return holdKey{screeningID: h.ScreeningID, seat: h.Seat, connID: h.ConnID}
}

type holdEntry struct {
	hold  model.Hold
	timer *time.Timer
}

// holdRegistry maps each live hold to its expiration timer.  It belongs to
// one Coordinator and is emptied by stopAll when the coordinator closes.
type holdRegistry struct {
	mu      sync.Mutex
	entries map[holdKey]*holdEntry
	stopped bool
}

func newHoldRegistry() *holdRegistry {
	return &holdRegistry{entries: make(map[holdKey]*holdEntry)}
}

// arm registers h and schedules expire after ttl.  An existing timer for
// the same key is replaced.  A fired timer whose entry was replaced or
// removed in the meantime does nothing.
func (r *holdRegistry) arm(h model.Hold, ttl time.Duration, expire func(model.Hold)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	key := keyOf(h)
	if old, ok := r.entries[key]; ok {
		old.timer.Stop()
	}
	e := &holdEntry{hold: h}
	e.timer = time.AfterFunc(ttl, func() {
		r.mu.Lock()
		cur, ok := r.entries[key]
		if !ok || cur != e {
			r.mu.Unlock()
			return
		}
		delete(r.entries, key)
		r.mu.Unlock()
		expire(h)
	})
	r.entries[key] = e
}

// cancel stops and forgets the timer of one hold.
func (r *holdRegistry) cancel(screeningID uint64, seat model.SeatRef, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := holdKey{screeningID: screeningID, seat: seat, connID: connID}
	e, ok := r.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(r.entries, key)
	return true
}

// cancelSeat forgets every hold on a seat of a room, whatever screening
// or connection placed it.
func (r *holdRegistry) cancelSeat(roomID uint64, seat model.SeatRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if e.hold.RoomID == roomID && e.hold.Seat == seat {
			e.timer.Stop()
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// takeConn removes and returns every hold owned by a connection.
func (r *holdRegistry) takeConn(connID string) []model.Hold {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Hold
	for k, e := range r.entries {
		if k.connID != connID {
			continue
		}
		e.timer.Stop()
		delete(r.entries, k)
		out = append(out, e.hold)
	}
	return out
}

// tracked reports whether any live hold covers the seat.
func (r *holdRegistry) tracked(roomID uint64, seat model.SeatRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.hold.RoomID == roomID && e.hold.Seat == seat {
			return true
		}
	}
	return false
}

// stopAll stops every timer and refuses further arms.
func (r *holdRegistry) stopAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for k, e := range r.entries {
		e.timer.Stop()
		delete(r.entries, k)
	}
	r.stopped = true
	return n
}

func (r *holdRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

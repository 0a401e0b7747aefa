// Package reservation is the seat-reservation core: it validates and
// commits bookings, cancels them, tracks realtime seat holds and sweeps
// unpaid bookings.  Every mutation of a room's layout runs inside that
// room's exclusive section.
package reservation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/cineclic/internal/logger"
	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/queue"
	"github.com/iliyamo/cineclic/internal/repository"
)

// Config holds the booking rules.
type Config struct {
	HoldTTL       time.Duration
	PaymentWindow time.Duration
	CancelCutoff  time.Duration
	MaxSeats      int
	NotifyTimeout time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		HoldTTL:       5 * time.Minute,
		PaymentWindow: 20 * time.Minute,
		CancelCutoff:  30 * time.Minute,
		MaxSeats:      5,
		NotifyTimeout: 10 * time.Second,
	}
}

// SeatUpdate is one seat state change as delivered to realtime viewers.
type SeatUpdate struct {
	ScreeningID uint64           `json:"screeningId"`
	Seat        model.SeatRef    `json:"seat"`
	State       model.SeatStatus `json:"state"`
}

// Broadcaster delivers seat updates to the viewers of a screening.  It
// must not block; except names a connection to skip, or is empty.
type Broadcaster interface {
	BroadcastSeats(screeningID uint64, updates []SeatUpdate, except string)
}

// Notifier sends customer notifications.  Calls happen off the mutation
// path and their errors are only logged.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

func WithNotifier(n Notifier) Option { return func(c *Coordinator) { c.notifier = n } }

func WithBroadcaster(b Broadcaster) Option { return func(c *Coordinator) { c.bcast = b } }

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = logger.Component(l, "coordinator") }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithFolios replaces NewFolio, for tests.
func WithFolios(gen func() (string, error)) Option { return func(c *Coordinator) { c.folio = gen } }

// Coordinator owns the per-room locks and the hold timer registry.
type Coordinator struct {
	store    Store
	cfg      Config
	locks    *roomLocks
	holds    *holdRegistry
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	folio    func() (string, error)

	bmu   sync.RWMutex
	bcast Broadcaster

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// New builds a Coordinator.  Zero durations in cfg fall back to
// DefaultConfig.
func New(store Store, cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = def.HoldTTL
	}
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = def.PaymentWindow
	}
	if cfg.CancelCutoff <= 0 {
		cfg.CancelCutoff = def.CancelCutoff
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = def.MaxSeats
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	c := &Coordinator{
		store: store,
		cfg:   cfg,
		locks: newRoomLocks(),
		holds: newHoldRegistry(),
		log:   logger.Component(nil, "coordinator"),
		now:   time.Now,
		folio: NewFolio,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns the effective booking rules.
func (c *Coordinator) Config() Config { return c.cfg }

// SetBroadcaster installs the realtime fan-out.  The hub is built after
// the coordinator, so main wires it here.
func (c *Coordinator) SetBroadcaster(b Broadcaster) {
	c.bmu.Lock()
	c.bcast = b
	c.bmu.Unlock()
}

func (c *Coordinator) broadcast(screeningID uint64, seats []model.SeatRef, state model.SeatStatus, except string) {
	if len(seats) == 0 {
		return
	}
	c.bmu.RLock()
	b := c.bcast
	c.bmu.RUnlock()
	if b == nil {
		return
	}
	updates := make([]SeatUpdate, 0, len(seats))
	for _, s := range seats {
		updates = append(updates, SeatUpdate{ScreeningID: screeningID, Seat: s, State: state})
	}
	b.BroadcastSeats(screeningID, updates, except)
}

// notify runs fn on its own goroutine with a bounded context.  Once the
// coordinator is closed new notifications are dropped.
func (c *Coordinator) notify(event string, fn func(ctx context.Context, n Notifier) error) {
	if c.notifier == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn("notification dropped after close", "event", event)
		return
	}
	c.pending.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.NotifyTimeout)
		defer cancel()
		if err := fn(ctx, c.notifier); err != nil {
			c.log.Error("notification failed", "event", event, "err", err)
		}
	}()
}

// Close stops every hold timer and waits for in-flight notifications
// until ctx expires.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	stopped := c.holds.stopAll()
	c.log.Info("coordinator closing", "stopped_holds", stopped)

	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errNoop aborts a room operation that found nothing to change.
var errNoop = errors.New("reservation: nothing to change")

// roomOp is the view of one locked room handed to inRoom callbacks.
type roomOp struct {
	Tx
	room     *model.Room
	dirty    bool
	onCommit []func()
}

// set changes one seat and marks the layout for saving.
func (op *roomOp) set(seat model.SeatRef, st model.SeatState) bool {
	if op.room.Layout.Set(seat, st) {
		op.dirty = true
		return true
	}
	return false
}

func (op *roomOp) afterCommit(f func()) { op.onCommit = append(op.onCommit, f) }

// inRoom runs fn inside the room's exclusive section and a transaction
// holding the room row lock.  The layout is saved when fn changed it, the
// transaction commits, and afterCommit hooks run before the room is
// released so viewers see updates in commit order.
func (c *Coordinator) inRoom(ctx context.Context, roomID uint64, fn func(op *roomOp) error) error {
	unlock := c.locks.lock(roomID)
	defer unlock()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return internal("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	room, err := tx.LockRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Error{Kind: KindIntegrity, Message: "room not found", Err: err}
		}
		return internal("load room", err)
	}
	op := &roomOp{Tx: tx, room: room}
	if err := fn(op); err != nil {
		return err
	}
	if op.dirty {
		if err := tx.SaveLayout(ctx, roomID, room.Layout); err != nil {
			return internal("save layout", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return internal("commit", err)
	}
	committed = true
	for _, f := range op.onCommit {
		f()
	}
	return nil
}

// screening loads a screening for a new booking or hold.  Missing or
// already started screenings are unavailable.
func (c *Coordinator) screening(ctx context.Context, id uint64) (*model.Screening, error) {
	s, err := c.store.Screening(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindScreeningUnavailable, "screening does not exist")
		}
		return nil, internal("load screening", err)
	}
	if !s.StartTime.After(c.now()) {
		return nil, newError(KindScreeningUnavailable, "screening has already started")
	}
	return s, nil
}

// heldSince is the timestamp stamped on new holds.  Millisecond precision
// survives the JSON round trip through the layout column, which the
// expiry check compares against.
func (c *Coordinator) heldSince() time.Time {
	return c.now().UTC().Truncate(time.Millisecond)
}

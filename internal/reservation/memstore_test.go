package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/queue"
	"github.com/iliyamo/cineclic/internal/repository"
)

// memStore is an in-memory Store.  Transactions stage their writes and
// apply them on Commit, so a rolled back operation leaves no trace.
type memStore struct {
	mu         sync.Mutex
	rooms      map[uint64]*model.Room
	screenings map[uint64]*model.Screening
	movies     map[uint64]*model.Movie
	users      map[uint64]model.User
	bookings   map[uint64]*model.Booking
	nextID     uint64

	statusErr map[uint64]error
}

func newMemStore() *memStore {
	return &memStore{
		rooms:      map[uint64]*model.Room{},
		screenings: map[uint64]*model.Screening{},
		movies:     map[uint64]*model.Movie{},
		users:      map[uint64]model.User{},
		bookings:   map[uint64]*model.Booking{},
		nextID:     1000,
		statusErr:  map[uint64]error{},
	}
}

func (s *memStore) addRoom(id uint64, rows []string, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = &model.Room{ID: id, Name: "Sala", Layout: model.NewLayout(rows, cols)}
}

func (s *memStore) addScreening(id, roomID, movieID uint64, start time.Time, price uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenings[id] = &model.Screening{ID: id, RoomID: roomID, MovieID: movieID, StartTime: start, EndTime: start.Add(2 * time.Hour), PriceCents: price}
}

func (s *memStore) seat(roomID uint64, ref string) model.SeatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.rooms[roomID].Layout.State(model.SeatRef{Row: ref[:1], Column: int(ref[1] - '0')})
	return st
}

func (s *memStore) setSeat(roomID uint64, ref string, st model.SeatState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID].Layout.Set(model.SeatRef{Row: ref[:1], Column: int(ref[1] - '0')}, st)
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	return &memTx{s: s, layouts: map[uint64]model.Layout{}, rooms: map[uint64]*model.Room{}, status: map[uint64]model.BookingStatus{}}, nil
}

func (s *memStore) Screening(ctx context.Context, id uint64) (*model.Screening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scr, ok := s.screenings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *scr
	return &cp, nil
}

func (s *memStore) UpcomingScreenings(ctx context.Context, roomID uint64, from time.Time) ([]model.Screening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Screening
	for _, scr := range s.screenings {
		if scr.RoomID == roomID && !scr.StartTime.Before(from) {
			out = append(out, *scr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Movie(ctx context.Context, id uint64) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) User(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) DueBookings(ctx context.Context, until time.Time) ([]repository.DueBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.DueBooking
	for _, b := range s.bookings {
		scr := s.screenings[b.ScreeningID]
		if b.Status != model.BookingActive || scr.StartTime.After(until) {
			continue
		}
		out = append(out, repository.DueBooking{Booking: *b, RoomID: scr.RoomID, StartTime: scr.StartTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) RoomIDs(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memTx struct {
	s       *memStore
	layouts map[uint64]model.Layout
	rooms   map[uint64]*model.Room
	created []*model.Booking
	status  map[uint64]model.BookingStatus
}

func (t *memTx) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	cp.Layout = r.Layout.Clone()
	return &cp, nil
}

func (t *memTx) SaveLayout(ctx context.Context, roomID uint64, layout model.Layout) error {
	t.layouts[roomID] = layout.Clone()
	return nil
}

func (t *memTx) SaveRoom(ctx context.Context, room *model.Room) error {
	cp := *room
	cp.Layout = room.Layout.Clone()
	t.rooms[room.ID] = &cp
	return nil
}

func (t *memTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.screenings[b.ScreeningID]; !ok {
		return repository.ErrNotFound
	}
	for _, other := range t.s.bookings {
		if other.Folio == b.Folio {
			return repository.ErrFolioTaken
		}
	}
	for _, other := range t.created {
		if other.Folio == b.Folio {
			return repository.ErrFolioTaken
		}
	}
	t.s.nextID++
	b.ID = t.s.nextID
	cp := *b
	cp.Seats = append(model.SeatRefs(nil), b.Seats...)
	t.created = append(t.created, &cp)
	return nil
}

func (t *memTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.Booking(ctx, id)
}

func (t *memTx) SetBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.statusErr[id]; err != nil {
		return err
	}
	b, ok := t.s.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrNoChange
	}
	t.status[id] = to
	return nil
}

func (t *memTx) Commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, l := range t.layouts {
		t.s.rooms[id].Layout = l
	}
	for id, r := range t.rooms {
		t.s.rooms[id] = r
	}
	for _, b := range t.created {
		t.s.bookings[b.ID] = b
	}
	for id, st := range t.status {
		t.s.bookings[id].Status = st
	}
	return nil
}

func (t *memTx) Rollback() error { return nil }

type broadcastCall struct {
	ScreeningID uint64
	Updates     []SeatUpdate
	Except      string
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (r *recordingBroadcaster) BroadcastSeats(screeningID uint64, updates []SeatUpdate, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{ScreeningID: screeningID, Updates: updates, Except: except})
}

func (r *recordingBroadcaster) snapshot() []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastCall(nil), r.calls...)
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	fail      bool
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("broker down")
	}
	n.confirmed = append(n.confirmed, ev)
	return nil
}

func (n *recordingNotifier) BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("broker down")
	}
	n.cancelled = append(n.cancelled, ev)
	return nil
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed), len(n.cancelled)
}

package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/cineclic/internal/logger"
	"github.com/iliyamo/cineclic/internal/reservation"
)

// SeatService is the part of the reservation coordinator the channel
// drives.
type SeatService interface {
	SelectSeat(ctx context.Context, req reservation.HoldRequest) (reservation.SeatUpdate, error)
	DeselectSeat(ctx context.Context, req reservation.HoldRequest) (reservation.SeatUpdate, error)
	ReleaseConnection(ctx context.Context, connID string) int
}

// Fanout carries seat updates between instances.  Publish must return
// quickly; Subscribe delivers every message, including this instance's
// own, to deliver until ctx ends.
type Fanout interface {
	Publish(ctx context.Context, msg FanoutMessage) error
	Subscribe(ctx context.Context, deliver func(FanoutMessage)) error
}

// FanoutMessage is one broadcast as it travels between instances.
type FanoutMessage struct {
	ScreeningID uint64                   `json:"screeningId"`
	Updates     []reservation.SeatUpdate `json:"updates"`
	Except      string                   `json:"except,omitempty"`
}

// Hub tracks connected clients and the screenings they watch.  It
// implements reservation.Broadcaster.
type Hub struct {
	seats  SeatService
	fanout Fanout
	log    *slog.Logger

	// releaseTimeout bounds the hold release of a closing connection.
	releaseTimeout time.Duration

	mu       sync.RWMutex
	clients  map[string]*Client
	watchers map[uint64]map[string]*Client
	closed   bool
	wg       sync.WaitGroup

	outbound chan FanoutMessage
}

// NewHub builds a hub.  With a nil fanout broadcasts are delivered in
// process only.
func NewHub(seats SeatService, fanout Fanout, l *slog.Logger) *Hub {
	return &Hub{
		seats:    seats,
		fanout:   fanout,
		log:      logger.Component(l, "realtime"),
		clients:  make(map[string]*Client),
		watchers: make(map[uint64]map[string]*Client),
		outbound: make(chan FanoutMessage, 256),

		releaseTimeout: actionTimeout,
	}
}

// Run publishes queued broadcasts and, with a fanout, delivers the ones
// received from every instance.  It returns when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	if h.fanout != nil {
		go func() {
			if err := h.fanout.Subscribe(ctx, h.deliver); err != nil && ctx.Err() == nil {
				h.log.Error("fanout subscription ended", "err", err)
			}
		}()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbound:
			if h.fanout == nil {
				h.deliver(msg)
				continue
			}
			if err := h.fanout.Publish(ctx, msg); err != nil {
				h.log.Warn("fanout publish failed, delivering locally", "screening_id", msg.ScreeningID, "err", err)
				h.deliver(msg)
			}
		}
	}
}

// BroadcastSeats queues updates for the viewers of a screening.  It never
// blocks; when the queue is full the broadcast is dropped and logged.
func (h *Hub) BroadcastSeats(screeningID uint64, updates []reservation.SeatUpdate, except string) {
	msg := FanoutMessage{ScreeningID: screeningID, Updates: updates, Except: except}
	select {
	case h.outbound <- msg:
	default:
		h.log.Warn("broadcast queue full, update dropped", "screening_id", screeningID, "updates", len(updates))
	}
}

// deliver writes a broadcast to the local watchers of its screening.
func (h *Hub) deliver(msg FanoutMessage) {
	frames := make([][]byte, 0, len(msg.Updates))
	for _, u := range msg.Updates {
		b, err := encode(EventUpdate, u)
		if err != nil {
			h.log.Error("encode seat update failed", "err", err)
			return
		}
		frames = append(frames, b)
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.watchers[msg.ScreeningID]))
	for id, c := range h.watchers[msg.ScreeningID] {
		if id != msg.Except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		for _, f := range frames {
			c.enqueue(f)
		}
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.wg.Add(1)
	return true
}

// unregister drops the client and releases its holds.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for id, set := range h.watchers {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.watchers, id)
		}
	}
	h.mu.Unlock()
	defer h.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), h.releaseTimeout)
	defer cancel()
	if n := h.seats.ReleaseConnection(ctx, c.id); n > 0 {
		h.log.Info("released holds of closed connection", "conn", c.id, "seats", n)
	}
}

func (h *Hub) join(c *Client, screeningID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[screeningID]
	if !ok {
		set = make(map[string]*Client)
		h.watchers[screeningID] = set
	}
	set[c.id] = c
}

func (h *Hub) leave(c *Client, screeningID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[screeningID]; ok {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.watchers, screeningID)
		}
	}
}

// Watchers is the number of local clients watching a screening.
func (h *Hub) Watchers(screeningID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[screeningID])
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client, which releases their holds, and waits
// for them to finish or ctx to expire.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

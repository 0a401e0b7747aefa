package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iliyamo/cineclic/internal/reservation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
	actionTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket connection.  Its id is the connection id
// recorded on the seats it selects.
type Client struct {
	id     string
	userID uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte

	once sync.Once
	done chan struct{}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// ServeWS upgrades the request and serves the connection of an
// authenticated user until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return conn.Close()
	}
	h.log.Debug("client connected", "conn", c.id, "user_id", userID)

	go c.writePump()
	c.readPump()
	return nil
}

// enqueue hands a frame to the write pump.  A client that cannot keep up
// is disconnected rather than stalling the broadcaster.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		c.hub.log.Warn("client too slow, disconnecting", "conn", c.id)
		c.close()
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("client read failed", "conn", c.id, "err", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.reject("", reservation.KindValidation, "malformed message", nil)
			continue
		}
		c.handle(env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) handle(env Envelope) {
	switch env.Event {
	case EventJoin, EventLeave:
		var p ScreeningPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ScreeningID == 0 {
			c.reject(env.Event, reservation.KindValidation, "screeningId is required", nil)
			return
		}
		if env.Event == EventLeave {
			c.hub.leave(c, p.ScreeningID)
			return
		}
		c.hub.join(c, p.ScreeningID)
		c.reply(EventJoined, p)
	case EventSelect, EventDeselect:
		var p SeatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ScreeningID == 0 {
			c.reject(env.Event, reservation.KindValidation, "screeningId and seat are required", nil)
			return
		}
		// Selecting implies watching the screening.
		c.hub.join(c, p.ScreeningID)

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		req := reservation.HoldRequest{ScreeningID: p.ScreeningID, Seat: p.Seat, ConnID: c.id, UserID: c.userID}
		var (
			upd reservation.SeatUpdate
			err error
		)
		if env.Event == EventSelect {
			upd, err = c.hub.seats.SelectSeat(ctx, req)
		} else {
			upd, err = c.hub.seats.DeselectSeat(ctx, req)
		}
		if err != nil {
			c.rejectErr(env.Event, err)
			return
		}
		c.reply(EventUpdate, upd)
	default:
		c.reject(env.Event, reservation.KindValidation, "unknown event", nil)
	}
}

func (c *Client) reply(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		c.hub.log.Error("encode reply failed", "event", event, "err", err)
		return
	}
	c.enqueue(frame)
}

func (c *Client) rejectErr(event string, err error) {
	kind := reservation.KindOf(err)
	msg := "internal error"
	var seats []string
	var rerr *reservation.Error
	if errors.As(err, &rerr) {
		seats = rerr.Seats
		if kind != reservation.KindInternal && kind != reservation.KindIntegrity {
			msg = rerr.Message
		}
	}
	if kind == reservation.KindInternal || kind == reservation.KindIntegrity {
		c.hub.log.Error("seat action failed", "event", event, "conn", c.id, "err", err)
	}
	c.reject(event, kind, msg, seats)
}

func (c *Client) reject(event string, kind reservation.Kind, msg string, seats []string) {
	c.reply(EventError, ErrorPayload{Event: event, Kind: kind.String(), Error: msg, Seats: seats})
}

package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "sync"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
)

// Dispatcher turns a raw notification message into an audit line in
// booking.log and a customer email.  Both broker consumers share it.
type Dispatcher struct {
    confirmed string
    cancelled string
    mailer    Mailer
    logDir    string
    log       *slog.Logger
    mu        sync.Mutex
}

// NewDispatcher routes the configured queue or topic names.  logDir holds
// booking.log and is created on first use.
func NewDispatcher(bc config.BrokerConfig, m Mailer, logDir string, l *slog.Logger) *Dispatcher {
    return &Dispatcher{
        confirmed: bc.ConfirmedQueue,
        cancelled: bc.CancelledQueue,
        mailer:    m,
        logDir:    logDir,
        log:       logger.Component(l, "booking-consumer"),
    }
}

// Handle processes one message received on topic.
func (d *Dispatcher) Handle(ctx context.Context, topic string, body []byte) error {
    switch topic {
    case d.confirmed:
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        d.log.Debug("booking confirmed received", "folio", ev.Folio)
        return d.confirmedEvent(ctx, ev)
    case d.cancelled:
        var ev BookingCancelledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        d.log.Debug("booking cancelled received", "folio", ev.Folio, "reason", ev.Reason)
        return d.cancelledEvent(ctx, ev)
    }
    return fmt.Errorf("unknown topic %q", topic)
}

func (d *Dispatcher) confirmedEvent(ctx context.Context, ev BookingConfirmedEvent) error {
    line := fmt.Sprintf("[%s] Booking confirmed | folio=%s | booking_id=%d | user_id=%d | screening_id=%d | movie=%q | room=%q | total=%d cents | seats=[%s]\n",
        ev.ConfirmedAt.UTC().Format("2006-01-02T15:04:05Z"), ev.Folio, ev.BookingID, ev.UserID, ev.ScreeningID,
        ev.MovieTitle, ev.RoomName, ev.TotalCents, strings.Join(ev.SeatLabels, ","))
    if err := d.appendLog(line); err != nil {
        return err
    }
    html, err := render("confirmed", ev)
    if err != nil {
        return err
    }
    return d.mailer.Send(ctx, Mail{To: ev.UserEmail, ToName: ev.UserName, Subject: "Booking confirmation - CineClic", HTML: html})
}

func (d *Dispatcher) cancelledEvent(ctx context.Context, ev BookingCancelledEvent) error {
    line := fmt.Sprintf("[%s] Booking cancelled | folio=%s | booking_id=%d | user_id=%d | screening_id=%d | reason=%s | seats=[%s]\n",
        ev.CancelledAt.UTC().Format("2006-01-02T15:04:05Z"), ev.Folio, ev.BookingID, ev.UserID, ev.ScreeningID,
        ev.Reason, strings.Join(ev.SeatLabels, ","))
    if err := d.appendLog(line); err != nil {
        return err
    }
    html, err := render("cancelled", ev)
    if err != nil {
        return err
    }
    return d.mailer.Send(ctx, Mail{To: ev.UserEmail, ToName: ev.UserName, Subject: "Booking cancellation - CineClic", HTML: html})
}

func (d *Dispatcher) appendLog(line string) error {
    d.mu.Lock()
    defer d.mu.Unlock()
    if err := os.MkdirAll(d.logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(d.logDir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

package queue

import (
    "bytes"
    "context"
    "crypto/tls"
    "fmt"
    "log/slog"
    "mime"
    "net"
    "net/smtp"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
)

// Mail is one outgoing HTML email.
type Mail struct {
    To      string
    ToName  string
    Subject string
    HTML    string
}

// Mailer delivers mail.
type Mailer interface {
    Send(ctx context.Context, m Mail) error
}

// NewMailer returns an SMTP mailer, or a mailer that only logs when no
// SMTP host is configured.
func NewMailer(sc config.SMTPConfig, l *slog.Logger) Mailer {
    if sc.Host == "" {
        return &LogMailer{log: logger.Component(l, "mailer")}
    }
    return &SMTPMailer{cfg: sc, log: logger.Component(l, "mailer")}
}

// SMTPMailer sends through an SMTP relay, upgrading with STARTTLS when the
// server offers it.
type SMTPMailer struct {
    cfg config.SMTPConfig
    log *slog.Logger
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
    addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
    timeout := s.cfg.Timeout
    if dl, ok := ctx.Deadline(); ok {
        timeout = time.Until(dl)
    }
    conn, err := net.DialTimeout("tcp", addr, timeout)
    if err != nil {
        return fmt.Errorf("connect to SMTP server: %w", err)
    }
    if timeout > 0 {
        _ = conn.SetDeadline(time.Now().Add(timeout))
    }
    client, err := smtp.NewClient(conn, s.cfg.Host)
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("smtp handshake: %w", err)
    }
    defer client.Close()

    if ok, _ := client.Extension("STARTTLS"); ok {
        if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
            return fmt.Errorf("start TLS: %w", err)
        }
    }
    if s.cfg.Username != "" {
        auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
        if err := client.Auth(auth); err != nil {
            return fmt.Errorf("authenticate: %w", err)
        }
    }
    if err := client.Mail(s.cfg.From); err != nil {
        return fmt.Errorf("set sender: %w", err)
    }
    if err := client.Rcpt(m.To); err != nil {
        return fmt.Errorf("set recipient: %w", err)
    }
    w, err := client.Data()
    if err != nil {
        return fmt.Errorf("open data: %w", err)
    }
    if _, err := w.Write(buildMessage(s.cfg.From, s.cfg.FromName, m)); err != nil {
        return fmt.Errorf("write message: %w", err)
    }
    if err := w.Close(); err != nil {
        return fmt.Errorf("close data: %w", err)
    }
    s.log.Info("email sent", "to", m.To, "subject", m.Subject)
    return client.Quit()
}

func buildMessage(from, fromName string, m Mail) []byte {
    var b bytes.Buffer
    fmt.Fprintf(&b, "From: %s\r\n", formatAddress(fromName, from))
    fmt.Fprintf(&b, "To: %s\r\n", formatAddress(m.ToName, m.To))
    fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
    fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
    b.WriteString("MIME-Version: 1.0\r\n")
    b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
    b.WriteString("\r\n")
    b.WriteString(strings.ReplaceAll(m.HTML, "\n", "\r\n"))
    return b.Bytes()
}

func formatAddress(name, addr string) string {
    if name == "" {
        return "<" + addr + ">"
    }
    return mime.QEncoding.Encode("utf-8", name) + " <" + addr + ">"
}

// LogMailer records mail in the log instead of sending it.
type LogMailer struct {
    log *slog.Logger
}

func (l *LogMailer) Send(ctx context.Context, m Mail) error {
    l.log.Info("email not sent, SMTP disabled", "to", m.To, "subject", m.Subject, "bytes", len(m.HTML))
    return nil
}

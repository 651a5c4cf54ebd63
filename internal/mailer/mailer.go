// Package mailer sends the four transactional emails of the assessment
// flow. Delivery failures never block core flows: callers get a result,
// not an error they must handle inline, and every attempt is recorded
// in the email log by the service layer.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Text    string
}

type Result struct {
	Success   bool
	MessageID string
	Err       string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) Result
}

// retries after the first attempt: 1s then 2s backoff.
const maxRetries = 2

// WithRetry wraps a Mailer with exponential backoff.
func WithRetry(m Mailer, log *zap.SugaredLogger) Mailer {
	return &retryMailer{inner: m, log: log}
}

type retryMailer struct {
	inner Mailer
	log   *zap.SugaredLogger
}

func (r *retryMailer) Send(ctx context.Context, msg Message) Result {
	var last Result
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				last.Err = ctx.Err().Error()
				return last
			}
		}
		last = r.inner.Send(ctx, msg)
		if last.Success {
			return last
		}
		r.log.Warnw("email send failed", "to", msg.To, "attempt", attempt+1, "error", last.Err)
	}
	return last
}

// SMTPMailer delivers over plain SMTP with optional auth.
type SMTPMailer struct {
	Addr string // host:port
	Host string
	From string
	Auth smtp.Auth
}

func NewSMTPMailer(addr, from, user, pass string) *SMTPMailer {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	m := &SMTPMailer{Addr: addr, Host: host, From: from}
	if user != "" {
		m.Auth = smtp.PlainAuth("", user, pass, host)
	}
	return m
}

// Send dials under the caller's context so a retry deadline can cut a
// hung connection short; the context deadline also bounds the SMTP
// conversation itself via the connection deadline.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) Result {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.Addr)
	if err != nil {
		return Result{Err: err.Error()}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return Result{Err: err.Error()}
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.Host}); err != nil {
			return Result{Err: err.Error()}
		}
	}
	if m.Auth != nil {
		if err := c.Auth(m.Auth); err != nil {
			return Result{Err: err.Error()}
		}
	}
	if err := c.Mail(envelopeFrom(m.From)); err != nil {
		return Result{Err: err.Error()}
	}
	if err := c.Rcpt(msg.To); err != nil {
		return Result{Err: err.Error()}
	}
	wc, err := c.Data()
	if err != nil {
		return Result{Err: err.Error()}
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.From, msg.To, msg.Subject, msg.Text)
	if _, err := wc.Write([]byte(body)); err != nil {
		wc.Close()
		return Result{Err: err.Error()}
	}
	if err := wc.Close(); err != nil {
		return Result{Err: err.Error()}
	}
	if err := c.Quit(); err != nil {
		return Result{Err: err.Error()}
	}
	return Result{Success: true}
}

// LogMailer is the dev/offline driver: it only logs.
type LogMailer struct {
	Log *zap.SugaredLogger
}

func (m *LogMailer) Send(_ context.Context, msg Message) Result {
	m.Log.Infow("email (log driver)", "to", msg.To, "subject", msg.Subject)
	return Result{Success: true, MessageID: fmt.Sprintf("log-%d", time.Now().UnixNano())}
}

// envelopeFrom strips a display name like `Name <addr>` down to addr.
func envelopeFrom(from string) string {
	if i := strings.IndexByte(from, '<'); i >= 0 {
		if j := strings.IndexByte(from[i:], '>'); j > 0 {
			return from[i+1 : i+j]
		}
	}
	return from
}

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPSPort is the implicit-TLS submission port.
const SMTPSPort = 465

// EmailConfig configures the operator e-mail channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// DefaultEmailTimeout bounds one delivery, from dial to QUIT.
const DefaultEmailTimeout = 10 * time.Second

// EmailChannel mails notifications to a fixed operator address.
type EmailChannel struct {
	cfg     EmailConfig
	timeout time.Duration
	now     func() time.Time
}

// NewEmailChannel creates an e-mail channel. From defaults to the username.
func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	if cfg.Port == 0 {
		cfg.Port = SMTPSPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailChannel{cfg: cfg, timeout: DefaultEmailTimeout, now: time.Now}
}

// Type returns the channel type.
func (e *EmailChannel) Type() string {
	return "email"
}

// Send delivers the message. Port 465 uses implicit TLS; any other port uses
// plain SMTP with STARTTLS when the server offers it. The whole conversation
// is bounded by the channel timeout and by ctx.
func (e *EmailChannel) Send(ctx context.Context, msg *Message) error {
	from, err := mail.ParseAddress(e.cfg.From)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", e.cfg.From, err)
	}
	to, err := mail.ParseAddress(e.cfg.To)
	if err != nil {
		return fmt.Errorf("parse recipient %q: %w", e.cfg.To, err)
	}
	body := e.buildMessage(from, to, msg)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	dialer := &net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	// Cancellation before the deadline closes the connection
	raw := conn
	stop := context.AfterFunc(ctx, func() { raw.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: e.cfg.Host}
	if e.cfg.Port == SMTPSPort {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if e.cfg.Port != SMTPSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp STARTTLS: %w", err)
			}
		}
	}
	if e.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from.Address); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to.Address); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return c.Quit()
}

func (e *EmailChannel) buildMessage(from, to *mail.Address, msg *Message) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from.String())
	fmt.Fprintf(&sb, "To: %s\r\n", to.String())
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Title)
	fmt.Fprintf(&sb, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	if msg.Priority == PriorityUrgent {
		sb.WriteString("X-Priority: 1\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(sb.String())
}

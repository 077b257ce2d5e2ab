package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"
)

// ErrNotConfigured is returned by SendMail when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp is not configured")

// MailService is the interface other plugins use to send email.
type MailService interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured() bool
}

// mailService implements MailService over net/smtp.
type mailService struct {
	settings Settings
	now      func() time.Time
}

// NewMailService creates a mail service. Missing port, sender name and
// encryption fall back to 587, "Eventboard" and STARTTLS.
func NewMailService(s Settings) MailService {
	if s.Port <= 0 {
		s.Port = 587
	}
	if s.FromName == "" {
		s.FromName = "Eventboard"
	}
	if s.Encryption == "" {
		s.Encryption = EncryptionStartTLS
	}
	return &mailService{settings: s, now: time.Now}
}

// IsConfigured returns true if a mail host is set.
func (s *mailService) IsConfigured() bool {
	return s.settings.Host != ""
}

// SendMail sends a plain-text message. The call is abandoned when ctx is
// already done; an in-flight SMTP exchange is bounded by the dial timeout
// and the server.
func (s *mailService) SendMail(ctx context.Context, to []string, subject, body string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := mail.Address{Name: s.settings.FromName, Address: s.settings.FromAddress}
	msg := s.buildMessage(from, to, subject, body)
	addr := s.settings.addr()

	var err error
	switch s.settings.Encryption {
	case EncryptionSSL:
		err = s.sendSSL(addr, from.Address, to, msg)
	case EncryptionNone:
		err = s.sendPlain(addr, from.Address, to, msg)
	default:
		err = s.sendStartTLS(addr, from.Address, to, msg)
	}
	if err != nil {
		return err
	}

	slog.Info("mail sent",
		slog.Int("recipients", len(to)),
		slog.String("subject", subject),
	)
	return nil
}

// buildMessage renders an RFC 5322 message with CRLF line endings.
func (s *mailService) buildMessage(from mail.Address, to []string, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerSafe.Replace(strings.Join(to, ", "))))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", headerSafe.Replace(subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", s.now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return msg.String()
}

// sendStartTLS sends email using STARTTLS (port 587 typical).
func (s *mailService) sendStartTLS(addr, from string, to []string, msg string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.settings.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}
	if err := s.authenticate(client); err != nil {
		return err
	}
	return sendMessage(client, from, to, msg)
}

// sendSSL sends email using implicit TLS (port 465 typical).
func (s *mailService) sendSSL(addr, from string, to []string, msg string) error {
	tlsConfig := &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, "tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("connecting to %s (SSL): %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.settings.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}
	return sendMessage(client, from, to, msg)
}

// sendPlain sends email without encryption. Intended for a local relay.
func (s *mailService) sendPlain(addr, from string, to []string, msg string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.settings.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}
	return sendMessage(client, from, to, msg)
}

func (s *mailService) authenticate(client *gosmtp.Client) error {
	if s.settings.Username == "" {
		return nil
	}
	auth := gosmtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	return nil
}

// sendMessage handles MAIL FROM, RCPT TO, DATA for an existing SMTP client.
func sendMessage(client *gosmtp.Client, from string, to []string, msg string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

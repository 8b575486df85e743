// Package mail is the outbound email channel.
package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"sync"

	"musicplayer/internal/config"
	"musicplayer/internal/logging"
)

type Sender interface {
	Send(to, subject, body string) error
}

// New picks the sender configured by MAIL_BACKEND.
func New(cfg config.MailConfig) (Sender, error) {
	switch cfg.Backend {
	case "", "log":
		return LogSender{}, nil
	case "smtp":
		return NewSMTPSender(cfg)
	default:
		return nil, fmt.Errorf("mail: unknown backend %q", cfg.Backend)
	}
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	logging.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("email")
	return nil
}

type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, errors.New("mail: smtp not fully configured")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr: cfg.Host + ":" + cfg.Port,
		auth: auth,
		from: cfg.From,
		send: smtp.SendMail,
	}, nil
}

func (s *SMTPSender) Send(to, subject, body string) error {
	return s.send(s.addr, s.auth, s.from, []string{to}, buildMessage(s.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body + "\r\n",
	)
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// MemorySender records messages instead of sending them.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (m *MemorySender) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MemorySender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func (m *MemorySender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

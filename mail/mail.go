// Package mail sends account-related notifications over SMTP. Sends are
// best-effort: callers log failures and carry on.
package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	cfg Config
}

func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether SMTP credentials were configured. A disabled
// mailer turns every send into a no-op.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

func (m *Mailer) send(to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending mail to %s: %w", to, err)
	}
	return nil
}

func (m *Mailer) SendWelcome(to, username string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to Producktive! Your duck is waiting for you.\n", username)
	return m.send(to, "Welcome to Producktive", body)
}

func (m *Mailer) SendGoodbye(to, username string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour account has been deleted. Your duck will miss you.\n", username)
	return m.send(to, "Goodbye from Producktive", body)
}

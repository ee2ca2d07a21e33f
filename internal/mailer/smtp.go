// Package mailer delivers transactional mail over SMTP. It implements the
// auth.Mailer contract consumed by the password-reset flow.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/campuslink/campuslink/internal/utils"
)

type SMTP struct {
	addr     string
	from     string
	username string
	password string
}

func NewSMTP(cfg utils.SMTPConfig) *SMTP {
	return &SMTP{
		addr:     cfg.Addr,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (s *SMTP) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	var a smtp.Auth
	if s.username != "" {
		host := s.addr
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		a = smtp.PlainAuth("", s.username, s.password, host)
	}

	if err := smtp.SendMail(s.addr, a, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

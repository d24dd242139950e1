package provider

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

// SMTP delivers email through a plain-auth SMTP relay.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *logging.Logger

	// sendMail is swappable for tests; net/smtp offers no test seam.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg config.SMTPConfig, log *logging.Logger) *SMTP {
	return &SMTP{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		log:      log.Sub("provider.smtp"),
		sendMail: smtp.SendMail,
	}
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) Channels() []domain.Channel {
	return []domain.Channel{domain.ChannelEmail}
}

func (s *SMTP) Send(ctx context.Context, req Request) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Providerf("smtp: request timed out")
	}

	msg := buildMail(s.from, req.To, req.Subject, req.Body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if err := s.sendMail(addr, auth, s.from, []string{req.To}, []byte(msg)); err != nil {
		return nil, domain.Providerf("smtp: delivery failed").WithDetail(err.Error())
	}

	s.log.Debug().Str("to", req.To).Msg("email relayed")
	return &Receipt{Provider: s.Name()}, nil
}

// buildMail assembles a minimal RFC 822 plain-text message.
func buildMail(from, to, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

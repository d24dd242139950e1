package intake

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/hooks"
	"github.com/voxhollow/switchboard/internal/logging"
	"github.com/voxhollow/switchboard/internal/mailbox"
)

// IMAPSource polls an IMAP INBOX for unseen mail and enqueues each
// message into one agent's waiting-messages queue. Messages are marked
// seen only after they are queued, so a crash re-delivers rather than
// drops.
type IMAPSource struct {
	cfg     config.IMAPConfig
	mailbox *mailbox.Service
	hooks   *hooks.Manager
	log     *logging.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewIMAP(cfg config.IMAPConfig, mb *mailbox.Service, hk *hooks.Manager, log *logging.Logger) *IMAPSource {
	return &IMAPSource{
		cfg:     cfg,
		mailbox: mb,
		hooks:   hk,
		log:     log.Sub("intake.imap"),
		stop:    make(chan struct{}),
	}
}

func (s *IMAPSource) ID() string { return "imap" }

// Start polls on the configured interval until stopped. Poll errors are
// logged and retried on the next tick.
func (s *IMAPSource) Start(ctx context.Context) error {
	interval := time.Duration(s.cfg.PollSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx); err != nil {
			s.log.Warn().Err(err).Msg("imap poll failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
		}
	}
}

func (s *IMAPSource) Stop(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// poll runs one fetch cycle: connect, search unseen, enqueue, mark seen.
func (s *IMAPSource) poll(ctx context.Context) error {
	c, err := client.DialTLS(s.cfg.Server, &tls.Config{})
	if err != nil {
		return fmt.Errorf("imap connect: %w", err)
	}
	defer c.Logout()

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return fmt.Errorf("imap select: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("imap search: %w", err)
	}
	if len(seqNums) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	queued := 0
	for msg := range messages {
		if err := s.enqueue(ctx, msg, section); err != nil {
			s.log.Warn().Err(err).Uint32("seq", msg.SeqNum).Msg("failed to queue inbound email")
			continue
		}
		queued++
	}
	if err := <-done; err != nil {
		return fmt.Errorf("imap fetch: %w", err)
	}

	// Queued messages are safe; flag them so the next poll skips them.
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.Store(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("imap store flags: %w", err)
	}

	if queued > 0 {
		s.log.Info().Int("count", queued).Str("agent", s.cfg.AgentID).Msg("inbound email queued")
	}
	return nil
}

func (s *IMAPSource) enqueue(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) error {
	from := ""
	if msg.Envelope != nil && len(msg.Envelope.From) > 0 {
		from = msg.Envelope.From[0].Address()
	}
	subject := ""
	receivedAt := time.Time{}
	if msg.Envelope != nil {
		subject = msg.Envelope.Subject
		receivedAt = msg.Envelope.Date
	}

	body := ""
	if literal := msg.GetBody(section); literal != nil {
		parsed, err := mail.ReadMessage(literal)
		if err == nil {
			if text, err := extractBody(parsed); err == nil {
				body = text
			}
		}
	}

	queued, err := s.mailbox.Enqueue(domain.WaitingMessage{
		AgentID:    s.cfg.AgentID,
		Channel:    domain.ChannelEmail,
		From:       from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		return err
	}

	s.hooks.Emit(ctx, hooks.EventMessageReceived, map[string]any{
		"agentId": s.cfg.AgentID,
		"channel": string(domain.ChannelEmail),
		"from":    from,
		"subject": subject,
		"id":      queued.ID,
	})
	return nil
}

// extractBody pulls the first text part out of a parsed message.
func extractBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}

			partMediaType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			if strings.HasPrefix(partMediaType, "text/") {
				body, err := io.ReadAll(p)
				if err != nil {
					continue
				}
				return string(body), nil
			}
		}
	} else if strings.HasPrefix(mediaType, "text/") {
		if msg.Header.Get("Content-Transfer-Encoding") == "quoted-printable" {
			body, err := io.ReadAll(quotedprintable.NewReader(msg.Body))
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	return "", fmt.Errorf("unsupported content type: %s", mediaType)
}

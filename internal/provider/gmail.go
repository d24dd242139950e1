package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

// Gmail delivers email through the Gmail API using a pre-authorized
// OAuth token on disk.
type Gmail struct {
	service *gmail.Service
	from    string
	log     *logging.Logger
}

func NewGmail(cfg config.GmailConfig, log *logging.Logger) (*Gmail, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail: unable to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail: unable to parse credentials: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail: no auth token at %s: %w", cfg.TokenFile, err)
	}

	ctx := context.Background()
	service, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("gmail: unable to create service: %w", err)
	}

	return &Gmail{
		service: service,
		from:    cfg.From,
		log:     log.Sub("provider.gmail"),
	}, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (g *Gmail) Name() string { return "gmail" }

func (g *Gmail) Channels() []domain.Channel {
	return []domain.Channel{domain.ChannelEmail}
}

func (g *Gmail) Send(ctx context.Context, req Request) (*Receipt, error) {
	raw := base64.URLEncoding.EncodeToString([]byte(buildMail(g.from, req.To, req.Subject, req.Body)))

	sent, err := g.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Providerf("gmail: request timed out")
		}
		return nil, domain.Providerf("gmail: delivery failed").WithDetail(err.Error())
	}

	g.log.Debug().Str("to", req.To).Str("id", sent.Id).Msg("email sent")
	return &Receipt{Provider: g.Name(), Ref: sent.Id}, nil
}

package provider

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxhollow/switchboard/internal/config"
	"github.com/voxhollow/switchboard/internal/domain"
	"github.com/voxhollow/switchboard/internal/logging"
)

const twilioAPIBase = "https://api.twilio.com"

// Twilio is a REST client for the Twilio 2010-04-01 API. It serves sms
// and all four voice channels. BaseURL is overridable so tests can point
// it at a local server.
type Twilio struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	log        *logging.Logger
}

func NewTwilio(cfg config.TwilioConfig, log *logging.Logger) *Twilio {
	base := cfg.BaseURL
	if base == "" {
		base = twilioAPIBase
	}
	return &Twilio{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log.Sub("provider.twilio"),
	}
}

func (t *Twilio) Name() string { return "twilio" }

func (t *Twilio) Channels() []domain.Channel {
	return []domain.Channel{
		domain.ChannelSMS,
		domain.ChannelVoiceCall,
		domain.ChannelVoiceMessage,
		domain.ChannelCallTransfer,
		domain.ChannelCallOnBehalf,
	}
}

func (t *Twilio) Send(ctx context.Context, req Request) (*Receipt, error) {
	switch req.Channel {
	case domain.ChannelSMS:
		return t.post(ctx, "/Messages.json", url.Values{
			"To":   {req.To},
			"From": {t.from},
			"Body": {req.Body},
		})

	case domain.ChannelVoiceCall:
		return t.post(ctx, "/Calls.json", url.Values{
			"To":    {req.To},
			"From":  {t.from},
			"Twiml": {callTwiml(req.Body)},
		})

	case domain.ChannelVoiceMessage:
		return t.post(ctx, "/Calls.json", url.Values{
			"To":    {req.To},
			"From":  {t.from},
			"Twiml": {sayTwiml(req.Body)},
		})

	case domain.ChannelCallTransfer:
		// Redirecting a live call is an update on the call resource.
		return t.post(ctx, "/Calls/"+url.PathEscape(req.CallSid)+".json", url.Values{
			"Twiml": {dialTwiml(req.To)},
		})

	case domain.ChannelCallOnBehalf:
		from := req.From
		if from == "" {
			from = t.from
		}
		return t.post(ctx, "/Calls.json", url.Values{
			"To":    {req.To},
			"From":  {from},
			"Twiml": {callTwiml(req.Body)},
		})
	}
	return nil, domain.Providerf("twilio does not serve channel %q", req.Channel)
}

// post submits one form-encoded request under the account resource and
// decodes the sid out of the response.
func (t *Twilio) post(ctx context.Context, resource string, form url.Values) (*Receipt, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s%s", t.baseURL, url.PathEscape(t.accountSID), resource)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.Providerf("twilio: building request failed").WithDetail(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Providerf("twilio: request timed out")
		}
		return nil, domain.Providerf("twilio: request failed").WithDetail(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Providerf("twilio: reading response failed").WithDetail(err.Error())
	}
	if resp.StatusCode >= 300 {
		t.log.Warn().Int("status", resp.StatusCode).Str("resource", resource).Msg("twilio rejected request")
		return nil, domain.Providerf("twilio: API error (%d)", resp.StatusCode).
			WithDetail(firstLine(string(body)))
	}

	var result struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.Providerf("twilio: unexpected response").WithDetail(err.Error())
	}
	return &Receipt{Provider: t.Name(), Ref: result.Sid}, nil
}

// callTwiml keeps the line open; when text is given it is spoken first.
func callTwiml(text string) string {
	if text == "" {
		return `<Response><Pause length="60"/></Response>`
	}
	return sayTwiml(text)
}

func sayTwiml(text string) string {
	return "<Response><Say>" + xmlEscape(text) + "</Say></Response>"
}

func dialTwiml(to string) string {
	return "<Response><Dial>" + xmlEscape(to) + "</Dial></Response>"
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

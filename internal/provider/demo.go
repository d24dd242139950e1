package provider

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Demo serves every channel without touching the outside world. It
// fabricates provider refs in the Twilio sid shape so demo responses
// look like live ones.
type Demo struct{}

func NewDemo() *Demo { return &Demo{} }

func (d *Demo) Name() string { return "demo" }

func (d *Demo) Channels() []domain.Channel { return domain.Channels() }

func (d *Demo) Send(_ context.Context, req Request) (*Receipt, error) {
	receipt := &Receipt{Provider: d.Name()}
	switch req.Channel {
	case domain.ChannelSMS, domain.ChannelEmail:
		receipt.Ref = "SM" + randomHex32()
	case domain.ChannelVoiceMessage:
		receipt.Ref = "MM" + randomHex32()
	case domain.ChannelCallTransfer:
		// Transfers succeed for any call sid in demo mode.
		receipt.Ref = req.CallSid
	default:
		receipt.Ref = "CA" + randomHex32()
	}
	return receipt, nil
}

func randomHex32() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

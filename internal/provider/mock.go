package provider

import (
	"context"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Mock is a test double for Provider.
type Mock struct {
	ProviderName string
	ChannelList  []domain.Channel
	SendFunc     func(ctx context.Context, req Request) (*Receipt, error)
}

func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *Mock) Channels() []domain.Channel {
	if m.ChannelList == nil {
		return domain.Channels()
	}
	return m.ChannelList
}

func (m *Mock) Send(ctx context.Context, req Request) (*Receipt, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return &Receipt{Provider: m.Name(), Ref: "mock-ref"}, nil
}

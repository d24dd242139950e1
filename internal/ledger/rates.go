package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/voxhollow/switchboard/internal/domain"
)

// Per-action USD cost by tier and channel. Costs are stamped into the
// record at dispatch time; changing an agent's tier never reprices
// history.
var rateCards = map[domain.Tier]map[domain.Channel]decimal.Decimal{
	domain.TierFree: {},
	domain.TierStarter: {
		domain.ChannelSMS:          decimal.RequireFromString("0.0075"),
		domain.ChannelEmail:        decimal.RequireFromString("0.0002"),
		domain.ChannelVoiceCall:    decimal.RequireFromString("0.0130"),
		domain.ChannelVoiceMessage: decimal.RequireFromString("0.0100"),
		domain.ChannelCallTransfer: decimal.RequireFromString("0.0050"),
		domain.ChannelCallOnBehalf: decimal.RequireFromString("0.0150"),
	},
	domain.TierPro: {
		domain.ChannelSMS:          decimal.RequireFromString("0.0060"),
		domain.ChannelEmail:        decimal.RequireFromString("0.0001"),
		domain.ChannelVoiceCall:    decimal.RequireFromString("0.0110"),
		domain.ChannelVoiceMessage: decimal.RequireFromString("0.0085"),
		domain.ChannelCallTransfer: decimal.RequireFromString("0.0040"),
		domain.ChannelCallOnBehalf: decimal.RequireFromString("0.0125"),
	},
	domain.TierEnterprise: {
		domain.ChannelSMS:          decimal.RequireFromString("0.0045"),
		domain.ChannelEmail:        decimal.RequireFromString("0.0001"),
		domain.ChannelVoiceCall:    decimal.RequireFromString("0.0090"),
		domain.ChannelVoiceMessage: decimal.RequireFromString("0.0070"),
		domain.ChannelCallTransfer: decimal.RequireFromString("0.0030"),
		domain.ChannelCallOnBehalf: decimal.RequireFromString("0.0100"),
	},
}

// Rate returns the per-action cost for the tier and channel. Unknown
// combinations cost zero, which also covers the free tier.
func Rate(tier domain.Tier, channel domain.Channel) decimal.Decimal {
	card, ok := rateCards[tier]
	if !ok {
		return decimal.Zero
	}
	rate, ok := card[channel]
	if !ok {
		return decimal.Zero
	}
	return rate
}

package domain

// Channel is a communication medium an action travels over.
type Channel string

const (
	ChannelSMS          Channel = "sms"
	ChannelEmail        Channel = "email"
	ChannelVoiceCall    Channel = "voice-call"
	ChannelVoiceMessage Channel = "voice-message"
	ChannelCallTransfer Channel = "call-transfer"
	ChannelCallOnBehalf Channel = "call-on-behalf"
)

// Channels returns every channel in a stable order.
func Channels() []Channel {
	return []Channel{
		ChannelSMS,
		ChannelEmail,
		ChannelVoiceCall,
		ChannelVoiceMessage,
		ChannelCallTransfer,
		ChannelCallOnBehalf,
	}
}

// Action names a dispatcher operation.
type Action string

const (
	ActionSendMessage      Action = "send-message"
	ActionMakeCall         Action = "make-call"
	ActionCallOnBehalf     Action = "call-on-behalf"
	ActionSendVoiceMessage Action = "send-voice-message"
	ActionTransferCall     Action = "transfer-call"
)

// Actions returns every dispatchable action in a stable order.
func Actions() []Action {
	return []Action{
		ActionSendMessage,
		ActionMakeCall,
		ActionCallOnBehalf,
		ActionSendVoiceMessage,
		ActionTransferCall,
	}
}

// KnownChannel reports whether s names a recognized channel.
func KnownChannel(s string) bool {
	switch Channel(s) {
	case ChannelSMS, ChannelEmail, ChannelVoiceCall, ChannelVoiceMessage,
		ChannelCallTransfer, ChannelCallOnBehalf:
		return true
	}
	return false
}

// ChannelState is an agent-visible availability flag for one channel.
type ChannelState struct {
	Available bool   `json:"available"`
	Provider  string `json:"provider,omitempty"`
}

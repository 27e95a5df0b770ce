package domain

// InboundMessage is a platform-neutral view of a chat message event.
type InboundMessage struct {
	// MessageID is the platform message id, used only for logging.
	MessageID string

	AuthorID          string
	AuthorDisplayName string
	AuthorAvatarURL   string
	DefaultAvatarURL  string

	Text string

	ChannelID       string
	ChannelName     string
	IsDirectMessage bool

	// MentionsBot is true when the bot was mentioned or the message replies to the bot.
	MentionsBot bool
}

// IsDialogueTrigger reports whether the message should be answered by the dialogue orchestrator.
func (m InboundMessage) IsDialogueTrigger() bool {
	return m.MentionsBot || m.IsDirectMessage
}

// Presentation derives the card presentation context from the message author and channel.
func (m InboundMessage) Presentation() PresentationContext {
	return PresentationContext{
		AuthorDisplayName: m.AuthorDisplayName,
		AuthorAvatarURL:   m.AuthorAvatarURL,
		DefaultAvatarURL:  m.DefaultAvatarURL,
		ChannelName:       m.ChannelName,
		IsDirectMessage:   m.IsDirectMessage,
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"mikabot/internal/domain"
)

const (
	discordMaxMessageLength = 2000
	discordPresence         = "chats & links with celestial sparkle! 💖"
)

// DiscordBot connects the Handler to a Discord gateway session.
type DiscordBot struct {
	session *discordgo.Session
	handler *Handler
	log     logrus.FieldLogger

	mu  sync.RWMutex
	ctx context.Context
}

// NewDiscordBot creates a Discord session for token. Call Start to connect.
func NewDiscordBot(token string, handler *Handler, logger logrus.FieldLogger) (*DiscordBot, error) {
	log := logger.WithField("component", "discord")

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.WithError(err).Error("Failed to create Discord session")
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d := &DiscordBot{
		session: session,
		handler: handler,
		log:     log,
		ctx:     context.Background(),
	}
	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)

	log.Info("Discord bot initialized")
	return d, nil
}

// Start opens the gateway connection and blocks until ctx is cancelled.
func (d *DiscordBot) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	d.log.Info("Opening Discord gateway connection...")
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord open connection: %w", err)
	}

	<-ctx.Done()
	d.log.Info("Closing Discord gateway connection...")
	if err := d.session.Close(); err != nil {
		return fmt.Errorf("discord close connection: %w", err)
	}
	return nil
}

func (d *DiscordBot) baseContext() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctx
}

func (d *DiscordBot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	d.handler.SetBotIdentity("<@"+r.User.ID+">", "<@!"+r.User.ID+">", "@"+r.User.Username)

	if err := s.UpdateGameStatus(0, discordPresence); err != nil {
		d.log.WithError(err).Warn("Failed to set presence")
	}
	d.log.WithFields(logrus.Fields{
		"user_id":  r.User.ID,
		"username": r.User.Username,
	}).Info("Discord bot is online")
}

func (d *DiscordBot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	ctx := d.baseContext()
	if ctx.Err() != nil {
		return
	}
	d.handler.HandleMessage(ctx, d.toInbound(s, m), d)
}

func (d *DiscordBot) toInbound(s *discordgo.Session, m *discordgo.MessageCreate) domain.InboundMessage {
	msg := domain.InboundMessage{
		MessageID:         m.ID,
		AuthorID:          m.Author.ID,
		AuthorDisplayName: discordDisplayName(m),
		Text:              m.Content,
		ChannelID:         m.ChannelID,
		IsDirectMessage:   m.GuildID == "",
	}
	if m.Author.Avatar != "" {
		msg.AuthorAvatarURL = m.Author.AvatarURL("")
	}

	var botID string
	if s.State.User != nil {
		botID = s.State.User.ID
		msg.DefaultAvatarURL = s.State.User.AvatarURL("")
	}
	msg.MentionsBot = discordMentionsBot(m.Message, botID)

	if !msg.IsDirectMessage {
		ch, err := s.State.Channel(m.ChannelID)
		if err != nil {
			ch, err = s.Channel(m.ChannelID)
		}
		if err != nil {
			d.log.WithError(err).WithField("channel_id", m.ChannelID).Debug("Channel lookup failed")
		} else {
			msg.ChannelName = ch.Name
		}
	}
	return msg
}

func discordDisplayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func discordMentionsBot(m *discordgo.Message, botID string) bool {
	if m == nil || botID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			return true
		}
	}
	return m.ReferencedMessage != nil &&
		m.ReferencedMessage.Author != nil &&
		m.ReferencedMessage.Author.ID == botID
}

// SendPreviewCard renders card as an embed.
func (d *DiscordBot) SendPreviewCard(ctx context.Context, channelID string, card domain.PreviewCard) error {
	_, err := d.session.ChannelMessageSendEmbed(channelID, discordEmbed(card), discordgo.WithContext(ctx))
	if err != nil {
		return classifyDiscordError("send embed", err)
	}
	return nil
}

// SendText sends text split into messages of at most 2000 characters.
func (d *DiscordBot) SendText(ctx context.Context, channelID, text string) error {
	for _, chunk := range chunkText(text, discordMaxMessageLength) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return classifyDiscordError("send message", err)
		}
	}
	return nil
}

func discordEmbed(card domain.PreviewCard) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       card.Title,
		Description: card.Description,
		URL:         card.URL,
		Color:       card.Color,
		Footer: &discordgo.MessageEmbedFooter{
			Text:    card.FooterText,
			IconURL: card.FooterIconURL,
		},
	}
	if card.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: card.ThumbnailURL}
	}
	if card.DomainField != nil {
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:   card.DomainField.Name,
			Value:  card.DomainField.Value,
			Inline: card.DomainField.Inline,
		}}
	}
	return embed
}

func classifyDiscordError(op string, err error) error {
	derr := &DeliveryError{Platform: "discord", Op: op, Err: err}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
			derr.Forbidden = true
		}
		if restErr.Message != nil &&
			(restErr.Message.Code == discordgo.ErrCodeMissingPermissions || restErr.Message.Code == discordgo.ErrCodeMissingAccess) {
			derr.Forbidden = true
		}
	}
	return derr
}

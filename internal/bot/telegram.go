package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"mikabot/internal/card"
	"mikabot/internal/domain"
)

const (
	telegramMaxMessageLength = 4096
	telegramWelcome          = "Hehe! ✨ I'm Mika! Share a link and I'll craft a celestial preview for it, or mention me to chat! 💖"
)

// TelegramBot connects the Handler to the Telegram Bot API via long polling.
type TelegramBot struct {
	bot     *tgbot.Bot
	handler *Handler
	log     logrus.FieldLogger

	botID    int64
	username string
}

// NewTelegramBot creates a new Telegram bot instance.
func NewTelegramBot(token string, handler *Handler, logger logrus.FieldLogger) (*TelegramBot, error) {
	log := logger.WithField("component", "telegram")

	t := &TelegramBot{
		handler: handler,
		log:     log,
	}

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(t.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	t.bot = b

	t.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return t, nil
}

// registerHandlers sets up the command handlers.
func (t *TelegramBot) registerHandlers() {
	t.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, t.startHandler)
	t.log.Info("Registered /start command handler")
}

// Start resolves the bot identity and polls for updates until ctx is cancelled.
func (t *TelegramBot) Start(ctx context.Context) error {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram get me: %w", err)
	}
	t.botID = me.ID
	t.username = me.Username
	t.handler.SetBotIdentity("@" + me.Username)

	t.log.WithField("username", me.Username).Info("Starting Telegram bot polling...")
	t.bot.Start(ctx)
	t.log.Info("Telegram bot polling stopped.")
	return nil
}

// startHandler handles the /start command.
func (t *TelegramBot) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	log := t.log.WithFields(logrus.Fields{
		"chat_id": update.Message.Chat.ID,
		"command": "/start",
	})
	log.Info("Received /start command")

	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   telegramWelcome,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send welcome message")
	}
}

func (t *TelegramBot) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}
	t.handler.HandleMessage(ctx, t.toInbound(msg), t)
}

func (t *TelegramBot) toInbound(msg *models.Message) domain.InboundMessage {
	in := domain.InboundMessage{
		MessageID:       strconv.Itoa(msg.ID),
		Text:            msg.Text,
		ChannelID:       strconv.FormatInt(msg.Chat.ID, 10),
		ChannelName:     msg.Chat.Title,
		IsDirectMessage: msg.Chat.Type == "private",
	}
	if msg.From != nil {
		in.AuthorID = strconv.FormatInt(msg.From.ID, 10)
		in.AuthorDisplayName = telegramDisplayName(msg.From)
	}
	in.MentionsBot = t.mentionsBot(msg)
	return in
}

func (t *TelegramBot) mentionsBot(msg *models.Message) bool {
	if t.username != "" && strings.Contains(strings.ToLower(msg.Text), "@"+strings.ToLower(t.username)) {
		return true
	}
	reply := msg.ReplyToMessage
	return reply != nil && reply.From != nil && reply.From.ID == t.botID
}

func telegramDisplayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// SendPreviewCard sends the thumbnail as a photo, if any, followed by the card as HTML.
func (t *TelegramBot) SendPreviewCard(ctx context.Context, channelID string, c domain.PreviewCard) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return &DeliveryError{Platform: "telegram", Op: "send card", Err: fmt.Errorf("invalid chat id %q: %w", channelID, err)}
	}

	if c.ThumbnailURL != "" {
		_, err := t.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileString{Data: c.ThumbnailURL},
		})
		if err != nil {
			derr := classifyTelegramError("send photo", err)
			if errors.Is(derr, ErrForbidden) {
				return derr
			}
			// Telegram may refuse to fetch the image; the card is still worth sending.
			t.log.WithError(err).WithField("thumbnail", c.ThumbnailURL).Warn("Failed to send thumbnail")
		}
	}

	_, err = t.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      renderTelegramCard(c),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return classifyTelegramError("send card", err)
	}
	return nil
}

// SendText sends text split into messages of at most 4096 characters.
func (t *TelegramBot) SendText(ctx context.Context, channelID, text string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return &DeliveryError{Platform: "telegram", Op: "send message", Err: fmt.Errorf("invalid chat id %q: %w", channelID, err)}
	}
	for _, chunk := range chunkText(text, telegramMaxMessageLength) {
		if _, err := t.bot.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			return classifyTelegramError("send message", err)
		}
	}
	return nil
}

// renderTelegramCard formats the card as Telegram HTML. The description is shortened
// so the visible text fits in one message.
func renderTelegramCard(c domain.PreviewCard) string {
	header := c.Title
	var domainLine string
	if c.SiteDomain != "" {
		domainLine = "🌟 " + card.DomainFieldLabel + ": " + c.SiteDomain
	}

	visible := utf8.RuneCountInString(header) + utf8.RuneCountInString(domainLine) + utf8.RuneCountInString(c.FooterText) + 8
	description := c.Description
	if budget := telegramMaxMessageLength - visible; utf8.RuneCountInString(description) > budget {
		if budget < 3 {
			budget = 3
		}
		description = string([]rune(description)[:budget-3]) + "..."
	}

	var sb strings.Builder
	if c.URL != "" {
		fmt.Fprintf(&sb, `<b><a href="%s">%s</a></b>`, html.EscapeString(c.URL), html.EscapeString(header))
	} else {
		fmt.Fprintf(&sb, "<b>%s</b>", html.EscapeString(header))
	}
	sb.WriteString("\n\n")
	sb.WriteString(html.EscapeString(description))
	if domainLine != "" {
		fmt.Fprintf(&sb, "\n\n<b>🌟 %s:</b> <code>%s</code>", html.EscapeString(card.DomainFieldLabel), html.EscapeString(c.SiteDomain))
	}
	if c.FooterText != "" {
		fmt.Fprintf(&sb, "\n\n<i>%s</i>", html.EscapeString(c.FooterText))
	}
	return sb.String()
}

func classifyTelegramError(op string, err error) error {
	return &DeliveryError{
		Platform:  "telegram",
		Op:        op,
		Forbidden: errors.Is(err, tgbot.ErrorForbidden),
		Err:       err,
	}
}

package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"mvdan.cc/xurls/v2"

	"mikabot/internal/card"
	"mikabot/internal/domain"
	"mikabot/internal/scraper"
)

var urlPattern = xurls.Strict()

// Responder produces dialogue replies. *dialogue.Orchestrator implements it.
type Responder interface {
	Respond(ctx context.Context, rawPrompt, channelID string) string
	SetMentionTokens(tokens ...string)
}

// Handler holds the platform-neutral message processing pipeline.
type Handler struct {
	extractor scraper.Extractor
	composer  *card.Composer
	responder Responder
	log       logrus.FieldLogger
}

// NewHandler creates a new message handler.
func NewHandler(extractor scraper.Extractor, composer *card.Composer, responder Responder, logger logrus.FieldLogger) *Handler {
	return &Handler{
		extractor: extractor,
		composer:  composer,
		responder: responder,
		log:       logger.WithField("component", "bot_handler"),
	}
}

// SetBotIdentity registers the tokens platforms use to mention the bot.
func (h *Handler) SetBotIdentity(mentionTokens ...string) {
	h.responder.SetMentionTokens(mentionTokens...)
}

// HandleMessage previews the first link in msg and, if msg is a dialogue trigger,
// replies through the orchestrator. Delivery errors and panics are logged, never returned.
func (h *Handler) HandleMessage(ctx context.Context, msg domain.InboundMessage, out Delivery) {
	log := h.log.WithFields(logrus.Fields{
		"event_id":   uuid.NewString(),
		"channel_id": msg.ChannelID,
		"message_id": msg.MessageID,
		"author_id":  msg.AuthorID,
	})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered from panic while handling message")
		}
	}()

	if link := FirstLink(msg.Text); link != "" {
		h.handleLink(ctx, log, link, msg, out)
	}

	if msg.IsDialogueTrigger() {
		h.handleDialogue(ctx, log, msg, out)
	}
}

func (h *Handler) handleLink(ctx context.Context, log logrus.FieldLogger, link string, msg domain.InboundMessage, out Delivery) {
	log = log.WithField("url", link)

	meta, err := h.extractor.Extract(ctx, link)
	if err != nil {
		log.WithError(err).Warn("No preview for link")
		return
	}

	preview := h.composer.Compose(meta, msg.Presentation())
	if err := out.SendPreviewCard(ctx, msg.ChannelID, preview); err != nil {
		logDeliveryError(log, err, "preview card")
		return
	}
	log.Info("Preview card delivered")
}

func (h *Handler) handleDialogue(ctx context.Context, log logrus.FieldLogger, msg domain.InboundMessage, out Delivery) {
	reply := h.responder.Respond(ctx, msg.Text, msg.ChannelID)
	if reply == "" {
		return
	}
	if err := out.SendText(ctx, msg.ChannelID, reply); err != nil {
		logDeliveryError(log, err, "dialogue reply")
		return
	}
	log.Debug("Dialogue reply delivered")
}

func logDeliveryError(log logrus.FieldLogger, err error, what string) {
	log = log.WithError(err).WithField("payload", what)
	if errors.Is(err, ErrForbidden) {
		log.Warn("Missing permission to deliver message")
		return
	}
	log.Error("Failed to deliver message")
}

// FirstLink returns the first http(s) URL in text, or "".
func FirstLink(text string) string {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		lower := strings.ToLower(candidate)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return candidate
		}
	}
	return ""
}

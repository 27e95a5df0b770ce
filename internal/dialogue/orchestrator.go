// Package dialogue answers users through the generative backend while keeping
// a per-channel conversation history.
package dialogue

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mikabot/internal/domain"
	"mikabot/internal/storage"
)

// DefaultBackendTimeout bounds a single backend call.
const DefaultBackendTimeout = 60 * time.Second

// Backend is the generative-language service.
type Backend interface {
	Converse(ctx context.Context, history []domain.ConversationTurn, prompt string) (string, error)
}

// channelLock is a per-channel mutex built on a buffered channel. refs counts
// holders and waiters so idle channels can be dropped from the lock table.
type channelLock struct {
	ch   chan struct{}
	refs int
}

func newChannelLock() *channelLock {
	l := &channelLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

// Orchestrator turns a raw chat message into a persona reply.
type Orchestrator struct {
	backend Backend
	history storage.HistoryRepository
	timeout time.Duration
	log     logrus.FieldLogger

	locksMu sync.Mutex
	locks   map[string]*channelLock

	mentionMu sync.RWMutex
	mentions  *regexp.Regexp
}

// NewOrchestrator creates an orchestrator. A timeout <= 0 uses DefaultBackendTimeout.
func NewOrchestrator(backend Backend, history storage.HistoryRepository, timeout time.Duration, logger logrus.FieldLogger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &Orchestrator{
		backend: backend,
		history: history,
		timeout: timeout,
		log:     logger.WithField("component", "dialogue"),
		locks:   make(map[string]*channelLock),
	}
}

// SetMentionTokens replaces the tokens stripped from prompts, e.g. "<@123>" and "@Mika".
// Adapters call it once the bot identity is known. Matching ignores case.
func (o *Orchestrator) SetMentionTokens(tokens ...string) {
	var quoted []string
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	// Longest first so "@MikaBot" is not left as "Bot" by a shorter "@Mika".
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })

	var pattern *regexp.Regexp
	if len(quoted) > 0 {
		pattern = regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
	}
	o.mentionMu.Lock()
	o.mentions = pattern
	o.mentionMu.Unlock()
}

// CleanPrompt removes every bot mention token from raw and trims it.
func (o *Orchestrator) CleanPrompt(raw string) string {
	o.mentionMu.RLock()
	pattern := o.mentions
	o.mentionMu.RUnlock()
	if pattern == nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(pattern.ReplaceAllLiteralString(raw, ""))
}

// Respond answers rawPrompt in the context of channelID's history.
//
// An empty prompt after mention stripping returns "" without calling the backend.
// A backend failure returns Apology and leaves the history untouched. Exchanges in the
// same channel are serialized so history reflects processing order.
func (o *Orchestrator) Respond(ctx context.Context, rawPrompt, channelID string) string {
	cleaned := o.CleanPrompt(rawPrompt)
	if cleaned == "" {
		return ""
	}
	log := o.log.WithField("channel_id", channelID)

	unlock := o.lockChannel(channelID)
	defer unlock()

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reply, err := o.backend.Converse(callCtx, o.history.Turns(channelID), buildPrompt(channelID, cleaned))
	if err != nil {
		log.WithError(err).Error("Generative backend call failed")
		return Apology
	}

	o.history.Append(channelID, cleaned, reply)
	log.WithField("reply_length", len(reply)).Debug("Dialogue turn completed")
	return reply
}

// lockChannel blocks until the channel's lock is held and returns its release func.
// The lock is removed from the table once nobody holds or waits for it.
func (o *Orchestrator) lockChannel(channelID string) func() {
	o.locksMu.Lock()
	l, ok := o.locks[channelID]
	if !ok {
		l = newChannelLock()
		o.locks[channelID] = l
	}
	l.refs++
	o.locksMu.Unlock()

	<-l.ch
	return func() {
		l.ch <- struct{}{}
		o.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, channelID)
		}
		o.locksMu.Unlock()
	}
}

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"mikabot/internal/domain"
)

// DefaultMaxTurns is the number of user/assistant pairs kept per channel.
const DefaultMaxTurns = 6

// HistoryStore is a per-channel bounded conversation log persisted to a single JSON document.
//
// Saves run on a single background writer: Append only signals it, so the caller never
// waits for disk I/O, and writes are never interleaved. Close drains the pending save.
type HistoryStore struct {
	path     string
	maxTurns int
	log      logrus.FieldLogger

	mu       sync.Mutex
	channels domain.ChannelHistory
	closed   bool

	saveCh chan struct{}
	done   chan struct{}
}

// NewHistoryStore creates a store backed by path and starts its background writer.
// Call Load to populate it from disk.
func NewHistoryStore(path string, maxTurns int, logger logrus.FieldLogger) *HistoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	s := &HistoryStore{
		path:     path,
		maxTurns: maxTurns,
		log:      logger.WithFields(logrus.Fields{"component": "history_store", "path": path}),
		channels: make(domain.ChannelHistory),
		saveCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Load reads the persisted document and replaces the in-memory history with it.
// A missing file, malformed JSON or a document that is not a channel→turns object
// yields an empty history; the condition is logged and never returned.
func (s *HistoryStore) Load() domain.ChannelHistory {
	loaded, err := s.readFile()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Chat history file not found, starting with empty history")
		} else {
			s.log.WithError(err).Warn("Chat history file unreadable, starting with empty history")
		}
		loaded = make(domain.ChannelHistory)
	} else {
		s.log.WithField("channels", len(loaded)).Info("Chat history loaded")
	}

	s.mu.Lock()
	s.channels = loaded
	s.mu.Unlock()
	return loaded.Clone()
}

func (s *HistoryStore) readFile() (domain.ChannelHistory, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var loaded domain.ChannelHistory
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("decode chat history: %w", err)
	}
	// A JSON null decodes without error but is not an object.
	if loaded == nil {
		return nil, errors.New("chat history is not a JSON object")
	}
	return loaded, nil
}

// Turns returns a copy of the channel's turns, oldest first.
func (s *HistoryStore) Turns(channelID string) []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConversationTurn(nil), s.channels[channelID]...)
}

// Append adds a user turn and an assistant turn to the channel, evicting the oldest
// turns once the channel holds more than 2×maxTurns, and schedules a save.
func (s *HistoryStore) Append(channelID, userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.channels[channelID],
		domain.ConversationTurn{Role: domain.RoleUser, Text: userText},
		domain.ConversationTurn{Role: domain.RoleAssistant, Text: assistantText},
	)
	if limit := 2 * s.maxTurns; len(turns) > limit {
		turns = append([]domain.ConversationTurn(nil), turns[len(turns)-limit:]...)
	}
	s.channels[channelID] = turns

	s.scheduleSaveLocked()
}

// Snapshot returns a deep copy of the whole history.
func (s *HistoryStore) Snapshot() domain.ChannelHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels.Clone()
}

// scheduleSaveLocked signals the writer. Pending signals coalesce: the writer always
// persists the latest snapshot, so last write wins. s.mu must be held.
func (s *HistoryStore) scheduleSaveLocked() {
	if s.closed {
		s.log.Warn("History store closed, change will not be persisted")
		return
	}
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

func (s *HistoryStore) writeLoop() {
	defer close(s.done)
	for range s.saveCh {
		if err := s.Save(s.Snapshot()); err != nil {
			s.log.WithError(err).Error("Failed to save chat history")
		}
	}
}

// Save serializes snapshot to the persisted document, replacing it atomically.
func (s *HistoryStore) Save(snapshot domain.ChannelHistory) error {
	if snapshot == nil {
		snapshot = domain.ChannelHistory{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chat history: %w", err)
	}
	s.log.Debug("Chat history saved")
	return nil
}

// Close stops accepting saves, waits for the pending save to finish and returns.
// It is safe to call more than once.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.saveCh)
	}
	s.mu.Unlock()

	<-s.done
	s.log.Info("History store closed")
	return nil
}

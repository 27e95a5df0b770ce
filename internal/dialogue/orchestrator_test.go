package dialogue

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mikabot/internal/domain"
	"mikabot/internal/storage"
)

// fakeBackend records every call and answers with reply or err.
type fakeBackend struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	seen    []int
	reply   string
	err     error
	delay   time.Duration
}

func (f *fakeBackend) Converse(ctx context.Context, history []domain.ConversationTurn, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.seen = append(f.seen, len(history))
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestOrchestrator(t *testing.T, backend Backend) (*Orchestrator, *storage.HistoryStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := storage.NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), storage.DefaultMaxTurns, logger)
	t.Cleanup(func() { _ = store.Close() })

	o := NewOrchestrator(backend, store, time.Second, logger)
	o.SetMentionTokens("<@42>", "<@!42>", "@Mika")
	return o, store
}

func TestRespond_EmptyPromptSkipsBackend(t *testing.T) {
	backend := &fakeBackend{reply: "unused"}
	o, store := newTestOrchestrator(t, backend)

	for _, raw := range []string{"", "   ", "<@42>", " <@!42> @Mika "} {
		assert.Equal(t, "", o.Respond(context.Background(), raw, "c1"), raw)
	}
	assert.Equal(t, 0, backend.calls)
	assert.Empty(t, store.Turns("c1"))
}

func TestRespond_BackendFailureReturnsApology(t *testing.T) {
	backend := &fakeBackend{err: errors.New("dial tcp: connection refused")}
	o, store := newTestOrchestrator(t, backend)

	got := o.Respond(context.Background(), "<@42> hello there", "c1")

	assert.Equal(t, Apology, got)
	assert.Equal(t, 1, backend.calls, "no retries")
	assert.Empty(t, store.Turns("c1"), "failed exchanges are not recorded")
}

func TestRespond_SuccessAppendsExchange(t *testing.T) {
	backend := &fakeBackend{reply: "Hehe! Hi there! 💖"}
	o, store := newTestOrchestrator(t, backend)

	got := o.Respond(context.Background(), "<@42> what's up?", "c1")
	assert.Equal(t, "Hehe! Hi there! 💖", got)

	require.Len(t, backend.prompts, 1)
	assert.Equal(t, Persona("c1")+"\nUser: what's up?", backend.prompts[0])
	assert.Contains(t, backend.prompts[0], "Current context from channel c1")

	assert.Equal(t, []domain.ConversationTurn{
		{Role: domain.RoleUser, Text: "what's up?"},
		{Role: domain.RoleAssistant, Text: "Hehe! Hi there! 💖"},
	}, store.Turns("c1"))

	o.Respond(context.Background(), "again", "c1")
	assert.Equal(t, []int{0, 2}, backend.seen, "history is passed to the backend")
}

func TestRespond_ReplyIsNotChunked(t *testing.T) {
	long := string(make([]byte, 5000))
	backend := &fakeBackend{reply: long}
	o, _ := newTestOrchestrator(t, backend)

	assert.Equal(t, long, o.Respond(context.Background(), "tell me a story", "c1"))
}

func TestRespond_SerializesSameChannel(t *testing.T) {
	backend := &fakeBackend{reply: "ok", delay: 20 * time.Millisecond}
	o, store := newTestOrchestrator(t, backend)

	var wg sync.WaitGroup
	for _, prompt := range []string{"first", "second"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			o.Respond(context.Background(), p, "shared")
		}(prompt)
	}
	wg.Wait()

	seen := append([]int(nil), backend.seen...)
	sort.Ints(seen)
	assert.Equal(t, []int{0, 2}, seen, "the second exchange must see the first one")
	assert.Len(t, store.Turns("shared"), 4)
}

func TestRespond_BackendTimeout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := storage.NewHistoryStore(filepath.Join(t.TempDir(), "h.json"), storage.DefaultMaxTurns, logger)
	defer store.Close()

	o := NewOrchestrator(blockingBackend{}, store, 20*time.Millisecond, logger)
	assert.Equal(t, Apology, o.Respond(context.Background(), "hello?", "c1"))
	assert.Empty(t, store.Turns("c1"))
}

// blockingBackend waits for the context to expire.
type blockingBackend struct{}

func (blockingBackend) Converse(ctx context.Context, _ []domain.ConversationTurn, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCleanPrompt(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeBackend{})

	assert.Equal(t, "hi", o.CleanPrompt("<@42> hi"))
	assert.Equal(t, "hi  there", o.CleanPrompt("@Mika hi <@!42> there"))
	assert.Equal(t, "<@7> hi", o.CleanPrompt("<@7> hi"), "other users' mentions are kept")
	assert.Equal(t, "hi", o.CleanPrompt("@mika hi"), "mentions match regardless of case")
	assert.Equal(t, "a+b", o.CleanPrompt("a+b"), "tokens are matched literally")
}

func TestCleanPrompt_MixedCaseUsername(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeBackend{})
	o.SetMentionTokens("@Mika", "@MikaBot")

	assert.Equal(t, "hello", o.CleanPrompt("@mikabot hello"))
	assert.Equal(t, "hello", o.CleanPrompt("@MIKABOT hello"))
	assert.Equal(t, "", o.CleanPrompt("@mikabot"))
}

func TestRespond_MentionOnlyInAnyCaseSkipsBackend(t *testing.T) {
	backend := &fakeBackend{reply: "unused"}
	o, _ := newTestOrchestrator(t, backend)
	o.SetMentionTokens("@MikaBot")

	assert.Equal(t, "", o.Respond(context.Background(), "  @mikabot ", "c1"))
	assert.Equal(t, 0, backend.calls)
}

func TestRespond_ReleasesIdleChannelLocks(t *testing.T) {
	backend := &fakeBackend{reply: "ok", delay: 5 * time.Millisecond}
	o, _ := newTestOrchestrator(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.Respond(context.Background(), "hello", []string{"a", "b", "c"}[i%3])
		}(i)
	}
	wg.Wait()

	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	assert.Empty(t, o.locks, "channels with no pending exchange keep no lock")
}

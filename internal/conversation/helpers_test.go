package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/phrases"
	"github.com/mmynk/settlebot/internal/receipt"
	"github.com/mmynk/settlebot/internal/service"
	"github.com/mmynk/settlebot/internal/storage/sqlite"
)

type sentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *Keyboard
}

// fakeMessenger records everything the machine sends.
type fakeMessenger struct {
	mu     sync.Mutex
	nextID int
	sent   []sentMessage
	edits  []sentMessage
	fail   bool
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, kb *Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("chat unreachable")
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, MessageID: f.nextID, Text: text, Keyboard: kb})
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID int64, messageID int, text string, kb *Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("chat unreachable")
	}
	f.edits = append(f.edits, sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

// to returns the messages sent to chatID, oldest first.
func (f *fakeMessenger) to(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) last(t *testing.T, chatID int64) sentMessage {
	t.Helper()
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		t.Fatalf("nothing was sent to chat %d", chatID)
	}
	return msgs[len(msgs)-1]
}

// withPrefix returns messages to chatID whose text starts with prefix.
func (f *fakeMessenger) withPrefix(chatID int64, prefix string) []sentMessage {
	var out []sentMessage
	for _, m := range f.to(chatID) {
		if strings.HasPrefix(m.Text, prefix) {
			out = append(out, m)
		}
	}
	return out
}

type fakeRecognizer struct {
	receipt *receipt.Receipt
	err     error
	calls   int
}

func (f *fakeRecognizer) Recognize(context.Context, []byte) (*receipt.Receipt, error) {
	f.calls++
	return f.receipt, f.err
}

type testBot struct {
	machine    *Machine
	messenger  *fakeMessenger
	recognizer *fakeRecognizer
	registry   *service.Registry
	catalog    *service.Catalog
	ledger     *service.Ledger
	book       *phrases.Book
}

func setupBot(t *testing.T) *testBot {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := service.NewRegistry(store)
	catalog := service.NewCatalog(store)
	ledger := service.NewLedger(store)
	messenger := &fakeMessenger{}
	recognizer := &fakeRecognizer{}
	book := phrases.Default()

	m := New(Config{
		Registry:       registry,
		Catalog:        catalog,
		Ledger:         ledger,
		Settlement:     service.NewSettlement(registry, catalog, ledger),
		Recognizer:     recognizer,
		Messenger:      messenger,
		Phrases:        book,
		BroadcastLimit: 4,
	})

	return &testBot{
		machine:    m,
		messenger:  messenger,
		recognizer: recognizer,
		registry:   registry,
		catalog:    catalog,
		ledger:     ledger,
		book:       book,
	}
}

func sender(id int64) Sender {
	return Sender{SenderID: id, ChatID: id, SenderName: userName(id)}
}

func userName(id int64) string {
	switch id {
	case userA:
		return "Аня"
	case userB:
		return "Боря"
	case userC:
		return "Вика"
	default:
		return "user"
	}
}

// say feeds a text message from id and fails the test on error.
func (b *testBot) say(t *testing.T, id int64, text string) Dispatch {
	t.Helper()
	d, err := b.machine.Handle(context.Background(), TextEvent{Sender: sender(id), Text: text})
	if err != nil {
		t.Fatalf("Handle(%q) from %d failed: %v", text, id, err)
	}
	return d
}

// press feeds a button press from id on message messageID.
func (b *testBot) press(t *testing.T, id int64, messageID int, token string) Dispatch {
	t.Helper()
	d, err := b.machine.Handle(context.Background(), ButtonEvent{Sender: sender(id), MessageID: messageID, Token: token})
	if err != nil {
		t.Fatalf("press %q from %d failed: %v", token, id, err)
	}
	return d
}

func (b *testBot) stage(t *testing.T, id int64) models.Stage {
	t.Helper()
	s, err := b.registry.Stage(context.Background(), id)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	return s
}

// createTeam has owner create a team through the chat and returns its token.
func (b *testBot) createTeam(t *testing.T, owner int64) string {
	t.Helper()
	b.press(t, owner, 0, TokenCreateTeam)
	u, err := b.registry.GetUser(context.Background(), owner)
	if err != nil {
		t.Fatalf("owner not registered: %v", err)
	}
	return u.TeamID
}

// claimPrompts returns the claim prompts chatID received, keyed by product ID.
func (b *testBot) claimPrompts(chatID int64) map[string]sentMessage {
	out := make(map[string]sentMessage)
	for _, m := range b.messenger.to(chatID) {
		if m.Keyboard == nil || len(m.Keyboard.Rows) == 0 || len(m.Keyboard.Rows[0]) == 0 {
			continue
		}
		if id, ok := strings.CutPrefix(m.Keyboard.Rows[0][0].Token, tokenClaimPrefix); ok {
			out[id] = m
		}
	}
	return out
}

// productIDs returns the team catalog IDs in catalog order.
func (b *testBot) productIDs(t *testing.T, teamID string) []string {
	t.Helper()
	products, err := b.catalog.ListByTeam(context.Background(), teamID)
	if err != nil {
		t.Fatalf("ListByTeam failed: %v", err)
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func (b *testBot) phrase(key string, args ...any) string {
	return b.book.Phrase(key, args...)
}

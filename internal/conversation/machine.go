// Package conversation implements the per-user protocol of the bot: it
// classifies inbound events, checks them against the user's stage and
// drives the registry, catalog, ledger and settlement.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/phrases"
	"github.com/mmynk/settlebot/internal/receipt"
	"github.com/mmynk/settlebot/internal/service"
)

const defaultBroadcastLimit = 8

// handler processes one event of a given kind in a given stage.
type handler func(m *Machine, ctx context.Context, ev Event) error

// Config wires a Machine to its collaborators.
type Config struct {
	Registry   *service.Registry
	Catalog    *service.Catalog
	Ledger     *service.Ledger
	Settlement *service.Settlement
	Recognizer receipt.Recognizer
	Messenger  Messenger
	Phrases    *phrases.Book

	// BroadcastLimit caps concurrent sends when a message goes to every
	// member of a team. Zero means 8.
	BroadcastLimit int
}

// Machine is the conversation state machine.
type Machine struct {
	registry   *service.Registry
	catalog    *service.Catalog
	ledger     *service.Ledger
	settlement *service.Settlement
	recognizer receipt.Recognizer
	messenger  Messenger
	phrases    *phrases.Book

	broadcastLimit int
	table          [models.StageCount][kindCount]handler
}

// Dispatch describes how an event was routed.
type Dispatch struct {
	Stage models.Stage
	Kind  Kind
	// Ignored is set for events that map to no kind.
	Ignored bool
}

// New creates a Machine.
func New(cfg Config) *Machine {
	limit := cfg.BroadcastLimit
	if limit <= 0 {
		limit = defaultBroadcastLimit
	}
	book := cfg.Phrases
	if book == nil {
		book = phrases.Default()
	}
	return &Machine{
		registry:       cfg.Registry,
		catalog:        cfg.Catalog,
		ledger:         cfg.Ledger,
		settlement:     cfg.Settlement,
		recognizer:     cfg.Recognizer,
		messenger:      cfg.Messenger,
		phrases:        book,
		broadcastLimit: limit,
		table:          newTable(),
	}
}

// newTable returns the (stage, kind) dispatch table. Every cell is set;
// actions that make no sense in a stage answer with a "not now" message.
func newTable() [models.StageCount][kindCount]handler {
	return [models.StageCount][kindCount]handler{
		models.StageTeamFormation: {
			KindStart:      (*Machine).greet,
			KindCreateTeam: (*Machine).createTeam,
			KindText:       (*Machine).joinTeam,
			KindPhoto:      (*Machine).notNowTeam,
			KindClaim:      (*Machine).notNowTeam,
			KindSettle:     (*Machine).notNowTeam,
			KindConfirmYes: (*Machine).notNowTeam,
			KindConfirmNo:  (*Machine).notNowTeam,
			KindHelp:       (*Machine).help,
		},
		models.StageProductSelection: {
			KindStart:      (*Machine).alreadyInTeam,
			KindCreateTeam: (*Machine).alreadyInTeam,
			KindText:       (*Machine).addProduct,
			KindPhoto:      (*Machine).addReceipt,
			KindClaim:      (*Machine).toggleClaim,
			KindSettle:     (*Machine).askSettle,
			KindConfirmYes: (*Machine).confirmSettle,
			KindConfirmNo:  (*Machine).cancelSettle,
			KindHelp:       (*Machine).help,
		},
		models.StagePayment: {
			KindStart:      (*Machine).notNowPayment,
			KindCreateTeam: (*Machine).notNowPayment,
			KindText:       (*Machine).recordContact,
			KindPhoto:      (*Machine).notNowPayment,
			KindClaim:      (*Machine).notNowPayment,
			KindSettle:     (*Machine).notNowPayment,
			KindConfirmYes: (*Machine).notNowPayment,
			KindConfirmNo:  (*Machine).notNowPayment,
			KindHelp:       (*Machine).help,
		},
	}
}

// Handle routes one event. User mistakes and collaborator failures are
// answered in the chat and are not errors; a returned error means storage
// failed and the user was asked to try again.
func (m *Machine) Handle(ctx context.Context, ev Event) (Dispatch, error) {
	from := ev.From()

	kind, ok := Classify(ev)
	if !ok {
		slog.Debug("Unrecognized event ignored", "user_id", from.SenderID)
		return Dispatch{Ignored: true}, nil
	}

	stage, err := m.registry.Stage(ctx, from.SenderID)
	if err != nil {
		m.reply(ctx, from, phrases.TryAgain)
		return Dispatch{Kind: kind}, fmt.Errorf("failed to load stage: %w", err)
	}

	d := Dispatch{Stage: stage, Kind: kind}
	if !stage.Valid() {
		m.reply(ctx, from, phrases.TryAgain)
		return d, fmt.Errorf("user %d has invalid stage %d", from.SenderID, stage)
	}
	if err := m.table[stage][kind](m, ctx, ev); err != nil {
		m.reply(ctx, from, phrases.TryAgain)
		return d, err
	}
	return d, nil
}

// reply sends a phrase to the sender without a keyboard. Delivery
// failures are logged only.
func (m *Machine) reply(ctx context.Context, to Sender, key string, args ...any) {
	m.send(ctx, to.ChatID, m.phrases.Phrase(key, args...), nil)
}

func (m *Machine) send(ctx context.Context, chatID int64, text string, kb *Keyboard) (int, bool) {
	id, err := m.messenger.SendText(ctx, chatID, text, kb)
	if err != nil {
		slog.Warn("Failed to send message", "chat_id", chatID, "error", err)
		return 0, false
	}
	return id, true
}

// currentUser loads the sender's record. A user removed since the stage
// lookup (their team just settled) yields nil and no error.
func (m *Machine) currentUser(ctx context.Context, from Sender) (*models.User, error) {
	user, err := m.registry.GetUser(ctx, from.SenderID)
	if errors.Is(err, service.ErrUnknownUser) {
		slog.Debug("User left mid-event", "user_id", from.SenderID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (m *Machine) help(ctx context.Context, ev Event) error {
	m.reply(ctx, ev.From(), phrases.Help)
	return nil
}

func (m *Machine) notNowTeam(ctx context.Context, ev Event) error {
	m.reply(ctx, ev.From(), phrases.NotNowTeam)
	return nil
}

func (m *Machine) notNowPayment(ctx context.Context, ev Event) error {
	m.reply(ctx, ev.From(), phrases.NotNowPayment)
	return nil
}

func (m *Machine) alreadyInTeam(ctx context.Context, ev Event) error {
	m.reply(ctx, ev.From(), phrases.AlreadyInTeam)
	return nil
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/settlebot/internal/metrics"
	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/parser"
	"github.com/mmynk/settlebot/internal/phrases"
	"github.com/mmynk/settlebot/internal/service"
)

func (m *Machine) recordContact(ctx context.Context, ev Event) error {
	te, ok := ev.(TextEvent)
	if !ok {
		return nil
	}
	from := te.From()
	user, err := m.currentUser(ctx, from)
	if err != nil || user == nil {
		return err
	}

	contact, err := parser.ParseContact(te.Text)
	if err != nil {
		m.reply(ctx, from, phrases.ContactFormat)
		return nil
	}

	err = m.registry.RecordContact(ctx, user.ID, contact.Phone, contact.Link)
	if errors.Is(err, service.ErrUnknownUser) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record contact: %w", err)
	}

	ready, err := m.registry.AllMembersHaveContact(ctx, user.TeamID)
	if err != nil {
		return fmt.Errorf("failed to check contacts: %w", err)
	}
	if !ready {
		m.send(ctx, from.ChatID,
			m.phrases.Phrase(phrases.ContactSaved)+"\n"+m.phrases.Phrase(phrases.WaitForOthers), nil)
		return nil
	}

	m.reply(ctx, from, phrases.ContactSaved)
	return m.settle(ctx, user.TeamID)
}

// settle closes the team and delivers one statement to each member.
// A trigger that lost the race to another member is a no-op.
func (m *Machine) settle(ctx context.Context, teamID string) error {
	st, err := m.settlement.Settle(ctx, teamID)
	switch {
	case errors.Is(err, service.ErrAlreadySettled):
		slog.Debug("Settlement already delivered", "team_id", teamID)
		return nil
	case errors.Is(err, service.ErrContactMissing):
		// Someone joined after the check; their contact triggers settlement.
		return nil
	case err != nil:
		return fmt.Errorf("failed to settle: %w", err)
	}

	metrics.Settlements.Inc()
	m.broadcast(ctx, st.Members, func(ctx context.Context, u models.User) {
		m.send(ctx, u.ChatID, m.renderStatement(st, u.ID), nil)
	})
	return nil
}

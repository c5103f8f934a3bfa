package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/settlebot/internal/phrases"
	"github.com/mmynk/settlebot/internal/service"
)

func (m *Machine) greet(ctx context.Context, ev Event) error {
	from := ev.From()
	if te, ok := ev.(TextEvent); ok {
		if token := startPayload(te.Text); token != "" {
			return m.join(ctx, from, token)
		}
	}

	kb := SingleButton(m.phrases.Phrase(phrases.ButtonCreateTeam), TokenCreateTeam)
	m.send(ctx, from.ChatID, m.phrases.Phrase(phrases.Greeting, from.SenderName), kb)
	return nil
}

func (m *Machine) createTeam(ctx context.Context, ev Event) error {
	from := ev.From()
	token, err := m.registry.CreateTeam(ctx, from.SenderID, from.ChatID, from.SenderName)
	if errors.Is(err, service.ErrDuplicateMembership) {
		m.reply(ctx, from, phrases.AlreadyInTeam)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	m.reply(ctx, from, phrases.TeamCreated, token)
	return nil
}

// joinTeam treats free text in TeamFormation as a team token.
func (m *Machine) joinTeam(ctx context.Context, ev Event) error {
	te, ok := ev.(TextEvent)
	if !ok {
		return m.notNowTeam(ctx, ev)
	}
	return m.join(ctx, te.From(), te.Text)
}

func (m *Machine) join(ctx context.Context, from Sender, token string) error {
	token = strings.TrimSpace(token)
	err := m.registry.JoinTeam(ctx, from.SenderID, from.ChatID, from.SenderName, token)
	switch {
	case errors.Is(err, service.ErrUnknownTeam):
		m.reply(ctx, from, phrases.UnknownTeam)
		return nil
	case errors.Is(err, service.ErrDuplicateMembership):
		m.reply(ctx, from, phrases.AlreadyInTeam)
		return nil
	case err != nil:
		return fmt.Errorf("failed to join team: %w", err)
	}

	m.reply(ctx, from, phrases.TeamJoined)
	return m.replayCatalog(ctx, from, token)
}

// replayCatalog sends a late joiner every product recorded so far, in
// catalog order, with buttons reflecting the joiner's own claims.
func (m *Machine) replayCatalog(ctx context.Context, to Sender, teamID string) error {
	products, err := m.catalog.ListByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		return nil
	}

	claimed, err := m.ledger.ClaimsOf(ctx, to.SenderID, teamID)
	if err != nil {
		return fmt.Errorf("failed to list claims: %w", err)
	}
	mine := make(map[string]bool, len(claimed))
	for _, id := range claimed {
		mine[id] = true
	}

	names, err := m.memberNames(ctx, teamID)
	if err != nil {
		return err
	}

	for i := range products {
		p := &products[i]
		m.send(ctx, to.ChatID, m.productText(p, names[p.BuyerID]), m.claimKeyboard(p.ID, mine[p.ID]))
	}
	return nil
}

func (m *Machine) memberNames(ctx context.Context, teamID string) (map[int64]string, error) {
	members, err := m.registry.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	names := make(map[int64]string, len(members))
	for _, u := range members {
		names[u.ID] = u.Name
	}
	return names, nil
}

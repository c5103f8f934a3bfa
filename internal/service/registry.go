package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

// TeamStore is the storage the registry needs.
type TeamStore interface {
	storage.UserStore
	DissolveTeam(ctx context.Context, teamID string, roster []int64) (int, error)
}

// Registry owns users and their team membership.
type Registry struct {
	store TeamStore
}

// NewRegistry creates a Registry with the given storage backend.
func NewRegistry(store TeamStore) *Registry {
	return &Registry{store: store}
}

// CreateTeam starts a new team with the user as its first member and
// returns the join token. The user moves to ProductSelection.
func (r *Registry) CreateTeam(ctx context.Context, userID, chatID int64, name string) (string, error) {
	user := &models.User{
		ID:     userID,
		ChatID: chatID,
		Name:   name,
		TeamID: uuid.NewString(),
		Stage:  models.StageProductSelection,
	}

	if err := r.store.CreateUser(ctx, user); err != nil {
		return "", err
	}

	slog.Info("Team created", "team_id", user.TeamID, "user_id", userID)
	return user.TeamID, nil
}

// JoinTeam adds the user to the team identified by token and moves them to
// ProductSelection. A team exists only while somebody references its token.
func (r *Registry) JoinTeam(ctx context.Context, userID, chatID int64, name, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnknownTeam
	}

	user := &models.User{
		ID:     userID,
		ChatID: chatID,
		Name:   name,
		TeamID: token,
		Stage:  models.StageProductSelection,
	}
	if err := r.store.JoinTeam(ctx, user); err != nil {
		return err
	}

	slog.Info("Team joined", "team_id", token, "user_id", userID)
	return nil
}

// GetUser returns the user's record.
func (r *Registry) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return r.store.GetUser(ctx, userID)
}

// ListMembers returns the team roster. A dissolved or unknown team is empty.
func (r *Registry) ListMembers(ctx context.Context, teamID string) ([]models.User, error) {
	return r.store.ListMembers(ctx, teamID)
}

// RecordContact stores the user's phone and optional payment link.
func (r *Registry) RecordContact(ctx context.Context, userID int64, phone string, paymentLink *string) error {
	if err := r.store.UpdateContact(ctx, userID, phone, paymentLink); err != nil {
		return err
	}
	slog.Debug("Contact recorded", "user_id", userID, "has_link", paymentLink != nil)
	return nil
}

// AllMembersHaveContact reports whether every member sent contact info.
// An empty team never qualifies.
func (r *Registry) AllMembersHaveContact(ctx context.Context, teamID string) (bool, error) {
	members, err := r.store.ListMembers(ctx, teamID)
	if err != nil {
		return false, err
	}
	return allHaveContact(members), nil
}

func allHaveContact(members []models.User) bool {
	if len(members) == 0 {
		return false
	}
	for i := range members {
		if !members[i].HasContact() {
			return false
		}
	}
	return true
}

// Stage returns the user's conversation stage. Unknown users start fresh
// in TeamFormation.
func (r *Registry) Stage(ctx context.Context, userID int64) (models.Stage, error) {
	user, err := r.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUnknownUser) {
		return models.StageTeamFormation, nil
	}
	if err != nil {
		return models.StageTeamFormation, err
	}
	if !user.Stage.Valid() {
		slog.Warn("Stored stage out of range, resetting", "user_id", userID, "stage", int(user.Stage))
		return models.StageTeamFormation, nil
	}
	return user.Stage, nil
}

// SetStage moves the user to a new stage.
func (r *Registry) SetStage(ctx context.Context, userID int64, stage models.Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("invalid stage %d", int(stage))
	}
	return r.store.UpdateStage(ctx, userID, stage)
}

// DissolveTeam deletes the team's users, products and claims atomically and
// returns how many members were removed. Dissolving twice is a no-op. If the
// members are no longer exactly roster, nothing is deleted and
// ErrRosterChanged is returned.
func (r *Registry) DissolveTeam(ctx context.Context, teamID string, roster []int64) (int, error) {
	removed, err := r.store.DissolveTeam(ctx, teamID, roster)
	if err != nil {
		return 0, fmt.Errorf("failed to dissolve team: %w", err)
	}
	if removed > 0 {
		slog.Info("Team dissolved", "team_id", teamID, "members", removed)
	}
	return removed, nil
}

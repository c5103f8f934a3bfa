package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

const userColumns = `id, chat_id, name, team_id, phone, payment_link, stage, created_at`

// CreateUser inserts a user that starts a new team.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// JoinTeam inserts a user into an existing team under the team's advisory lock.
func (s *Store) JoinTeam(ctx context.Context, user *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, "team:"+user.TeamID); err != nil {
		return err
	}

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE team_id = $1)`, user.TeamID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check team: %w", err)
	}
	if !exists {
		return storage.ErrUnknownTeam
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, tx pgx.Tx, user *models.User) error {
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.ChatID, user.Name, user.TeamID,
		nullable(user.Phone), nullable(user.PaymentLink), int(user.Stage), user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrDuplicateMembership
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return user, nil
}

// ListMembers returns every user of a team, oldest first.
func (s *Store) ListMembers(ctx context.Context, teamID string) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE team_id = $1 ORDER BY created_at, seq`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list members: %w", err)
	}
	defer rows.Close()

	var members []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan member: %w", err)
		}
		members = append(members, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate members: %w", err)
	}
	return members, nil
}

// UpdateContact stores the user's contact info.
func (s *Store) UpdateContact(ctx context.Context, userID int64, phone string, paymentLink *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET phone = $1, payment_link = $2 WHERE id = $3`,
		phone, nullable(paymentLink), userID)
	if err != nil {
		return fmt.Errorf("postgres: update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUnknownUser
	}
	return nil
}

// UpdateStage moves the user to a new conversation stage.
func (s *Store) UpdateStage(ctx context.Context, userID int64, stage models.Stage) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET stage = $1 WHERE id = $2`, int(stage), userID)
	if err != nil {
		return fmt.Errorf("postgres: update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUnknownUser
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var stage int
	if err := row.Scan(&user.ID, &user.ChatID, &user.Name, &user.TeamID,
		&user.Phone, &user.PaymentLink, &stage, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Stage = models.Stage(stage)
	return user, nil
}

func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

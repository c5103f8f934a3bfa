package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

const userColumns = `id, chat_id, name, team_id, phone, payment_link, stage, created_at`

// CreateUser inserts a user that starts a new team.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// JoinTeam inserts a user into an existing team.
func (s *SQLiteStore) JoinTeam(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE team_id = ? LIMIT 1", user.TeamID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrUnknownTeam
	}
	if err != nil {
		return fmt.Errorf("failed to check team existence: %w", err)
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertUser rejects users that already have a row, then inserts.
func insertUser(ctx context.Context, tx *sql.Tx, user *models.User) error {
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", user.ID).Scan(&exists)
	if err == nil {
		return storage.ErrDuplicateMembership
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check user existence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.ChatID, user.Name, user.TeamID,
		nullable(user.Phone), nullable(user.PaymentLink),
		int(user.Stage), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, userID)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListMembers returns every user of a team, oldest first.
func (s *SQLiteStore) ListMembers(ctx context.Context, teamID string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE team_id = ? ORDER BY created_at, rowid`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// UpdateContact stores the user's contact info.
func (s *SQLiteStore) UpdateContact(ctx context.Context, userID int64, phone string, paymentLink *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET phone = ?, payment_link = ? WHERE id = ?",
		phone, nullable(paymentLink), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireRow(res, storage.ErrUnknownUser)
}

// UpdateStage moves the user to a new conversation stage.
func (s *SQLiteStore) UpdateStage(ctx context.Context, userID int64, stage models.Stage) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET stage = ? WHERE id = ?", int(stage), userID)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	return requireRow(res, storage.ErrUnknownUser)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var phone, link sql.NullString
	var stage int
	if err := row.Scan(&user.ID, &user.ChatID, &user.Name, &user.TeamID,
		&phone, &link, &stage, &user.CreatedAt); err != nil {
		return nil, err
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if link.Valid {
		user.PaymentLink = &link.String
	}
	user.Stage = models.Stage(stage)
	return user, nil
}

// nullable maps a nil or empty string pointer to SQL NULL.
func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// requireRow returns notFound when an UPDATE matched no rows.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

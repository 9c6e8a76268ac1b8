package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careerbot/internal/apperr"
	"careerbot/internal/models"
)

// SQLStore persists registered users' conversations in the chat_history table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) Read(ctx context.Context, subject models.Subject, feature models.Feature) ([]models.Turn, error) {
	if err := checkUser(subject, feature); err != nil {
		return nil, err
	}
	return queryTurns(ctx, s.db, subject.UserID, feature)
}

func (s *SQLStore) Append(ctx context.Context, subject models.Subject, feature models.Feature, role models.Role, content string) ([]models.Turn, error) {
	if err := checkUser(subject, feature); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var last time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM chat_history WHERE user_id = ? AND feature_id = ? ORDER BY id DESC LIMIT 1`,
		subject.UserID, int(feature)).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read last turn: %w", err)
	}
	ts := stamp(s.now(), last)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, feature_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		subject.UserID, int(feature), string(role), content, ts); err != nil {
		return nil, fmt.Errorf("insert turn: %w", err)
	}

	turns, err := queryTurns(ctx, tx, subject.UserID, feature)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *SQLStore) Clear(ctx context.Context, subject models.Subject, feature models.Feature) error {
	if err := checkUser(subject, feature); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ? AND feature_id = ?`, subject.UserID, int(feature))
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTurns(ctx context.Context, q querier, userID int64, feature models.Feature) ([]models.Turn, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT role, content, created_at FROM chat_history WHERE user_id = ? AND feature_id = ? ORDER BY id ASC`,
		userID, int(feature))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]models.Turn, 0)
	for rows.Next() {
		var (
			turn models.Turn
			role string
		)
		if err := rows.Scan(&role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, err
		}
		turn.Role = models.Role(role)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func checkUser(subject models.Subject, feature models.Feature) error {
	if !subject.Authenticated() {
		return apperr.Validation("subject", "durable history requires a registered user")
	}
	if !feature.Valid() {
		return apperr.Validation("feature", fmt.Sprintf("unknown feature %d", int(feature)))
	}
	return nil
}

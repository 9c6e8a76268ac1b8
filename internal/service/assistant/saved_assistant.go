package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"careerbot/internal/apperr"
	"careerbot/internal/models"
)

// SaveResponse stores a formatted answer for the user and returns its id.
func (s *Service) SaveResponse(ctx context.Context, userID int64, feature models.Feature, title, content string) (int64, error) {
	if userID <= 0 {
		return 0, apperr.Validation("user_id", "user_id is required")
	}
	if !feature.Valid() {
		return 0, apperr.Validation("feature_id", "unknown feature")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, apperr.Validation("title", "title is required")
	}
	if strings.TrimSpace(content) == "" {
		return 0, apperr.Validation("response", "response is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_responses (user_id, feature_id, title, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, int(feature), title, content, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("save response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("saved response id: %w", err)
	}
	return id, nil
}

// ListSavedResponses returns the user's saved responses, newest first.
func (s *Service) ListSavedResponses(ctx context.Context, userID int64) ([]models.SavedResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, feature_id, title, content, created_at FROM saved_responses WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved responses: %w", err)
	}
	defer rows.Close()

	saved := make([]models.SavedResponse, 0)
	for rows.Next() {
		var (
			r       models.SavedResponse
			feature int
		)
		if err := rows.Scan(&r.ID, &r.UserID, &feature, &r.Title, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved response: %w", err)
		}
		r.Feature = models.Feature(feature)
		saved = append(saved, r)
	}
	return saved, rows.Err()
}

// DeleteSavedResponse removes one of the user's saved responses. Records owned
// by other users are reported as not found and left untouched.
func (s *Service) DeleteSavedResponse(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return apperr.NotFound("response")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_responses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saved response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saved response rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("response")
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"enip/database"
	"enip/models"

	"github.com/jackc/pgx/v5"
)

// CommentRepository stores editorial comments
type CommentRepository struct {
	q queryable
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{q: db}
}

func newCommentRepositoryWithTx(tx queryable) *CommentRepository {
	return &CommentRepository{q: tx}
}

// List returns every comment, most recent first
func (r *CommentRepository) List(ctx context.Context) ([]models.Comment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, ts, submitted_by, office_id, race, title, body
		FROM comments
		ORDER BY ts DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Comment])
	if err != nil {
		return nil, fmt.Errorf("failed to scan comments: %w", err)
	}
	for i := range comments {
		comments[i].Timestamp = comments[i].Timestamp.UTC()
	}
	return comments, nil
}

// ReplaceAll deletes every comment and inserts the given ones.
// Run it inside a unit of work so readers never see an empty table.
func (r *CommentRepository) ReplaceAll(ctx context.Context, comments []models.Comment) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM comments`); err != nil {
		return fmt.Errorf("failed to clear comments: %w", err)
	}
	if len(comments) == 0 {
		return nil
	}

	_, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"comments"},
		[]string{"ts", "submitted_by", "office_id", "race", "title", "body"},
		pgx.CopyFromSlice(len(comments), func(i int) ([]any, error) {
			c := comments[i]
			return []any{c.Timestamp.UTC(), c.SubmittedBy, c.OfficeID, c.Race, c.Title, c.Body}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %d comments: %w", len(comments), err)
	}
	return nil
}

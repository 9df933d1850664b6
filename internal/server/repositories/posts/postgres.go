// Package posts provides the PostgreSQL-backed repository for feed posts and
// the user_posts back-reference that mirrors post ownership.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
)

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the post row and the creator's back-reference row, filling
// in the store-assigned timestamps.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {

	query :=
		`INSERT INTO posts (id, title, content, image_url, creator_id)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.ID, post.Title, post.Content, post.ImageURL, post.CreatorID).
		Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	backref := `INSERT INTO user_posts (user_id, post_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, backref, post.CreatorID, post.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

const postColumns = `id, title, content, image_url, creator_id, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post := &models.Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Content, &post.ImageURL,
		&post.CreatorID, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

// List returns a page of posts, newest first. The id tiebreak keeps the order
// stable for posts created in the same instant.
func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 ORDER BY created_at DESC, id DESC
		 OFFSET $1 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		var item models.Post
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Content, &item.ImageURL,
			&item.CreatorID, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Update rewrites the mutable fields. creator_id is never touched. Concurrent
// updates by the same owner are last-write-wins, with no version check.
func (r *PostgresRepository) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`UPDATE posts SET title = $2, content = $3, image_url = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.ID, post.Title, post.Content, post.ImageURL).Scan(&post.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

// Delete removes the back-reference row first, then the post row.
func (r *PostgresRepository) Delete(ctx context.Context, id, creatorID string) error {
	backref := `DELETE FROM user_posts WHERE user_id = $1 AND post_id = $2`
	if _, err := r.db.ExecContext(ctx, backref, creatorID, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

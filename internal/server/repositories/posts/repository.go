package posts

import (
	"context"

	"github.com/dmitrijs2005/feedstream/internal/server/models"
)

type Repository interface {
	// Create inserts the post and the owner's back-reference row. Callers
	// wanting both writes to be atomic must run it inside dbx.WithTx.
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, offset, limit int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, post *models.Post) (*models.Post, error)
	// Delete removes the post and the owner's back-reference row.
	Delete(ctx context.Context, id, creatorID string) error
}

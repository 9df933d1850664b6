package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/auth"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/dmitrijs2005/feedstream/internal/server/realtime"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PageSize is the fixed number of posts per feed page.
const PageSize = 2

const minTitleLength = 5
const minContentLength = 5

// Broadcaster fans a post-change event out to connected realtime clients.
// *realtime.Hub is the production implementation.
type Broadcaster interface {
	Broadcast(ev realtime.PostEvent)
}

// PostInput carries the client-supplied fields of a post mutation.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
}

// PostService drives the post lifecycle. Every mutation follows the same
// sequence: authentication check, validation, ownership check (update/delete),
// persistence, broadcast. No repository write happens before the checks pass,
// and the broadcast fires only after the write succeeded.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	broadcaster Broadcaster
	logger      logging.Logger
}

// NewPostService constructs a PostService. The broadcaster must be
// initialized before the service starts handling requests.
func NewPostService(db *sql.DB, m repomanager.RepositoryManager, b Broadcaster, logger logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		broadcaster: b,
		logger:      logger.With("module", "post_service"),
	}
}

func validatePostInput(in PostInput) error {
	var details []string
	if len(strings.TrimSpace(in.Title)) < minTitleLength {
		details = append(details, fmt.Sprintf("Title must be at least %d characters long", minTitleLength))
	}
	if len(strings.TrimSpace(in.Content)) < minContentLength {
		details = append(details, fmt.Sprintf("Content must be at least %d characters long", minContentLength))
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		details = append(details, "No image provided")
	}
	if len(details) > 0 {
		return common.NewValidationError(details...)
	}
	return nil
}

// Create persists a new post owned by the caller and broadcasts a create
// event. The post row and the owner's back-reference are written in one
// transaction.
func (s *PostService) Create(ctx context.Context, ident auth.Identity, in PostInput) (*models.Post, error) {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return nil, err
	}
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(in.Title),
		Content:   strings.TrimSpace(in.Content),
		ImageURL:  strings.TrimSpace(in.ImageURL),
		CreatorID: ident.UserID(),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Posts(tx).Create(ctx, post)
		return err
	}); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	s.broadcaster.Broadcast(realtime.PostEvent{Action: realtime.ActionCreate, Post: post})
	return post, nil
}

// Get loads a single post. Reads require authentication, same as mutations.
func (s *PostService) Get(ctx context.Context, ident auth.Identity, id string) (*models.Post, error) {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return nil, err
	}
	return s.repomanager.Posts(s.db).GetByID(ctx, id)
}

// List returns the requested feed page (newest first) and the total number
// of posts. Pages are numbered from 1; anything below is clamped.
func (s *PostService) List(ctx context.Context, ident auth.Identity, page int) ([]*models.Post, int64, error) {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}

	repo := s.repomanager.Posts(s.db)

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting posts: %w", err)
	}

	posts, err := repo.List(ctx, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing posts: %w", err)
	}

	return posts, total, nil
}

// Update rewrites a post's mutable fields. Only the recorded creator may
// update; everyone else gets common.ErrorForbidden. Broadcasts an update
// event on success.
func (s *PostService) Update(ctx context.Context, ident auth.Identity, id string, in PostInput) (*models.Post, error) {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return nil, err
	}

	repo := s.repomanager.Posts(s.db)
	post, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(ident, post.CreatorID); err != nil {
		return nil, err
	}
	if err := validatePostInput(in); err != nil {
		return nil, err
	}

	post.Title = strings.TrimSpace(in.Title)
	post.Content = strings.TrimSpace(in.Content)
	post.ImageURL = strings.TrimSpace(in.ImageURL)

	if _, err := repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	s.broadcaster.Broadcast(realtime.PostEvent{Action: realtime.ActionUpdate, Post: post})
	return post, nil
}

// Delete removes a post and the owner's back-reference in one transaction,
// then broadcasts a delete event carrying only the post id.
func (s *PostService) Delete(ctx context.Context, ident auth.Identity, id string) error {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return err
	}

	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(ident, post.CreatorID); err != nil {
		return err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Posts(tx).Delete(ctx, id, post.CreatorID)
	}); err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}

	s.broadcaster.Broadcast(realtime.PostEvent{Action: realtime.ActionDelete, PostID: id})
	return nil
}

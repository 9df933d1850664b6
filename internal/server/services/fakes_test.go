package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/dmitrijs2005/feedstream/internal/server/realtime"
	postsrepo "github.com/dmitrijs2005/feedstream/internal/server/repositories/posts"
	usersrepo "github.com/dmitrijs2005/feedstream/internal/server/repositories/users"
)

// --- shared fakes ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmailOut *models.User
	byEmailErr error

	byIDOut *models.User
	byIDErr error

	statusErr error
	gotStatus string
	gotUserID string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "generated-id"
	u.Status = "I am new!"
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmailOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakeUsersRepo) UpdateStatus(ctx context.Context, id, status string) error {
	f.gotUserID, f.gotStatus = id, status
	return f.statusErr
}

type fakePostsRepo struct {
	created []*models.Post

	byIDOut *models.Post
	byIDErr error

	listOut   []*models.Post
	listErr   error
	gotOffset int
	gotLimit  int
	countOut  int64
	countErr  error

	updated   []*models.Post
	updateErr error

	deleted   []string
	deleteErr error
	createErr error
}

func (f *fakePostsRepo) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byIDOut, nil
}

func (f *fakePostsRepo) List(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	f.gotOffset, f.gotLimit = offset, limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakePostsRepo) Count(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countOut, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, p)
	return p, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id, creatorID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePostsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository { return m.p }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

type recordingBroadcaster struct {
	events []realtime.PostEvent
}

func (b *recordingBroadcaster) Broadcast(ev realtime.PostEvent) {
	b.events = append(b.events, ev)
}

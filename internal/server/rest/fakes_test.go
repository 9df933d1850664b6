package rest

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/config"
	"github.com/dmitrijs2005/feedstream/internal/server/graphql"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/dmitrijs2005/feedstream/internal/server/realtime"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/posts"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/users"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
)

// ---- test logger ----

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- fakes ----

type fakeUsersRepo struct {
	createResp      *models.User
	createErr       error
	byEmail         *models.User
	byEmailErr      error
	byID            *models.User
	byIDErr         error
	updateStatusErr error

	updatedStatus string
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return f.createResp, f.createErr
}
func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.byEmail, f.byEmailErr
}
func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.byID, f.byIDErr
}
func (f *fakeUsersRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	f.updatedStatus = status
	return f.updateStatusErr
}

type fakePostsRepo struct {
	created   []*models.Post
	createErr error
	byID      *models.Post
	byIDErr   error
	list      []*models.Post
	listErr   error
	count     int64
	countErr  error
	updateErr error
	deleted   []string
	deleteErr error
}

func (f *fakePostsRepo) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, post)
	return post, nil
}
func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return f.byID, f.byIDErr
}
func (f *fakePostsRepo) List(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	return f.list, f.listErr
}
func (f *fakePostsRepo) Count(ctx context.Context) (int64, error) {
	return f.count, f.countErr
}
func (f *fakePostsRepo) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return post, nil
}
func (f *fakePostsRepo) Delete(ctx context.Context, id, creatorID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	posts *fakePostsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository { return m.users }
func (m *fakeRepoManager) Posts(db dbx.DBTX) posts.Repository { return m.posts }
func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

type fakeStore struct {
	saved      []string
	saveErr    error
	deleted    []string
	deleteErr  error
	presignURL string
	presignErr error
}

func (f *fakeStore) Save(ctx context.Context, key, contentType string, body io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, key)
	return nil
}
func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}
func (f *fakeStore) PresignGet(ctx context.Context, key string) (string, error) {
	return f.presignURL, f.presignErr
}

type recordingBroadcaster struct {
	events []realtime.PostEvent
}

func (b *recordingBroadcaster) Broadcast(ev realtime.PostEvent) {
	b.events = append(b.events, ev)
}

// ---- helpers ----

const testSecret = "secret"

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type testEnv struct {
	srv         *Server
	users       *fakeUsersRepo
	posts       *fakePostsRepo
	store       *fakeStore
	broadcaster *recordingBroadcaster
}

func newTestEnv(t *testing.T, db *sql.DB) *testEnv {
	t.Helper()

	ur := &fakeUsersRepo{}
	pr := &fakePostsRepo{}
	m := &fakeRepoManager{users: ur, posts: pr}
	store := &fakeStore{presignURL: "http://minio.local/presigned"}
	bc := &recordingBroadcaster{}

	cfg := &config.Config{SecretKey: testSecret, AccessTokenValidityDuration: time.Hour}
	us := services.NewUserService(db, m, cfg, nopLogger{})
	ps := services.NewPostService(db, m, bc, nopLogger{})

	gq, err := graphql.NewHandler(us, ps, nopLogger{})
	if err != nil {
		t.Fatalf("graphql.NewHandler: %v", err)
	}

	srv, err := NewServer("127.0.0.1:0", nopLogger{}, us, ps, store, realtime.NewHub(nopLogger{}), gq, testSecret)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	return &testEnv{srv: srv, users: ur, posts: pr, store: store, broadcaster: bc}
}

// multipartBody builds a multipart form with the given value fields and an
// optional file part. Returns the body and the Content-Type header value.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}

	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("part.Write: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, w.FormDataContentType()
}

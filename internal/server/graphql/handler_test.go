package graphql

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/auth"
	"github.com/dmitrijs2005/feedstream/internal/server/config"
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
	createResp *models.User
	createErr  error
	byEmail    *models.User
	byEmailErr error
	byID       *models.User
	byIDErr    error
	statusErr  error
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
	return f.statusErr
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
	return f.deleteErr
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

type nopBroadcaster struct{ events []realtime.PostEvent }

func (b *nopBroadcaster) Broadcast(ev realtime.PostEvent) { b.events = append(b.events, ev) }

// ---- helpers ----

type testEnv struct {
	handler *Handler
	users   *fakeUsersRepo
	posts   *fakePostsRepo
}

func newTestEnv(t *testing.T, db *sql.DB) *testEnv {
	t.Helper()

	ur := &fakeUsersRepo{}
	pr := &fakePostsRepo{}
	m := &fakeRepoManager{users: ur, posts: pr}

	cfg := &config.Config{SecretKey: "secret", AccessTokenValidityDuration: time.Hour}
	us := services.NewUserService(db, m, cfg, nopLogger{})
	ps := services.NewPostService(db, m, &nopBroadcaster{}, nopLogger{})

	h, err := NewHandler(us, ps, nopLogger{})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return &testEnv{handler: h, users: ur, posts: pr}
}

func execute(t *testing.T, h *Handler, ident auth.Identity, query string, variables map[string]any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(payload)))
	r = r.WithContext(auth.WithIdentity(r.Context(), ident))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return w.Code, body
}

func firstError(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	errs, ok := body["errors"].([]any)
	if !ok || len(errs) == 0 {
		t.Fatalf("expected errors, got %v", body)
	}
	e, ok := errs[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected error shape: %v", errs[0])
	}
	return e
}

// ---- tests ----

func TestCreateUser_OK(t *testing.T) {
	env := newTestEnv(t, nil)
	env.users.createResp = &models.User{ID: "user-1", Email: "me@example.com", Name: "Me", Status: "I am new!"}

	query := `mutation {
		createUser(userInput: {email: "me@example.com", name: "Me", password: "secret123"}) {
			id status
		}
	}`
	code, body := execute(t, env.handler, auth.Identity{}, query, nil)

	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if _, ok := body["errors"]; ok {
		t.Fatalf("unexpected errors: %v", body["errors"])
	}
	data := body["data"].(map[string]any)["createUser"].(map[string]any)
	if data["id"] != "user-1" {
		t.Fatalf("unexpected id: %v", data["id"])
	}
	if data["status"] != "I am new!" {
		t.Fatalf("unexpected status: %v", data["status"])
	}
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	query := `mutation {
		createUser(userInput: {email: "bad", name: "", password: "x"}) { id }
	}`
	_, body := execute(t, env.handler, auth.Identity{}, query, nil)

	gqlErr := firstError(t, body)
	if gqlErr["message"] != "Validation Error" {
		t.Fatalf("unexpected message: %v", gqlErr["message"])
	}
	if gqlErr["status"] != float64(http.StatusUnprocessableEntity) {
		t.Fatalf("unexpected status: %v", gqlErr["status"])
	}
	data, ok := gqlErr["data"].([]any)
	if !ok || len(data) == 0 {
		t.Fatalf("expected validation details, got %v", gqlErr["data"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.users.byEmailErr = common.ErrorNotFound

	query := `{ login(email: "me@example.com", password: "secret123") { token userId } }`
	_, body := execute(t, env.handler, auth.Identity{}, query, nil)

	gqlErr := firstError(t, body)
	if gqlErr["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("unexpected status: %v", gqlErr["status"])
	}
	if gqlErr["message"] != "Not Authenticated" {
		t.Fatalf("unexpected message: %v", gqlErr["message"])
	}
}

func TestCreatePost_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)

	query := `mutation {
		createPost(postInput: {title: "First post", content: "Hello world", imageUrl: "images/a.png"}) { id }
	}`
	_, body := execute(t, env.handler, auth.Unauthenticated("missing authorization header"), query, nil)

	gqlErr := firstError(t, body)
	if gqlErr["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("unexpected status: %v", gqlErr["status"])
	}
	if len(env.posts.created) != 0 {
		t.Fatal("unauthenticated request must not create a post")
	}
}

func TestCreatePost_OK(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	env := newTestEnv(t, db)

	query := `mutation {
		createPost(postInput: {title: "First post", content: "Hello world", imageUrl: "images/a.png"}) {
			id title creatorId
		}
	}`
	code, body := execute(t, env.handler, auth.Authenticated("user-1"), query, nil)

	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if _, ok := body["errors"]; ok {
		t.Fatalf("unexpected errors: %v", body["errors"])
	}
	data := body["data"].(map[string]any)["createPost"].(map[string]any)
	if data["creatorId"] != "user-1" {
		t.Fatalf("unexpected creator: %v", data["creatorId"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet db expectations: %v", err)
	}
}

func TestUpdatePost_NotOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	env.posts.byID = &models.Post{ID: "post-1", CreatorID: "someone-else"}

	query := `mutation {
		updatePost(id: "post-1", postInput: {title: "First post", content: "Hello world", imageUrl: "images/a.png"}) { id }
	}`
	_, body := execute(t, env.handler, auth.Authenticated("user-1"), query, nil)

	gqlErr := firstError(t, body)
	if gqlErr["status"] != float64(http.StatusForbidden) {
		t.Fatalf("unexpected status: %v", gqlErr["status"])
	}
}

func TestPosts_TotalAndPage(t *testing.T) {
	env := newTestEnv(t, nil)
	now := time.Now().UTC()
	env.posts.count = 5
	env.posts.list = []*models.Post{
		{ID: "p3", Title: "third", Content: "c", ImageURL: "i", CreatorID: "u", CreatedAt: now, UpdatedAt: now},
		{ID: "p2", Title: "second", Content: "c", ImageURL: "i", CreatorID: "u", CreatedAt: now, UpdatedAt: now},
	}

	query := `{ posts(page: 2) { totalPosts posts { id title } } }`
	_, body := execute(t, env.handler, auth.Authenticated("user-1"), query, nil)

	if _, ok := body["errors"]; ok {
		t.Fatalf("unexpected errors: %v", body["errors"])
	}
	data := body["data"].(map[string]any)["posts"].(map[string]any)
	if data["totalPosts"] != float64(5) {
		t.Fatalf("unexpected total: %v", data["totalPosts"])
	}
	list := data["posts"].([]any)
	if len(list) != 2 {
		t.Fatalf("unexpected page size: %d", len(list))
	}
}

func TestDeletePost_OK(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	env := newTestEnv(t, db)
	env.posts.byID = &models.Post{ID: "post-1", CreatorID: "user-1"}

	query := `mutation { deletePost(id: "post-1") }`
	_, body := execute(t, env.handler, auth.Authenticated("user-1"), query, nil)

	if _, ok := body["errors"]; ok {
		t.Fatalf("unexpected errors: %v", body["errors"])
	}
	if body["data"].(map[string]any)["deletePost"] != true {
		t.Fatalf("unexpected result: %v", body["data"])
	}
}

func TestSyntaxError_BadRequestStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	_, body := execute(t, env.handler, auth.Identity{}, `{ nope`, nil)

	gqlErr := firstError(t, body)
	if gqlErr["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("unexpected status: %v", gqlErr["status"])
	}
}

func TestInvalidBody(t *testing.T) {
	env := newTestEnv(t, nil)

	r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

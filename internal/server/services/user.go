// Package services contains server-side business logic. UserService handles
// signup, login and the user status line; PostService drives the post
// lifecycle including ownership checks and change broadcasts.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/auth"
	"github.com/dmitrijs2005/feedstream/internal/server/config"
	"github.com/dmitrijs2005/feedstream/internal/server/models"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

const minPasswordLength = 5

// bcrypt seams for tests.
var (
	bcryptGenerate = func(password []byte, cost int) ([]byte, error) {
		return bcrypt.GenerateFromPassword(password, cost)
	}
	bcryptCompare = bcrypt.CompareHashAndPassword
)

// LoginResult bundles the issued identity token with the user it belongs to.
type LoginResult struct {
	Token  string
	UserID string
}

// UserService provides account operations: Signup, Login, and the status line.
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		logger:        logger.With("module", "user_service"),
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Signup validates the input, hashes the password and creates the account.
// A duplicate email yields common.ErrorConflict. The returned user carries
// the store-assigned id and default status.
func (s *UserService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	name = strings.TrimSpace(name)

	var details []string
	if !validEmail(email) {
		details = append(details, "Please enter a valid email")
	}
	if len(password) < minPasswordLength {
		details = append(details, fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	if name == "" {
		details = append(details, "Name must not be empty")
	}
	if len(details) > 0 {
		return nil, common.NewValidationError(details...)
	}

	hash, err := bcryptGenerate([]byte(password), bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Email: email, PasswordHash: string(hash), Name: name}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the credentials and, on success, issues an identity token
// valid for the configured duration. Unknown emails and wrong passwords are
// both reported as common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	var details []string
	if !validEmail(email) {
		details = append(details, "Please enter a valid email")
	}
	if len(password) < minPasswordLength {
		details = append(details, fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	if len(details) > 0 {
		return nil, common.NewValidationError(details...)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if err := bcryptCompare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &LoginResult{Token: token, UserID: user.ID}, nil
}

// GetUser loads the caller's own account.
func (s *UserService) GetUser(ctx context.Context, ident auth.Identity) (*models.User, error) {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return nil, err
	}
	repo := s.repomanager.Users(s.db)
	return repo.GetByID(ctx, ident.UserID())
}

// GetStatus returns the caller's status line.
func (s *UserService) GetStatus(ctx context.Context, ident auth.Identity) (string, error) {
	user, err := s.GetUser(ctx, ident)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// UpdateStatus replaces the caller's status line.
func (s *UserService) UpdateStatus(ctx context.Context, ident auth.Identity, status string) error {
	if err := auth.RequireAuthenticated(ident); err != nil {
		return err
	}

	status = strings.TrimSpace(status)
	if status == "" {
		return common.NewValidationError("Status must not be empty")
	}

	repo := s.repomanager.Users(s.db)
	return repo.UpdateStatus(ctx, ident.UserID(), status)
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/feedstream/internal/dbx"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/posts"
	"github.com/dmitrijs2005/feedstream/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to an arbitrary
// DBTX, so services can run the same repository code against *sql.DB or an
// open transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}

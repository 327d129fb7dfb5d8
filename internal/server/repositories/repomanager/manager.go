package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/server/repositories/connections"
)

// RepositoryManager vends repositories bound to a DBTX and owns schema setup.
type RepositoryManager interface {
	// RunMigrations brings the schema up to date. It is idempotent and must
	// complete before any repository is used.
	RunMigrations(context.Context, *sql.DB) error
	Connections(db dbx.DBTX) connections.Repository
}

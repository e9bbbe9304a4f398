package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/resources"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a connection pool or
// a transaction, so services can compose several writes in one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Resources(db dbx.DBTX) resources.Repository
	ActivityLogs(db dbx.DBTX) activitylogs.Repository
}

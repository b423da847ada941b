// Package repomanager vends the server repositories, either bound to the
// connection pool or to one transaction, for Postgres and in-memory storage.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/herdsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/herdsync/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users() users.Repository
	Records() records.Repository
	// WithTx runs fn with repositories bound to one transaction. Any error
	// from fn discards every write fn made. Nested calls join the outer
	// transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx RepositoryManager) error) error
	Ping(ctx context.Context) error
	Close() error
}

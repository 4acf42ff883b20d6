package ports

import (
	"context"

	"workrecords/internal/domain"
)

// ObjectStore is the hierarchical, transactional persistence the work record
// adapter delegates to. Reads outside a transaction see committed state only.
type ObjectStore interface {
	// Get resolves a path. It returns domain.ErrObjectNotFound when absent.
	Get(ctx context.Context, path domain.Path) (domain.Object, error)
	Query(ctx context.Context, q domain.Query) ([]domain.Object, error)
	// Count returns the number of objects matching q, ignoring Offset/Limit.
	Count(ctx context.Context, q domain.Query) (int, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a unit of work. Reads through a Tx observe its own pending writes.
// Rollback must be safe to call after a failed Commit.
type Tx interface {
	Get(ctx context.Context, path domain.Path) (domain.Object, error)
	Query(ctx context.Context, q domain.Query) ([]domain.Object, error)
	// Create inserts obj as a child of parent in kind's collection. An empty
	// id asks the store to generate one. The new object's path is returned.
	Create(ctx context.Context, parent domain.Path, kind domain.Kind, id string, obj domain.Object) (domain.Path, error)
	// Set applies a partial update and stamps the modification audit fields.
	Set(ctx context.Context, path domain.Path, f domain.Fields) error
	Commit() error
	Rollback() error
}

// WorkRecordProvider is the operation set exposed over HTTP.
type WorkRecordProvider interface {
	List(ctx context.Context, queryType, query string, offset, limit int) ([]domain.WorkRecord, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, rec domain.WorkRecord) (domain.WorkRecord, error)
	Read(ctx context.Context, id string) (domain.WorkRecord, error)
	Update(ctx context.Context, id string, rec domain.WorkRecord) (domain.WorkRecord, error)
	Delete(ctx context.Context, id string) error
}

package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"workrecords/internal/domain"
	"workrecords/internal/migrate"
)

var root = domain.SegmentRoot("CRX", "Standard")

func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	url := "sqlite:" + filepath.Join(t.TempDir(), "objects.db")
	s, err := Open(ctx, Options{URL: url, Principal: "tester"}, log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := migrate.Run(ctx, s.DB(), s.Dialect().Goose, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run is a no-op.
	if err := migrate.Run(ctx, s.DB(), s.Dialect().Goose, log); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	return s
}

func TestStore_CreateGetSet(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	resource, err := tx.Create(ctx, root, domain.KindResource, "R1", domain.Object{Name: "Resource One"})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	project, err := tx.Create(ctx, root, domain.KindActivity, "P1", domain.Object{Name: "Project One"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	assignment, err := tx.Create(ctx, project, domain.KindAssignment, "", domain.Object{ResourceRef: resource})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	// The transaction sees its own writes.
	found, err := tx.Query(ctx, domain.Query{Kind: domain.KindAssignment, Parent: project.Descendant("assignedResource"), ResourceRef: resource})
	if err != nil || len(found) != 1 {
		t.Fatalf("tx query: %v %v", found, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	obj, err := s.Get(ctx, assignment)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if obj.Kind != domain.KindAssignment || !obj.ResourceRef.Equal(resource) || obj.CreatedBy != "tester" {
		t.Fatalf("unexpected assignment: %+v", obj)
	}
	if obj.StartedAt != nil || obj.Quantity != nil {
		t.Fatalf("expected null start and quantity: %+v", obj)
	}

	q := 2.5
	comment := "Dev work"
	tx, _ = s.Begin(ctx)
	rec, err := tx.Create(ctx, assignment, domain.KindWorkRecord, "", domain.Object{
		RecordType: domain.RecordTypeUserDefined,
		Quantity:   &q,
		Billable:   true,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if err := tx.Set(ctx, rec, domain.Fields{Name: &comment}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	obj, err = s.Get(ctx, rec)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if obj.Name != comment || obj.Quantity == nil || *obj.Quantity != 2.5 || !obj.Billable || obj.RecordType != domain.RecordTypeUserDefined {
		t.Fatalf("unexpected record: %+v", obj)
	}
	// Setting identical values still counts as a match.
	tx, _ = s.Begin(ctx)
	if err := tx.Set(ctx, rec, domain.Fields{Name: &comment}); err != nil {
		t.Fatalf("idempotent set: %v", err)
	}
	_ = tx.Rollback()
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	if _, err := s.Get(ctx, root.Descendant("resource", "nope")); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	tx, _ := s.Begin(ctx)
	if _, err := tx.Create(ctx, root, domain.KindResource, "R1", domain.Object{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tx.Create(ctx, root, domain.KindResource, "R1", domain.Object{}); !errors.Is(err, domain.ErrObjectExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	if err := tx.Set(ctx, root.Descendant("resource", "nope"), domain.Fields{}); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if n, _ := s.Count(ctx, domain.Query{}); n != 0 {
		t.Fatalf("rolled back rows visible: %d", n)
	}
}

func TestStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	tx, _ := s.Begin(ctx)
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := tx.Create(ctx, root, domain.KindResource, id, domain.Object{Disabled: id == "c"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	// Outside the segment and with LIKE metacharacters in its path.
	other := domain.SegmentRoot("CRX", "Stan%")
	if _, err := tx.Create(ctx, other, domain.KindResource, "x", domain.Object{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	lower := domain.SegmentRoot("CRX", "standard")
	if _, err := tx.Create(ctx, lower, domain.KindResource, "y", domain.Object{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = tx.Commit()

	enabled := false
	q := domain.Query{Kind: domain.KindResource, Under: root, Disabled: &enabled}
	n, err := s.Count(ctx, q)
	if err != nil || n != 3 {
		t.Fatalf("count: %d %v", n, err)
	}
	q.Offset = 1
	got, err := s.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var ids []string
	for _, o := range got {
		ids = append(ids, o.Path.LastSegment())
	}
	if strings.Join(ids, ",") != "b,d" {
		t.Fatalf("unexpected order: %v", ids)
	}
	q.Limit = 1
	got, _ = s.Query(ctx, q)
	if len(got) != 1 || got[0].Path.LastSegment() != "b" {
		t.Fatalf("unexpected page: %v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	begun, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer begun.Rollback()
	sqlTx := begun.(*tx).tx
	insert := "INSERT INTO crx_objects (path, parent, kind, created_at, modified_at) VALUES (?, '', 'resource', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)"
	if _, err := sqlTx.ExecContext(ctx, insert, "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = sqlTx.ExecContext(ctx, insert, "a")
	if err == nil || !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	// NOT NULL is a constraint failure too, but not a duplicate.
	_, err = sqlTx.ExecContext(ctx, "INSERT INTO crx_objects (path, parent, kind, created_at, modified_at) VALUES (NULL, '', 'resource', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)")
	if err == nil || isUniqueViolation(err) {
		t.Fatalf("expected a non-unique constraint error, got %v", err)
	}
	if isUniqueViolation(errors.New("UNIQUE constraint failed: crx_objects.path")) {
		t.Fatalf("message text alone must not count as a unique violation")
	}
}

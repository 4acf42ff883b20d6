package usecase

import (
	"context"
	"errors"
	"testing"

	"workrecords/internal/adapter/memstore"
	"workrecords/internal/domain"
)

func TestCatalog_AddAndResolve(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	cat := NewCatalog(store, root, testLogger())

	group, err := cat.AddCustomerGroup(ctx, "C1", "Acme")
	if err != nil {
		t.Fatalf("add group: %v", err)
	}
	project, err := cat.AddProject(ctx, "P1", "Project One", "C1")
	if err != nil {
		t.Fatalf("add project: %v", err)
	}
	if !project.Equal(root.Descendant("activity", "P1")) {
		t.Fatalf("project path: %s", project)
	}
	obj, err := store.Get(ctx, project)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if obj.Kind != domain.KindActivity || obj.Name != "Project One" || !obj.GroupRef.Equal(group) {
		t.Fatalf("unexpected project: %+v", obj)
	}
}

func TestCatalog_Rejects(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	cat := NewCatalog(store, root, testLogger())

	if _, err := cat.AddResource(ctx, "", "Nobody"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty id: %v", err)
	}
	if _, err := cat.AddResource(ctx, "R1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := cat.AddProject(ctx, "P1", "Project One", "missing"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("unknown group: %v", err)
	}
	if _, err := cat.AddResource(ctx, "R1", "Resource"); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	_, err := cat.AddResource(ctx, "R1", "Resource")
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if n := objectCount(t, store, domain.KindResource); n != 1 {
		t.Fatalf("expected one resource, got %d", n)
	}
}

func TestCatalog_CommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	store := &failingStore{ObjectStore: mem, failCommit: true, failRollback: true}
	cat := NewCatalog(store, root, testLogger())

	if _, err := cat.AddResource(ctx, "R1", "Resource"); err == nil {
		t.Fatalf("expected commit failure")
	}
	if store.rollbacks != 1 {
		t.Fatalf("expected one rollback attempt, got %d", store.rollbacks)
	}
	if n := objectCount(t, mem, domain.KindResource); n != 0 {
		t.Fatalf("expected no resources, got %d", n)
	}
}

package restapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workrecords/internal/adapter/memstore"
	"workrecords/internal/app"
	"workrecords/internal/config"
	"workrecords/internal/domain"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{Backend: config.Backend{ContentType: "application/json", ProviderName: "CRX", SegmentName: "Standard"}}
	a, err := app.NewWithStore(log, memstore.New(), cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	if _, err := a.Catalog().AddCustomerGroup(ctx, "C1", "Acme"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := a.Catalog().AddProject(ctx, "P1", "Project One", "C1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := a.Catalog().AddResource(ctx, "R1", "Resource One"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := NewClient(srv.URL+"/", nil)

	created, err := c.Create(ctx, domain.WorkRecord{
		CompanyID:       "C1",
		CompanyTitle:    "Acme",
		ProjectID:       "P1",
		ProjectTitle:    "Project One",
		ResourceID:      "R1",
		RateID:          "senior",
		StartAt:         time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
		DurationHours:   2,
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := c.Read(ctx, created.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != created.ID || got.DurationHours != 2 || got.DurationMinutes != 30 || got.CompanyTitle != "Acme" {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Comment = "Reviewed"
	if _, err := c.Update(ctx, got.ID, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := c.List(ctx, "", "", 0, 10)
	if err != nil || len(list) != 1 || list[0].Comment != "Reviewed" {
		t.Fatalf("list: %v %v", list, err)
	}
	if n, err := c.Count(ctx); err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}

	if err := c.Delete(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Read(ctx, got.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := NewClient(srv.URL, nil)

	_, err := c.Create(ctx, domain.WorkRecord{ProjectID: "P1"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Msg == "" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := c.Delete(ctx, "bad"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	if _, err := NewClient(failing.URL, nil).Count(ctx); err == nil {
		t.Fatalf("expected error for 503")
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"workrecords/internal/domain"
	"workrecords/internal/ports"
)

// Catalog maintains the reference objects work records point at: customer
// project groups, projects and resources.
type Catalog struct {
	log   *slog.Logger
	store ports.ObjectStore
	root  domain.Path
}

func NewCatalog(store ports.ObjectStore, root domain.Path, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{log: log, store: store, root: root}
}

// AddCustomerGroup creates the tracker a project's company is derived from.
func (c *Catalog) AddCustomerGroup(ctx context.Context, id, name string) (domain.Path, error) {
	return c.add(ctx, domain.KindTracker, id, domain.Object{Name: name})
}

// AddProject creates a project. groupID may be empty for projects without a
// customer.
func (c *Catalog) AddProject(ctx context.Context, id, name, groupID string) (domain.Path, error) {
	obj := domain.Object{Name: name}
	if groupID != "" {
		group := c.root.Descendant(string(domain.KindTracker), groupID)
		if _, err := c.store.Get(ctx, group); err != nil {
			return nil, fmt.Errorf("customer group %s: %w", groupID, err)
		}
		obj.GroupRef = group
	}
	return c.add(ctx, domain.KindActivity, id, obj)
}

// AddResource creates a bookable resource.
func (c *Catalog) AddResource(ctx context.Context, id, name string) (domain.Path, error) {
	return c.add(ctx, domain.KindResource, id, domain.Object{Name: name})
}

func (c *Catalog) add(ctx context.Context, kind domain.Kind, id string, obj domain.Object) (domain.Path, error) {
	if id == "" {
		return nil, &domain.ValidationError{Field: "id", Msg: "must not be empty"}
	}
	if obj.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	p, err := tx.Create(ctx, c.root, kind, id, obj)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Warn("rollback failed", slog.String("kind", string(kind)), slog.String("error", rbErr.Error()))
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Warn("rollback failed", slog.String("kind", string(kind)), slog.String("error", rbErr.Error()))
		}
		return nil, err
	}
	c.log.Info("catalog object created", slog.String("kind", string(kind)), slog.String("path", p.String()))
	return p, nil
}

// IsDuplicate reports whether err stems from an id that is already taken.
func IsDuplicate(err error) bool { return errors.Is(err, domain.ErrObjectExists) }

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"workrecords/internal/domain"
	"workrecords/internal/ports"
)

// DefaultListLimit caps List when the caller asks for no limit.
const DefaultListLimit = 50

// WorkRecords translates flat work records to and from objects of the
// activity segment rooted at root.
type WorkRecords struct {
	log   *slog.Logger
	store ports.ObjectStore
	root  domain.Path
}

var _ ports.WorkRecordProvider = (*WorkRecords)(nil)

// New returns an adapter bound to store and the activity segment at root.
func New(store ports.ObjectStore, root domain.Path, log *slog.Logger) (*WorkRecords, error) {
	if store == nil {
		return nil, errors.New("usecase not initialized: missing object store")
	}
	if root.IsZero() {
		return nil, errors.New("usecase not initialized: missing segment root")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WorkRecords{log: log, store: store, root: root}, nil
}

func (uc *WorkRecords) listQuery() domain.Query {
	recordType := domain.RecordTypeUserDefined
	disabled := false
	return domain.Query{
		Kind:       domain.KindWorkRecord,
		Under:      uc.root,
		RecordType: &recordType,
		Disabled:   &disabled,
	}
}

// List returns live user-defined work records in store order. queryType and
// query are accepted for interface compatibility; no search is performed.
func (uc *WorkRecords) List(ctx context.Context, queryType, query string, offset, limit int) ([]domain.WorkRecord, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if queryType != "" || query != "" {
		uc.log.Debug("ignoring list query", slog.String("query_type", queryType), slog.String("query", query))
	}

	q := uc.listQuery()
	q.Offset = offset
	q.Limit = limit
	objs, err := uc.store.Query(ctx, q)
	if err != nil {
		uc.log.Error("list work records", slog.String("error", err.Error()))
		return nil, domain.ErrInternal
	}

	m := uc.newMapper(ctx)
	out := make([]domain.WorkRecord, 0, len(objs))
	for _, o := range objs {
		rec, err := m.workRecord(o)
		if err != nil {
			uc.log.Error("map work record", slog.String("path", o.Path.String()), slog.String("error", err.Error()))
			return nil, domain.ErrInternal
		}
		out = append(out, rec)
	}
	uc.log.Info("listed work records", slog.Int("count", len(out)), slog.Int("offset", offset), slog.Int("limit", limit))
	return out, nil
}

// Count returns the number of records List can enumerate.
func (uc *WorkRecords) Count(ctx context.Context) (int, error) {
	n, err := uc.store.Count(ctx, uc.listQuery())
	if err != nil {
		uc.log.Error("count work records", slog.String("error", err.Error()))
		return 0, domain.ErrInternal
	}
	return n, nil
}

// Create books a new record. The store assigns the id.
func (uc *WorkRecords) Create(ctx context.Context, rec domain.WorkRecord) (domain.WorkRecord, error) {
	if rec.ID != "" {
		if _, err := uc.locate(ctx, rec.ID); err == nil {
			return domain.WorkRecord{}, &domain.ValidationError{Field: "id", Msg: fmt.Sprintf("work record with ID <%s> exists already", rec.ID)}
		}
		return domain.WorkRecord{}, &domain.ValidationError{Field: "id", Msg: fmt.Sprintf("work record <%s> contains an ID generated on the client; client-generated identifiers are not allowed", rec.ID)}
	}
	if err := validateCreate(rec); err != nil {
		return domain.WorkRecord{}, err
	}

	resourcePath := uc.root.Descendant(string(domain.KindResource), rec.ResourceID)
	projectPath := uc.root.Descendant(string(domain.KindActivity), rec.ProjectID)

	var recordPath domain.Path
	err := uc.inTx(ctx, "add work record", func(tx ports.Tx) error {
		p, err := uc.addWorkRecord(ctx, tx, projectPath, resourcePath, rec)
		recordPath = p
		return err
	})
	if err != nil {
		return domain.WorkRecord{}, err
	}

	// The add operation does not take the rate tag, so it is set separately.
	rate := rec.RateID
	err = uc.inTx(ctx, "set rate", func(tx ports.Tx) error {
		return tx.Set(ctx, recordPath, domain.Fields{UserString0: &rate})
	})
	if err != nil {
		uc.discard(ctx, recordPath)
		return domain.WorkRecord{}, err
	}

	id, err := domain.RecordIDFromPath(uc.root, recordPath)
	if err != nil {
		uc.log.Error("created work record outside segment", slog.String("path", recordPath.String()))
		return domain.WorkRecord{}, domain.ErrInternal
	}
	uc.log.Info("created work record", slog.String("id", id.String()))
	return uc.Read(ctx, id.String())
}

// addWorkRecord assigns the resource to the project when needed and creates
// the record below that assignment.
func (uc *WorkRecords) addWorkRecord(ctx context.Context, tx ports.Tx, projectPath, resourcePath domain.Path, rec domain.WorkRecord) (domain.Path, error) {
	resource, err := tx.Get(ctx, resourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve resource %s: %w", rec.ResourceID, err)
	}
	if _, err := tx.Get(ctx, projectPath); err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", rec.ProjectID, err)
	}

	assignments, err := tx.Query(ctx, domain.Query{
		Kind:        domain.KindAssignment,
		Parent:      projectPath.Descendant(string(domain.KindAssignment)),
		ResourceRef: resource.Path,
		Limit:       1,
	})
	if err != nil {
		return nil, err
	}
	var assignment domain.Path
	if len(assignments) > 0 {
		assignment = assignments[0].Path
	} else {
		assignment, err = tx.Create(ctx, projectPath, domain.KindAssignment, "", domain.Object{
			Name:        resource.Name,
			ResourceRef: resource.Path,
		})
		if err != nil {
			return nil, err
		}
	}

	startAt := rec.StartAt.UTC()
	quantity := rec.Quantity()
	return tx.Create(ctx, assignment, domain.KindWorkRecord, "", domain.Object{
		Name:          rec.Comment,
		Billable:      rec.Billable,
		StartedAt:     &startAt,
		Quantity:      &quantity,
		ResourceRef:   resource.Path,
		RecordType:    domain.RecordTypeUserDefined,
		RateCurrency:  0,
		DepotSelector: 0,
	})
}

// discard disables a record whose creation could not be completed so it
// never shows up without its rate. Failures are only logged.
func (uc *WorkRecords) discard(ctx context.Context, p domain.Path) {
	disabled := true
	tx, err := uc.store.Begin(ctx)
	if err != nil {
		uc.log.Warn("discard incomplete work record", slog.String("path", p.String()), slog.String("error", err.Error()))
		return
	}
	if err := tx.Set(ctx, p, domain.Fields{Disabled: &disabled}); err != nil {
		uc.log.Warn("discard incomplete work record", slog.String("path", p.String()), slog.String("error", err.Error()))
		uc.rollback(tx, "discard")
		return
	}
	if err := tx.Commit(); err != nil {
		uc.log.Warn("discard incomplete work record", slog.String("path", p.String()), slog.String("error", err.Error()))
		uc.rollback(tx, "discard")
		return
	}
	uc.log.Warn("discarded incomplete work record", slog.String("path", p.String()))
}

// Read returns the live record with the given compound id.
func (uc *WorkRecords) Read(ctx context.Context, id string) (domain.WorkRecord, error) {
	obj, err := uc.locate(ctx, id)
	if err != nil {
		return domain.WorkRecord{}, err
	}
	rec, err := uc.newMapper(ctx).workRecord(obj)
	if err != nil {
		uc.log.Error("map work record", slog.String("id", id), slog.String("error", err.Error()))
		return domain.WorkRecord{}, domain.ErrInternal
	}
	uc.log.Debug("read work record", slog.String("id", id))
	return rec, nil
}

// Update rewrites start, duration, comment and billable flag. Identity,
// project, resource and rate are not changed.
func (uc *WorkRecords) Update(ctx context.Context, id string, rec domain.WorkRecord) (domain.WorkRecord, error) {
	obj, err := uc.locate(ctx, id)
	if err != nil {
		return domain.WorkRecord{}, err
	}
	if err := validateContent(rec); err != nil {
		return domain.WorkRecord{}, err
	}

	startAt := rec.StartAt.UTC()
	quantity := rec.Quantity()
	comment := rec.Comment
	billable := rec.Billable
	err = uc.inTx(ctx, "update work record", func(tx ports.Tx) error {
		return tx.Set(ctx, obj.Path, domain.Fields{
			StartedAt: &startAt,
			Quantity:  &quantity,
			Name:      &comment,
			Billable:  &billable,
		})
	})
	if err != nil {
		return domain.WorkRecord{}, err
	}
	uc.log.Info("updated work record", slog.String("id", id))
	return uc.Read(ctx, id)
}

// Delete disables the record. Disabled records are invisible to every
// other operation.
func (uc *WorkRecords) Delete(ctx context.Context, id string) error {
	obj, err := uc.locate(ctx, id)
	if err != nil {
		return err
	}
	disabled := true
	err = uc.inTx(ctx, "delete work record", func(tx ports.Tx) error {
		return tx.Set(ctx, obj.Path, domain.Fields{Disabled: &disabled})
	})
	if err != nil {
		return err
	}
	uc.log.Info("deleted work record", slog.String("id", id))
	return nil
}

// locate resolves id to a live work record object. Every failure collapses
// into the same not-found error.
func (uc *WorkRecords) locate(ctx context.Context, id string) (domain.Object, error) {
	rid, err := domain.ParseRecordID(id)
	if err != nil {
		return domain.Object{}, domain.NotFound(id)
	}
	obj, err := uc.store.Get(ctx, rid.Path(uc.root))
	if err != nil {
		if !errors.Is(err, domain.ErrObjectNotFound) {
			uc.log.Warn("resolve work record", slog.String("id", id), slog.String("error", err.Error()))
		}
		return domain.Object{}, domain.NotFound(id)
	}
	if obj.Kind != domain.KindWorkRecord || obj.Disabled {
		return domain.Object{}, domain.NotFound(id)
	}
	return obj, nil
}

// inTx runs fn in its own transaction. Any failure is logged, rolled back
// best-effort and reported as ErrInternal. A failed rollback is only logged.
func (uc *WorkRecords) inTx(ctx context.Context, op string, fn func(tx ports.Tx) error) error {
	tx, err := uc.store.Begin(ctx)
	if err != nil {
		uc.log.Error("begin transaction", slog.String("op", op), slog.String("error", err.Error()))
		return domain.ErrInternal
	}
	if err := fn(tx); err != nil {
		uc.log.Error("transaction failed", slog.String("op", op), slog.String("error", err.Error()))
		uc.rollback(tx, op)
		return domain.ErrInternal
	}
	if err := tx.Commit(); err != nil {
		uc.log.Error("commit failed", slog.String("op", op), slog.String("error", err.Error()))
		uc.rollback(tx, op)
		return domain.ErrInternal
	}
	return nil
}

func (uc *WorkRecords) rollback(tx ports.Tx, op string) {
	if err := tx.Rollback(); err != nil {
		uc.log.Warn("rollback failed", slog.String("op", op), slog.String("error", err.Error()))
		return
	}
	uc.log.Debug("rolled back", slog.String("op", op))
}

func validateCreate(rec domain.WorkRecord) error {
	required := []struct {
		field, value string
	}{
		{"companyId", rec.CompanyID},
		{"companyTitle", rec.CompanyTitle},
		{"projectId", rec.ProjectID},
		{"projectTitle", rec.ProjectTitle},
		{"resourceId", rec.ResourceID},
		{"rateId", rec.RateID},
	}
	for _, r := range required {
		if r.value == "" {
			return &domain.ValidationError{Field: r.field, Msg: "workrecord must contain a valid " + r.field}
		}
	}
	return validateContent(rec)
}

// validateContent checks the fields Update is allowed to write.
func validateContent(rec domain.WorkRecord) error {
	if rec.StartAt.IsZero() {
		return &domain.ValidationError{Field: "startAt", Msg: "workrecord must contain a valid startAt date"}
	}
	if rec.DurationHours < 0 {
		return &domain.ValidationError{Field: "durationHours", Msg: "must not be negative"}
	}
	if rec.DurationMinutes < 0 || rec.DurationMinutes > 59 {
		return &domain.ValidationError{Field: "durationMinutes", Msg: "must be between 0 and 59"}
	}
	return nil
}

// mapper turns work record objects into domain records, caching the project
// and company lookups for the lifetime of one call.
type mapper struct {
	ctx      context.Context
	uc       *WorkRecords
	projects map[string]projectInfo
}

type projectInfo struct {
	id, title               string
	companyID, companyTitle string
}

func (uc *WorkRecords) newMapper(ctx context.Context) *mapper {
	return &mapper{ctx: ctx, uc: uc, projects: make(map[string]projectInfo)}
}

func (m *mapper) workRecord(o domain.Object) (domain.WorkRecord, error) {
	id, err := domain.RecordIDFromPath(m.uc.root, o.Path)
	if err != nil {
		return domain.WorkRecord{}, err
	}
	project, err := m.project(m.uc.root.Descendant(string(domain.KindActivity), id.Project))
	if err != nil {
		return domain.WorkRecord{}, err
	}

	rec := domain.WorkRecord{
		ID:           id.String(),
		CompanyID:    project.companyID,
		CompanyTitle: project.companyTitle,
		ProjectID:    project.id,
		ProjectTitle: project.title,
		ResourceID:   o.ResourceRef.LastSegment(),
		RateID:       o.UserString0,
		Billable:     o.Billable,
		Comment:      o.Name,
		CreatedBy:    o.CreatedBy,
		ModifiedBy:   o.ModifiedBy,
	}
	if o.StartedAt != nil {
		rec.StartAt = o.StartedAt.UTC()
	}
	if o.Quantity != nil {
		rec.DurationHours, rec.DurationMinutes = domain.SplitDuration(*o.Quantity)
	}
	rec.CreatedAt = stamp(o.CreatedAt)
	rec.ModifiedAt = stamp(o.ModifiedAt)
	return rec, nil
}

// project resolves a project and the customer group it is filed under. A
// missing group leaves the company empty.
func (m *mapper) project(p domain.Path) (projectInfo, error) {
	key := p.String()
	if info, ok := m.projects[key]; ok {
		return info, nil
	}
	activity, err := m.uc.store.Get(m.ctx, p)
	if err != nil {
		return projectInfo{}, fmt.Errorf("resolve project %s: %w", p.LastSegment(), err)
	}
	info := projectInfo{id: p.LastSegment(), title: activity.Name}
	if !activity.GroupRef.IsZero() {
		group, err := m.uc.store.Get(m.ctx, activity.GroupRef)
		switch {
		case err == nil:
			info.companyID = group.Path.LastSegment()
			info.companyTitle = group.Name
		case errors.Is(err, domain.ErrObjectNotFound):
		default:
			return projectInfo{}, fmt.Errorf("resolve customer group %s: %w", activity.GroupRef.LastSegment(), err)
		}
	}
	m.projects[key] = info
	return info, nil
}

func stamp(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

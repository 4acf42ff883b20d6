package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"workrecords/internal/domain"
	"workrecords/internal/ports"
)

// Store implements ports.ObjectStore on a single crx_objects table. Store
// order is the insertion sequence.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	log       *slog.Logger
	principal string
	now       func() time.Time
	newID     func() string
}

var _ ports.ObjectStore = (*Store)(nil)

// Options configures Open.
type Options struct {
	URL      string
	Username string
	Password string
	// Principal is stamped into audit fields; defaults to Username.
	Principal string
}

// Open connects to the backend named by opts.URL.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*Store, error) {
	dialect, dsn, err := ParseBackendURL(opts.URL, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case SQLite:
		// One connection: keeps :memory: databases whole and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	principal := opts.Principal
	if principal == "" {
		principal = opts.Username
	}
	log.Info("object store connected", slog.String("dialect", dialect.Name))
	return &Store{
		db:        db,
		dialect:   dialect,
		log:       log,
		principal: principal,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// DB exposes the pool for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the backend flavour.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, p domain.Path) (domain.Object, error) {
	return get(ctx, s.db, p)
}

func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Object, error) {
	return query(ctx, s.db, s.dialect, q)
}

func (s *Store) Count(ctx context.Context, q domain.Query) (int, error) {
	where, args := whereClause(q)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM crx_objects"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Begin(ctx context.Context) (ports.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &tx{tx: sqlTx, s: s}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tx struct {
	tx *sql.Tx
	s  *Store
}

func (t *tx) Get(ctx context.Context, p domain.Path) (domain.Object, error) {
	return get(ctx, t.tx, p)
}

func (t *tx) Query(ctx context.Context, q domain.Query) ([]domain.Object, error) {
	return query(ctx, t.tx, t.s.dialect, q)
}

func (t *tx) Create(ctx context.Context, parent domain.Path, kind domain.Kind, id string, obj domain.Object) (domain.Path, error) {
	if kind == "" {
		return nil, errors.New("sqlstore: kind is required")
	}
	if id == "" {
		id = t.s.newID()
	}
	if strings.ContainsAny(id, domain.PathSeparator+domain.RecordIDSeparator) {
		return nil, fmt.Errorf("sqlstore: invalid segment %q", id)
	}
	p := parent.Descendant(string(kind), id)
	at := t.s.now().UTC()

	const q = `
INSERT INTO crx_objects
  (path, parent, kind, name, disabled, record_type, billable, started_at, quantity,
   rate_currency, depot_selector, user_string0, resource_ref, group_ref,
   created_at, created_by, modified_at, modified_by)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	var started, quantity any
	if obj.StartedAt != nil {
		started = obj.StartedAt.UTC()
	}
	if obj.Quantity != nil {
		quantity = *obj.Quantity
	}
	_, err := t.tx.ExecContext(ctx, q,
		p.String(),
		p.Parent().String(),
		string(kind),
		obj.Name,
		obj.Disabled,
		obj.RecordType,
		obj.Billable,
		started,
		quantity,
		obj.RateCurrency,
		obj.DepotSelector,
		obj.UserString0,
		obj.ResourceRef.String(),
		obj.GroupRef.String(),
		at, t.s.principal,
		at, t.s.principal,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectExists, p)
		}
		return nil, err
	}
	t.s.log.Debug("object created", slog.String("path", p.String()))
	return p, nil
}

func (t *tx) Set(ctx context.Context, p domain.Path, f domain.Fields) error {
	setParts := []string{"modified_at = ?", "modified_by = ?"}
	args := []any{t.s.now().UTC(), t.s.principal}

	if f.Name != nil {
		setParts = append(setParts, "name = ?")
		args = append(args, *f.Name)
	}
	if f.Disabled != nil {
		setParts = append(setParts, "disabled = ?")
		args = append(args, *f.Disabled)
	}
	if f.Billable != nil {
		setParts = append(setParts, "billable = ?")
		args = append(args, *f.Billable)
	}
	if f.StartedAt != nil {
		setParts = append(setParts, "started_at = ?")
		args = append(args, f.StartedAt.UTC())
	}
	if f.Quantity != nil {
		setParts = append(setParts, "quantity = ?")
		args = append(args, *f.Quantity)
	}
	if f.UserString0 != nil {
		setParts = append(setParts, "user_string0 = ?")
		args = append(args, *f.UserString0)
	}
	args = append(args, p.String())

	res, err := t.tx.ExecContext(ctx, "UPDATE crx_objects SET "+strings.Join(setParts, ", ")+" WHERE path = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, p)
	}
	return nil
}

func (t *tx) Commit() error   { return t.tx.Commit() }
func (t *tx) Rollback() error { return t.tx.Rollback() }

const columns = `path, kind, name, disabled, record_type, billable, started_at, quantity,
  rate_currency, depot_selector, user_string0, resource_ref, group_ref,
  created_at, created_by, modified_at, modified_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanObject(sc scanner) (domain.Object, error) {
	var (
		o                     domain.Object
		path, kind            string
		resourceRef, groupRef string
		started               sql.NullTime
		quantity              sql.NullFloat64
	)
	if err := sc.Scan(
		&path,
		&kind,
		&o.Name,
		&o.Disabled,
		&o.RecordType,
		&o.Billable,
		&started,
		&quantity,
		&o.RateCurrency,
		&o.DepotSelector,
		&o.UserString0,
		&resourceRef,
		&groupRef,
		&o.CreatedAt,
		&o.CreatedBy,
		&o.ModifiedAt,
		&o.ModifiedBy,
	); err != nil {
		return domain.Object{}, err
	}
	o.Path, _ = domain.ParsePath(path)
	o.Kind = domain.Kind(kind)
	o.ResourceRef, _ = domain.ParsePath(resourceRef)
	o.GroupRef, _ = domain.ParsePath(groupRef)
	if started.Valid {
		t := started.Time.UTC()
		o.StartedAt = &t
	}
	if quantity.Valid {
		q := quantity.Float64
		o.Quantity = &q
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.ModifiedAt = o.ModifiedAt.UTC()
	return o, nil
}

func get(ctx context.Context, db querier, p domain.Path) (domain.Object, error) {
	row := db.QueryRowContext(ctx, "SELECT "+columns+" FROM crx_objects WHERE path = ?", p.String())
	o, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Object{}, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, p)
	}
	return o, err
}

func query(ctx context.Context, db querier, d Dialect, q domain.Query) ([]domain.Object, error) {
	where, args := whereClause(q)
	stmt := "SELECT " + columns + " FROM crx_objects" + where + " ORDER BY seq"
	switch {
	case q.Limit > 0:
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		// Both dialects need a LIMIT before OFFSET.
		if d == SQLite {
			stmt += " LIMIT -1 OFFSET ?"
		} else {
			stmt += " LIMIT 18446744073709551615 OFFSET ?"
		}
		args = append(args, q.Offset)
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func whereClause(q domain.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Under.IsZero() {
		conds = append(conds, "path LIKE ? ESCAPE '!'")
		args = append(args, escapeLike(q.Under.String()+domain.PathSeparator)+"%")
	}
	if !q.Parent.IsZero() {
		conds = append(conds, "parent = ?")
		args = append(args, q.Parent.String())
	}
	if q.RecordType != nil {
		conds = append(conds, "record_type = ?")
		args = append(args, *q.RecordType)
	}
	if q.Disabled != nil {
		conds = append(conds, "disabled = ?")
		args = append(args, *q.Disabled)
	}
	if !q.ResourceRef.IsZero() {
		conds = append(conds, "resource_ref = ?")
		args = append(args, q.ResourceRef.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

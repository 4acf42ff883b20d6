// Package memstore provides an in-memory transactional object store used by
// tests and ephemeral environments.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"workrecords/internal/domain"
	"workrecords/internal/ports"
)

var errTxDone = errors.New("memstore: transaction has already been committed or rolled back")

// Store keeps objects in insertion order. Transactions work on a private view
// and replay their writes onto the live state at commit, so concurrent
// writers to the same object resolve last-writer-wins.
type Store struct {
	mu        sync.RWMutex
	state     state
	principal string
	now       func() time.Time
	newID     func() string
}

var _ ports.ObjectStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrincipal sets the name stamped into created/modified audit fields.
func WithPrincipal(name string) Option { return func(s *Store) { s.principal = name } }

// WithClock overrides time.Now for audit stamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDGenerator overrides the generator for store-assigned segments.
func WithIDGenerator(gen func() string) Option { return func(s *Store) { s.newID = gen } }

func New(opts ...Option) *Store {
	s := &Store{
		state:     newState(),
		principal: "admin-Standard",
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type state struct {
	objects map[string]domain.Object
	order   []string
}

func newState() state {
	return state{objects: make(map[string]domain.Object)}
}

// clone copies the index. Objects are values whose pointer members are
// replaced, never mutated, so sharing them is safe.
func (st state) clone() state {
	out := state{
		objects: make(map[string]domain.Object, len(st.objects)),
		order:   make([]string, len(st.order)),
	}
	for k, v := range st.objects {
		out.objects[k] = v
	}
	copy(out.order, st.order)
	return out
}

func (st state) get(p domain.Path) (domain.Object, error) {
	o, ok := st.objects[p.String()]
	if !ok {
		return domain.Object{}, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, p)
	}
	return o, nil
}

func (st state) query(q domain.Query) []domain.Object {
	var out []domain.Object
	skipped := 0
	for _, key := range st.order {
		o := st.objects[key]
		if !q.Matches(o) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, o)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

func (st state) count(q domain.Query) int {
	n := 0
	for _, key := range st.order {
		if q.Matches(st.objects[key]) {
			n++
		}
	}
	return n
}

func (st *state) insert(o domain.Object) error {
	key := o.Path.String()
	if _, ok := st.objects[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrObjectExists, key)
	}
	st.objects[key] = o
	st.order = append(st.order, key)
	return nil
}

func (st *state) set(p domain.Path, f domain.Fields, at time.Time, by string) error {
	o, err := st.get(p)
	if err != nil {
		return err
	}
	f.Apply(&o)
	o.ModifiedAt = at
	o.ModifiedBy = by
	st.objects[p.String()] = o
	return nil
}

func (s *Store) Get(ctx context.Context, p domain.Path) (domain.Object, error) {
	if err := ctx.Err(); err != nil {
		return domain.Object{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.get(p)
}

func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.query(q), nil
}

func (s *Store) Count(ctx context.Context, q domain.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.count(q), nil
}

func (s *Store) Begin(ctx context.Context) (ports.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	view := s.state.clone()
	s.mu.RUnlock()
	return &tx{s: s, view: view}, nil
}

type tx struct {
	s    *Store
	view state
	ops  []func(*state) error
	done bool
}

func (t *tx) Get(ctx context.Context, p domain.Path) (domain.Object, error) {
	if t.done {
		return domain.Object{}, errTxDone
	}
	return t.view.get(p)
}

func (t *tx) Query(ctx context.Context, q domain.Query) ([]domain.Object, error) {
	if t.done {
		return nil, errTxDone
	}
	return t.view.query(q), nil
}

func (t *tx) Create(ctx context.Context, parent domain.Path, kind domain.Kind, id string, obj domain.Object) (domain.Path, error) {
	if t.done {
		return nil, errTxDone
	}
	if kind == "" {
		return nil, errors.New("memstore: kind is required")
	}
	if id == "" {
		id = t.s.newID()
	}
	if strings.ContainsAny(id, domain.PathSeparator+domain.RecordIDSeparator) {
		return nil, fmt.Errorf("memstore: invalid segment %q", id)
	}
	at := t.s.now().UTC()
	obj.Path = parent.Descendant(string(kind), id)
	obj.Kind = kind
	obj.CreatedAt, obj.ModifiedAt = at, at
	obj.CreatedBy, obj.ModifiedBy = t.s.principal, t.s.principal

	if err := t.view.insert(obj); err != nil {
		return nil, err
	}
	t.ops = append(t.ops, func(st *state) error { return st.insert(obj) })
	return obj.Path, nil
}

func (t *tx) Set(ctx context.Context, p domain.Path, f domain.Fields) error {
	if t.done {
		return errTxDone
	}
	at := t.s.now().UTC()
	by := t.s.principal
	if err := t.view.set(p, f, at, by); err != nil {
		return err
	}
	t.ops = append(t.ops, func(st *state) error { return st.set(p, f, at, by) })
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if len(t.ops) == 0 {
		return nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	next := t.s.state.clone()
	for _, op := range t.ops {
		if err := op(&next); err != nil {
			return err
		}
	}
	t.s.state = next
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.ops = nil
	return nil
}

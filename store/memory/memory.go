// Package memory is an in-process store.Store. It backs tests and the
// "memory" driver used for local development. All state sits behind one
// mutex, so every method, including set push/pull, is atomic. It is not
// transactional: Atomically runs the function directly.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

type userRow struct {
	seq uint64
	u   *model.User
}

type listRow struct {
	seq uint64
	l   *model.List
}

type itemRow struct {
	seq uint64
	it  *model.Item
}

// Store keeps users, lists and items in maps keyed by id.
type Store struct {
	mu    sync.RWMutex
	seq   uint64
	users map[uuid.UUID]*userRow
	lists map[uuid.UUID]*listRow
	items map[uuid.UUID]*itemRow
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]*userRow),
		lists: make(map[uuid.UUID]*listRow),
		items: make(map[uuid.UUID]*itemRow),
	}
}

func (s *Store) Users() store.Users { return userRepo{s} }
func (s *Store) Lists() store.Lists { return listRepo{s} }
func (s *Store) Items() store.Items { return itemRepo{s} }

// Atomically runs fn against s itself.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, s)
}

func (s *Store) Transactional() bool { return false }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return &store.DuplicateKeyError{Field: "id"}
	}
	for _, row := range r.s.users {
		if row.u.Username == u.Username {
			return &store.DuplicateKeyError{Field: "username"}
		}
		if row.u.Email == u.Email {
			return &store.DuplicateKeyError{Field: "email"}
		}
	}
	r.s.users[u.ID] = &userRow{seq: r.s.next(), u: u.Clone()}
	return nil
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row.u.Clone(), nil
}

func (r userRepo) FindOne(ctx context.Context, f store.UserFilter) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, store.ErrNotFound
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *userRow
	for _, row := range r.s.users {
		match := (f.Username != "" && row.u.Username == f.Username) ||
			(f.Email != "" && row.u.Email == f.Email)
		if match && (best == nil || row.seq < best.seq) {
			best = row
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best.u.Clone(), nil
}

func (r userRepo) PushList(ctx context.Context, userID, listID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if !model.ContainsID(row.u.Lists, listID) {
		row.u.Lists = append(row.u.Lists, listID)
	}
	return nil
}

func (r userRepo) PullList(ctx context.Context, userID, listID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	row.u.Lists = removeID(row.u.Lists, listID)
	return nil
}

func (r userRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

type listRepo struct{ s *Store }

func (r listRepo) Create(ctx context.Context, l *model.List) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lists[l.ID]; ok {
		return &store.DuplicateKeyError{Field: "id"}
	}
	r.s.lists[l.ID] = &listRow{seq: r.s.next(), l: l.Clone()}
	return nil
}

func (r listRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row.l.Clone(), nil
}

func (r listRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	rows := make([]*listRow, 0)
	for _, row := range r.s.lists {
		if row.l.OwnerID == ownerID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*model.List, len(rows))
	for i, row := range rows {
		out[i] = row.l.Clone()
	}
	r.s.mu.RUnlock()
	return out, nil
}

func (r listRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ListPatch) (*model.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Apply(row.l)
	return row.l.Clone(), nil
}

func (r listRepo) PushItem(ctx context.Context, listID, itemID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.lists[listID]
	if !ok {
		return store.ErrNotFound
	}
	if !model.ContainsID(row.l.Items, itemID) {
		row.l.Items = append(row.l.Items, itemID)
	}
	return nil
}

func (r listRepo) PullItem(ctx context.Context, listID, itemID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.lists[listID]
	if !ok {
		return store.ErrNotFound
	}
	row.l.Items = removeID(row.l.Items, itemID)
	return nil
}

func (r listRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lists[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.lists, id)
	return nil
}

type itemRepo struct{ s *Store }

func (r itemRepo) Create(ctx context.Context, it *model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[it.ID]; ok {
		return &store.DuplicateKeyError{Field: "id"}
	}
	r.s.items[it.ID] = &itemRow{seq: r.s.next(), it: it.Clone()}
	return nil
}

func (r itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row.it.Clone(), nil
}

func (r itemRepo) FindByList(ctx context.Context, listID uuid.UUID) ([]*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	rows := make([]*itemRow, 0)
	for _, row := range r.s.items {
		if row.it.ListID == listID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]*model.Item, len(rows))
	for i, row := range rows {
		out[i] = row.it.Clone()
	}
	r.s.mu.RUnlock()
	return out, nil
}

func (r itemRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ItemPatch) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Apply(row.it)
	return row.it.Clone(), nil
}

func (r itemRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

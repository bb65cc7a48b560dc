// Package postgres implements store.Store on PostgreSQL through a pgx pool.
//
// Child-id sets live in uuid[] columns (users.list_ids, lists.item_ids) and
// are changed with single UPDATE statements, so push and pull are atomic per
// row. Atomically runs the callback inside one transaction.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool    *pgxpool.Pool
	q       querier
	timeout time.Duration
	inTx    bool
}

var _ store.Store = (*Store)(nil)

// New wraps pool. timeout bounds every statement.
func New(pool *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{pool: pool, q: pool, timeout: timeout}
}

func (s *Store) Users() store.Users { return userRepo{s} }
func (s *Store) Lists() store.Lists { return listRepo{s} }
func (s *Store) Items() store.Items { return itemRepo{s} }

func (s *Store) Transactional() bool { return true }

// Atomically runs fn in a transaction. Nested calls join the outer one.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Store{pool: s.pool, q: tx, timeout: s.timeout, inTx: true})
	})
	if err != nil {
		if _, ok := apperror.FromError(err); ok {
			return err
		}
		return classify(err, "transaction")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return classify(err, "ping")
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver errors onto the store contract.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return &store.DuplicateKeyError{Field: fieldFromConstraint(pgErr.ConstraintName)}
		case pgErr.Code == "23503":
			// the referenced parent row does not exist
			return store.ErrNotFound
		case pgErr.Code == "40001", pgErr.Code == "40P01",
			pgErr.Code == "53300", pgErr.Code == "57P01",
			strings.HasPrefix(pgErr.Code, "08"):
			return apperror.NewDatabaseError(what, err, true)
		}
		return apperror.NewDatabaseError(what, err, false)
	}

	retryable := errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err)
	return apperror.NewDatabaseError(what, err, retryable)
}

// classifyDelete is classify for DELETE statements. There a foreign key
// violation means the row gained a child concurrently, not that a parent is
// missing, so it is a retryable failure.
func classifyDelete(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperror.NewDatabaseError(what+": still referenced", err, true)
	}
	return classify(err, what)
}

func fieldFromConstraint(name string) string {
	switch {
	case strings.Contains(name, "username"):
		return "username"
	case strings.Contains(name, "email"):
		return "email"
	default:
		return "id"
	}
}

// affected turns a zero-row update or delete into ErrNotFound.
func affected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

const userColumns = "id, username, email, password_hash, created_at, list_ids"

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.Lists); err != nil {
		return nil, err
	}
	u.Lists = nonNil(u.Lists)
	return &u, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.q.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, list_ids)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt, nonNil(u.Lists))
	return classify(err, "insert user")
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	u, err := scanUser(r.s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select user")
	}
	return u, nil
}

func (r userRepo) FindOne(ctx context.Context, f store.UserFilter) (*model.User, error) {
	if f.IsEmpty() {
		return nil, store.ErrNotFound
	}
	or := sq.Or{}
	if f.Username != "" {
		or = append(or, sq.Eq{"username": f.Username})
	}
	if f.Email != "" {
		or = append(or, sq.Eq{"email": f.Email})
	}
	query, args, err := psql.Select(userColumns).From("users").Where(or).
		OrderBy("created_at", "id").Limit(1).ToSql()
	if err != nil {
		return nil, apperror.NewInternalError("build user lookup", err)
	}

	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	u, err := scanUser(r.s.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, classify(err, "select user by filter")
	}
	return u, nil
}

func (r userRepo) PushList(ctx context.Context, userID, listID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx,
		`UPDATE users SET list_ids = CASE WHEN $2::uuid = ANY(list_ids) THEN list_ids
		                                  ELSE array_append(list_ids, $2::uuid) END
		 WHERE id = $1`, userID, listID)
	if err != nil {
		return classify(err, "push list id")
	}
	return affected(tag)
}

func (r userRepo) PullList(ctx context.Context, userID, listID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx,
		`UPDATE users SET list_ids = array_remove(list_ids, $2::uuid) WHERE id = $1`, userID, listID)
	if err != nil {
		return classify(err, "pull list id")
	}
	return affected(tag)
}

func (r userRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return classifyDelete(err, "delete user")
	}
	return affected(tag)
}

const listColumns = "id, name, description, created_at, owner_id, item_ids"

func scanList(row pgx.Row) (*model.List, error) {
	var l model.List
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.CreatedAt, &l.OwnerID, &l.Items); err != nil {
		return nil, err
	}
	l.Items = nonNil(l.Items)
	return &l, nil
}

type listRepo struct{ s *Store }

func (r listRepo) Create(ctx context.Context, l *model.List) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.q.Exec(ctx,
		`INSERT INTO lists (id, name, description, created_at, owner_id, item_ids)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Name, l.Description, l.CreatedAt, l.OwnerID, nonNil(l.Items))
	return classify(err, "insert list")
}

func (r listRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	l, err := scanList(r.s.q.QueryRow(ctx, `SELECT `+listColumns+` FROM lists WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select list")
	}
	return l, nil
}

func (r listRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.List, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	rows, err := r.s.q.Query(ctx,
		`SELECT `+listColumns+` FROM lists WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, classify(err, "select lists by owner")
	}
	defer rows.Close()

	out := make([]*model.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, classify(err, "scan list")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate lists")
	}
	return out, nil
}

// updateListSQL builds the dynamic UPDATE for the fields set in p.
func updateListSQL(id uuid.UUID, p model.ListPatch) (string, []any, error) {
	b := psql.Update("lists").Where("id = ?", id).Suffix("RETURNING " + listColumns)
	if p.Name != nil {
		b = b.Set("name", *p.Name)
	}
	if p.Description != nil {
		b = b.Set("description", *p.Description)
	}
	return b.ToSql()
}

func (r listRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ListPatch) (*model.List, error) {
	if p.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	query, args, err := updateListSQL(id, p)
	if err != nil {
		return nil, apperror.NewInternalError("build list update", err)
	}
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	l, err := scanList(r.s.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, classify(err, "update list")
	}
	return l, nil
}

func (r listRepo) PushItem(ctx context.Context, listID, itemID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx,
		`UPDATE lists SET item_ids = CASE WHEN $2::uuid = ANY(item_ids) THEN item_ids
		                                  ELSE array_append(item_ids, $2::uuid) END
		 WHERE id = $1`, listID, itemID)
	if err != nil {
		return classify(err, "push item id")
	}
	return affected(tag)
}

func (r listRepo) PullItem(ctx context.Context, listID, itemID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx,
		`UPDATE lists SET item_ids = array_remove(item_ids, $2::uuid) WHERE id = $1`, listID, itemID)
	if err != nil {
		return classify(err, "pull item id")
	}
	return affected(tag)
}

func (r listRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return classifyDelete(err, "delete list")
	}
	return affected(tag)
}

const itemColumns = "id, name, content, created_at, list_id"

func scanItem(row pgx.Row) (*model.Item, error) {
	var it model.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Content, &it.CreatedAt, &it.ListID); err != nil {
		return nil, err
	}
	return &it, nil
}

type itemRepo struct{ s *Store }

func (r itemRepo) Create(ctx context.Context, it *model.Item) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.q.Exec(ctx,
		`INSERT INTO items (id, name, content, created_at, list_id) VALUES ($1, $2, $3, $4, $5)`,
		it.ID, it.Name, it.Content, it.CreatedAt, it.ListID)
	return classify(err, "insert item")
}

func (r itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	it, err := scanItem(r.s.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select item")
	}
	return it, nil
}

func (r itemRepo) FindByList(ctx context.Context, listID uuid.UUID) ([]*model.Item, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	rows, err := r.s.q.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE list_id = $1 ORDER BY created_at, id`, listID)
	if err != nil {
		return nil, classify(err, "select items by list")
	}
	defer rows.Close()

	out := make([]*model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, classify(err, "scan item")
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate items")
	}
	return out, nil
}

func updateItemSQL(id uuid.UUID, p model.ItemPatch) (string, []any, error) {
	b := psql.Update("items").Where("id = ?", id).Suffix("RETURNING " + itemColumns)
	if p.Name != nil {
		b = b.Set("name", *p.Name)
	}
	if p.Content != nil {
		b = b.Set("content", *p.Content)
	}
	return b.ToSql()
}

func (r itemRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ItemPatch) (*model.Item, error) {
	if p.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	query, args, err := updateItemSQL(id, p)
	if err != nil {
		return nil, apperror.NewInternalError("build item update", err)
	}
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	it, err := scanItem(r.s.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, classify(err, "update item")
	}
	return it, nil
}

func (r itemRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	tag, err := r.s.q.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return classifyDelete(err, "delete item")
	}
	return affected(tag)
}

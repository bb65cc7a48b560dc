// Package store defines the persistence contract used by the core.
// Implementations live in the memory, postgres and mongo subpackages.
//
// Contract:
//   - Lookups of a missing id return ErrNotFound.
//   - Unique-field collisions return a *DuplicateKeyError (errors.Is ErrDuplicate).
//   - Push/Pull are single atomic set operations; Push is idempotent and
//     returns ErrNotFound when the parent does not exist.
//   - Every other failure is an *apperror.AppError of type DatabaseError whose
//     Retryable flag tells transient failures from fatal ones.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/listkeeper-go/model"
)

var (
	// ErrNotFound is returned when no record matches an id or filter.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is matched by every *DuplicateKeyError.
	ErrDuplicate = errors.New("store: duplicate key")
)

// DuplicateKeyError names the unique field that collided.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("store: duplicate value for unique field %q", e.Field)
}

// Is makes errors.Is(err, ErrDuplicate) true for any DuplicateKeyError.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicate
}

// UserFilter selects a user by any of its unique fields. Empty fields are
// ignored; a filter with every field empty matches nothing.
type UserFilter struct {
	Username string
	Email    string
}

// IsEmpty reports whether the filter names no field.
func (f UserFilter) IsEmpty() bool {
	return f.Username == "" && f.Email == ""
}

// Users persists accounts.
type Users interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindOne returns the first user matching any non-empty field of f.
	FindOne(ctx context.Context, f UserFilter) (*model.User, error)
	PushList(ctx context.Context, userID, listID uuid.UUID) error
	PullList(ctx context.Context, userID, listID uuid.UUID) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Lists persists lists.
type Lists interface {
	Create(ctx context.Context, l *model.List) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.List, error)
	// FindByOwner returns the owner's lists oldest first.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.List, error)
	UpdateFields(ctx context.Context, id uuid.UUID, p model.ListPatch) (*model.List, error)
	PushItem(ctx context.Context, listID, itemID uuid.UUID) error
	PullItem(ctx context.Context, listID, itemID uuid.UUID) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Items persists items.
type Items interface {
	Create(ctx context.Context, it *model.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// FindByList returns the list's items oldest first.
	FindByList(ctx context.Context, listID uuid.UUID) ([]*model.Item, error)
	UpdateFields(ctx context.Context, id uuid.UUID, p model.ItemPatch) (*model.Item, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Store is the handle shared by the whole application.
type Store interface {
	Users() Users
	Lists() Lists
	Items() Items

	// Atomically runs fn against a Store scoped to one unit of work. On a
	// transactional backend the unit commits when fn returns nil and rolls
	// back otherwise. On other backends fn simply runs against the same
	// store and the caller is responsible for compensation.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Transactional reports whether Atomically rolls back on failure.
	Transactional() bool

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

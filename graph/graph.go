// Package graph maintains the ownership graph User -> List -> Item.
//
// Each parent stores the ids of its children and each child names its parent.
// The Manager is the only code that changes both sides:
//
//   - attach: create the child, then push its id into the parent's set.
//   - detach: delete the child, then pull its id from the parent's set.
//   - cascade: detach every descendant child-first, then the node itself.
//
// On a transactional store every protocol runs in one transaction. Otherwise
// a failed push is undone by deleting the child again, and a step that cannot
// be undone surfaces as a ConsistencyError naming the dangling record.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/clock"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

// ListInput holds the fields of a new list.
type ListInput struct {
	Name        string
	Description *string
}

// ItemInput holds the fields of a new item.
type ItemInput struct {
	Name    string
	Content *string
}

// compensationTimeout bounds a compensating delete, which runs detached from
// the request context so that a cancelled request still cleans up after itself.
const compensationTimeout = 5 * time.Second

// Manager applies attach, detach and cascade protocols against a store.
type Manager struct {
	store  store.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default().
func NewManager(st store.Store, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, clock: clk, logger: logger.With("component", "graph")}
}

func requireName(name *string, what string) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return apperror.NewValidationError(what+" name must not be blank", nil)
	}
	return nil
}

// CreateList creates a list owned by owner and attaches it to the owner.
func (m *Manager) CreateList(ctx context.Context, owner *model.User, in ListInput) (*model.List, error) {
	if err := requireName(&in.Name, "list"); err != nil {
		return nil, err
	}
	list := &model.List{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   m.clock.Now().UTC(),
		OwnerID:     owner.ID,
		Items:       []uuid.UUID{},
	}

	err := m.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Lists().Create(ctx, list); err != nil {
			return store.Translate(err, "create list")
		}
		if err := tx.Users().PushList(ctx, owner.ID, list.ID); err != nil {
			return m.compensate(ctx, err, "user", owner.ID, "list", list.ID, func(ctx context.Context) error {
				return tx.Lists().DeleteByID(ctx, list.ID)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.DebugContext(ctx, "list attached", "list_id", list.ID, "owner_id", owner.ID)
	return list, nil
}

// ListsOf returns the owner's lists oldest first.
func (m *Manager) ListsOf(ctx context.Context, owner *model.User) ([]*model.List, error) {
	lists, err := m.store.Lists().FindByOwner(ctx, owner.ID)
	if err != nil {
		return nil, store.Translate(err, "lists of "+owner.ID.String())
	}
	return lists, nil
}

// UpdateList applies the mutable fields of p to list.
func (m *Manager) UpdateList(ctx context.Context, list *model.List, p model.ListPatch) (*model.List, error) {
	if p.IsEmpty() {
		return nil, apperror.NewValidationError("list update carries no mutable field", nil)
	}
	if err := requireName(p.Name, "list"); err != nil {
		return nil, err
	}
	updated, err := m.store.Lists().UpdateFields(ctx, list.ID, p)
	if err != nil {
		return nil, store.Translate(err, "update list "+list.ID.String())
	}
	return updated, nil
}

// DeleteList detaches every item of list, then the list itself.
func (m *Manager) DeleteList(ctx context.Context, list *model.List) error {
	return m.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		return m.deleteList(ctx, tx, list, false)
	})
}

// CreateItem creates an item in list and attaches it to the list.
func (m *Manager) CreateItem(ctx context.Context, list *model.List, in ItemInput) (*model.Item, error) {
	if err := requireName(&in.Name, "item"); err != nil {
		return nil, err
	}
	item := &model.Item{
		ID:        uuid.New(),
		Name:      in.Name,
		Content:   in.Content,
		CreatedAt: m.clock.Now().UTC(),
		ListID:    list.ID,
	}

	err := m.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Items().Create(ctx, item); err != nil {
			return store.Translate(err, "create item")
		}
		if err := tx.Lists().PushItem(ctx, list.ID, item.ID); err != nil {
			return m.compensate(ctx, err, "list", list.ID, "item", item.ID, func(ctx context.Context) error {
				return tx.Items().DeleteByID(ctx, item.ID)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.DebugContext(ctx, "item attached", "item_id", item.ID, "list_id", list.ID)
	return item, nil
}

// ItemsOf returns the list's items oldest first.
func (m *Manager) ItemsOf(ctx context.Context, list *model.List) ([]*model.Item, error) {
	items, err := m.store.Items().FindByList(ctx, list.ID)
	if err != nil {
		return nil, store.Translate(err, "items of "+list.ID.String())
	}
	return items, nil
}

// UpdateItem applies the mutable fields of p to item.
func (m *Manager) UpdateItem(ctx context.Context, item *model.Item, p model.ItemPatch) (*model.Item, error) {
	if p.IsEmpty() {
		return nil, apperror.NewValidationError("item update carries no mutable field", nil)
	}
	if err := requireName(p.Name, "item"); err != nil {
		return nil, err
	}
	updated, err := m.store.Items().UpdateFields(ctx, item.ID, p)
	if err != nil {
		return nil, store.Translate(err, "update item "+item.ID.String())
	}
	return updated, nil
}

// DeleteItem deletes item and pulls it from its list.
func (m *Manager) DeleteItem(ctx context.Context, item *model.Item) error {
	return m.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		return m.deleteItem(ctx, tx, item, false)
	})
}

// DeleteUser deletes every list the user owns (with their items), then the user.
func (m *Manager) DeleteUser(ctx context.Context, user *model.User) error {
	return m.store.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		lists, err := tx.Lists().FindByOwner(ctx, user.ID)
		if err != nil {
			return store.Translate(err, "lists of "+user.ID.String())
		}
		for _, l := range lists {
			if err := m.deleteList(ctx, tx, l, true); err != nil {
				return err
			}
		}
		if err := tx.Users().DeleteByID(ctx, user.ID); err != nil {
			return store.Translate(err, "delete user "+user.ID.String())
		}
		m.logger.InfoContext(ctx, "user deleted", "user_id", user.ID, "lists", len(lists))
		return nil
	})
}

// deleteItem is the detach protocol for one item. In a cascade a record that
// is already gone is not an error.
func (m *Manager) deleteItem(ctx context.Context, tx store.Store, item *model.Item, cascade bool) error {
	if err := tx.Items().DeleteByID(ctx, item.ID); err != nil {
		if !(cascade && errors.Is(err, store.ErrNotFound)) {
			return store.Translate(err, "delete item "+item.ID.String())
		}
	}
	if err := tx.Lists().PullItem(ctx, item.ListID, item.ID); err != nil {
		return m.afterDelete(ctx, err, "list", item.ListID, "item", item.ID)
	}
	return nil
}

func (m *Manager) deleteList(ctx context.Context, tx store.Store, list *model.List, cascade bool) error {
	items, err := tx.Items().FindByList(ctx, list.ID)
	if err != nil {
		return store.Translate(err, "items of "+list.ID.String())
	}
	for _, it := range items {
		if err := m.deleteItem(ctx, tx, it, true); err != nil {
			return err
		}
	}

	if err := tx.Lists().DeleteByID(ctx, list.ID); err != nil {
		if !(cascade && errors.Is(err, store.ErrNotFound)) {
			return store.Translate(err, "delete list "+list.ID.String())
		}
	}
	if !m.store.Transactional() {
		// An item attached after the snapshot above still names this list.
		// Attaches from now on fail their push and compensate.
		late, err := tx.Items().FindByList(ctx, list.ID)
		if err != nil {
			return store.Translate(err, "items of deleted list "+list.ID.String())
		}
		for _, it := range late {
			if err := m.deleteItem(ctx, tx, it, true); err != nil {
				return err
			}
		}
		if len(late) > 0 {
			m.logger.WarnContext(ctx, "removed items attached during list deletion", "list_id", list.ID, "items", len(late))
		}
	}
	if err := tx.Users().PullList(ctx, list.OwnerID, list.ID); err != nil {
		return m.afterDelete(ctx, err, "user", list.OwnerID, "list", list.ID)
	}
	m.logger.DebugContext(ctx, "list detached", "list_id", list.ID, "items", len(items))
	return nil
}

// compensate handles a failed push after the child was created. On a
// transactional store the rollback undoes the create. Otherwise the child is
// deleted again, even if ctx is already done; if that also fails the child is
// orphaned.
func (m *Manager) compensate(ctx context.Context, pushErr error, parentKind string, parentID uuid.UUID, childKind string, childID uuid.UUID, undo func(context.Context) error) error {
	cause := pushFailure(pushErr, parentKind, parentID, childKind, childID)
	if m.store.Transactional() {
		return cause
	}

	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	// A child that is already gone, e.g. removed by a concurrent cascade, needs no undo.
	if err := undo(undoCtx); err != nil && !errors.Is(err, store.ErrNotFound) {
		combined := multierror.Append(nil, pushErr, err)
		m.logger.ErrorContext(ctx, "compensation failed, orphaned record",
			"kind", childKind, "id", childID, "parent_kind", parentKind, "parent_id", parentID, "error", combined)
		return apperror.NewConsistencyError(
			fmt.Sprintf("orphaned %s %s: attach to %s %s failed and compensating delete failed", childKind, childID, parentKind, parentID),
			combined.ErrorOrNil())
	}
	m.logger.WarnContext(ctx, "attach compensated", "kind", childKind, "id", childID, "parent_id", parentID, "error", pushErr)
	return cause
}

func pushFailure(err error, parentKind string, parentID uuid.UUID, childKind string, childID uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NewNotFoundError(fmt.Sprintf("%s %s vanished while attaching %s %s", parentKind, parentID, childKind, childID), err)
	}
	return store.Translate(err, fmt.Sprintf("attach %s %s to %s %s", childKind, childID, parentKind, parentID))
}

// afterDelete handles a failed pull once the child is already deleted. A
// missing parent holds no reference, so that case is tolerated.
func (m *Manager) afterDelete(ctx context.Context, pullErr error, parentKind string, parentID uuid.UUID, childKind string, childID uuid.UUID) error {
	if errors.Is(pullErr, store.ErrNotFound) {
		m.logger.WarnContext(ctx, "parent already gone during detach", "parent_kind", parentKind, "parent_id", parentID, "child_id", childID)
		return nil
	}
	if m.store.Transactional() {
		return store.Translate(pullErr, fmt.Sprintf("detach %s %s from %s %s", childKind, childID, parentKind, parentID))
	}
	m.logger.ErrorContext(ctx, "dangling reference after detach",
		"kind", childKind, "id", childID, "parent_kind", parentKind, "parent_id", parentID, "error", pullErr)
	return apperror.NewConsistencyError(
		fmt.Sprintf("dangling reference: %s %s deleted but still listed by %s %s", childKind, childID, parentKind, parentID),
		pullErr)
}

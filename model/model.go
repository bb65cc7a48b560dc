// Package model defines the entities of the ownership graph: a User owns
// Lists, a List owns Items. Each parent keeps the ids of its children and each
// child names its parent; the graph package keeps both directions in step.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account holder.
// PasswordHash is tagged `json:"-"` so the hash can never be serialized.
type User struct {
	ID           uuid.UUID   `json:"id" example:"3f1b7c1e-8d3a-4bde-9c55-6f1f0f7a2b10"`
	Username     string      `json:"username" example:"alice"`
	Email        string      `json:"email" example:"alice@example.com"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	Lists        []uuid.UUID `json:"lists"`
}

// List is a named collection owned by exactly one user.
type List struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name" example:"Groceries"`
	Description *string     `json:"description" example:"Weekly shopping"`
	CreatedAt   time.Time   `json:"created_at"`
	OwnerID     uuid.UUID   `json:"owner"`
	Items       []uuid.UUID `json:"items"`
}

// Item is an entry that belongs to exactly one list.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" example:"Milk"`
	Content   *string   `json:"content" example:"2 liters, semi-skimmed"`
	CreatedAt time.Time `json:"created_at"`
	ListID    uuid.UUID `json:"list"`
}

// ListPatch carries the mutable fields of a List. A nil field is left untouched.
type ListPatch struct {
	Name        *string
	Description *string
}

// IsEmpty reports whether the patch sets no field.
func (p ListPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// Apply writes the set fields of p onto l.
func (p ListPatch) Apply(l *List) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Description != nil {
		d := *p.Description
		l.Description = &d
	}
}

// ItemPatch carries the mutable fields of an Item.
type ItemPatch struct {
	Name    *string
	Content *string
}

// IsEmpty reports whether the patch sets no field.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Content == nil
}

// Apply writes the set fields of p onto it.
func (p ItemPatch) Apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Content != nil {
		c := *p.Content
		it.Content = &c
	}
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Lists = cloneIDs(u.Lists)
	return &c
}

// Clone returns a deep copy of l.
func (l *List) Clone() *List {
	if l == nil {
		return nil
	}
	c := *l
	if l.Description != nil {
		d := *l.Description
		c.Description = &d
	}
	c.Items = cloneIDs(l.Items)
	return &c
}

// Clone returns a deep copy of it.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := *it
	if it.Content != nil {
		s := *it.Content
		c.Content = &s
	}
	return &c
}

// cloneIDs always returns a non-nil slice so that JSON renders [] rather than null.
func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}

// ContainsID reports whether id is in ids.
func ContainsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

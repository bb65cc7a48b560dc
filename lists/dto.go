// Package lists serves the /lists subtree: a user's lists and the items in them.
// This file defines the request bodies. Immutable fields a client may echo
// back (id, created_at, owner, items, list) are not declared, so the decoder
// drops them.
package lists

import (
	"github.com/user/listkeeper-go/graph"
	"github.com/user/listkeeper-go/model"
)

// CreateListRequest is the body of POST /lists.
type CreateListRequest struct {
	Name        string  `json:"name" validate:"required" example:"groceries"`
	Description *string `json:"description,omitempty" example:"weekly shop"`
}

func (r CreateListRequest) input() graph.ListInput {
	return graph.ListInput{Name: r.Name, Description: r.Description}
}

// UpdateListRequest is the body of PUT /lists/{listId}. Absent fields are left unchanged.
type UpdateListRequest struct {
	Name        *string `json:"name,omitempty" example:"groceries"`
	Description *string `json:"description,omitempty" example:"monthly shop"`
}

func (r UpdateListRequest) patch() model.ListPatch {
	return model.ListPatch{Name: r.Name, Description: r.Description}
}

// CreateItemRequest is the body of POST /lists/{listId}/items.
type CreateItemRequest struct {
	Name    string  `json:"name" validate:"required" example:"milk"`
	Content *string `json:"content,omitempty" example:"2 litres"`
}

func (r CreateItemRequest) input() graph.ItemInput {
	return graph.ItemInput{Name: r.Name, Content: r.Content}
}

// UpdateItemRequest is the body of PUT /lists/{listId}/items/{itemId}.
type UpdateItemRequest struct {
	Name    *string `json:"name,omitempty" example:"oat milk"`
	Content *string `json:"content,omitempty" example:"1 litre"`
}

func (r UpdateItemRequest) patch() model.ItemPatch {
	return model.ItemPatch{Name: r.Name, Content: r.Content}
}

package lists

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/listkeeper-go/graph"
	"github.com/user/listkeeper-go/guard"
	"github.com/user/listkeeper-go/httpx"
)

// ListHandlers provides HTTP handlers for lists and items. Every handler runs
// behind the guard chain, so the user, list and item are read from the context.
type ListHandlers struct {
	graph *graph.Manager
}

// NewListHandlers creates new ListHandlers.
func NewListHandlers(g *graph.Manager) *ListHandlers {
	return &ListHandlers{graph: g}
}

// Routes mounts the /lists subtree. g.Token must already run on the parent router.
func (h *ListHandlers) Routes(r chi.Router, g *guard.Guard) {
	r.Post("/", h.HandleCreateList())
	r.Get("/", h.HandleGetLists())
	r.Route("/{"+guard.ListParam+"}", func(r chi.Router) {
		r.Use(g.List)
		r.Get("/", h.HandleGetList())
		r.Put("/", h.HandleUpdateList())
		r.Delete("/", h.HandleDeleteList())
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.HandleCreateItem())
			r.Get("/", h.HandleGetItems())
			r.Route("/{"+guard.ItemParam+"}", func(r chi.Router) {
				r.Use(g.Item)
				r.Get("/", h.HandleGetItem())
				r.Put("/", h.HandleUpdateItem())
				r.Delete("/", h.HandleDeleteItem())
			})
		})
	})
}

// HandleCreateList godoc
// @Summary Create a list
// @Tags lists
// @Accept json
// @Produce json
// @Security XSRFToken
// @Param list body lists.CreateListRequest true "New list"
// @Success 200 {object} model.List
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 500 {object} apperror.ErrorResponse
// @Router /lists [post]
func (h *ListHandlers) HandleCreateList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := guard.CurrentUser(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		var req CreateListRequest
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
		list, err := h.graph.CreateList(r.Context(), user, req.input())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, list)
	}
}

// HandleGetLists godoc
// @Summary Lists of the current user
// @Tags lists
// @Produce json
// @Security XSRFToken
// @Success 200 {array} model.List
// @Failure 401 {object} apperror.ErrorResponse
// @Router /lists [get]
func (h *ListHandlers) HandleGetLists() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := guard.CurrentUser(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		lists, err := h.graph.ListsOf(r.Context(), user)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, lists)
	}
}

// HandleGetList godoc
// @Summary Get a list
// @Tags lists
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Success 200 {object} model.List
// @Failure 401 {object} apperror.ErrorResponse "Not logged in, or not the owner"
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId} [get]
func (h *ListHandlers) HandleGetList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := guard.CurrentList(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, list)
	}
}

// HandleUpdateList godoc
// @Summary Update a list
// @Description Replaces name and/or description. Immutable fields in the body are ignored.
// @Tags lists
// @Accept json
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Param list body lists.UpdateListRequest true "Fields to change"
// @Success 200 {object} model.List
// @Failure 400 {object} apperror.ErrorResponse "No mutable field, or blank name"
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId} [put]
func (h *ListHandlers) HandleUpdateList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := guard.CurrentList(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		var req UpdateListRequest
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
		updated, err := h.graph.UpdateList(r.Context(), list, req.patch())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, updated)
	}
}

// HandleDeleteList godoc
// @Summary Delete a list
// @Description Deletes every item of the list, then the list.
// @Tags lists
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Success 204
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 500 {object} apperror.ErrorResponse
// @Router /lists/{listId} [delete]
func (h *ListHandlers) HandleDeleteList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := guard.CurrentList(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		if err := h.graph.DeleteList(r.Context(), list); err != nil {
			httpx.Error(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleCreateItem godoc
// @Summary Add an item to a list
// @Tags items
// @Accept json
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Param item body lists.CreateItemRequest true "New item"
// @Success 200 {object} model.Item
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId}/items [post]
func (h *ListHandlers) HandleCreateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := guard.CurrentList(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		var req CreateItemRequest
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
		item, err := h.graph.CreateItem(r.Context(), list, req.input())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, item)
	}
}

// HandleGetItems godoc
// @Summary Items of a list
// @Tags items
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Success 200 {array} model.Item
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId}/items [get]
func (h *ListHandlers) HandleGetItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := guard.CurrentList(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		items, err := h.graph.ItemsOf(r.Context(), list)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, items)
	}
}

// HandleGetItem godoc
// @Summary Get an item
// @Tags items
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Success 200 {object} model.Item
// @Failure 400 {object} apperror.ErrorResponse "Item belongs to another list"
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId}/items/{itemId} [get]
func (h *ListHandlers) HandleGetItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := guard.CurrentItem(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, item)
	}
}

// HandleUpdateItem godoc
// @Summary Update an item
// @Tags items
// @Accept json
// @Produce json
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Param item body lists.UpdateItemRequest true "Fields to change"
// @Success 200 {object} model.Item
// @Failure 400 {object} apperror.ErrorResponse
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Router /lists/{listId}/items/{itemId} [put]
func (h *ListHandlers) HandleUpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := guard.CurrentItem(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		var req UpdateItemRequest
		if err := httpx.Decode(w, r, &req); err != nil {
			httpx.Error(w, r, err)
			return
		}
		updated, err := h.graph.UpdateItem(r.Context(), item, req.patch())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, updated)
	}
}

// HandleDeleteItem godoc
// @Summary Delete an item
// @Tags items
// @Security XSRFToken
// @Param listId path string true "List ID" format(uuid)
// @Param itemId path string true "Item ID" format(uuid)
// @Success 204
// @Failure 401 {object} apperror.ErrorResponse
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 500 {object} apperror.ErrorResponse
// @Router /lists/{listId}/items/{itemId} [delete]
func (h *ListHandlers) HandleDeleteItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := guard.CurrentItem(r.Context())
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		if err := h.graph.DeleteItem(r.Context(), item); err != nil {
			httpx.Error(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

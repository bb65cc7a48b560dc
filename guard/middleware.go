package guard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/auth"
	"github.com/user/listkeeper-go/httpx"
	"github.com/user/listkeeper-go/store"
)

// URL parameter names read by List and Item.
const (
	ListParam = "listId"
	ItemParam = "itemId"
)

// Guard builds the authorization middleware chain.
type Guard struct {
	creds       *auth.CredentialService
	tokens      *auth.TokenService
	store       store.Store
	allowBearer bool
}

// New creates a Guard. allowBearer additionally accepts an
// `Authorization: Bearer` header in place of the cookie/header pair.
func New(creds *auth.CredentialService, tokens *auth.TokenService, st store.Store, allowBearer bool) *Guard {
	return &Guard{creds: creds, tokens: tokens, store: st, allowBearer: allowBearer}
}

// reject records the terminal state and writes the error.
func reject(w http.ResponseWriter, r *http.Request, req Request, err error) {
	ctx := NewContext(r.Context(), req.Reject())
	httpx.Error(w, r.WithContext(ctx), err)
}

// Basic authenticates with HTTP Basic credentials. Used by the login route only.
func (g *Guard) Basic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := FromContext(r.Context())

		username, password, err := auth.DecodeBasic(r.Header.Get("Authorization"))
		if err != nil {
			reject(w, r, req, err)
			return
		}
		user, err := g.creds.Verify(r.Context(), username, password)
		if err != nil {
			reject(w, r, req, err)
			return
		}
		if req, err = req.Authenticate(user); err != nil {
			reject(w, r, req, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), req)))
	})
}

// Token authenticates with the double-submit token pair (cookie XSRF-TOKEN
// equal to header X-XSRF-TOKEN), or with a Bearer token when allowed.
func (g *Guard) Token(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := FromContext(r.Context())

		userID, err := g.identify(r)
		if err != nil {
			reject(w, r, req, err)
			return
		}
		user, err := g.store.Users().FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = apperror.NewAuthError(fmt.Sprintf("token subject %s no longer exists", userID), err)
			} else {
				err = store.Translate(err, "load token user")
			}
			reject(w, r, req, err)
			return
		}
		if req, err = req.Authenticate(user); err != nil {
			reject(w, r, req, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), req)))
	})
}

func (g *Guard) identify(r *http.Request) (uuid.UUID, error) {
	if g.allowBearer {
		if bearer := auth.BearerToken(r.Header.Get("Authorization")); bearer != "" {
			return g.tokens.Verify(bearer)
		}
	}
	var cookie string
	if c, err := r.Cookie(auth.CookieName); err == nil {
		cookie = c.Value
	}
	return g.tokens.VerifyPair(cookie, r.Header.Get(auth.HeaderName))
}

// List resolves {listId} and checks that the authenticated user owns it.
// A malformed or unknown id is a 404; another user's list is a 401.
func (g *Guard) List(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := FromContext(r.Context())

		raw := chi.URLParam(r, ListParam)
		id, err := uuid.Parse(raw)
		if err != nil {
			reject(w, r, req, apperror.NewNotFoundError(fmt.Sprintf("list id %q is malformed", raw), err))
			return
		}
		list, err := g.store.Lists().FindByID(r.Context(), id)
		if err != nil {
			reject(w, r, req, store.Translate(err, "list "+id.String()))
			return
		}
		if req, err = req.ScopeList(list); err != nil {
			reject(w, r, req, err)
			return
		}
		if list.OwnerID != req.User.ID {
			reject(w, r, req, apperror.NewAuthorizationError(
				fmt.Sprintf("user %s does not own list %s", req.User.ID, list.ID), nil))
			return
		}
		if req, err = req.Authorize(); err != nil {
			reject(w, r, req, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), req)))
	})
}

// Item resolves {itemId} within the already authorized list. An item that
// belongs to a different list is a 400.
func (g *Guard) Item(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := FromContext(r.Context())

		raw := chi.URLParam(r, ItemParam)
		id, err := uuid.Parse(raw)
		if err != nil {
			reject(w, r, req, apperror.NewNotFoundError(fmt.Sprintf("item id %q is malformed", raw), err))
			return
		}
		item, err := g.store.Items().FindByID(r.Context(), id)
		if err != nil {
			reject(w, r, req, store.Translate(err, "item "+id.String()))
			return
		}
		if req, err = req.ScopeItem(item); err != nil {
			reject(w, r, req, err)
			return
		}
		if item.ListID != req.List.ID {
			reject(w, r, req, apperror.NewValidationError(
				fmt.Sprintf("item %s belongs to list %s, not %s", item.ID, item.ListID, req.List.ID), nil))
			return
		}
		if req, err = req.Authorize(); err != nil {
			reject(w, r, req, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), req)))
	})
}

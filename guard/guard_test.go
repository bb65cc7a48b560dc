package guard

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/auth"
	"github.com/user/listkeeper-go/clock"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store/memory"
)

type fixture struct {
	store  *memory.Store
	tokens *auth.TokenService
	router http.Handler
	alice  *model.User
	bob    *model.User
	list   *model.List // owned by alice
	other  *model.List // owned by alice, second list
	item   *model.Item // in list
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	creds := auth.NewCredentialService(st.Users(), clk, bcrypt.MinCost)
	tokens := auth.NewTokenService([]byte("guard-test-secret-0123456789"), time.Hour, "listkeeper", clk)

	alice, err := creds.Register(ctx, auth.RegisterInput{Username: "alice", Password: "pw-a", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, err := creds.Register(ctx, auth.RegisterInput{Username: "bob", Password: "pw-b", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	list := &model.List{ID: uuid.New(), Name: "groceries", OwnerID: alice.ID}
	other := &model.List{ID: uuid.New(), Name: "chores", OwnerID: alice.ID}
	item := &model.Item{ID: uuid.New(), Name: "milk", ListID: list.ID}
	for _, err := range []error{
		st.Lists().Create(ctx, list),
		st.Lists().Create(ctx, other),
		st.Items().Create(ctx, item),
	} {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	g := New(creds, tokens, st, true)
	echo := func(w http.ResponseWriter, r *http.Request) {
		req := FromContext(r.Context())
		w.Header().Set("X-State", req.State.String())
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.With(g.Basic).Get("/login", echo)
	r.Route("/lists", func(r chi.Router) {
		r.Use(g.Token)
		r.Get("/", echo)
		r.Route("/{listId}", func(r chi.Router) {
			r.Use(g.List)
			r.Get("/", echo)
			r.With(g.Item).Get("/items/{itemId}", echo)
		})
	})

	return &fixture{store: st, tokens: tokens, router: r, alice: alice, bob: bob, list: list, other: other, item: item}
}

func (f *fixture) token(t *testing.T, id uuid.UUID) string {
	t.Helper()
	tok, err := f.tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func withPair(r *http.Request, cookie, header string) *http.Request {
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}
	if header != "" {
		r.Header.Set(auth.HeaderName, header)
	}
	return r
}

func TestBasic(t *testing.T) {
	f := newFixture(t)
	basic := func(s string) string { return "Basic " + base64.StdEncoding.EncodeToString([]byte(s)) }

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", basic("alice:pw-a"), http.StatusOK},
		{"wrong password", basic("alice:nope"), http.StatusUnauthorized},
		{"unknown user", basic("mallory:pw"), http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed base64", "Basic %%%", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/login", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, r)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK && w.Header().Get("X-State") != "authenticated" {
				t.Errorf("state = %q", w.Header().Get("X-State"))
			}
		})
	}
}

func TestToken(t *testing.T) {
	f := newFixture(t)
	aliceTok := f.token(t, f.alice.ID)
	bobTok := f.token(t, f.bob.ID)
	ghostTok := f.token(t, uuid.New())

	testCases := []struct {
		name       string
		build      func() *http.Request
		wantStatus int
	}{
		{"pair", func() *http.Request {
			return withPair(httptest.NewRequest(http.MethodGet, "/lists", nil), aliceTok, aliceTok)
		}, http.StatusOK},
		{"cookie only", func() *http.Request {
			return withPair(httptest.NewRequest(http.MethodGet, "/lists", nil), aliceTok, "")
		}, http.StatusUnauthorized},
		{"header only", func() *http.Request {
			return withPair(httptest.NewRequest(http.MethodGet, "/lists", nil), "", aliceTok)
		}, http.StatusUnauthorized},
		{"mismatched pair", func() *http.Request {
			return withPair(httptest.NewRequest(http.MethodGet, "/lists", nil), aliceTok, bobTok)
		}, http.StatusUnauthorized},
		{"deleted user", func() *http.Request {
			return withPair(httptest.NewRequest(http.MethodGet, "/lists", nil), ghostTok, ghostTok)
		}, http.StatusUnauthorized},
		{"bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/lists", nil)
			r.Header.Set("Authorization", "Bearer "+aliceTok)
			return r
		}, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, tc.build())
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestListAndItem(t *testing.T) {
	f := newFixture(t)
	aliceTok := f.token(t, f.alice.ID)
	bobTok := f.token(t, f.bob.ID)

	testCases := []struct {
		name       string
		token      string
		path       string
		wantStatus int
	}{
		{"owner list", aliceTok, "/lists/" + f.list.ID.String(), http.StatusOK},
		{"non-owner list", bobTok, "/lists/" + f.list.ID.String(), http.StatusUnauthorized},
		{"unknown list", aliceTok, "/lists/" + uuid.NewString(), http.StatusNotFound},
		{"malformed list id", aliceTok, "/lists/42", http.StatusNotFound},
		{"owner item", aliceTok, "/lists/" + f.list.ID.String() + "/items/" + f.item.ID.String(), http.StatusOK},
		{"item under wrong list", aliceTok, "/lists/" + f.other.ID.String() + "/items/" + f.item.ID.String(), http.StatusBadRequest},
		{"unknown item", aliceTok, "/lists/" + f.list.ID.String() + "/items/" + uuid.NewString(), http.StatusNotFound},
		{"malformed item id", aliceTok, "/lists/" + f.list.ID.String() + "/items/xyz", http.StatusNotFound},
		{"non-owner item", bobTok, "/lists/" + f.list.ID.String() + "/items/" + f.item.ID.String(), http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, withPair(httptest.NewRequest(http.MethodGet, tc.path, nil), tc.token, tc.token))
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			if w.Code == http.StatusOK && w.Header().Get("X-State") != "authorized" {
				t.Errorf("state = %q, want authorized", w.Header().Get("X-State"))
			}
		})
	}
}

func TestTransitions(t *testing.T) {
	u := &model.User{ID: uuid.New()}
	l := &model.List{ID: uuid.New(), OwnerID: u.ID}

	var req Request
	if _, err := req.Authorize(); !isInternal(err) {
		t.Errorf("Authorize from unauthenticated = %v, want internal error", err)
	}
	if _, err := req.ScopeList(l); !isInternal(err) {
		t.Errorf("ScopeList from unauthenticated = %v, want internal error", err)
	}

	req, err := req.Authenticate(u)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := req.Authenticate(u); !isInternal(err) {
		t.Errorf("double Authenticate = %v, want internal error", err)
	}
	if _, err := req.ScopeItem(&model.Item{}); !isInternal(err) {
		t.Errorf("ScopeItem before list = %v, want internal error", err)
	}
	if req, err = req.ScopeList(l); err != nil {
		t.Fatalf("ScopeList: %v", err)
	}
	if req, err = req.Authorize(); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if req.State != Authorized {
		t.Errorf("state = %v", req.State)
	}
	if req.Reject().State != Rejected {
		t.Error("Reject did not reach Rejected")
	}
}

func TestCurrentHelpersFailWhenMissing(t *testing.T) {
	ctx := context.Background()
	if _, err := CurrentUser(ctx); !isInternal(err) {
		t.Errorf("CurrentUser = %v, want internal error", err)
	}
	if _, err := CurrentList(ctx); !isInternal(err) {
		t.Errorf("CurrentList = %v, want internal error", err)
	}
	if _, err := CurrentItem(ctx); !isInternal(err) {
		t.Errorf("CurrentItem = %v, want internal error", err)
	}
}

func isInternal(err error) bool {
	ae, ok := apperror.FromError(err)
	return ok && ae.Type == apperror.InternalError
}

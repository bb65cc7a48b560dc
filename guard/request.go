// Package guard turns an HTTP request into an authorized request context.
//
// Each middleware advances an explicit state machine stored in the request's
// context.Context:
//
//	Unauthenticated -> Authenticated -> ResourceScoped -> Authorized
//	                                          ^               |
//	                                          +---------------+  (list, then item)
//
// Any step may end in Rejected, in which case the request never reaches a
// handler. Handlers only read the resolved entities through CurrentUser,
// CurrentList and CurrentItem.
package guard

import (
	"context"
	"fmt"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/model"
)

// State is the authorization progress of a request.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	ResourceScoped
	Authorized
	Rejected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case ResourceScoped:
		return "resource_scoped"
	case Authorized:
		return "authorized"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is the explicit per-request authorization context.
type Request struct {
	State State
	User  *model.User
	List  *model.List
	Item  *model.Item
}

type ctxKey struct{}

// FromContext returns the request context stored in ctx, or the zero
// (Unauthenticated) value.
func FromContext(ctx context.Context) Request {
	if req, ok := ctx.Value(ctxKey{}).(Request); ok {
		return req
	}
	return Request{}
}

// NewContext returns a copy of ctx carrying req.
func NewContext(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, req)
}

func illegal(from, to State) error {
	return apperror.NewInternalError(fmt.Sprintf("illegal guard transition %s -> %s", from, to), nil)
}

// Authenticate records the identified user.
func (r Request) Authenticate(u *model.User) (Request, error) {
	if r.State != Unauthenticated {
		return r, illegal(r.State, Authenticated)
	}
	if u == nil {
		return r, apperror.NewInternalError("authenticate with nil user", nil)
	}
	r.State = Authenticated
	r.User = u
	return r, nil
}

// ScopeList records the list named by the URL. Ownership is not yet checked.
func (r Request) ScopeList(l *model.List) (Request, error) {
	if r.State != Authenticated {
		return r, illegal(r.State, ResourceScoped)
	}
	r.State = ResourceScoped
	r.List = l
	return r, nil
}

// ScopeItem records the item named by the URL. Requires an authorized list.
func (r Request) ScopeItem(it *model.Item) (Request, error) {
	if r.State != Authorized || r.List == nil {
		return r, illegal(r.State, ResourceScoped)
	}
	r.State = ResourceScoped
	r.Item = it
	return r, nil
}

// Authorize marks the scoped resource as accessible.
func (r Request) Authorize() (Request, error) {
	if r.State != ResourceScoped {
		return r, illegal(r.State, Authorized)
	}
	r.State = Authorized
	return r, nil
}

// Reject ends the machine.
func (r Request) Reject() Request {
	r.State = Rejected
	return r
}

// CurrentUser returns the authenticated user. It fails with an internal error
// when no authenticating middleware ran, since that means the route is mis-wired.
func CurrentUser(ctx context.Context) (*model.User, error) {
	req := FromContext(ctx)
	switch req.State {
	case Authenticated, ResourceScoped, Authorized:
		if req.User != nil {
			return req.User, nil
		}
	}
	return nil, apperror.NewInternalError(fmt.Sprintf("no authenticated user in request context (state %s)", req.State), nil)
}

// CurrentList returns the authorized list of the request.
func CurrentList(ctx context.Context) (*model.List, error) {
	req := FromContext(ctx)
	if req.State == Authorized && req.List != nil {
		return req.List, nil
	}
	return nil, apperror.NewInternalError(fmt.Sprintf("no authorized list in request context (state %s)", req.State), nil)
}

// CurrentItem returns the authorized item of the request.
func CurrentItem(ctx context.Context) (*model.Item, error) {
	req := FromContext(ctx)
	if req.State == Authorized && req.Item != nil {
		return req.Item, nil
	}
	return nil, apperror.NewInternalError(fmt.Sprintf("no authorized item in request context (state %s)", req.State), nil)
}

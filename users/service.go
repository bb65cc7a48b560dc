package users

import (
	"context"

	"github.com/user/listkeeper-go/auth"
	"github.com/user/listkeeper-go/graph"
	"github.com/user/listkeeper-go/model"
)

// AccountService combines the credential store, the token service and the
// ownership graph into account-level operations.
type AccountService struct {
	creds  *auth.CredentialService
	tokens *auth.TokenService
	graph  *graph.Manager
}

// NewAccountService creates an AccountService.
func NewAccountService(creds *auth.CredentialService, tokens *auth.TokenService, g *graph.Manager) *AccountService {
	return &AccountService{creds: creds, tokens: tokens, graph: g}
}

// Register creates the account and signs a token for it.
func (s *AccountService) Register(ctx context.Context, in auth.RegisterInput) (*AuthResponse, error) {
	user, err := s.creds.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.Session(user)
}

// Session signs a token for an already authenticated user.
func (s *AccountService) Session(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// Delete removes the user with every list and item they own.
func (s *AccountService) Delete(ctx context.Context, user *model.User) error {
	return s.graph.DeleteUser(ctx, user)
}

// Package auth holds the two identity services of the application: the
// credential store, which registers accounts and checks passwords, and the
// token service, which issues and verifies the signed session tokens.
// Neither service knows about HTTP; the guard and users packages adapt them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/clock"
	"github.com/user/listkeeper-go/httpx"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

// RegisterInput is the payload of a new-account request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,excludes=:" example:"alice"`
	Password string `json:"password" validate:"required" example:"correct horse battery staple"`
	Email    string `json:"email" validate:"required,email" example:"alice@example.com"`
}

// CredentialService registers accounts and verifies passwords.
type CredentialService struct {
	users store.Users
	clock clock.Clock
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialService creates a CredentialService hashing with the given bcrypt cost.
func NewCredentialService(users store.Users, clk clock.Clock, cost int) *CredentialService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialService{users: users, clock: clk, cost: cost}
}

// Register validates the input, hashes the password and stores a new user.
// Username is trimmed and email lower-cased before validation and storage.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = model.NormalizeUsername(in.Username)
	in.Email = model.NormalizeEmail(in.Email)
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperror.NewValidationError("password exceeds 72 bytes", err)
		}
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
		Lists:        []uuid.UUID{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, store.Translate(err, "register user")
	}
	return user, nil
}

// Verify returns the user whose username and password match. Unknown users
// and wrong passwords fail with the same AuthError, and both pay for one
// bcrypt comparison.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (*model.User, error) {
	username = model.NormalizeUsername(username)
	if username == "" {
		s.burn(password)
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	user, err := s.users.FindOne(ctx, store.UserFilter{Username: username})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.burn(password)
			return nil, apperror.NewAuthError("invalid credentials", nil)
		}
		return nil, store.Translate(err, "find user for login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewAuthError(fmt.Sprintf("invalid credentials for user %s", user.ID), nil)
	}
	return user, nil
}

// burn runs a comparison against a fixed hash so that a miss costs as much as a hit.
func (s *CredentialService) burn(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("listkeeper-timing-equalizer"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

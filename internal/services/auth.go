package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/keygate/authserver/internal/auth"
	"github.com/keygate/authserver/internal/store"
	"github.com/keygate/authserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// TokenCodec issues tokens for a user id and resolves them back.
type TokenCodec interface {
	Issue(userID int) (string, error)
	Verify(tokenString string) (int, error)
}

// AuthService implements signup, login, and token resolution over a user
// repository and a token codec. It holds no per-request state.
type AuthService struct {
	repo   UserRepository
	tokens TokenCodec
}

func NewAuthService(repo UserRepository, tokens TokenCodec) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
	}
}

// Signup hashes the password, inserts the user, and issues a token for the
// new account. There is no uniqueness pre-check: the unique index on email
// decides, so two concurrent signups with the same address produce exactly
// one success and one ErrEmailTaken.
func (s *AuthService) Signup(ctx context.Context, email, password, firstName, lastName string) (types.User, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", repositoryFailure(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password return the same ErrInvalidCredentials so callers cannot
// tell which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", repositoryFailure(err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return types.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Resolve verifies the token and loads the user it names. Expired, tampered,
// and malformed tokens all collapse into ErrInvalidToken; a valid token for
// a user that no longer exists returns ErrUserNotFound.
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (types.User, error) {
	userID, err := s.tokens.Verify(tokenString)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, repositoryFailure(err)
	}
	return user, nil
}

func repositoryFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keygate/authserver/internal/auth"
	"github.com/keygate/authserver/internal/store"
	"github.com/keygate/authserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo is an in-memory UserRepository enforcing the unique-email
// constraint the way the database does.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User

	forcedErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return types.User{}, f.forcedErr
	}
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return types.User{}, f.forcedErr
	}
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return types.User{}, f.forcedErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	f.nextID++
	user.ID = f.nextID
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) delete(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

func newTestService(repo *fakeUserRepo, ttl time.Duration) *AuthService {
	return NewAuthService(repo, auth.NewTokenCodec([]byte("test-secret"), ttl))
}

func TestAuthService_Signup(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "A", user.FirstName)
	assert.Equal(t, "B", user.LastName)
	assert.NotZero(t, user.ID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "pw123", user.PasswordHash)

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "a@x.com", "other-pw", "C", "D")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, repo.count())
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	created, _, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, created.ID, user.ID)

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable.
	_, _, wrongPassword := svc.Login(ctx, "a@x.com", "wrong")
	_, _, unknownEmail := svc.Login(ctx, "nobody@x.com", "pw123")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_ResolveInvalidToken(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ResolveExpiredToken(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	// Negative lifetime: every issued token is already expired.
	svc := newTestService(repo, -time.Minute)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ResolveDeletedUser(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	repo.delete(user.ID)

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_RepositoryUnavailable(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newTestService(repo, time.Hour)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, "a@x.com", "pw123", "A", "B")
	require.NoError(t, err)

	repo.forcedErr = errors.New("connection refused")

	_, _, err = svc.Signup(ctx, "b@x.com", "pw", "C", "D")
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	_, _, err = svc.Login(ctx, "a@x.com", "pw123")
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
}

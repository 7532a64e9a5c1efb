package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/google/uuid"
)

// UserRepository is the user directory contract. Lookups take normalized
// identities (lowercase email, E.164 phone) and return (nil, nil) when no
// user exists — absence is not an error at this layer.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create assigns id, token version and creation time, then inserts the
	// user. Fails with ErrDuplicateIdentity when the email or phone is
	// already claimed. The existence check and insert are atomic.
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword overwrites the credential fields and increments the
	// token version, invalidating outstanding sessions. Unknown ids are a
	// no-op rather than an error (account-enumeration avoidance).
	UpdatePassword(ctx context.Context, id, passwordHash, passwordSalt string) error

	// LinkGoogleID attaches an external identity to an existing account.
	// Unknown ids are a no-op.
	LinkGoogleID(ctx context.Context, id, googleID string) error
}

// NewUserID returns a fresh user id.
func NewUserID() string {
	return "usr_" + uuid.NewString()
}

// InMemoryUserRepository is the default volatile user store. A single
// mutex serializes every read-check-write sequence, so concurrent signups
// for the same email or phone cannot both succeed.
type InMemoryUserRepository struct {
	mu         sync.Mutex
	users      map[string]*model.User
	idByEmail  map[string]string
	idByPhone  map[string]string
	idByGoogle map[string]string
	now        func() time.Time
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:      make(map[string]*model.User),
		idByEmail:  make(map[string]string),
		idByPhone:  make(map[string]string),
		idByGoogle: make(map[string]string),
		now:        time.Now,
	}
}

// WithClock overrides the wall clock, used by tests.
func (r *InMemoryUserRepository) WithClock(now func() time.Time) *InMemoryUserRepository {
	r.now = now
	return r
}

func (r *InMemoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(r.idByEmail[strings.ToLower(email)]), nil
}

func (r *InMemoryUserRepository) FindByPhone(_ context.Context, phone string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(r.idByPhone[phone]), nil
}

func (r *InMemoryUserRepository) FindByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(r.idByGoogle[googleID]), nil
}

func (r *InMemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(id), nil
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := r.idByEmail[email]; exists {
		return apperrors.ErrDuplicateIdentity
	}
	if user.Phone != "" {
		if _, exists := r.idByPhone[user.Phone]; exists {
			return apperrors.ErrDuplicateIdentity
		}
	}

	user.ID = NewUserID()
	user.Email = email
	user.TokenVersion = 0
	user.CreatedAt = r.now()

	stored := *user
	r.users[user.ID] = &stored
	r.idByEmail[email] = user.ID
	if user.Phone != "" {
		r.idByPhone[user.Phone] = user.ID
	}
	if user.GoogleID != "" {
		r.idByGoogle[user.GoogleID] = user.ID
	}
	return nil
}

func (r *InMemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash, passwordSalt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil
	}
	user.PasswordHash = passwordHash
	user.PasswordSalt = passwordSalt
	user.TokenVersion++
	return nil
}

func (r *InMemoryUserRepository) LinkGoogleID(_ context.Context, id, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil
	}
	if user.GoogleID != "" {
		delete(r.idByGoogle, user.GoogleID)
	}
	user.GoogleID = googleID
	r.idByGoogle[googleID] = id
	return nil
}

// copyOf returns a detached copy so callers cannot mutate stored state.
// Must hold the lock.
func (r *InMemoryUserRepository) copyOf(id string) *model.User {
	user, ok := r.users[id]
	if !ok {
		return nil
	}
	clone := *user
	return &clone
}

package memory

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cyp0633/calseries/server/auth"
)

// User is an account as configured
type User struct {
	Username string
	Password string
	// Handle is the display name stamped on created events; defaults to Username
	Handle   string
	ReadOnly bool
}

// account keeps only a digest of the password next to the principal it unlocks
type account struct {
	digest    [sha256.Size]byte
	principal auth.Principal
}

// Store is an Authenticator over a fixed set of accounts held in memory
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account
	logger   *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]account),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser registers an account. Usernames are unique.
func (s *Store) AddUser(user User) error {
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	if user.Password == "" {
		return fmt.Errorf("password is required for %s", user.Username)
	}
	handle := user.Handle
	if handle == "" {
		handle = user.Username
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[user.Username]; taken {
		return fmt.Errorf("user already exists: %s", user.Username)
	}
	s.accounts[user.Username] = account{
		digest:    sha256.Sum256([]byte(user.Password)),
		principal: auth.Principal{ID: user.Username, Handle: handle, ReadOnly: user.ReadOnly},
	}
	s.logger.Debug("registered user", "username", user.Username, "read_only", user.ReadOnly)
	return nil
}

// RemoveUser drops an account; unknown names are ignored
func (s *Store) RemoveUser(username string) {
	s.mu.Lock()
	delete(s.accounts, username)
	s.mu.Unlock()
}

// Len returns the number of registered accounts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Authenticate implements auth.Authenticator. Unknown users still pay for
// a digest comparison so both failures take the same path.
func (s *Store) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	acct, known := s.accounts[creds.Username]
	s.mu.RUnlock()

	given := sha256.Sum256([]byte(creds.Password))
	match := subtle.ConstantTimeCompare(acct.digest[:], given[:]) == 1
	if !known || !match {
		s.logger.Info("authentication failed", "username", creds.Username, "known_user", known)
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}

	p := acct.principal
	return &p, nil
}

// ValidateAccess implements auth.Authenticator. Ownership of individual
// records is enforced by the series service; this only gates methods.
func (s *Store) ValidateAccess(ctx context.Context, principal *auth.Principal, method, path string) error {
	if principal == nil {
		return &auth.Error{
			Type:    auth.ErrUnauthorized,
			Message: "authentication required",
		}
	}
	if !auth.AllowsMethod(principal, method) {
		s.logger.Warn("read-only user attempted a write",
			"username", principal.ID,
			"method", method,
			"path", path)
		return &auth.Error{
			Type:    auth.ErrForbidden,
			Message: fmt.Sprintf("%s not permitted on %s", method, path),
		}
	}
	return nil
}

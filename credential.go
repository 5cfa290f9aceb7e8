package session

import (
	"context"
	"sync"
	"time"
)

const tokenStorageKey = "token"

// CredentialStore owns the bearer credential: the raw token lives in
// memory, is mirrored to Storage on every mutation, and its decoded claim
// set is memoized until the next mutation. An expired or undecodable token
// is discarded on read and never retried.
type CredentialStore struct {
	mu      sync.Mutex
	storage Storage
	prefix  string
	logger  Logger
	now     Clock

	loaded  bool
	token   string
	claims  *Claims
	decoded bool
}

// NewCredentialStore returns a store namespaced under prefix.
func NewCredentialStore(storage Storage, prefix string) *CredentialStore {
	return &CredentialStore{
		storage: storage,
		prefix:  prefix,
		logger:  defLogger{},
		now:     time.Now,
	}
}

func (s *CredentialStore) WithLogger(logger Logger) *CredentialStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *CredentialStore) WithClock(clock Clock) *CredentialStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// SetToken stores the token in memory and persists it before returning.
// An empty token clears the store.
func (s *CredentialStore) SetToken(ctx context.Context, token string) {
	if token == "" {
		s.Clear(ctx)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.claims = nil
	s.decoded = false
	s.loaded = true

	if err := s.storage.Set(ctx, s.storageKey(), token); err != nil {
		s.logger.Warn("credential store persist failed: %v", err)
	}
}

// Clear removes the credential from memory and storage.
func (s *CredentialStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.claims = nil
	s.decoded = true
	s.loaded = true

	if err := s.storage.Remove(ctx, s.storageKey()); err != nil {
		s.logger.Warn("credential store remove failed: %v", err)
	}
}

// Token returns the current valid token. The in-memory value answers
// without touching storage except on the very first call after startup.
func (s *CredentialStore) Token(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	if s.token == "" {
		return "", false
	}

	if !s.ensureValidLocked() {
		return "", false
	}

	return s.token, true
}

// Claims returns the decoded claim set of the current valid token.
func (s *CredentialStore) Claims(ctx context.Context) (*Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	if s.token == "" {
		return nil, false
	}

	if !s.ensureValidLocked() {
		return nil, false
	}

	return s.claims, true
}

func (s *CredentialStore) storageKey() string {
	return s.prefix + tokenStorageKey
}

// ensureLoadedLocked hydrates from storage exactly once after startup.
func (s *CredentialStore) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	value, ok, err := s.storage.Get(ctx, s.storageKey())
	if err != nil {
		s.logger.Warn("credential store load failed: %v", err)
		return
	}
	if ok {
		s.token = value
	}
}

// ensureValidLocked decodes the token on first use and discards it when
// malformed or expired. Returns true while the credential is usable.
func (s *CredentialStore) ensureValidLocked() bool {
	if !s.decoded {
		s.decoded = true
		claims, err := DecodeToken(s.token)
		if err != nil {
			s.logger.Debug("discarding undecodable credential: %v", err)
			s.token = ""
			s.claims = nil
			return false
		}
		s.claims = claims
	}

	if s.claims == nil {
		return false
	}

	if s.claims.Expired(s.now()) {
		s.logger.Debug("discarding expired credential")
		s.token = ""
		s.claims = nil
		return false
	}

	return true
}

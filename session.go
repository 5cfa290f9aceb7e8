package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState is the externally visible authentication state.
type SessionState string

const (
	StateAnonymous           SessionState = "anonymous"
	StatePendingVerification SessionState = "pending_verification"
	StateAuthenticated       SessionState = "authenticated"
)

// ChangeObserver is invoked after every session mutation, before the
// mutating call returns.
type ChangeObserver func(ctx context.Context, state SessionState)

var _ TokenProvider = (*Session)(nil)

// Session composes the credential and pending-verification stores and
// computes the authentication state. It is built once at process start and
// passed by reference to collaborators; there is no package-level
// singleton.
//
// Observers registered with OnChange run synchronously after the internal
// locks are released but before the mutating method returns, so a
// permission check issued right after a credential change never reads
// stale state and a re-entrant observer cannot deadlock.
type Session struct {
	credentials *CredentialStore
	pending     *PendingStore
	logger      Logger
	now         Clock
	snapshotTTL time.Duration

	mu       sync.Mutex
	snapshot *AuthSnapshot

	obsMu     sync.Mutex
	observers map[uuid.UUID]ChangeObserver
}

// New returns a Session backed by storage. A nil cfg uses the package
// defaults.
func New(storage Storage, cfg Config) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	prefix := cfg.GetStorageKeyPrefix()

	return &Session{
		credentials: NewCredentialStore(storage, prefix),
		pending:     NewPendingStore(storage, prefix),
		logger:      defLogger{},
		now:         time.Now,
		snapshotTTL: cfg.GetSnapshotTTL(),
		observers:   map[uuid.UUID]ChangeObserver{},
	}
}

func (s *Session) WithLogger(logger Logger) *Session {
	if logger != nil {
		s.logger = logger
		s.credentials.WithLogger(logger)
		s.pending.WithLogger(logger)
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *Session) WithClock(clock Clock) *Session {
	if clock != nil {
		s.now = clock
		s.credentials.WithClock(clock)
	}
	return s
}

// SetCredential stores a new bearer token. The token persists before the
// call returns and observers are notified. Clearing a pending verification
// after a successful second factor is the caller's responsibility.
func (s *Session) SetCredential(ctx context.Context, token string) {
	s.credentials.SetToken(ctx, token)
	s.InvalidateSnapshot()
	s.notifyChange(ctx)
}

// SetPending records a pending two-factor verification triple.
func (s *Session) SetPending(ctx context.Context, identifier, challengeToken, channelType string) error {
	if err := s.pending.SetPending(ctx, identifier, challengeToken, channelType); err != nil {
		return err
	}
	s.InvalidateSnapshot()
	s.notifyChange(ctx)
	return nil
}

// ClearPending removes the pending verification triple.
func (s *Session) ClearPending(ctx context.Context) {
	s.pending.ClearPending(ctx)
	s.InvalidateSnapshot()
	s.notifyChange(ctx)
}

// Clear wipes both the credential and the pending triple from memory and
// storage, returning the session to anonymous.
func (s *Session) Clear(ctx context.Context) {
	s.credentials.Clear(ctx)
	s.pending.ClearPending(ctx)
	s.InvalidateSnapshot()
	s.notifyChange(ctx)
}

// Token implements TokenProvider for outbound request decorators.
func (s *Session) Token(ctx context.Context) (string, bool) {
	return s.credentials.Token(ctx)
}

// Pending returns the stored verification triple.
func (s *Session) Pending(ctx context.Context) (PendingVerification, bool) {
	return s.pending.Pending(ctx)
}

// HasPending reports whether a verification is awaiting its second factor.
func (s *Session) HasPending(ctx context.Context) bool {
	return s.pending.HasPending(ctx)
}

// State computes the current authentication state. An expired credential
// observed here silently downgrades the session.
func (s *Session) State(ctx context.Context) SessionState {
	if _, ok := s.credentials.Claims(ctx); ok {
		return StateAuthenticated
	}
	if s.HasPending(ctx) {
		return StatePendingVerification
	}
	return StateAnonymous
}

// Snapshot returns the identity snapshot, recomputing it only when none
// exists or the memoized one is older than the freshness window.
func (s *Session) Snapshot(ctx context.Context) *AuthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.snapshot != nil && now.Sub(s.snapshot.TakenAt) < s.snapshotTTL {
		return s.snapshot
	}

	s.snapshot = s.buildSnapshot(ctx, now)
	return s.snapshot
}

// FindClaim exposes claim lookup to downstream permission and department
// checks.
func (s *Session) FindClaim(ctx context.Context, name string) (string, bool) {
	return s.Snapshot(ctx).FindClaim(name)
}

// InvalidateSnapshot drops the memoized snapshot so the next read
// recomputes it.
func (s *Session) InvalidateSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}

// OnChange registers an observer and returns its unsubscribe function.
func (s *Session) OnChange(observer ChangeObserver) func() {
	if observer == nil {
		return func() {}
	}

	id := uuid.New()

	s.obsMu.Lock()
	s.observers[id] = observer
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) buildSnapshot(ctx context.Context, now time.Time) *AuthSnapshot {
	claims, ok := s.credentials.Claims(ctx)
	if !ok {
		return &AuthSnapshot{TakenAt: now}
	}

	expiresAt := claims.ExpiresAt()
	return &AuthSnapshot{
		Authenticated: true,
		Claims:        claims.All(),
		ExpiresAt:     &expiresAt,
		TakenAt:       now,
	}
}

// notifyChange dispatches to every observer outside the session locks.
// Dispatch is blocking: it completes before the mutating call returns.
func (s *Session) notifyChange(ctx context.Context) {
	state := s.State(ctx)

	s.obsMu.Lock()
	observers := make([]ChangeObserver, 0, len(s.observers))
	for _, observer := range s.observers {
		observers = append(observers, observer)
	}
	s.obsMu.Unlock()

	for _, observer := range observers {
		observer(ctx, state)
	}
}

package session

import (
	"context"
	"encoding/json"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

const pendingStorageKey = "pending"

// Verification channel types produced by a first-factor login.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelTOTP  = "totp"
)

// PendingVerification is the all-or-nothing triple a first-factor login
// leaves behind when a second factor is required.
type PendingVerification struct {
	Identifier     string `json:"identifier"`
	ChallengeToken string `json:"challenge_token"`
	ChannelType    string `json:"channel_type"`
}

// Validate will run validation rules
func (p PendingVerification) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Identifier, validation.Required),
		validation.Field(&p.ChallengeToken, validation.Required),
		validation.Field(&p.ChannelType, validation.Required),
	)
}

// PendingStore holds the pending verification triple and mirrors it to
// Storage. The triple persists as one serialized value under a single key,
// so a partial write can never leave two of three fields behind across a
// restart.
type PendingStore struct {
	mu      sync.Mutex
	storage Storage
	prefix  string
	logger  Logger

	loaded  bool
	pending *PendingVerification
}

// NewPendingStore returns a store namespaced under prefix.
func NewPendingStore(storage Storage, prefix string) *PendingStore {
	return &PendingStore{
		storage: storage,
		prefix:  prefix,
		logger:  defLogger{},
	}
}

func (s *PendingStore) WithLogger(logger Logger) *PendingStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// SetPending records the triple and persists it before returning. SMS
// identifiers in international format are normalized to E.164 so the
// downstream verification step compares like with like.
func (s *PendingStore) SetPending(ctx context.Context, identifier, challengeToken, channelType string) error {
	pending := PendingVerification{
		Identifier:     identifier,
		ChallengeToken: challengeToken,
		ChannelType:    channelType,
	}

	if err := pending.Validate(); err != nil {
		return err
	}

	if channelType == ChannelSMS {
		pending.Identifier = normalizePhone(identifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &pending
	s.loaded = true

	encoded, err := json.Marshal(pending)
	if err != nil {
		s.logger.Warn("pending store encode failed: %v", err)
		return nil
	}
	if err := s.storage.Set(ctx, s.storageKey(), string(encoded)); err != nil {
		s.logger.Warn("pending store persist failed: %v", err)
	}
	return nil
}

// Pending returns the stored triple, hydrating from storage on the first
// call after startup.
func (s *PendingStore) Pending(ctx context.Context) (PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	if s.pending == nil {
		return PendingVerification{}, false
	}
	return *s.pending, true
}

// HasPending reports whether both the identifier and the challenge token
// are present.
func (s *PendingStore) HasPending(ctx context.Context) bool {
	pending, ok := s.Pending(ctx)
	if !ok {
		return false
	}
	return pending.Identifier != "" && pending.ChallengeToken != ""
}

// ClearPending removes the triple from memory and storage.
func (s *PendingStore) ClearPending(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.loaded = true

	if err := s.storage.Remove(ctx, s.storageKey()); err != nil {
		s.logger.Warn("pending store remove failed: %v", err)
	}
}

func (s *PendingStore) storageKey() string {
	return s.prefix + pendingStorageKey
}

func (s *PendingStore) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	value, ok, err := s.storage.Get(ctx, s.storageKey())
	if err != nil {
		s.logger.Warn("pending store load failed: %v", err)
		return
	}
	if !ok {
		return
	}

	var pending PendingVerification
	if err := json.Unmarshal([]byte(value), &pending); err != nil {
		s.logger.Warn("pending store decode failed: %v", err)
		return
	}
	s.pending = &pending
}

// normalizePhone formats an international phone identifier as E.164.
// Inputs that do not parse are kept as entered.
func normalizePhone(identifier string) string {
	parsed, err := phonenumbers.Parse(identifier, "")
	if err != nil {
		return identifier
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return identifier
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

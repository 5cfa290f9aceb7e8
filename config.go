package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Config holds session options
type Config interface {
	GetStorageKeyPrefix() string
	GetSnapshotTTL() time.Duration
	GetMenuCacheTTL() time.Duration
	GetPermissionCacheTTL() time.Duration
	GetAPIBaseURL() string
}

// SessionConfig is the default Config implementation.
type SessionConfig struct {
	StorageKeyPrefix   string        `json:"storage_key_prefix"`
	SnapshotTTL        time.Duration `json:"snapshot_ttl"`
	MenuCacheTTL       time.Duration `json:"menu_cache_ttl"`
	PermissionCacheTTL time.Duration `json:"permission_cache_ttl"`
	APIBaseURL         string        `json:"api_base_url"`
}

const (
	// DefaultStorageKeyPrefix namespaces every persisted session key.
	DefaultStorageKeyPrefix = "app:session:"
	// DefaultSnapshotTTL is the freshness window for the memoized
	// identity snapshot. Sub-second so permission checks track credential
	// changes closely without re-decoding the token on every read.
	DefaultSnapshotTTL = 500 * time.Millisecond
	// DefaultMenuCacheTTL covers menu and navigation tree fetches.
	DefaultMenuCacheTTL = 5 * time.Minute
	// DefaultPermissionCacheTTL covers page access and permission checks.
	DefaultPermissionCacheTTL = 2 * time.Minute
)

// DefaultConfig returns a SessionConfig with the package defaults.
func DefaultConfig() *SessionConfig {
	return &SessionConfig{
		StorageKeyPrefix:   DefaultStorageKeyPrefix,
		SnapshotTTL:        DefaultSnapshotTTL,
		MenuCacheTTL:       DefaultMenuCacheTTL,
		PermissionCacheTTL: DefaultPermissionCacheTTL,
	}
}

// Validate will run validation rules
func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.StorageKeyPrefix, validation.Required),
		validation.Field(&c.SnapshotTTL, validation.Required),
		validation.Field(&c.APIBaseURL, is.URL),
	)
}

func (c *SessionConfig) GetStorageKeyPrefix() string {
	if c.StorageKeyPrefix == "" {
		return DefaultStorageKeyPrefix
	}
	return c.StorageKeyPrefix
}

func (c *SessionConfig) GetSnapshotTTL() time.Duration {
	if c.SnapshotTTL <= 0 {
		return DefaultSnapshotTTL
	}
	return c.SnapshotTTL
}

func (c *SessionConfig) GetMenuCacheTTL() time.Duration {
	if c.MenuCacheTTL <= 0 {
		return DefaultMenuCacheTTL
	}
	return c.MenuCacheTTL
}

func (c *SessionConfig) GetPermissionCacheTTL() time.Duration {
	if c.PermissionCacheTTL <= 0 {
		return DefaultPermissionCacheTTL
	}
	return c.PermissionCacheTTL
}

func (c *SessionConfig) GetAPIBaseURL() string {
	return c.APIBaseURL
}

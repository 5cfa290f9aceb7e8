package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Storage is the persistent key-value collaborator the session mirrors
// state into. Implementations may fail; callers treat failures as "absent"
// and log them, they never propagate.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// TokenProvider is the capability a request decorator needs from a
// session: the current raw bearer token, if any. Session implements it.
type TokenProvider interface {
	Token(ctx context.Context) (string, bool)
}

// Envelope is the response wrapper the remote API uses for every query.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// RemoteAPI is the opaque identity/RBAC/menu service. Implementations own
// transport, timeout, and retry policy; this layer only interprets the
// envelope.
type RemoteAPI interface {
	FetchUserMenus(ctx context.Context) (Envelope[[]MenuRecord], error)
	CheckPageAccess(ctx context.Context, pageName string) (Envelope[bool], error)
	CheckPermission(ctx context.Context, permissionName string) (Envelope[bool], error)
	FetchUserRoles(ctx context.Context) (Envelope[[]string], error)
	FetchUserPermissions(ctx context.Context) (Envelope[[]string], error)
	FetchUserDepartment(ctx context.Context) (Envelope[string], error)
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

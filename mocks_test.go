package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	session "github.com/goliatone/go-session"
)

// makeToken builds an unsigned-but-well-formed JWT from a literal payload
// so tests control claim order and expiry exactly.
func makeToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".c2ln"
}

// signedToken mints a real HS256 token for round-trip style tests.
func signedToken(claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}

func tokenWithExpiry(expiresAt time.Time) string {
	return makeToken(fmt.Sprintf(
		`{"sub":"11111111-2222-3333-4444-555555555555","email":"user@example.com","exp":%d}`,
		expiresAt.Unix(),
	))
}

// failingStorage simulates a broken persistence collaborator.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("storage offline")
}

func (failingStorage) Set(context.Context, string, string) error {
	return fmt.Errorf("storage offline")
}

func (failingStorage) Remove(context.Context, string) error {
	return fmt.Errorf("storage offline")
}

type logEntry struct {
	level  string
	format string
	args   []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, format: format, args: args})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.level == level && strings.Contains(entry.format, substr) {
			return true
		}
	}
	return false
}

// stubAPI is a configurable RemoteAPI with per-endpoint call counters.
type stubAPI struct {
	menus       []session.MenuRecord
	roles       []string
	permissions []string
	department  string
	pageAccess  map[string]bool
	permChecks  map[string]bool

	failAll     bool
	unsuccessok bool // respond success=false instead of transport error

	menuCalls atomic.Int64
	roleCalls atomic.Int64
	permCalls atomic.Int64
	deptCalls atomic.Int64
}

func envelopeOf[T any](data T) (session.Envelope[T], error) {
	return session.Envelope[T]{Success: true, Data: data}, nil
}

func (s *stubAPI) respond(calls *atomic.Int64) error {
	calls.Add(1)
	if s.failAll {
		return fmt.Errorf("transport down")
	}
	return nil
}

func (s *stubAPI) FetchUserMenus(context.Context) (session.Envelope[[]session.MenuRecord], error) {
	if err := s.respond(&s.menuCalls); err != nil {
		return session.Envelope[[]session.MenuRecord]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[[]session.MenuRecord]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.menus)
}

func (s *stubAPI) CheckPageAccess(_ context.Context, pageName string) (session.Envelope[bool], error) {
	if err := s.respond(&s.permCalls); err != nil {
		return session.Envelope[bool]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[bool]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.pageAccess[pageName])
}

func (s *stubAPI) CheckPermission(_ context.Context, permissionName string) (session.Envelope[bool], error) {
	if err := s.respond(&s.permCalls); err != nil {
		return session.Envelope[bool]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[bool]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.permChecks[permissionName])
}

func (s *stubAPI) FetchUserRoles(context.Context) (session.Envelope[[]string], error) {
	if err := s.respond(&s.roleCalls); err != nil {
		return session.Envelope[[]string]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[[]string]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.roles)
}

func (s *stubAPI) FetchUserPermissions(context.Context) (session.Envelope[[]string], error) {
	if err := s.respond(&s.permCalls); err != nil {
		return session.Envelope[[]string]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[[]string]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.permissions)
}

func (s *stubAPI) FetchUserDepartment(context.Context) (session.Envelope[string], error) {
	if err := s.respond(&s.deptCalls); err != nil {
		return session.Envelope[string]{}, err
	}
	if s.unsuccessok {
		return session.Envelope[string]{Success: false, Message: "denied"}, nil
	}
	return envelopeOf(s.department)
}

// storedJSON decodes a raw storage value for assertions.
func storedJSON[T any](raw string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}

package session

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Claim is a single decoded claim. Claims with array values (e.g. roles)
// expand into one Claim per element, preserving source order.
type Claim struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Claims is the decoded claim set of a bearer credential.
type Claims struct {
	ordered   []Claim
	expiresAt time.Time
}

// DecodeToken structurally decodes a bearer token into its claim set.
// No signature verification happens here; the token is trusted as issued
// and only its shape and expiry are inspected.
func DecodeToken(raw string) (*Claims, error) {
	parser := jwt.NewParser()

	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mapClaims); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode credential").
			WithTextCode(textCodeCredentialMalformed)
	}

	var expiresAt time.Time
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	ordered, err := orderedClaims(raw, parser)
	if err != nil {
		return nil, err
	}

	return &Claims{ordered: ordered, expiresAt: expiresAt}, nil
}

// Find returns the first claim with the given name in source order.
func (c *Claims) Find(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, claim := range c.ordered {
		if claim.Name == name {
			return claim.Value, true
		}
	}
	return "", false
}

// FindAll returns every value recorded under name, in source order.
func (c *Claims) FindAll(name string) []string {
	if c == nil {
		return nil
	}
	var values []string
	for _, claim := range c.ordered {
		if claim.Name == name {
			values = append(values, claim.Value)
		}
	}
	return values
}

// All returns a copy of the claim set in source order.
func (c *Claims) All() []Claim {
	if c == nil {
		return nil
	}
	out := make([]Claim, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ExpiresAt returns the expiry timestamp, zero when the token carries no
// exp claim.
func (c *Claims) ExpiresAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.expiresAt
}

// Expired reports whether the credential is no longer valid at now. A
// missing expiry claim counts as expired; an unverifiable lifetime is
// treated the same as an elapsed one.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil {
		return true
	}
	if c.expiresAt.IsZero() {
		return true
	}
	return !c.expiresAt.After(now)
}

// orderedClaims walks the payload segment with a streaming decoder.
// jwt.MapClaims would lose source order.
func orderedClaims(raw string, parser *jwt.Parser) ([]Claim, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, ErrCredentialMalformed
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode credential payload").
			WithTextCode(textCodeCredentialMalformed)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, ErrCredentialMalformed
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrCredentialMalformed
	}

	var claims []Claim
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, ErrCredentialMalformed
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, ErrCredentialMalformed
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, ErrCredentialMalformed
		}

		claims = append(claims, flattenClaim(name, value)...)
	}

	return claims, nil
}

func flattenClaim(name string, value any) []Claim {
	if items, ok := value.([]any); ok {
		claims := make([]Claim, 0, len(items))
		for _, item := range items {
			claims = append(claims, Claim{Name: name, Value: claimString(item)})
		}
		return claims
	}
	return []Claim{{Name: name, Value: claimString(value)}}
}

func claimString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

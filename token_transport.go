package session

import "net/http"

// AuthScheme is the bearer scheme attached to outbound requests.
const AuthScheme = "Bearer"

// BearerTransport decorates outbound requests with the session credential.
// It asks the TokenProvider immediately before each request, attaches the
// bearer header when a token is present, and observes 401 responses for
// diagnostics only; no retry or refresh happens here.
type BearerTransport struct {
	tokens TokenProvider
	base   http.RoundTripper
	logger Logger
}

var _ http.RoundTripper = (*BearerTransport)(nil)

// NewBearerTransport wraps base. A nil base uses http.DefaultTransport.
func NewBearerTransport(tokens TokenProvider, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &BearerTransport{
		tokens: tokens,
		base:   base,
		logger: defLogger{},
	}
}

func (t *BearerTransport) WithLogger(logger Logger) *BearerTransport {
	if logger != nil {
		t.logger = logger
	}
	return t
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token, ok := t.tokens.Token(req.Context()); ok {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", AuthScheme+" "+token)
	}

	res, err := t.base.RoundTrip(req)
	if err == nil && res.StatusCode == http.StatusUnauthorized {
		t.logger.Debug("outbound request unauthorized: %s %s", req.Method, req.URL.Path)
	}
	return res, err
}

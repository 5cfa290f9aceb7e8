package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// APIClient is the reference RemoteAPI implementation speaking the
// {success, data, message} envelope over HTTP. Transport policy (timeouts,
// retries) belongs to the injected http.Client; pair it with
// NewBearerTransport to attach the session credential.
type APIClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

var _ RemoteAPI = (*APIClient)(nil)

// NewAPIClient returns a client rooted at baseURL. A nil httpClient uses
// http.DefaultClient.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  defLogger{},
	}
}

func (c *APIClient) WithLogger(logger Logger) *APIClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *APIClient) FetchUserMenus(ctx context.Context) (Envelope[[]MenuRecord], error) {
	return getEnvelope[[]MenuRecord](ctx, c, "/user/menus", nil)
}

func (c *APIClient) CheckPageAccess(ctx context.Context, pageName string) (Envelope[bool], error) {
	return getEnvelope[bool](ctx, c, "/user/page-access", url.Values{"page": {pageName}})
}

func (c *APIClient) CheckPermission(ctx context.Context, permissionName string) (Envelope[bool], error) {
	return getEnvelope[bool](ctx, c, "/user/permission", url.Values{"name": {permissionName}})
}

func (c *APIClient) FetchUserRoles(ctx context.Context) (Envelope[[]string], error) {
	return getEnvelope[[]string](ctx, c, "/user/roles", nil)
}

func (c *APIClient) FetchUserPermissions(ctx context.Context) (Envelope[[]string], error) {
	return getEnvelope[[]string](ctx, c, "/user/permissions", nil)
}

func (c *APIClient) FetchUserDepartment(ctx context.Context) (Envelope[string], error) {
	return getEnvelope[string](ctx, c, "/user/department", nil)
}

func getEnvelope[T any](ctx context.Context, c *APIClient, path string, query url.Values) (Envelope[T], error) {
	var envelope Envelope[T]

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return envelope, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build api request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return envelope, goerrors.Wrap(err, goerrors.CategoryOperation, "api request failed").
			WithTextCode(textCodeRemoteUnavailable)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return envelope, goerrors.New(
			fmt.Sprintf("api responded %d for %s", res.StatusCode, path),
			goerrors.CategoryOperation,
		).WithTextCode(textCodeRemoteUnavailable)
	}

	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return envelope, goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode api envelope").
			WithTextCode(textCodeRemoteUnavailable)
	}

	return envelope, nil
}

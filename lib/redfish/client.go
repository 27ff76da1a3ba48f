// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/acmlab/bmcfleet/lib/clock"
	"github.com/acmlab/bmcfleet/lib/credential"
	"github.com/acmlab/bmcfleet/lib/netutil"
	"github.com/acmlab/bmcfleet/lib/version"
)

// discoveryPath is the unauthenticated protocol discovery resource.
const discoveryPath = "/redfish"

// DefaultRetryDelay is the wait before the single retry of a request
// that failed with a retryable message id.
const DefaultRetryDelay = 5 * time.Second

// DefaultProtectedAccount is the account DeleteAccount refuses to
// remove.
const DefaultProtectedAccount = "root"

// Config holds configuration for Connect.
type Config struct {
	// Endpoint is the BMC base URL (e.g. "https://10.1.2.3").
	Endpoint string
	// Login is the account used to open the session. The password is
	// borrowed, not closed, by the client.
	Login credential.Credential
	// HTTPClient is used for all requests. If nil,
	// netutil.NewHTTPClient(false, 0) is used: BMCs ship self-signed
	// certificates.
	HTTPClient *http.Client
	// Clock drives retry delays and cache timestamps. If nil,
	// clock.Real() is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
	// RetryDelay is the wait before retrying a "not ready" failure.
	// Zero means DefaultRetryDelay.
	RetryDelay time.Duration
	// RetryableMessageIDs lists message keys (see MessageKey) that
	// trigger the single retry. Nil means DefaultRetryableMessageIDs.
	RetryableMessageIDs []string
	// ProtectedAccount is never deleted by DeleteAccount. Empty means
	// DefaultProtectedAccount.
	ProtectedAccount string
	// AccountScan selects the empty-slot search strategy.
	AccountScan AccountScan
}

// Client is a session-authenticated connection to one BMC. A Client is
// safe for concurrent use, but the fleet orchestrator gives every
// machine its own.
type Client struct {
	baseURL    string
	rootPath   string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	cache      *Cache

	retryDelay       time.Duration
	retryable        []string
	protectedAccount string
	accountScan      AccountScan

	serviceRoot Resource

	mu        sync.Mutex
	token     *credential.Secret
	sessionID string
	systemID  string
	managerID string
}

// Connect discovers the versioned root, fetches the service root, and
// opens a session. Any failure is returned as a *ConnectionError and no
// client is returned.
func Connect(ctx context.Context, config Config) (*Client, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, &ConnectionError{Endpoint: config.Endpoint, Step: "configuration", Err: err}
	}

	discovery, err := client.getJSON(ctx, discoveryPath, false)
	if err != nil {
		return nil, &ConnectionError{Endpoint: client.baseURL, Step: "discovery", Err: err}
	}
	versionRoot := discovery.String("v1")
	if versionRoot == "" {
		return nil, &ConnectionError{Endpoint: client.baseURL, Step: "discovery",
			Err: fmt.Errorf("%w: %s has no v1 root", ErrUnrecognized, discoveryPath)}
	}
	client.rootPath = cleanPath(versionRoot)

	serviceRoot, err := client.getJSON(ctx, client.rootPath, false)
	if err != nil {
		return nil, &ConnectionError{Endpoint: client.baseURL, Step: "service root", Err: err}
	}
	client.serviceRoot = serviceRoot
	client.cache.Put(client.rootPath, serviceRoot)

	if err := client.login(ctx, config.Login); err != nil {
		return nil, &ConnectionError{Endpoint: client.baseURL, Step: "login", Err: err}
	}

	client.logger.Debug("redfish session opened",
		"endpoint", client.baseURL,
		"root", client.rootPath,
		"session", client.sessionID,
	)
	return client, nil
}

func newClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", config.Endpoint, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient(false, 0)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryDelay := config.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	retryableIDs := config.RetryableMessageIDs
	if retryableIDs == nil {
		retryableIDs = DefaultRetryableMessageIDs
	}
	retryable := make([]string, len(retryableIDs))
	for i, id := range retryableIDs {
		retryable[i] = MessageKey(id)
	}
	protected := config.ProtectedAccount
	if protected == "" {
		protected = DefaultProtectedAccount
	}

	return &Client{
		baseURL:          strings.TrimRight(config.Endpoint, "/"),
		httpClient:       httpClient,
		clock:            clk,
		logger:           logger,
		cache:            NewCache(clk),
		retryDelay:       retryDelay,
		retryable:        retryable,
		protectedAccount: protected,
		accountScan:      config.AccountScan,
	}, nil
}

// login opens the session. Token and session id come from response
// headers; the body is ignored.
func (c *Client) login(ctx context.Context, login credential.Credential) error {
	if login.Username == "" || login.Password == nil {
		return fmt.Errorf("username and password are required")
	}

	sessionsPath := c.serviceRoot.Link("Links", "Sessions")
	if sessionsPath == "" {
		if sessionService := c.serviceRoot.Link("SessionService"); sessionService != "" {
			sessionsPath = sessionService + "/Sessions"
		} else {
			sessionsPath = c.rootPath + "/SessionService/Sessions"
		}
	}

	// Password is converted to string at the JSON serialization boundary.
	body := map[string]string{
		"UserName": login.Username,
		"Password": login.Password.String(),
	}
	reply, err := c.request(ctx, http.MethodPost, cleanPath(sessionsPath), body, false)
	if err != nil {
		return err
	}

	token := reply.header.Get("X-Auth-Token")
	if token == "" {
		return &RequestError{Method: http.MethodPost, Path: sessionsPath, StatusCode: reply.status,
			Message: "session response carried no X-Auth-Token header"}
	}
	secret, err := credential.NewSecretFromString(token)
	if err != nil {
		return fmt.Errorf("protecting session token: %w", err)
	}

	c.mu.Lock()
	c.token = secret
	c.sessionID = cleanPath(pathOf(reply.header.Get("Location")))
	c.mu.Unlock()

	c.logger.Debug("logged in to BMC", "endpoint", c.baseURL, "user", login.Username)
	return nil
}

// Close deletes the session and releases the token. Failures are
// logged and otherwise ignored: a session the BMC fails to delete
// expires on its own, and teardown must not mask the outcome of the
// work that preceded it. Idempotent.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	sessionID := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if token == nil {
		return
	}
	if sessionID != "" {
		if _, err := c.do(ctx, http.MethodDelete, sessionID, nil, true); err != nil {
			c.logger.Warn("closing BMC session failed", "endpoint", c.baseURL, "session", sessionID, "error", err)
		}
	}

	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	if err := token.Close(); err != nil {
		c.logger.Warn("releasing session token failed", "error", err)
	}
}

// Endpoint returns the BMC base URL.
func (c *Client) Endpoint() string { return c.baseURL }

// Root returns the versioned root path (e.g. "/redfish/v1").
func (c *Client) Root() string { return c.rootPath }

// Cache exposes the client's resource cache.
func (c *Client) Cache() *Cache { return c.cache }

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Get returns the resource at id, from the cache when present.
func (c *Client) Get(ctx context.Context, id string) (Resource, error) {
	path := c.resolve(id)
	if resource, ok := c.cache.Get(path); ok {
		return resource, nil
	}
	resource, err := c.getJSON(ctx, path, true)
	if err != nil {
		return nil, err
	}
	c.cache.Put(path, resource)
	return resource, nil
}

// GetUncached fetches id from the BMC, bypassing the cache and dropping
// any stale cached copy. Use it for volatile state.
func (c *Client) GetUncached(ctx context.Context, id string) (Resource, error) {
	path := c.resolve(id)
	c.cache.Invalidate(path)
	return c.getJSON(ctx, path, true)
}

// Update applies a partial update (PATCH) to id. The BMC merges; the
// client only invalidates its cached copy.
func (c *Client) Update(ctx context.Context, id string, partial any) error {
	path := c.resolve(id)
	_, err := c.request(ctx, http.MethodPatch, path, partial, true)
	c.cache.Invalidate(path)
	return err
}

// Delete removes id.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := c.resolve(id)
	_, err := c.request(ctx, http.MethodDelete, path, nil, true)
	c.cache.Invalidate(path)
	return err
}

// StartTask POSTs body to target and returns the job id from the
// response's Location header. The body of the response is ignored; it
// is often empty.
func (c *Client) StartTask(ctx context.Context, target string, body any) (string, error) {
	path := c.resolve(target)
	reply, err := c.request(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return "", err
	}
	location := pathOf(reply.header.Get("Location"))
	if location == "" {
		return "", &RequestError{Method: http.MethodPost, Path: path, StatusCode: reply.status,
			Message: "task submission returned no Location header"}
	}
	jobID := cleanPath(location)
	c.logger.Debug("task submitted", "target", path, "job", jobID)
	return jobID, nil
}

// GetTask fetches a job or task resource. Job state is always
// volatile, so this never uses the cache.
func (c *Client) GetTask(ctx context.Context, id string) (Resource, error) {
	return c.GetUncached(ctx, id)
}

// PerformAction POSTs body to an action target that completes
// synchronously and returns the decoded response body, which is empty
// for most actions.
func (c *Client) PerformAction(ctx context.Context, target string, body any) (Resource, error) {
	path := c.resolve(target)
	reply, err := c.request(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return nil, err
	}
	if document, ok := decodeObject(reply.body); ok {
		return document, nil
	}
	return Resource{}, nil
}

// reply is a successful HTTP exchange.
type reply struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, path string, authenticated bool) (Resource, error) {
	response, err := c.request(ctx, http.MethodGet, path, nil, authenticated)
	if err != nil {
		return nil, err
	}
	document, ok := decodeObject(response.body)
	if !ok {
		return nil, &RequestError{Method: http.MethodGet, Path: path, StatusCode: response.status,
			Message: "response body is not a JSON object"}
	}
	return document, nil
}

// request performs a call, retrying exactly once when the failure
// carries a retryable message id. The handshake calls are made before
// a session exists and pass authenticated=false.
func (c *Client) request(ctx context.Context, method, path string, body any, authenticated bool) (*reply, error) {
	response, err := c.do(ctx, method, path, body, authenticated)
	if err == nil || !c.isRetryable(err) {
		return response, err
	}

	c.logger.Warn("BMC not ready, retrying once",
		"endpoint", c.baseURL,
		"method", method,
		"path", path,
		"message_id", MessageIDOf(err),
		"delay", c.retryDelay,
	)
	if waitErr := clock.Wait(ctx, c.clock, c.retryDelay); waitErr != nil {
		return nil, fmt.Errorf("redfish: waiting to retry %s %s: %w", method, path, waitErr)
	}
	return c.do(ctx, method, path, body, authenticated)
}

func (c *Client) isRetryable(err error) bool {
	return IsRetryable(err, c.retryable)
}

// do performs one HTTP exchange and applies the success rules: 2xx
// other than 200 succeeds without inspection; 200 fails if the body is
// a JSON object with an "error" key; everything else fails.
func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (*reply, error) {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("redfish: encoding %s %s body: %w", method, path, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("redfish: creating %s %s request: %w", method, path, err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token != nil {
			request.Header.Set("X-Auth-Token", token.String())
		}
	}

	c.logger.Debug("redfish request", "method", method, "url", c.baseURL+path)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("redfish: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("redfish: reading %s %s response: %w", method, path, err)
	}

	status := response.StatusCode
	if status/100 == 2 && status != http.StatusOK {
		return &reply{status: status, header: response.Header, body: responseBody}, nil
	}
	if status == http.StatusOK {
		document, isObject := decodeObject(responseBody)
		if _, hasError := document["error"]; !isObject || !hasError {
			return &reply{status: status, header: response.Header, body: responseBody}, nil
		}
	}
	return nil, parseRequestError(method, path, status, responseBody)
}

// resolve turns a resource id into an absolute request path. Paths
// starting with "/" are relative to the endpoint; other ids are
// relative to the versioned root; "" is the root itself.
func (c *Client) resolve(id string) string {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return c.rootPath
	case strings.HasPrefix(id, "/"):
		return cleanPath(id)
	default:
		return cleanPath(c.rootPath + "/" + id)
	}
}

// cleanPath strips trailing slashes, keeping "/" itself.
func cleanPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" && path != "" {
		return "/"
	}
	return trimmed
}

// Package apisvc is the HTTP client of the LMS REST API.
package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/session"
)

// ErrSessionExpired is returned when the access token could not be refreshed.
// The session has been cleared: the user must sign in again.
var ErrSessionExpired = errors.New("session expired, please sign in again")

const (
	lmsPath     = "lms/"
	refreshPath = "auth/refresh/"
)

type Client struct {
	base    *url.URL
	http    *http.Client
	session *session.Store
	logger  core.Logger

	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client of the API rooted at `baseURL`, authenticated by `sess`.
func New(baseURL string, sess *session.Store, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing API base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, core.NewArgumentError(fmt.Sprintf("invalid API base URL %q", baseURL))
	}
	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: 30 * time.Second},
		session: sess,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig returns a client configured by `conf`.
func NewFromConfig(conf *core.Config, sess *session.Store, logger core.Logger) (*Client, error) {
	return New(conf.API.BaseURL, sess, WithTimeout(conf.API.Timeout), WithLogger(logger))
}

func (c *Client) Session() *session.Store { return c.session }

// request is rebuilt from scratch for every attempt, so that its body can be re-sent.
type request struct {
	method string
	path   string
	query  url.Values
	body   func() (io.Reader, string, error) // reader, content type
	noAuth bool
	// retried is set once the request was re-sent after a token refresh.
	retried bool
}

func jsonBody(v interface{}) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", errors.Wrap(err, "encoding request body")
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func (c *Client) newHTTPRequest(ctx context.Context, req *request) (*http.Request, string, error) {
	u, err := c.base.Parse(req.path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "resolving %s", req.path)
	}
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if req.body != nil {
		if body, contentType, err = req.body(); err != nil {
			return nil, "", err
		}
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, "", errors.Wrap(err, "building request")
	}
	hreq.Header.Set("Accept", "application/json")
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}

	var token string
	if !req.noAuth && c.session != nil {
		if token = c.session.Token(); token != "" {
			hreq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return hreq, token, nil
}

func (c *Client) send(ctx context.Context, req *request) (*http.Response, string, error) {
	hreq, token, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, "", errors.Wrapf(err, "%s %s", req.method, req.path)
	}
	return resp, token, nil
}

// do sends `req` and decodes the response into `out` (if not nil).
// A 401 is answered once by refreshing the access token and re-sending the request.
func (c *Client) do(ctx context.Context, req *request, out interface{}) error {
	resp, token, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.noAuth && !req.retried {
		drain(resp)
		req.retried = true
		if err := c.refresh(ctx, token); err != nil {
			return err
		}
		if resp, _, err = c.send(ctx, req); err != nil {
			return err
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", req.method, req.path)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &core.APIError{Status: resp.StatusCode, Body: string(data)}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return apiErr
	}
	for key, raw := range fields {
		var (
			s  string
			ss []string
		)
		switch {
		case json.Unmarshal(raw, &s) == nil:
			if key == "detail" {
				apiErr.Detail = s
				continue
			}
			ss = []string{s}
		case json.Unmarshal(raw, &ss) == nil:
		default:
			continue
		}
		if key == "non_field_errors" && apiErr.Detail == "" && len(ss) > 0 {
			apiErr.Detail = ss[0]
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[key] = ss
	}
	return apiErr
}

// RefreshSession exchanges the refresh token for a new access token.
// On failure the session is cleared and ErrSessionExpired is returned.
func (c *Client) RefreshSession(ctx context.Context) error {
	return c.refresh(ctx, "")
}

// refresh is a no-op when the access token is no longer `stale`, ie. another request refreshed it.
func (c *Client) refresh(ctx context.Context, stale string) error {
	if c.session == nil {
		return ErrSessionExpired
	}
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if stale != "" {
		if current := c.session.Token(); current != "" && current != stale {
			return nil
		}
	}

	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		c.clearSession(ctx)
		return ErrSessionExpired
	}

	var body struct {
		Access string `json:"access"`
	}
	req := &request{
		method: http.MethodPost,
		path:   refreshPath,
		body:   jsonBody(map[string]string{"refresh": refreshToken}),
		noAuth: true,
	}
	if err := c.do(ctx, req, &body); err != nil || body.Access == "" {
		if err == nil {
			err = errors.New("empty access token")
		}
		c.clearSession(ctx)
		return errors.Wrapf(ErrSessionExpired, "refreshing token: %v", err)
	}
	return errors.Wrap(c.session.SetToken(ctx, body.Access), "storing refreshed token")
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil && c.logger != nil {
		c.logger.Error("clearing session failed", err)
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, &request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, &request{method: http.MethodPost, path: path, body: jsonBody(in)}, out)
}

func (c *Client) put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, &request{method: http.MethodPut, path: path, body: jsonBody(in)}, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, &request{method: http.MethodPatch, path: path, body: jsonBody(in)}, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, &request{method: http.MethodDelete, path: path}, nil)
}

func resourcePath(resource string, id ...int) string {
	if len(id) > 0 {
		return fmt.Sprintf("%s%s/%d/", lmsPath, resource, id[0])
	}
	return lmsPath + resource + "/"
}

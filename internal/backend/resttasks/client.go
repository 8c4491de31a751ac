// Package resttasks implements the service.Gateway interface against
// the REST task backend.
package resttasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"todosync/internal/config"
	"todosync/internal/identity"
	"todosync/internal/service"
)

const (
	// APITimeout is the per-request deadline.
	APITimeout = 30 * time.Second

	// tasksPath is the collection endpoint, relative to the base URL.
	tasksPath = "/tasks"
)

// Client implements service.Gateway over HTTP. Every request carries
// the raw identity token in the Authorization header; the backend
// expects it without a Bearer prefix.
type Client struct {
	baseURL    string
	session    identity.Session
	httpClient *http.Client
}

// New creates a REST gateway from config. Requires api.base_url to be
// configured.
func New(cfg *config.Config, session identity.Session) (*Client, error) {
	base := cfg.Settings.API.BaseURL
	if base == "" {
		return nil, fmt.Errorf("api base URL not configured (set api.base_url in %s or TODOSYNC_API_URL)", cfg.SettingsPath())
	}
	return &Client{
		baseURL:    base,
		session:    session,
		httpClient: &http.Client{Timeout: APITimeout},
	}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, session identity.Session, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, session: session, httpClient: httpClient}
}

// ListTasks implements service.Gateway.
func (c *Client) ListTasks(ctx context.Context, opts service.ListOptions) ([]service.Task, error) {
	query := url.Values{}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	} else if opts.Completed != nil {
		query.Set("completed", strconv.FormatBool(*opts.Completed))
	}

	var wire []taskJSON
	if err := c.do(ctx, http.MethodGet, tasksPath, query, nil, &wire); err != nil {
		return nil, err
	}

	tasks := make([]service.Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, w.toDomain())
	}
	return tasks, nil
}

// GetTask implements service.Gateway.
func (c *Client) GetTask(ctx context.Context, id string) (service.Task, error) {
	var wire taskJSON
	if err := c.do(ctx, http.MethodGet, tasksPath+"/"+url.PathEscape(id), nil, nil, &wire); err != nil {
		return service.Task{}, err
	}
	return wire.toDomain(), nil
}

// CreateTask implements service.Gateway.
func (c *Client) CreateTask(ctx context.Context, t service.Task) (service.Task, error) {
	var wire taskJSON
	if err := c.do(ctx, http.MethodPost, tasksPath, nil, fromDomain(t), &wire); err != nil {
		return service.Task{}, err
	}
	return wire.toDomain(), nil
}

// UpdateTask implements service.Gateway. Sends the full representation
// so server-held fields survive the write.
func (c *Client) UpdateTask(ctx context.Context, t service.Task) (service.Task, error) {
	if t.ID == "" {
		return service.Task{}, service.Errf(service.KindValidation, "task id required")
	}
	var wire taskJSON
	if err := c.do(ctx, http.MethodPut, tasksPath+"/"+url.PathEscape(t.ID), nil, fromDomain(t), &wire); err != nil {
		return service.Task{}, err
	}
	return wire.toDomain(), nil
}

// DeleteTask implements service.Gateway.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, tasksPath+"/"+url.PathEscape(id), nil, nil, nil)
}

// do runs one request: attach token, send, classify failures, decode
// the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	token, err := c.session.Token(ctx, false)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return service.WrapErr(service.KindValidation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return service.WrapErr(service.KindValidation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &service.Error{Kind: service.KindServer, Status: resp.StatusCode, Message: "malformed response body", Err: err}
		}
	}
	return nil
}

// classifyTransport maps a transport-level failure onto the error
// taxonomy: deadline problems are timeouts, everything else means no
// response reached the service.
func classifyTransport(err error) error {
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		return service.WrapErr(service.KindTimeout, err)
	}
	if ctxErr := context.DeadlineExceeded; err == ctxErr {
		return service.WrapErr(service.KindTimeout, err)
	}
	return service.WrapErr(service.KindNetwork, err)
}

// classifyStatus maps a non-2xx response onto the error taxonomy,
// carrying the server-supplied detail when the body has one.
func classifyStatus(resp *http.Response) error {
	detail := serverDetail(resp.Body)

	kind := service.KindClient
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = service.KindUnauthorized
	case resp.StatusCode >= 500:
		kind = service.KindServer
	}

	msg := detail
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &service.Error{Kind: kind, Status: resp.StatusCode, Message: msg}
}

// serverDetail extracts the error message from a response body of the
// form {"message": ...} or {"error": ...}.
func serverDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// Package googletasks implements the service.Gateway interface using
// the Google Tasks API. Selected with `backend: google` in config; the
// synchronizer is unaware of which backend it talks to.
package googletasks

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/view"
)

const (
	// DefaultListID is the special ID for the default list. All tasks
	// live in the default list; this client does not manage lists.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 30 * time.Second

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.Gateway using Google Tasks.
type Client struct {
	svc     *tasks.Service
	ownerID string
}

// New creates a Google Tasks gateway. Credentials come from the
// session; each API call uses the session's current token.
func New(ctx context.Context, session identity.Session) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, sessionTokenSource{ctx: ctx, session: session})
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, service.WrapErr(service.KindUnknown, err)
	}

	c := &Client{svc: svc}
	if ident := session.Current(); ident != nil {
		c.ownerID = ident.ID
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, ownerID string, httpClient *http.Client) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, ownerID: ownerID}, nil
}

// sessionTokenSource adapts identity.Session to oauth2.TokenSource so
// token refresh stays the session's responsibility.
type sessionTokenSource struct {
	ctx     context.Context
	session identity.Session
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	raw, err := s.session.Token(s.ctx, false)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: raw}, nil
}

// ListTasks implements service.Gateway. The API has no search, so the
// search and completion filters are applied client-side after the
// fetch.
func (c *Client) ListTasks(ctx context.Context, opts service.ListOptions) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.Task
	err := c.svc.Tasks.List(DefaultListID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, c.toDomain(t))
			}
			return nil
		})
	if err != nil {
		return nil, classify(err)
	}

	if opts.Completed != nil {
		var kept []service.Task
		for _, t := range result {
			if t.Completed == *opts.Completed {
				kept = append(kept, t)
			}
		}
		result = kept
	}
	return view.Filter(result, opts.Search), nil
}

// GetTask implements service.Gateway.
func (c *Client) GetTask(ctx context.Context, id string) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	t, err := c.svc.Tasks.Get(DefaultListID, id).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(err)
	}
	return c.toDomain(t), nil
}

// CreateTask implements service.Gateway.
func (c *Client) CreateTask(ctx context.Context, t service.Task) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(DefaultListID, fromDomain(t)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(err)
	}
	return c.toDomain(created), nil
}

// UpdateTask implements service.Gateway.
func (c *Client) UpdateTask(ctx context.Context, t service.Task) (service.Task, error) {
	if t.ID == "" {
		return service.Task{}, service.Errf(service.KindValidation, "task id required")
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	updated, err := c.svc.Tasks.Update(DefaultListID, t.ID, fromDomain(t)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(err)
	}
	return c.toDomain(updated), nil
}

// DeleteTask implements service.Gateway.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(DefaultListID, id).Context(ctx).Do(); err != nil {
		return classify(err)
	}
	return nil
}

// toDomain maps an API task into canonical shape. Notes carry the
// description; the API exposes no creation time, so Updated stands in
// for CreatedAt when present.
func (c *Client) toDomain(t *tasks.Task) service.Task {
	out := service.Task{
		ID:          t.Id,
		OwnerID:     c.ownerID,
		Title:       t.Title,
		Description: t.Notes,
		Completed:   t.Status == statusCompleted,
	}
	if ts := parseTime(t.Updated); ts != nil {
		out.CreatedAt = *ts
		out.UpdatedAt = ts
	} else {
		out.CreatedAt = time.Now()
	}
	if t.Completed != nil {
		out.CompletedAt = parseTime(*t.Completed)
	}
	return out
}

func fromDomain(t service.Task) *tasks.Task {
	status := statusNeedsAction
	if t.Completed {
		status = statusCompleted
	}
	return &tasks.Task{
		Id:     t.ID,
		Title:  t.Title,
		Notes:  t.Description,
		Status: status,
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &ts
}

// classify maps API errors onto the error taxonomy using the
// structured googleapi error, never message text.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		kind := service.KindClient
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			kind = service.KindUnauthorized
		case apiErr.Code >= 500:
			kind = service.KindServer
		}
		return &service.Error{Kind: kind, Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.WrapErr(service.KindTimeout, err)
	}
	// Session errors pass through already classified.
	if service.KindOf(err) != service.KindUnknown {
		return err
	}
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		return service.WrapErr(service.KindTimeout, err)
	}
	return service.WrapErr(service.KindNetwork, err)
}

package resttasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := testutil.NewFakeSession(&identity.Identity{ID: "alice"}, "tok-123")
	return NewWithHTTPClient(srv.URL, sess, srv.Client())
}

func TestRawTokenAuthorization(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "[]")
	})

	if _, err := client.ListTasks(context.Background(), service.ListOptions{}); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	// The backend expects the bare token, no Bearer prefix.
	if gotAuth != "tok-123" {
		t.Errorf("expected Authorization %q, got %q", "tok-123", gotAuth)
	}
}

func TestListTasksQuery(t *testing.T) {
	done := true
	cases := []struct {
		name string
		opts service.ListOptions
		want string
	}{
		{"no filters", service.ListOptions{}, ""},
		{"search", service.ListOptions{Search: "milk"}, "search=milk"},
		{"completed", service.ListOptions{Completed: &done}, "completed=true"},
		{"search wins over completed", service.ListOptions{Search: "milk", Completed: &done}, "search=milk"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotQuery string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				fmt.Fprint(w, "[]")
			})

			if _, err := client.ListTasks(context.Background(), tc.opts); err != nil {
				t.Fatal(err)
			}
			if gotQuery != tc.want {
				t.Errorf("expected query %q, got %q", tc.want, gotQuery)
			}
		})
	}
}

func TestListTasksWireMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[
			{"id": 7, "userId": "alice", "title": "Buy milk", "description": "2%", "completed": false, "createdAt": "2025-01-01T10:00:00Z"},
			{"id": "abc", "userId": "alice", "title": "Done one", "description": "d", "completed": true, "createdAt": "2025-01-02T10:00:00Z", "completedAt": "2025-01-03T10:00:00Z"}
		]`)
	})

	tasks, err := client.ListTasks(context.Background(), service.ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	first := tasks[0]
	if first.ID != "7" {
		t.Errorf("numeric wire id must map to string %q, got %q", "7", first.ID)
	}
	if first.OwnerID != "alice" || first.Title != "Buy milk" || first.Description != "2%" {
		t.Errorf("unexpected mapping: %+v", first)
	}
	if want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC); !first.CreatedAt.Equal(want) {
		t.Errorf("expected createdAt %v, got %v", want, first.CreatedAt)
	}

	second := tasks[1]
	if second.ID != "abc" || !second.Completed {
		t.Errorf("unexpected mapping: %+v", second)
	}
	if second.CompletedAt == nil {
		t.Error("expected completedAt mapped")
	}
}

func TestCreateTaskBody(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, `{"id": 42, "userId": "alice", "title": "Buy milk", "description": "2%", "completed": false, "createdAt": "2025-01-01T10:00:00Z"}`)
	})

	created, err := client.CreateTask(context.Background(), service.Task{
		OwnerID:     "alice",
		Title:       "Buy milk",
		Description: "2%",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// No client-assigned id on the wire.
	if id, present := gotBody["id"]; present && id != nil {
		t.Errorf("create must not send an id, got %v", id)
	}
	if gotBody["title"] != "Buy milk" || gotBody["description"] != "2%" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	if created.ID != "42" {
		t.Errorf("expected server-assigned id 42, got %q", created.ID)
	}
}

func TestUpdateTaskRoundTripsNumericID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, `{"id": 7, "title": "t", "description": "d", "completed": true, "createdAt": "2025-01-01T10:00:00Z"}`)
	})

	_, err := client.UpdateTask(context.Background(), service.Task{
		ID:        "7",
		Title:     "t",
		Completed: true,
		CreatedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if gotPath != "/tasks/7" {
		t.Errorf("expected path /tasks/7, got %s", gotPath)
	}
	// A numeric id goes back on the wire as a JSON number.
	if id, ok := gotBody["id"].(float64); !ok || id != 7 {
		t.Errorf("expected numeric wire id 7, got %v", gotBody["id"])
	}
}

func TestUpdateTaskRequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.UpdateTask(context.Background(), service.Task{Title: "t"})
	if service.KindOf(err) != service.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteTask(context.Background(), "9"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/tasks/9" {
		t.Errorf("expected DELETE /tasks/9, got %s %s", gotMethod, gotPath)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   service.ErrorKind
		msg    string
	}{
		{http.StatusUnauthorized, `{"message": "token expired"}`, service.KindUnauthorized, "token expired"},
		{http.StatusNotFound, `{"error": "no such task"}`, service.KindClient, "no such task"},
		{http.StatusBadRequest, "", service.KindClient, "Bad Request"},
		{http.StatusInternalServerError, `{"message": "db down"}`, service.KindServer, "db down"},
		{http.StatusBadGateway, "not json", service.KindServer, "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := client.ListTasks(context.Background(), service.ListOptions{})
			var svcErr *service.Error
			if !errors.As(err, &svcErr) {
				t.Fatalf("expected classified error, got %v", err)
			}
			if svcErr.Kind != tc.kind {
				t.Errorf("expected kind %v, got %v", tc.kind, svcErr.Kind)
			}
			if svcErr.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, svcErr.Status)
			}
			if svcErr.Message != tc.msg {
				t.Errorf("expected message %q, got %q", tc.msg, svcErr.Message)
			}
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	sess := testutil.NewFakeSession(&identity.Identity{ID: "alice"}, "tok")
	client := NewWithHTTPClient(srv.URL, sess, http.DefaultClient)

	_, err := client.ListTasks(context.Background(), service.ListOptions{})
	if service.KindOf(err) != service.KindNetwork {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestTokenFailureShortCircuits(t *testing.T) {
	requested := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	t.Cleanup(srv.Close)
	sess := testutil.NewFakeSession(nil, "")
	client := NewWithHTTPClient(srv.URL, sess, srv.Client())

	_, err := client.ListTasks(context.Background(), service.ListOptions{})
	if service.KindOf(err) != service.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if requested {
		t.Error("no request must be sent without a token")
	}
}

func TestMalformedResponseBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	})

	_, err := client.ListTasks(context.Background(), service.ListOptions{})
	if service.KindOf(err) != service.KindServer {
		t.Errorf("expected server error for malformed body, got %v", err)
	}
}

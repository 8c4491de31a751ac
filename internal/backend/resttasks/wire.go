package resttasks

import (
	"encoding/json"
	"fmt"
	"time"

	"todosync/internal/service"
)

// taskJSON is the wire representation of a task. The reference backend
// issues numeric ids and RFC3339 timestamps; the mapping to the domain
// type is total and lossless in both directions.
type taskJSON struct {
	ID          flexID     `json:"id,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (w taskJSON) toDomain() service.Task {
	t := service.Task{
		ID:          string(w.ID),
		OwnerID:     w.UserID,
		Title:       w.Title,
		Description: w.Description,
		Completed:   w.Completed,
		UpdatedAt:   w.UpdatedAt,
		CompletedAt: w.CompletedAt,
	}
	if w.CreatedAt != nil {
		t.CreatedAt = *w.CreatedAt
	} else {
		// Placeholder until the remote copy supplies one.
		t.CreatedAt = time.Now()
	}
	return t
}

func fromDomain(t service.Task) taskJSON {
	w := taskJSON{
		ID:          flexID(t.ID),
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		w.CreatedAt = &created
	}
	return w
}

// flexID is a task identifier that accepts both JSON strings and
// numbers on decode and round-trips numeric ids back as numbers.
type flexID string

func (f flexID) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	if isDigits(string(f)) {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id %s: %w", data, err)
	}
	*f = flexID(n.String())
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

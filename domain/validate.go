package domain

import (
	"fmt"
	"strings"
)

// ValidateKey rejects characters Azure Table Storage does not allow in
// partition or row keys.
func ValidateKey(key string) error {
	if strings.ContainsAny(key, "/\\#?") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// PrepareTasks checks tasks submitted for saving and returns them with
// canonical statuses. An empty status becomes Pending. Ids must be valid
// keys and unique within the list; tasks without an id are given one by
// the store.
func PrepareTasks(tasks []Task) ([]Task, error) {
	out := make([]Task, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t.ID != "" {
			if err := ValidateKey(t.ID); err != nil {
				return nil, fmt.Errorf("%w: task %d: %w", ErrInvalidTask, i, err)
			}
			if _, dup := seen[t.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTask, t.ID)
			}
			seen[t.ID] = struct{}{}
		}
		switch st, ok := ParseStatus(string(t.Status)); {
		case t.Status == "":
			t.Status = StatusPending
		case !ok:
			return nil, fmt.Errorf("%w: task %q: %w: %q", ErrInvalidTask, t.ID, ErrInvalidStatus, t.Status)
		default:
			t.Status = st
		}
		if t.Assignee == "" {
			t.Assignee = Unassigned
		}
		out[i] = t
	}
	return out, nil
}

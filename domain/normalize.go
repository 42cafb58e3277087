package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// GeneratedIDPrefix starts identifiers synthesized for generated tasks.
	GeneratedIDPrefix = "AI"
	// PlaceholderDueDate is given to every generated task.
	PlaceholderDueDate = "2025-12-25"
)

// categoryKeys are the keys a generated record may carry its category under,
// in lookup order. "category" is the canonical name.
var categoryKeys = []string{"category", "type", "taskType"}

// RawTask is a loosely typed task record as returned by the generation gateway.
type RawTask map[string]any

// ParseGenerated decodes the gateway text payload. Both a bare array and an
// object with a "tasks" array are accepted. Anything unparseable yields no
// tasks; elements that are not objects are dropped.
func ParseGenerated(payload string) []RawTask {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return []RawTask{}
	}
	var decoded any
	if err := sonic.UnmarshalString(payload, &decoded); err != nil {
		return []RawTask{}
	}
	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["tasks"].([]any)
	}
	out := make([]RawTask, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, RawTask(m))
		}
	}
	return out
}

// Normalize turns raw records into tasks. Missing ids, and ids that repeat
// an earlier one or are not valid store keys, become
// "AI-<unix millis>-<index>". Missing categories default to Backend and
// missing priorities to Medium. Known values are canonicalised, unknown ones
// kept verbatim. Assignee, status and due date are never read from raw.
func Normalize(raw []RawTask, assign func(Category) Assignee, now time.Time) []Task {
	tasks := make([]Task, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		t := Task{
			ID:       r.str("id"),
			Name:     r.str("name"),
			Category: normalizeCategory(r.str(categoryKeys...)),
			Priority: normalizePriority(r.str("priority")),
			Status:   StatusPending,
			DueDate:  PlaceholderDueDate,
		}
		if _, dup := seen[t.ID]; t.ID == "" || dup || ValidateKey(t.ID) != nil {
			t.ID = fmt.Sprintf("%s-%d-%d", GeneratedIDPrefix, now.UnixMilli(), i)
			for n := 1; ; n++ {
				if _, dup := seen[t.ID]; !dup {
					break
				}
				t.ID = fmt.Sprintf("%s-%d-%d-%d", GeneratedIDPrefix, now.UnixMilli(), i, n)
			}
		}
		seen[t.ID] = struct{}{}
		t.Assignee = Unassigned
		if assign != nil {
			t.Assignee = assign(t.Category)
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func normalizeCategory(s string) Category {
	if s == "" {
		return CategoryBackend
	}
	if c, ok := ParseCategory(s); ok {
		return c
	}
	if r, ok := ParseRole(s); ok {
		return Category(r)
	}
	return Category(s)
}

func normalizePriority(s string) Priority {
	if s == "" {
		return PriorityMedium
	}
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return Priority(s)
}

// str returns the first non-empty value stored under keys. Strings are
// trimmed and numbers formatted; other types are ignored.
func (r RawTask) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

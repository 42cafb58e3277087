package domain

import "strings"

// Category is the discipline a task belongs to.
type Category string

const (
	CategoryBackend  Category = "Backend"
	CategoryFrontend Category = "Frontend"
	CategoryQA       Category = "QA"
	CategoryDesign   Category = "Design"
)

// Categories lists the task categories accepted by the generation schema.
var Categories = []Category{CategoryBackend, CategoryFrontend, CategoryQA, CategoryDesign}

// Status is the progress state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusUnassigned Status = "Unassigned"
)

var statuses = []Status{StatusPending, StatusInProgress, StatusDone, StatusUnassigned}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the priorities accepted by the generation schema.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Assignee is the name of the team member owning a task. It is kept apart
// from Status even though both have an "Unassigned" value.
type Assignee string

// Unassigned marks a task no roster member could take.
const Unassigned Assignee = "Unassigned"

// Task represents a single unit of work on the dashboard.
type Task struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Assignee Assignee `json:"assignee"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	DueDate  string   `json:"dueDate"`
}

// ParseCategory matches s against the known categories ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// ParseStatus matches s against the known statuses ignoring case.
func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

// ParsePriority matches s against the known priorities ignoring case.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Package view projects dashboard state into the models the browser renders.
package view

import (
	"fmt"
	"unicode/utf8"

	"autom8/domain"
)

const (
	colorDone       = "#05CD99"
	colorInProgress = "#FFB547"
	colorUnassigned = "#EE5D50"
	colorDefault    = "#A3AED0"
)

// TaskRow is one line of the task table.
type TaskRow struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        domain.Category `json:"category"`
	Assignee        domain.Assignee `json:"assignee"`
	AssigneeInitial string          `json:"assigneeInitial"`
	Unassigned      bool            `json:"unassigned"`
	Status          domain.Status   `json:"status"`
	StatusColor     string          `json:"statusColor"`
	Priority        domain.Priority `json:"priority"`
	PriorityClass   string          `json:"priorityClass"`
	DueDate         string          `json:"dueDate"`
}

// MemberRow is one line of the team table.
type MemberRow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Initial   string      `json:"initial"`
	Role      domain.Role `json:"role"`
	LoadLabel string      `json:"loadLabel"`
}

// Dashboard is the task view together with its progress widgets.
type Dashboard struct {
	Rows     []TaskRow       `json:"rows"`
	Progress domain.Progress `json:"progress"`
}

func TaskRows(tasks []domain.Task) []TaskRow {
	rows := make([]TaskRow, 0, len(tasks))
	for _, t := range tasks {
		unassigned := t.Assignee == domain.Unassigned || t.Assignee == ""
		initial := "?"
		if !unassigned {
			initial = firstRune(string(t.Assignee))
		}
		rows = append(rows, TaskRow{
			ID:              t.ID,
			Name:            t.Name,
			Category:        t.Category,
			Assignee:        t.Assignee,
			AssigneeInitial: initial,
			Unassigned:      unassigned,
			Status:          t.Status,
			StatusColor:     StatusColor(t.Status),
			Priority:        t.Priority,
			PriorityClass:   PriorityClass(t.Priority),
			DueDate:         t.DueDate,
		})
	}
	return rows
}

// MemberRows renders a roster snapshot.
func MemberRows(members []domain.TeamMember) []MemberRow {
	rows := make([]MemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, MemberRow{
			ID:        m.ID,
			Name:      m.Name,
			Initial:   firstRune(m.Name),
			Role:      m.Role,
			LoadLabel: fmt.Sprintf("%d Tasks", m.Load),
		})
	}
	return rows
}

// NewDashboard renders tasks and their aggregated progress.
func NewDashboard(tasks []domain.Task) Dashboard {
	return Dashboard{Rows: TaskRows(tasks), Progress: domain.ComputeProgress(tasks)}
}

func StatusColor(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return colorDone
	case domain.StatusInProgress:
		return colorInProgress
	case domain.StatusUnassigned:
		return colorUnassigned
	default:
		return colorDefault
	}
}

func PriorityClass(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "priority-high"
	case domain.PriorityMedium:
		return "priority-med"
	default:
		return "priority-low"
	}
}

func firstRune(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(r)
}

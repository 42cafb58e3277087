package api

import (
	"autom8/domain"
	"autom8/view"
)

const (
	maxBriefSize   = 32 * 1024  // 32 KiB
	maxProjectSize = 512 * 1024 // 512 KiB
	maxSmallBody   = 4 * 1024

	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
)

// POST /api/generateTasks and POST /api/briefs request body
type briefRequest struct {
	Text string `json:"text"`
}

// POST /api/generateTasks response body
type generateTasksResponse struct {
	Tasks []domain.RawTask `json:"tasks"`
	Error string           `json:"error,omitempty"`
}

// POST /api/briefs response body
type briefResponse struct {
	Tasks    []domain.Task   `json:"tasks"`
	Rows     []view.TaskRow  `json:"rows"`
	Progress domain.Progress `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

// POST /api/team request body
type memberRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// GET /api/team response body
type teamResponse struct {
	Members []domain.TeamMember `json:"members"`
	Rows    []view.MemberRow    `json:"rows"`
}

// POST /api/projects request body
type projectRequest struct {
	Name  string        `json:"name"`
	Tasks []domain.Task `json:"tasks"`
}

// POST /api/projects response body
type projectResponse struct {
	Project domain.Project `json:"project"`
	Error   string         `json:"error,omitempty"`
}

// GET /api/projects/:id/tasks response body
type projectTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	view.Dashboard
}

// PATCH /api/projects/:id/tasks/:taskId request body
type statusRequest struct {
	Status string `json:"status"`
}

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

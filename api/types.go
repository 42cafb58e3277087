package api

import (
	"context"

	"autom8/domain"
)

// Service is the dashboard behaviour the handlers depend on.
type Service interface {
	GenerateRaw(ctx context.Context, brief string) ([]domain.RawTask, error)
	GenerateTasks(ctx context.Context, brief string) ([]domain.Task, error)
	SaveProject(ctx context.Context, name string, tasks []domain.Task) (domain.Project, error)
	UpdateTaskStatus(ctx context.Context, projectID, taskID, status string) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	ProjectProgress(ctx context.Context, projectID string) (domain.Progress, error)
	AddMember(ctx context.Context, name, role string) (string, error)
	RemoveMember(ctx context.Context, id string) error
	RefreshRoster(ctx context.Context) error
	Roster() *domain.Roster
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents a project from being saved twice for the same request.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the save fails.
	Remove(ctx context.Context, userID, key string) error
}

package domain

// Project event types published after store writes.
const (
	ProjectCreated    = "project-created"
	TaskStatusUpdated = "task-status-updated"
)

// ProjectEvent notifies downstream consumers about a completed store write.
type ProjectEvent struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	TaskID    string `json:"taskId,omitempty"`
	Status    Status `json:"status,omitempty"`
	Name      string `json:"name,omitempty"`
	TaskCount int    `json:"taskCount,omitempty"`
	Time      int64  `json:"time"`
}

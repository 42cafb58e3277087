package domain

import "time"

// ProjectStatusActive is assigned to every newly saved project.
const ProjectStatusActive = "Active"

// Project groups the tasks generated from one brief.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	TaskCount int       `json:"taskCount"`
	Status    string    `json:"status"`
}

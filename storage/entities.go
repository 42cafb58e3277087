package storage

import (
	"encoding/json"
	"time"

	"autom8/domain"
)

const (
	teamPartition     = "team"
	projectsPartition = "projects"

	edmDateTime = "Edm.DateTime"
)

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type memberEntity struct {
	entityKeys
	Name string `json:"Name"`
	Role string `json:"Role"`
	Load int    `json:"Load"`
}

type projectEntity struct {
	entityKeys
	Name          string `json:"Name"`
	CreatedAt     string `json:"CreatedAt"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
	TaskCount     int    `json:"TaskCount"`
	Status        string `json:"Status"`
}

type taskEntity struct {
	entityKeys
	Name     string `json:"Name"`
	Category string `json:"Category"`
	Assignee string `json:"Assignee"`
	Status   string `json:"Status"`
	Priority string `json:"Priority"`
	DueDate  string `json:"DueDate"`
}

type taskStatusUpdate struct {
	entityKeys
	Status string `json:"Status"`
}

func encodeMember(m domain.TeamMember) ([]byte, error) {
	return json.Marshal(memberEntity{
		entityKeys: entityKeys{PartitionKey: teamPartition, RowKey: m.ID},
		Name:       m.Name,
		Role:       string(m.Role),
		Load:       m.Load,
	})
}

func decodeMember(data []byte) (domain.TeamMember, error) {
	var ent memberEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.TeamMember{}, err
	}
	return domain.TeamMember{ID: ent.RowKey, Name: ent.Name, Role: domain.Role(ent.Role), Load: ent.Load}, nil
}

func encodeProject(p domain.Project) ([]byte, error) {
	return json.Marshal(projectEntity{
		entityKeys:    entityKeys{PartitionKey: projectsPartition, RowKey: p.ID},
		Name:          p.Name,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339Nano),
		CreatedAtType: edmDateTime,
		TaskCount:     p.TaskCount,
		Status:        p.Status,
	})
}

func decodeProject(data []byte) (domain.Project, error) {
	var ent projectEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{ID: ent.RowKey, Name: ent.Name, TaskCount: ent.TaskCount, Status: ent.Status}
	if ent.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.Project{}, err
		}
		p.CreatedAt = ts
	}
	return p, nil
}

func encodeTask(projectID string, t domain.Task) ([]byte, error) {
	return json.Marshal(taskEntity{
		entityKeys: entityKeys{PartitionKey: projectID, RowKey: t.ID},
		Name:       t.Name,
		Category:   string(t.Category),
		Assignee:   string(t.Assignee),
		Status:     string(t.Status),
		Priority:   string(t.Priority),
		DueDate:    t.DueDate,
	})
}

func decodeTask(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:       ent.RowKey,
		Name:     ent.Name,
		Category: domain.Category(ent.Category),
		Assignee: domain.Assignee(ent.Assignee),
		Status:   domain.Status(ent.Status),
		Priority: domain.Priority(ent.Priority),
		DueDate:  ent.DueDate,
	}, nil
}

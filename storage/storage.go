package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"autom8/domain"
)

// Tables names the tables and queue backing the dashboard.
type Tables struct {
	Team        string
	Projects    string
	Tasks       string
	EventsQueue string
}

// Storage reads and writes roster and project data in Azure Table Storage
// and publishes project events to an Azure queue.
type Storage struct {
	teamTable     *aztables.Client
	projectsTable *aztables.Client
	tasksTable    *aztables.Client
	eventsQueue   *azqueue.QueueClient
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage from a connection string. The events queue is
// optional; without it PublishEvent is a no-op.
func New(connStr string, tables Tables) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		teamTable:     svc.NewClient(tables.Team),
		projectsTable: svc.NewClient(tables.Projects),
		tasksTable:    svc.NewClient(tables.Tasks),
	}
	if tables.EventsQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute * 5,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 60,
					StatusCodes:   retryStatusCodes,
				},
			},
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, tables.EventsQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.eventsQueue = q
	}
	return s, nil
}

// ListMembers returns the team roster ordered by name.
func (s *Storage) ListMembers(ctx context.Context) ([]domain.TeamMember, error) {
	members := []domain.TeamMember{}
	err := listPartition(ctx, s.teamTable, teamPartition, func(data []byte) error {
		m, err := decodeMember(data)
		if err == nil {
			members = append(members, m)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

// AddMember stores a new team member with zero load and returns its id.
func (s *Storage) AddMember(ctx context.Context, name string, role domain.Role) (string, error) {
	m := domain.TeamMember{ID: uuid.NewString(), Name: name, Role: role}
	payload, err := encodeMember(m)
	if err != nil {
		return "", err
	}
	if _, err := s.teamTable.AddEntity(ctx, payload, nil); err != nil {
		return "", fmt.Errorf("add team member: %w", mapError(err))
	}
	return m.ID, nil
}

// RemoveMember deletes a team member.
func (s *Storage) RemoveMember(ctx context.Context, id string) error {
	match := azcore.ETagAny
	if _, err := s.teamTable.DeleteEntity(ctx, teamPartition, id, &aztables.DeleteEntityOptions{IfMatch: &match}); err != nil {
		return fmt.Errorf("remove team member %s: %w", id, mapError(err))
	}
	return nil
}

// ListProjects returns all projects, newest first.
func (s *Storage) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}
	err := listPartition(ctx, s.projectsTable, projectsPartition, func(data []byte) error {
		p, err := decodeProject(data)
		if err == nil {
			projects = append(projects, p)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects, nil
}

// CreateProject stores p under a new id and returns it.
func (s *Storage) CreateProject(ctx context.Context, p domain.Project) (string, error) {
	p.ID = uuid.NewString()
	payload, err := encodeProject(p)
	if err != nil {
		return "", err
	}
	if _, err := s.projectsTable.AddEntity(ctx, payload, nil); err != nil {
		return "", fmt.Errorf("create project: %w", mapError(err))
	}
	return p.ID, nil
}

// ListTasks returns the tasks owned by a project.
func (s *Storage) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := listPartition(ctx, s.tasksTable, projectID, func(data []byte) error {
		t, err := decodeTask(data)
		if err == nil {
			tasks = append(tasks, t)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", projectID, err)
	}
	return tasks, nil
}

// CreateTask stores t under the project. The task id is used as the row key;
// tasks without one get a generated id. The stored id is returned.
func (s *Storage) CreateTask(ctx context.Context, projectID string, t domain.Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := domain.ValidateKey(t.ID); err != nil {
		return "", err
	}
	payload, err := encodeTask(projectID, t)
	if err != nil {
		return "", err
	}
	if _, err := s.tasksTable.AddEntity(ctx, payload, nil); err != nil {
		return "", fmt.Errorf("create task %s: %w", t.ID, mapError(err))
	}
	return t.ID, nil
}

// UpdateTaskStatus merges the new status into an existing task.
func (s *Storage) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status domain.Status) error {
	payload, err := json.Marshal(taskStatusUpdate{
		entityKeys: entityKeys{PartitionKey: projectID, RowKey: taskID},
		Status:     string(status),
	})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.tasksTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, mapError(err))
	}
	return nil
}

// PublishEvent enqueues ev on the events queue when one is configured.
func (s *Storage) PublishEvent(ctx context.Context, ev domain.ProjectEvent) error {
	if s.eventsQueue == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.eventsQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

func listPartition(ctx context.Context, table *aztables.Client, partition string, each func([]byte) error) error {
	filter := partitionFilter(partition)
	pager := table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return mapError(err)
		}
		for _, e := range resp.Entities {
			if err := each(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func partitionFilter(partition string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(partition, "'", "''") + "'"
}

func mapError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
	}
	return err
}

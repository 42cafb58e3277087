package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"autom8/domain"
)

// Generator turns a brief into the raw JSON text produced by the AI engine.
type Generator interface {
	Generate(ctx context.Context, brief string) (string, error)
}

// RosterStore persists team members.
type RosterStore interface {
	ListMembers(ctx context.Context) ([]domain.TeamMember, error)
	AddMember(ctx context.Context, name string, role domain.Role) (string, error)
	RemoveMember(ctx context.Context, id string) error
}

// ProjectStore persists projects and the tasks they own.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (string, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, projectID string, t domain.Task) (string, error)
	UpdateTaskStatus(ctx context.Context, projectID, taskID string, status domain.Status) error
}

// EventPublisher receives notifications after successful writes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev domain.ProjectEvent) error
}

// Options tunes a Dashboard. Zero values are usable.
type Options struct {
	Picker          domain.Picker
	Events          EventPublisher
	Now             func() time.Time
	Logger          *log.Logger
	SaveConcurrency int
}

// Dashboard runs the user-facing flows. It owns the roster state and is the
// only component that refreshes it.
type Dashboard struct {
	gen      Generator
	members  RosterStore
	projects ProjectStore
	events   EventPublisher
	roster   *domain.Roster
	now      func() time.Time
	log      *log.Logger
	saveConc int
}

func New(gen Generator, members RosterStore, projects ProjectStore, opts Options) *Dashboard {
	if gen == nil || members == nil || projects == nil {
		panic("dashboard.New: generator and stores are required")
	}
	d := &Dashboard{
		gen:      gen,
		members:  members,
		projects: projects,
		events:   opts.Events,
		roster:   domain.NewRoster(opts.Picker),
		now:      opts.Now,
		log:      opts.Logger,
		saveConc: opts.SaveConcurrency,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.log == nil {
		d.log = log.StandardLogger()
	}
	return d
}

// Roster exposes the shared roster state for read-only use by renderers.
func (d *Dashboard) Roster() *domain.Roster {
	return d.roster
}

// RefreshRoster reloads the roster from the store.
func (d *Dashboard) RefreshRoster(ctx context.Context) error {
	members, err := d.members.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("refresh roster: %w", err)
	}
	d.roster.Replace(members)
	d.log.WithField("members", len(members)).Debug("roster refreshed")
	return nil
}

// AddMember stores a new team member with zero load and refreshes the roster.
func (d *Dashboard) AddMember(ctx context.Context, name, role string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyName
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	id, err := d.members.AddMember(ctx, name, r)
	if err != nil {
		return "", err
	}
	return id, d.RefreshRoster(ctx)
}

// RemoveMember deletes a team member and refreshes the roster.
func (d *Dashboard) RemoveMember(ctx context.Context, id string) error {
	if err := d.members.RemoveMember(ctx, id); err != nil {
		return err
	}
	return d.RefreshRoster(ctx)
}

// GenerateRaw forwards brief to the generator and returns the parsed records
// without normalizing them. Unparseable answers produce no records.
func (d *Dashboard) GenerateRaw(ctx context.Context, brief string) ([]domain.RawTask, error) {
	if strings.TrimSpace(brief) == "" {
		return []domain.RawTask{}, domain.ErrEmptyBrief
	}
	payload, err := d.gen.Generate(ctx, brief)
	if err != nil {
		d.log.WithError(err).Error("AI engine error")
		return []domain.RawTask{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	raw := domain.ParseGenerated(payload)
	if len(raw) == 0 {
		d.log.WithField("payload_len", len(payload)).Warn("generation produced no tasks")
	}
	return raw, nil
}

// GenerateTasks turns brief into tasks assigned from the current roster.
// A failed generation returns an empty list together with the error.
func (d *Dashboard) GenerateTasks(ctx context.Context, brief string) ([]domain.Task, error) {
	raw, err := d.GenerateRaw(ctx, brief)
	if err != nil {
		return []domain.Task{}, err
	}
	return domain.Normalize(raw, d.roster.Assign, d.now()), nil
}

// SaveProject creates a project and writes its tasks concurrently. The task
// list is validated before anything is written. All writes are awaited; the
// first failure is returned and writes that succeeded are kept.
func (d *Dashboard) SaveProject(ctx context.Context, name string, tasks []domain.Task) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, domain.ErrEmptyName
	}
	tasks, err := domain.PrepareTasks(tasks)
	if err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{
		Name:      name,
		CreatedAt: d.now().UTC(),
		TaskCount: len(tasks),
		Status:    domain.ProjectStatusActive,
	}
	id, err := d.projects.CreateProject(ctx, p)
	if err != nil {
		return domain.Project{}, err
	}
	p.ID = id

	var g errgroup.Group
	if d.saveConc > 0 {
		g.SetLimit(d.saveConc)
	}
	for _, t := range tasks {
		g.Go(func() error {
			_, err := d.projects.CreateTask(ctx, id, t)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		d.log.WithError(err).WithFields(log.Fields{"project": id, "tasks": len(tasks)}).Error("project saved partially")
		return p, fmt.Errorf("save tasks of project %s: %w", id, err)
	}

	d.publish(ctx, domain.ProjectEvent{Type: domain.ProjectCreated, ProjectID: id, Name: p.Name, TaskCount: p.TaskCount})
	return p, nil
}

// UpdateTaskStatus sets the status of one task.
func (d *Dashboard) UpdateTaskStatus(ctx context.Context, projectID, taskID, status string) error {
	st, ok := domain.ParseStatus(status)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if err := d.projects.UpdateTaskStatus(ctx, projectID, taskID, st); err != nil {
		return err
	}
	d.publish(ctx, domain.ProjectEvent{Type: domain.TaskStatusUpdated, ProjectID: projectID, TaskID: taskID, Status: st})
	return nil
}

func (d *Dashboard) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return d.projects.ListProjects(ctx)
}

func (d *Dashboard) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	return d.projects.ListTasks(ctx, projectID)
}

// ProjectProgress aggregates the completion of a project's tasks.
func (d *Dashboard) ProjectProgress(ctx context.Context, projectID string) (domain.Progress, error) {
	tasks, err := d.projects.ListTasks(ctx, projectID)
	if err != nil {
		return domain.Progress{}, err
	}
	return domain.ComputeProgress(tasks), nil
}

// publish is best-effort: the write it reports has already succeeded.
func (d *Dashboard) publish(ctx context.Context, ev domain.ProjectEvent) {
	if d.events == nil {
		return
	}
	ev.Time = d.now().UnixNano()
	if err := d.events.PublishEvent(ctx, ev); err != nil {
		d.log.WithError(err).WithFields(log.Fields{"type": ev.Type, "project": ev.ProjectID}).Warn("publish project event failed")
	}
}

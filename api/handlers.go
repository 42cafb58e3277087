package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"autom8/domain"
	"autom8/view"
)

const (
	generateTasksRoute = "/api/generateTasks"
	briefsRoute        = "/api/briefs"

	generationFailedNotice = "AI Engine failed to respond."
	processingFailedNotice = "AI processing failed."
	briefRequiredNotice    = "Brief text is required."
)

// Options configures Register.
type Options struct {
	// StreamInterval is the period between progress stream events.
	StreamInterval time.Duration
	// Metrics exposes GET /metrics and instruments every route.
	Metrics bool
}

// Register wires all routes onto e.
func Register(e *echo.Echo, svc Service, auth Authenticator, deduper Deduper, logger *log.Logger, opts Options) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 5 * time.Second
	}
	if opts.Metrics {
		e.Use(echoprometheus.NewMiddleware("autom8"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	g := e.Group("/api", GzipRequestMiddleware(), RequireUser(auth))
	g.POST("/generateTasks", generateTasks(svc, logger))
	g.POST("/briefs", postBrief(svc, logger))

	g.GET("/team", getTeam(svc))
	g.POST("/team", postMember(svc))
	g.DELETE("/team/:id", deleteMember(svc))

	g.GET("/projects", getProjects(svc))
	g.POST("/projects", postProject(svc, deduper, logger))
	g.GET("/projects/:id/tasks", getProjectTasks(svc))
	g.PATCH("/projects/:id/tasks/:taskId", patchTaskStatus(svc))
	g.GET("/projects/:id/progress", getProgress(svc))
	g.GET("/projects/:id/progress/stream", streamProgress(svc, opts.StreamInterval, logger))
}

// generateTasks is the raw generation endpoint: it returns the records as
// parsed from the AI engine, without assignment.
func generateTasks(svc Service, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics, ctx := newGenerationMetrics(c.Request().Context(), logger, generateTasksRoute)
		status := http.StatusOK
		var failure error
		defer func() { metrics.Log(status, failure) }()

		var req briefRequest
		if derr := decodeJSON(c, maxBriefSize, &req); derr != nil {
			metrics.SetErrorStage("decode")
			status = http.StatusBadRequest
			return c.JSON(status, generateTasksResponse{Tasks: []domain.RawTask{}, Error: derr.Error()})
		}
		metrics.SetBriefLength(len(req.Text))

		start := time.Now()
		raw, gerr := svc.GenerateRaw(ctx, req.Text)
		metrics.ObserveGateway(time.Since(start))
		switch {
		case errors.Is(gerr, domain.ErrEmptyBrief):
			metrics.SetErrorStage("validate")
			status = http.StatusBadRequest
			return c.JSON(status, generateTasksResponse{Tasks: []domain.RawTask{}, Error: briefRequiredNotice})
		case gerr != nil:
			metrics.SetErrorStage("gateway")
			status = http.StatusInternalServerError
			failure = gerr
			return c.JSON(status, generateTasksResponse{Tasks: []domain.RawTask{}, Error: processingFailedNotice})
		}
		metrics.SetTasksReturned(len(raw))
		return c.JSON(status, generateTasksResponse{Tasks: raw})
	}
}

// postBrief generates tasks for a brief, assigns them from the roster and
// returns them together with the rendered rows.
func postBrief(svc Service, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics, ctx := newGenerationMetrics(c.Request().Context(), logger, briefsRoute)
		status := http.StatusOK
		var failure error
		defer func() { metrics.Log(status, failure) }()

		var req briefRequest
		if derr := decodeJSON(c, maxBriefSize, &req); derr != nil {
			metrics.SetErrorStage("decode")
			status = http.StatusBadRequest
			return c.JSON(status, emptyBrief(derr.Error()))
		}
		metrics.SetBriefLength(len(req.Text))

		if strings.TrimSpace(req.Text) != "" {
			if rerr := svc.RefreshRoster(ctx); rerr != nil {
				logger.WithError(rerr).Warn("roster refresh failed; assigning from last known roster")
			}
		}

		start := time.Now()
		tasks, gerr := svc.GenerateTasks(ctx, req.Text)
		metrics.ObserveGateway(time.Since(start))
		switch {
		case errors.Is(gerr, domain.ErrEmptyBrief):
			metrics.SetErrorStage("validate")
			status = http.StatusBadRequest
			return c.JSON(status, emptyBrief(briefRequiredNotice))
		case gerr != nil:
			metrics.SetErrorStage("gateway")
			status = http.StatusBadGateway
			failure = gerr
			return c.JSON(status, emptyBrief(generationFailedNotice))
		}

		unassigned := 0
		for _, t := range tasks {
			if t.Assignee == domain.Unassigned {
				unassigned++
			}
		}
		metrics.SetTasksReturned(len(tasks))
		metrics.SetUnassigned(unassigned)

		dash := view.NewDashboard(tasks)
		return c.JSON(status, briefResponse{Tasks: tasks, Rows: dash.Rows, Progress: dash.Progress})
	}
}

func emptyBrief(msg string) briefResponse {
	return briefResponse{Tasks: []domain.Task{}, Rows: []view.TaskRow{}, Error: msg}
}

func getTeam(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.RefreshRoster(c.Request().Context()); err != nil {
			return writeError(c, err)
		}
		members := svc.Roster().Members()
		return c.JSON(http.StatusOK, teamResponse{Members: members, Rows: view.MemberRows(members)})
	}
}

func postMember(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req memberRequest
		if err := decodeJSON(c, maxSmallBody, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		id, err := svc.AddMember(c.Request().Context(), req.Name, req.Role)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, idResponse{ID: id})
	}
}

// deleteMember requires ?confirm=true so a stray request cannot remove a member.
func deleteMember(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ok, _ := strconv.ParseBool(c.QueryParam("confirm")); !ok {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "confirmation required"})
		}
		if err := svc.RemoveMember(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getProjects(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := svc.ListProjects(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		return c.JSON(http.StatusOK, projects)
	}
}

// postProject saves a project with its tasks. A repeated Idempotency-Key is
// answered with 409; the key is released when the save fails.
func postProject(svc Service, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req projectRequest
		if err := decodeJSON(c, maxProjectSize, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		uid := userID(c)
		key := strings.TrimSpace(c.Request().Header.Get(idempotencyHeader))
		if len(key) > maxIdempotencyKey {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "idempotency key too long"})
		}
		tracked := false
		if key != "" && deduper != nil {
			added, err := deduper.Add(ctx, uid, key)
			switch {
			case err != nil:
				logger.WithError(err).Warn("idempotency check failed; saving without it")
			case !added:
				return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
			default:
				tracked = true
			}
		}

		p, err := svc.SaveProject(ctx, req.Name, req.Tasks)
		if err != nil {
			if tracked {
				if rerr := deduper.Remove(context.WithoutCancel(ctx), uid, key); rerr != nil {
					logger.WithError(rerr).Warn("failed to release idempotency key")
				}
			}
			if p.ID != "" {
				logger.WithError(err).WithField("project", p.ID).Error("project saved partially")
				return c.JSON(http.StatusInternalServerError, projectResponse{Project: p, Error: "failed to save all tasks"})
			}
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, projectResponse{Project: p})
	}
}

func getProjectTasks(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := svc.ListTasks(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, projectTasksResponse{Tasks: tasks, Dashboard: view.NewDashboard(tasks)})
	}
}

func patchTaskStatus(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req statusRequest
		if err := decodeJSON(c, maxSmallBody, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		if err := svc.UpdateTaskStatus(c.Request().Context(), c.Param("id"), c.Param("taskId"), req.Status); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getProgress(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := svc.ProjectProgress(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

// decodeJSON reads at most limit bytes of the request body into dst.
func decodeJSON(c echo.Context, limit int64, dst any) error {
	body := io.LimitReader(c.Request().Body, limit+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.New("unable to read body")
	}
	if int64(len(data)) > limit {
		return errors.New("body too large")
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		return errors.New("invalid body")
	}
	return nil
}

func writeError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), errorResponse{Error: messageFor(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyBrief),
		errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides store internals from clients.
func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

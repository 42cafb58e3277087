package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"autom8/domain"
)

// maxStreamFailures consecutive read errors end a progress stream.
const maxStreamFailures = 3

// streamProgress pushes the project's progress as server-sent events. An
// event is written whenever the progress changes; idle ticks send a comment
// so proxies keep the connection open. Repeated read failures end the
// stream with an "error" event.
func streamProgress(svc Service, interval time.Duration, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectID := c.Param("id")
		res := c.Response()
		flusher, ok := res.Writer.(http.Flusher)
		if !ok {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "stream unsupported"})
		}
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.Header().Set("X-Accel-Buffering", "no")
		res.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := c.Request().Context()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last *domain.Progress
		failures := 0
		for {
			p, err := svc.ProjectProgress(ctx, projectID)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return nil
				}
				failures++
				logger.WithError(err).WithFields(log.Fields{"project": projectID, "failures": failures}).Warn("progress stream read failed")
				if failures >= maxStreamFailures {
					data, _ := sonic.Marshal(errorResponse{Error: messageFor(err)})
					_, _ = res.Write([]byte("event: error\ndata: " + string(data) + "\n\n"))
					flusher.Flush()
					return nil
				}
			case last == nil || *last != p:
				failures = 0
				data, err := sonic.Marshal(p)
				if err != nil {
					return nil
				}
				if _, err := res.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
					return nil
				}
				last = &p
			default:
				failures = 0
				if _, err := res.Write([]byte(": keep-alive\n\n")); err != nil {
					return nil
				}
			}
			flusher.Flush()

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

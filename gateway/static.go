package gateway

import (
	"context"
	"time"
)

// mockTasks is the canned answer for the login page example brief. The
// assignee and status values are ignored by normalization.
const mockTasks = `[
  {"id": "TSK-001", "name": "Design Login UI Components (Figma)", "type": "Design", "assignee": "Sarah K.", "status": "Done", "priority": "Medium", "dueDate": "2025-12-05"},
  {"id": "TSK-002", "name": "Setup Firebase Auth Controller", "type": "Backend", "assignee": "Javier M.", "status": "In Progress", "priority": "High", "dueDate": "2025-12-06"},
  {"id": "TSK-003", "name": "Implement Google OAuth on Client", "type": "Frontend", "assignee": "Luthfi", "status": "Pending", "priority": "High", "dueDate": "2025-12-07"},
  {"id": "TSK-004", "name": "Write Unit Tests for Auth Flow", "type": "QA", "assignee": "Pending", "status": "Pending", "priority": "Low", "dueDate": "2025-12-09"}
]`

// Static answers every brief with the same payload after a simulated delay.
// It stands in for Gemini when no API key is configured.
type Static struct {
	payload string
	delay   time.Duration
}

// NewStatic returns a Static gateway serving the built-in mock tasks.
func NewStatic(delay time.Duration) *Static {
	return &Static{payload: mockTasks, delay: delay}
}

func (s *Static) Generate(ctx context.Context, _ string) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return s.payload, nil
}

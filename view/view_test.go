package view

import (
	"testing"

	"autom8/domain"
)

func TestTaskRows(t *testing.T) {
	rows := TaskRows([]domain.Task{
		{ID: "1", Name: "a", Assignee: "Javier M.", Status: domain.StatusInProgress, Priority: domain.PriorityHigh},
		{ID: "2", Name: "b", Assignee: domain.Unassigned, Status: domain.StatusPending, Priority: domain.PriorityLow},
		{ID: "3", Name: "c", Assignee: "Élodie", Status: domain.StatusDone, Priority: domain.PriorityMedium},
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].AssigneeInitial != "J" || rows[0].Unassigned || rows[0].StatusColor != colorInProgress || rows[0].PriorityClass != "priority-high" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[1].AssigneeInitial != "?" || !rows[1].Unassigned || rows[1].StatusColor != colorDefault || rows[1].PriorityClass != "priority-low" {
		t.Fatalf("unexpected row: %+v", rows[1])
	}
	if rows[2].AssigneeInitial != "É" || rows[2].StatusColor != colorDone || rows[2].PriorityClass != "priority-med" {
		t.Fatalf("unexpected row: %+v", rows[2])
	}
}

func TestStatusColorUnassigned(t *testing.T) {
	if got := StatusColor(domain.StatusUnassigned); got != colorUnassigned {
		t.Fatalf("unexpected colour %s", got)
	}
}

func TestMemberRows(t *testing.T) {
	rows := MemberRows([]domain.TeamMember{{ID: "m1", Name: "Sarah K.", Role: domain.RoleDesign, Load: 2}})
	if len(rows) != 1 || rows[0].Initial != "S" || rows[0].LoadLabel != "2 Tasks" || rows[0].Role != domain.RoleDesign {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestNewDashboardEmpty(t *testing.T) {
	d := NewDashboard(nil)
	if d.Rows == nil || len(d.Rows) != 0 {
		t.Fatalf("expected empty rows, got %#v", d.Rows)
	}
	if d.Progress != (domain.Progress{}) {
		t.Fatalf("expected zero progress, got %+v", d.Progress)
	}
}

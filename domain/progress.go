package domain

// Grouping is a fixed set of categories reported together.
type Grouping struct {
	Name       string
	Categories []Category
}

var (
	GroupingDesignQA      = Grouping{Name: "design-qa", Categories: []Category{CategoryDesign, CategoryQA}}
	GroupingBackendDevOps = Grouping{Name: "backend-devops", Categories: []Category{CategoryBackend, Category(RoleDevOps)}}
	GroupingFrontend      = Grouping{Name: "frontend", Categories: []Category{CategoryFrontend}}
)

// Progress holds completion percentages in the range [0, 100].
type Progress struct {
	DesignQA      int `json:"designQa"`
	BackendDevOps int `json:"backendDevOps"`
	Frontend      int `json:"frontend"`
	Overall       int `json:"overall"`
}

func (g Grouping) contains(c Category) bool {
	for _, gc := range g.Categories {
		if gc == c {
			return true
		}
	}
	return false
}

// GroupPercent returns the rounded share of Done tasks within g, or 0 when
// no task belongs to g.
func GroupPercent(tasks []Task, g Grouping) int {
	var total, done int
	for _, t := range tasks {
		if !g.contains(t.Category) {
			continue
		}
		total++
		if t.Status == StatusDone {
			done++
		}
	}
	return percent(done, total)
}

// OverallPercent returns the rounded share of Done tasks, or 0 for no tasks.
func OverallPercent(tasks []Task) int {
	done := 0
	for _, t := range tasks {
		if t.Status == StatusDone {
			done++
		}
	}
	return percent(done, len(tasks))
}

// ComputeProgress aggregates tasks into the dashboard groupings. It does not
// modify tasks.
func ComputeProgress(tasks []Task) Progress {
	return Progress{
		DesignQA:      GroupPercent(tasks, GroupingDesignQA),
		BackendDevOps: GroupPercent(tasks, GroupingBackendDevOps),
		Frontend:      GroupPercent(tasks, GroupingFrontend),
		Overall:       OverallPercent(tasks),
	}
}

// percent rounds half up using integers only. An unfinished set never
// reports 100.
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	p := (200*done + total) / (2 * total)
	if p == 100 && done < total {
		return 99
	}
	return p
}

package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
)

// Priority levels.
const (
	LevelCritical  = "critical"
	LevelHigh      = "high"
	LevelMedium    = "medium"
	LevelLow       = "low"
	LevelCompleted = "completed"
)

// Scored is a task with its priority.
type Scored struct {
	Task   Task    `json:"task"`
	Score  float64 `json:"priorityScore"`
	Level  string  `json:"priorityLevel"`
	Reason string  `json:"priorityReason"`
}

// Prioritizer scores tasks against the current balance.
type Prioritizer struct {
	// Combined is the blended balance; nil skips the balance factor.
	Combined   *Balance
	Priorities Priorities
	Now        func() time.Time
}

// Prioritize scores every task, highest first. Completed tasks score 0.
func (p *Prioritizer) Prioritize(tasks []Task) []Scored {
	out := make([]Scored, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			out = append(out, Scored{Task: t, Level: LevelCompleted, Reason: "Task is already completed"})
			continue
		}
		s := p.Score(t)
		lvl, why := Level(s)
		out = append(out, Scored{Task: t, Score: s, Level: lvl, Reason: why})
	}
	slices.SortStableFunc(out, func(a, b Scored) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

// Score is 50 adjusted by due date, balance impact, family priority
// alignment, complexity and explicit priority, clamped to 0..100.
func (p *Prioritizer) Score(t Task) float64 {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	s := 50.0
	s += dueDateScore(t, now())
	s += p.balanceScore(t)
	s += alignmentScore(t, p.Priorities)
	s += complexityScore(t)
	s += explicitScore(t.Priority)
	return clamp(s, 0, 100)
}

// Level maps a score onto a priority level and its reason.
func Level(score float64) (string, string) {
	switch {
	case score >= 85:
		return LevelCritical, "This task is time-sensitive and has high impact on family balance"
	case score >= 70:
		return LevelHigh, "This task is important for family balance and should be addressed soon"
	case score >= 50:
		return LevelMedium, "This task has moderate importance for family balance"
	default:
		return LevelLow, "This task can be addressed when time permits"
	}
}

func dueDateScore(t Task, now time.Time) float64 {
	if t.DueDate == nil {
		return 0
	}
	days := int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		return 40
	case days == 0:
		return 35
	case days == 1:
		return 30
	case days <= 7:
		return float64(25 - days*2)
	case days <= 14:
		return float64(12 - (days - 7))
	default:
		return -10
	}
}

func (p *Prioritizer) balanceScore(t Task) float64 {
	if p.Combined == nil || t.Category == "" {
		return 0
	}
	s, ok := p.Combined.Categories[Canonical(t.Category)]
	if !ok {
		return 0
	}
	_, lighter := heavier(s)
	if t.AssignedTo == lighter {
		switch {
		case s.Imbalance > 40:
			return 30
		case s.Imbalance > 25:
			return 20
		case s.Imbalance > 10:
			return 10
		}
		return 5
	}
	switch {
	case s.Imbalance > 40:
		return -10
	case s.Imbalance > 25:
		return -5
	}
	return 0
}

func alignmentScore(t Task, pri Priorities) float64 {
	if t.Category == "" {
		return 0
	}
	switch Canonical(t.Category) {
	case pri.Highest:
		return 20
	case pri.Secondary:
		return 15
	case pri.Tertiary:
		return 10
	}
	return 0
}

var complexityTerms = []string{"complex", "difficult", "challenging", "time-consuming"}

func complexityScore(t Task) float64 {
	var s float64
	n, desc := t.SubTasks, len(t.Description)
	switch {
	case n > 5:
		s += 10
	case n > 3:
		s += 5
	case n > 0:
		s += 2
	case desc > 200:
		s += 5
	case desc > 100:
		s += 2
	case desc < 20:
		s -= 5
	}
	if containsAny(t.text(), complexityTerms) {
		s += 5
	}
	return clamp(s, -10, 10)
}

func explicitScore(priority string) float64 {
	switch strings.ToLower(priority) {
	case LevelCritical:
		return 20
	case LevelHigh:
		return 15
	case LevelMedium:
		return 10
	case LevelLow:
		return 5
	}
	return 0
}

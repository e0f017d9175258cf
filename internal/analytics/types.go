// Package analytics computes workload statistics over a family's tasks
// and survey answers: completion rates per category, the distribution of
// weighted work between the two parents, and a priority score per task.
// Everything here is pure arithmetic over values the caller has loaded.
package analytics

import (
	"strings"
	"time"
)

// Parent labels as stored on tasks and survey answers.
const (
	Mama = "Mama"
	Papa = "Papa"
)

// The four balance categories.
const (
	VisibleHousehold   = "Visible Household Tasks"
	InvisibleHousehold = "Invisible Household Tasks"
	VisibleParental    = "Visible Parental Tasks"
	InvisibleParental  = "Invisible Parental Tasks"
)

// Categories lists the balance categories in display order.
var Categories = []string{VisibleHousehold, InvisibleHousehold, VisibleParental, InvisibleParental}

var categoryAliases = map[string]string{
	"Household Tasks":   VisibleHousehold,
	"Planning Tasks":    InvisibleHousehold,
	"Parenting Tasks":   VisibleParental,
	"Emotional Support": InvisibleParental,
}

// Canonical maps legacy task categories onto the balance categories.
func Canonical(category string) string {
	if c, ok := categoryAliases[category]; ok {
		return c
	}
	return category
}

const defaultWeight = 3

// Task is the subset of a task document the analytics read.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	AssignedTo  string     `json:"assignedTo"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	SubTasks    int        `json:"subTaskCount"`
	Weight      float64    `json:"totalWeight,omitempty"`
}

func (t Task) weight() float64 {
	if t.Weight > 0 {
		return t.Weight
	}
	return defaultWeight
}

func (t Task) text() string {
	return strings.ToLower(t.Title + " " + t.Description)
}

// SurveyAnswer is one "who does this" answer.
type SurveyAnswer struct {
	Question string  `json:"question"`
	Category string  `json:"category"`
	Answer   string  `json:"answer"` // Mama, Papa, Both, Neutral or Neither
	Weight   float64 `json:"weight,omitempty"`
}

// Priorities are the family's ranked balance categories.
type Priorities struct {
	Highest   string `json:"highestPriority"`
	Secondary string `json:"secondaryPriority"`
	Tertiary  string `json:"tertiaryPriority"`
}

// Share is a mama/papa split in percent.
type Share struct {
	Mama      float64 `json:"mama"`
	Papa      float64 `json:"papa"`
	Imbalance float64 `json:"imbalance"`
}

// Balance is an overall split plus one split per category.
type Balance struct {
	Overall    Share            `json:"overallBalance"`
	Categories map[string]Share `json:"categoryBalance"`
}

func split(mama, papa, total float64) Share {
	if total == 0 {
		return Share{Mama: 50, Papa: 50}
	}
	return Share{
		Mama:      mama / total * 100,
		Papa:      papa / total * 100,
		Imbalance: abs(mama-papa) / total * 100,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp(f, lo, hi float64) float64 {
	return max(lo, min(hi, f))
}

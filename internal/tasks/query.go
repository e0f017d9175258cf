package tasks

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Filter narrows a task listing. Empty fields do not filter.
type Filter struct {
	Assignee  string
	Status    string
	Timeframe string
	Category  string
}

// Completed reports whether the filter asks for finished tasks. Without
// a status only open tasks are listed.
func (f Filter) Completed() bool {
	s := strings.ToLower(f.Status)
	return (strings.Contains(s, "complete") && !strings.Contains(s, "incomplete")) ||
		(strings.Contains(s, "done") && !strings.Contains(s, "not done"))
}

// Apply filters ts and sorts the result by due date, undated last.
func (f Filter) Apply(ts []Task, now time.Time) []Task {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfWeek := today.AddDate(0, 0, 7-int(now.Weekday())).Add(24*time.Hour - time.Nanosecond)
	assignee := strings.ToLower(f.Assignee)
	timeframe := strings.ToLower(f.Timeframe)
	category := strings.ToLower(f.Category)
	wantDone := f.Completed()

	out := []Task{}
	for _, t := range ts {
		if assignee != "" &&
			!strings.Contains(strings.ToLower(t.AssignedToName), assignee) &&
			!strings.Contains(strings.ToLower(t.AssignedTo), assignee) {
			continue
		}
		if t.Completed != wantDone {
			continue
		}
		switch {
		case strings.Contains(timeframe, "today"):
			if t.DueDate == nil {
				continue
			}
			d := t.DueDate.In(now.Location())
			if !sameDay(d, today) {
				continue
			}
		case strings.Contains(timeframe, "this week"), strings.Contains(timeframe, "upcoming"):
			if t.DueDate != nil && t.DueDate.After(endOfWeek) {
				continue
			}
		}
		if category != "" && !strings.Contains(strings.ToLower(t.Category), category) {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, func(a, b Task) int {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	})
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// describe renders the filter as a phrase suffix.
func (f Filter) describe(always bool) string {
	var sb strings.Builder
	if f.Assignee != "" {
		fmt.Fprintf(&sb, " assigned to %s", f.Assignee)
	}
	switch {
	case f.Completed():
		sb.WriteString(" that are completed")
	case f.Status != "" || always:
		sb.WriteString(" that are pending")
	}
	if f.Timeframe != "" {
		fmt.Fprintf(&sb, " for %s", f.Timeframe)
	}
	if f.Category != "" {
		fmt.Fprintf(&sb, " in the %s category", f.Category)
	}
	return sb.String()
}

const listLimit = 5

// Summary is the chat answer for a filtered listing.
func Summary(f Filter, found []Task) string {
	if len(found) == 0 {
		return "I couldn't find any matching tasks" + f.describe(false) + "."
	}

	noun := "tasks"
	if len(found) == 1 {
		noun = "task"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d %s%s:\n\n", len(found), noun, f.describe(true))
	for i, t := range found[:min(listLimit, len(found))] {
		fmt.Fprintf(&sb, "%d. %q", i+1, t.Title)
		if t.AssignedToName != "" {
			fmt.Fprintf(&sb, " assigned to %s", t.AssignedToName)
		}
		if t.DueDate != nil {
			fmt.Fprintf(&sb, " (due %s)", t.DueDate.Format("Jan 2, 2006"))
		}
		sb.WriteByte('\n')
	}
	if n := len(found) - listLimit; n > 0 {
		fmt.Fprintf(&sb, "\n...and %d more tasks. You can see all tasks in the Tasks tab.", n)
	}
	return sb.String()
}

// Package tasks creates family tasks and answers questions about them.
// Tasks live in the document store, one document per task; the board
// column a task lands in is derived from its due date.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/analytics"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/family"
)

// Collection holds one document per task.
const Collection = "tasks"

// Board columns.
const (
	ColumnInProgress = "in-progress"
	ColumnThisWeek   = "this-week"
	ColumnUpcoming   = "upcoming"
)

// SubTask is one checklist item of a task.
type SubTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is a stored task.
type Task struct {
	ID             string     `json:"id"`
	FamilyID       string     `json:"familyId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssignedTo     string     `json:"assignedTo"`
	AssignedToName string     `json:"assignedToName"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Priority       string     `json:"priority"`
	Category       string     `json:"category"`
	Column         string     `json:"column"`
	Completed      bool       `json:"completed"`
	SubTasks       []SubTask  `json:"subTasks,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Column places a task on the board: nothing due within a week is
// upcoming, otherwise this-week.
func Column(due *time.Time, now time.Time) string {
	if due == nil {
		return ColumnUpcoming
	}
	if due.Sub(now) <= 7*24*time.Hour {
		return ColumnThisWeek
	}
	return ColumnUpcoming
}

// ColumnLabel is the board heading for a column.
func ColumnLabel(column string) string {
	switch column {
	case ColumnInProgress:
		return "In Progress"
	case ColumnThisWeek:
		return "This Week"
	default:
		return "Upcoming"
	}
}

// Board reads and writes family tasks.
type Board struct {
	docs   docstore.Documents
	roster *family.Roster
	sink   events.Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewBoard creates a task board. sink may be nil.
func NewBoard(docs docstore.Documents, roster *family.Roster, sink events.Sink, logger *slog.Logger) *Board {
	if sink == nil {
		sink = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		docs:   docs,
		roster: roster,
		sink:   sink,
		logger: logger.With("component", "tasks"),
		now:    time.Now,
	}
}

// SetClock replaces the board's clock.
func (b *Board) SetClock(now func() time.Time) { b.now = now }

// Create stores an extracted task for familyID on behalf of userID.
func (b *Board) Create(ctx context.Context, familyID, userID string, in extract.Task) (Task, error) {
	now := b.now()
	id, err := uuid.NewV7()
	if err != nil {
		return Task{}, fmt.Errorf("generate task ID: %w", err)
	}

	parents, err := b.roster.Parents(ctx, familyID)
	if err != nil {
		// Assignment degrades to the requesting user.
		b.logger.Warn("parent lookup failed", "family_id", familyID, "error", err)
	}
	role, name := assign(parents, userID, in.AssignedTo)

	t := Task{
		ID:             id.String(),
		FamilyID:       familyID,
		Title:          in.Title,
		Description:    in.Description,
		AssignedTo:     role,
		AssignedToName: name,
		DueDate:        in.DueDate,
		Priority:       in.Priority,
		Category:       in.Category,
		Column:         Column(in.DueDate, now),
		CreatedBy:      userID,
		CreatedAt:      now,
	}
	if t.Category == "" {
		t.Category = "other"
	}
	for i, st := range in.SubTasks {
		t.SubTasks = append(t.SubTasks, SubTask{ID: fmt.Sprintf("%s-sub%d", t.ID, i+1), Title: st})
	}
	if t.Priority == "" {
		t.Priority = b.suggestPriority(ctx, t)
	}

	doc, err := docstore.From(t)
	if err != nil {
		return Task{}, fmt.Errorf("encode task: %w", err)
	}
	if err := b.docs.Set(ctx, Collection, t.ID, doc, false); err != nil {
		return Task{}, fmt.Errorf("save task: %w", err)
	}

	b.sink.Notify(events.SourceDispatch, events.KindTaskBoardUpdated, map[string]any{
		"taskId": t.ID,
		"column": t.Column,
	})
	b.logger.Info("task created", "task_id", t.ID, "family_id", familyID, "column", t.Column, "priority", t.Priority)
	return t, nil
}

// assign resolves who a new task belongs to. Without an explicit
// assignee, or when users assign themselves, the task goes to the other
// parent; failing that to the requester.
func assign(parents []family.Member, userID, who string) (role, name string) {
	if who != "" {
		if m, ok := family.Assignee(parents, who); ok {
			role, name = roleOf(m), m.Name
		} else if r := family.ParentRoleOf(who); r != "" {
			role, name = r, r
		}
	}

	var self *family.Member
	for i := range parents {
		if parents[i].ID == userID {
			self = &parents[i]
		}
	}
	if role != "" && (self == nil || !strings.EqualFold(role, roleOf(*self))) {
		return role, name
	}

	for _, p := range parents {
		if p.ID != userID {
			return roleOf(p), p.Name
		}
	}
	if self != nil {
		return roleOf(*self), self.Name
	}
	return "Parent", "Parent"
}

func roleOf(m family.Member) string {
	if m.ParentRole != "" {
		return m.ParentRole
	}
	return m.Role
}

// suggestPriority scores the task against the family's open work.
func (b *Board) suggestPriority(ctx context.Context, t Task) string {
	existing, err := b.List(ctx, t.FamilyID)
	if err != nil {
		b.logger.Debug("priority suggestion without history", "error", err)
	}
	all := Analytics(existing)
	combined := analytics.Combine(analytics.SurveyBalance(nil, analytics.Priorities{}), analytics.TaskBalance(all))
	p := &analytics.Prioritizer{Combined: &combined, Now: b.now}
	level, _ := analytics.Level(p.Score(toAnalytics(t)))
	return level
}

// List returns every task of familyID in creation order.
func (b *Board) List(ctx context.Context, familyID string) ([]Task, error) {
	found, err := b.docs.Find(ctx, Collection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("familyId", familyID)},
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]Task, 0, len(found))
	for _, d := range found {
		var t Task
		if err := d.Data.Decode(&t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", d.ID, err)
		}
		if t.ID == "" {
			t.ID = d.ID
		}
		out = append(out, t)
	}
	return out, nil
}

// Analytics converts stored tasks for the analytics package.
func Analytics(ts []Task) []analytics.Task {
	out := make([]analytics.Task, len(ts))
	for i, t := range ts {
		out[i] = toAnalytics(t)
	}
	return out
}

func toAnalytics(t Task) analytics.Task {
	return analytics.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		AssignedTo:  t.AssignedTo,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		SubTasks:    len(t.SubTasks),
	}
}

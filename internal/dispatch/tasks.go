package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/tasks"
)

func (d *Dispatcher) addTask(ctx context.Context, message string, ac ActionContext) action.Result {
	in, err := d.extractor.Task(ctx, message)
	if err != nil {
		return action.Fail("I couldn't add this task. Please try again with more details about what the task involves.", err.Error())
	}
	t, err := d.board.Create(ctx, ac.FamilyID, ac.UserID, in)
	if err != nil {
		d.logger.Warn("task create failed", "family_id", ac.FamilyID, "error", err)
		return action.Fail("I encountered an error while adding this task. Please try being more specific about what needs to be done and who it's assigned to.", err.Error())
	}

	msg := fmt.Sprintf("I've added %q to your tasks", t.Title)
	if t.AssignedToName != "" {
		msg += " and assigned it to " + t.AssignedToName
	}
	msg += "."
	if t.DueDate != nil {
		msg += fmt.Sprintf(" It's due by %s.", t.DueDate.Format("January 2, 2006"))
	}
	msg += fmt.Sprintf(" You can find it in the %s column on your task board.", tasks.ColumnLabel(t.Column))
	return action.Succeed(msg, t)
}

func (d *Dispatcher) queryTasks(ctx context.Context, message string, ac ActionContext) action.Result {
	now := d.extractor.Now()
	params := d.extractor.Params(ctx, prompts.TaskQueryPrompt(now.Format(time.DateOnly)), prompts.QueryUserTurn("task", message))
	f := tasks.Filter{
		Assignee:  extract.Str(params, "assignee"),
		Status:    extract.Str(params, "status"),
		Timeframe: extract.Str(params, "timeframe"),
		Category:  extract.Str(params, "category"),
	}

	all, err := d.board.List(ctx, ac.FamilyID)
	if err != nil {
		return action.Fail("I encountered an error while retrieving tasks. Please try a more specific query.", err.Error())
	}
	found := f.Apply(all, now)
	return action.Succeed(tasks.Summary(f, found), map[string]any{"tasks": found})
}

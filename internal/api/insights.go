package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/analytics"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/tasks"
)

// Collections read by the workload endpoints.
const (
	// SurveyCollection holds one document per survey answer, tagged
	// with familyId.
	SurveyCollection = "surveyResponses"
	// PrioritiesCollection holds one document per family, keyed by
	// family id.
	PrioritiesCollection = "familyPriorities"
)

// workload is everything the analytics need for one family.
type workload struct {
	tasks      []analytics.Task
	answers    []analytics.SurveyAnswer
	priorities analytics.Priorities
}

func (s *Server) loadWorkload(ctx context.Context, familyID string) (workload, error) {
	var wl workload
	ts, err := s.board.List(ctx, familyID)
	if err != nil {
		return wl, err
	}
	wl.tasks = tasks.Analytics(ts)

	if s.docs == nil {
		return wl, nil
	}
	found, err := s.docs.Find(ctx, SurveyCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("familyId", familyID)},
	})
	if err != nil {
		return wl, fmt.Errorf("load survey answers: %w", err)
	}
	for _, d := range found {
		var a analytics.SurveyAnswer
		if err := d.Data.Decode(&a); err != nil {
			return wl, fmt.Errorf("decode survey answer %s: %w", d.ID, err)
		}
		wl.answers = append(wl.answers, a)
	}

	doc, err := s.docs.Get(ctx, PrioritiesCollection, familyID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
	case err != nil:
		return wl, fmt.Errorf("load priorities: %w", err)
	default:
		if err := doc.Decode(&wl.priorities); err != nil {
			return wl, fmt.Errorf("decode priorities: %w", err)
		}
	}
	return wl, nil
}

// workloadFor loads the family's workload or writes the error response.
func (s *Server) workloadFor(w http.ResponseWriter, r *http.Request) (workload, bool) {
	if s.board == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "task board not configured")
		return workload{}, false
	}
	familyID := chi.URLParam(r, "familyId")
	wl, err := s.loadWorkload(r.Context(), familyID)
	if err != nil {
		s.logger.Error("load workload failed", "family_id", familyID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load family workload")
		return workload{}, false
	}
	return wl, true
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	wl, ok := s.workloadFor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, analytics.DetectImbalance(wl.tasks, wl.answers, wl.priorities), s.logger)
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	wl, ok := s.workloadFor(w, r)
	if !ok {
		return
	}
	report := analytics.DetectImbalance(wl.tasks, wl.answers, wl.priorities)
	p := &analytics.Prioritizer{
		Combined:   &report.Combined,
		Priorities: wl.priorities,
		Now:        time.Now,
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"tasks": p.Prioritize(wl.tasks),
	}, s.logger)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	wl, ok := s.workloadFor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, analytics.Analyze(wl.tasks), s.logger)
}

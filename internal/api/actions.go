package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/eventcollect"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/identity"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/ledger"
)

// maxBody bounds JSON request bodies.
const maxBody = 64 << 10

// ActionRequest is the body of POST /v1/actions.
type ActionRequest struct {
	Message  string `json:"message"`
	FamilyID string `json:"familyId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// ActionResponse is an action result plus its message rendered as HTML
// for the chat view.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	HTML    string `json:"html,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newActionResponse(res action.Result) ActionResponse {
	resp := ActionResponse{
		Success: res.OK(),
		Message: res.Message(),
		HTML:    renderHTML(res.Message()),
	}
	if res.OK() {
		resp.Data = res.Data()
	} else {
		resp.Error = res.Detail()
	}
	return resp
}

// renderHTML converts a result message (plain text with markdown
// lists) to HTML. Raw HTML in the message is not passed through.
func renderHTML(msg string) string {
	if msg == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(msg), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.familyAllowed(r, req.FamilyID) {
		s.errorResponse(w, http.StatusForbidden, "family not accessible with this session")
		return
	}

	// Session identity overrides the resolver's remembered context.
	if sess, ok := identity.SessionFrom(r.Context()); ok {
		if req.UserID != "" && req.UserID != sess.UserID {
			s.errorResponse(w, http.StatusForbidden, "user does not match this session")
			return
		}
		req.FamilyID = sess.FamilyID
		req.UserID = sess.UserID
	}
	if !s.limiter.Allow(req.FamilyID) {
		w.Header().Set("Retry-After", "60")
		s.errorResponse(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), req.Message, req.FamilyID, req.UserID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, newActionResponse(res), s.logger)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, route := s.dispatcher.Classify(r.Context(), req.Message)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"kind":  kind,
		"route": route,
	}, s.logger)
}

// --- Event collection sessions ---

type sessionReplyRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, eventcollect.ErrNoSession):
		s.errorResponse(w, http.StatusNotFound, "session not found")
	case errors.Is(err, eventcollect.ErrSessionDone):
		s.errorResponse(w, http.StatusConflict, "session already completed")
	default:
		s.logger.Error("event collection failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "event collection failed")
	}
}

// collectionSession returns the {id} path segment once the caller's
// session may act on that collection session.
func (s *Server) collectionSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.collector == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "event collection not configured")
		return "", false
	}
	id := chi.URLParam(r, "id")
	if _, ok := identity.SessionFrom(r.Context()); !ok {
		return id, true
	}
	cs, err := s.collector.Lookup(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return "", false
	}
	if !s.familyAllowed(r, cs.FamilyID) {
		s.errorResponse(w, http.StatusForbidden, "family not accessible with this session")
		return "", false
	}
	return id, true
}

func (s *Server) handleSessionPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := s.collectionSession(w, r)
	if !ok {
		return
	}
	reply, err := s.collector.NextPrompt(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, reply, s.logger)
}

func (s *Server) handleSessionReply(w http.ResponseWriter, r *http.Request) {
	id, ok := s.collectionSession(w, r)
	if !ok {
		return
	}
	var req sessionReplyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		s.errorResponse(w, http.StatusBadRequest, "answer required")
		return
	}
	reply, err := s.collector.Respond(r.Context(), id, req.Answer)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, reply, s.logger)
}

// --- Learning ledger ---

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	MessageID string `json:"messageId"`
	Kind      string `json:"kind"`
	Comment   string `json:"comment"`
	Message   string `json:"message"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.MessageID == "" || req.Kind == "" {
		s.errorResponse(w, http.StatusBadRequest, "messageId and kind required")
		return
	}
	err := s.ledger.RecordFeedback(r.Context(), ledger.Feedback{
		MessageID: req.MessageID,
		Kind:      req.Kind,
		Comment:   req.Comment,
		Message:   req.Message,
	})
	if err != nil {
		s.logger.Error("record feedback failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]bool{"success": true}, s.logger)
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	st, err := s.ledger.FeedbackStats(r.Context())
	if err != nil {
		s.logger.Error("feedback stats failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load feedback stats")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, st, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"dispatcher": s.dispatcher.Statistics()}
	if s.ledger != nil {
		st, err := s.ledger.Stats(r.Context(), queryLimit(r, 20))
		if err != nil {
			s.logger.Error("ledger stats failed", "error", err)
			s.errorResponse(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		out["ledger"] = st
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out, s.logger)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.ResetStats()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.dispatcher.Statistics(), s.logger)
}

// kindParam validates the {kind} path segment.
func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (action.Kind, bool) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "ledger not configured")
		return "", false
	}
	kind, ok := action.Parse(chi.URLParam(r, "kind"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "unknown action kind")
		return "", false
	}
	return kind, true
}

func (s *Server) handleKindStats(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	rate, err := s.ledger.SuccessRate(r.Context(), kind.String())
	if err != nil {
		s.logger.Error("success rate failed", "kind", kind, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	history, err := s.ledger.History(r.Context(), kind.String(), queryLimit(r, 20))
	if err != nil {
		s.logger.Error("history failed", "kind", kind, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"actionType": kind,
		"rate":       rate,
		"history":    history,
	}, s.logger)
}

func (s *Server) handleKindPatterns(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	phrases, err := s.ledger.SuccessPatterns(r.Context(), kind.String())
	if err != nil {
		s.logger.Error("success patterns failed", "kind", kind, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load patterns")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"actionType": kind,
		"patterns":   phrases,
	}, s.logger)
}

// --- Dispatcher introspection ---

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	decisions := s.dispatcher.AuditLog(queryLimit(r, 20))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":     len(decisions),
		"decisions": decisions,
	}, s.logger)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	decision, ok := s.dispatcher.Explain(chi.URLParam(r, "requestId"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "decision not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, decision, s.logger)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.dispatcher.Diagnostics(), s.logger)
}

// Package eventcollect gathers the details a calendar event needs over
// several chat turns. A session starts from whatever the first message
// yielded, asks for the missing required fields one at a time, and
// writes the calendar event once the last answer arrives. Sessions are
// kept in the document store so a reply can land on any process.
package eventcollect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
)

// Collections used by the collector.
const (
	SessionCollection  = "eventCollectionSessions"
	CalendarCollection = "calendar_events"
)

// Session states.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

var (
	// ErrNoSession is returned for an unknown session id.
	ErrNoSession = errors.New("collection session not found")
	// ErrSessionDone is returned when replying to a finished session.
	ErrSessionDone = errors.New("collection session already completed")
)

// Session is a persisted collection flow.
type Session struct {
	ID        string         `json:"-"`
	FamilyID  string         `json:"familyId"`
	UserID    string         `json:"userId"`
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"collectedData"`
	Missing   []string       `json:"missingFields"`
	Step      int            `json:"currentStep"`
	Status    string         `json:"status"`
	EventID   string         `json:"eventId,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Reply is either the next question or the completion notice.
type Reply struct {
	SessionID  string `json:"sessionId"`
	Status     string `json:"status"`
	Field      string `json:"field,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"totalSteps,omitempty"`
	Progress   string `json:"progress,omitempty"`
	Message    string `json:"message"`
	EventID    string `json:"eventId,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Done reports whether the event has been written.
func (r Reply) Done() bool { return r.Status == StatusCompleted }

// Text is what the user sees: the question, or the completion notice.
func (r Reply) Text() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return r.Message
}

// Collector runs collection sessions.
type Collector struct {
	docs   docstore.Documents
	sink   events.Sink
	logger *slog.Logger
	now    func() time.Time

	// Serializes read-modify-write of sessions.
	mu sync.Mutex
}

// New creates a Collector. sink may be nil.
func New(docs docstore.Documents, sink events.Sink, logger *slog.Logger) *Collector {
	if sink == nil {
		sink = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		docs:   docs,
		sink:   sink,
		logger: logger.With("component", "eventcollect"),
		now:    time.Now,
	}
}

// SetClock replaces the collector's clock.
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

// Start opens a session for a new event. When nothing is missing the
// event is written immediately and the reply is already complete.
func (c *Collector) Start(ctx context.Context, familyID, userID string, seed Seed) (Reply, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Reply{}, fmt.Errorf("generate session ID: %w", err)
	}
	eventType := DetectType(seed)
	data := seedData(seed, eventType)

	s := &Session{
		ID:        id.String(),
		FamilyID:  familyID,
		UserID:    userID,
		EventType: eventType,
		Data:      data,
		Missing:   missingFields(eventType, data),
		Status:    StatusInProgress,
	}
	c.logger.Debug("collection started",
		"session_id", s.ID,
		"event_type", eventType,
		"missing", strings.Join(s.Missing, ","),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(s.Missing) == 0 {
		return c.complete(ctx, s)
	}
	if err := c.save(ctx, s); err != nil {
		return Reply{}, err
	}
	return c.prompt(s), nil
}

// Respond records the answer to the current question and returns the
// next question, or the completion notice after the last one. A blank
// answer repeats the current question.
func (c *Collector) Respond(ctx context.Context, sessionID, answer string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if s.Status == StatusCompleted {
		return Reply{}, ErrSessionDone
	}
	if s.Step < len(s.Missing) {
		if strings.TrimSpace(answer) == "" {
			return c.prompt(s), nil
		}
		field := s.Missing[s.Step]
		s.Data[field] = parseAnswer(field, answer, c.now())
		s.Step++
	}
	if s.Step >= len(s.Missing) {
		return c.complete(ctx, s)
	}
	if err := c.save(ctx, s); err != nil {
		return Reply{}, err
	}
	return c.prompt(s), nil
}

// NextPrompt returns the current question of a session without
// changing it.
func (c *Collector) NextPrompt(ctx context.Context, sessionID string) (Reply, error) {
	s, err := c.load(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if s.Status == StatusCompleted || s.Step >= len(s.Missing) {
		return Reply{
			SessionID: s.ID,
			Status:    StatusCompleted,
			Message:   "All required information has been collected!",
			EventID:   s.EventID,
		}, nil
	}
	return c.prompt(s), nil
}

// Lookup returns a stored session.
func (c *Collector) Lookup(ctx context.Context, sessionID string) (*Session, error) {
	return c.load(ctx, sessionID)
}

func (c *Collector) complete(ctx context.Context, s *Session) (Reply, error) {
	loc := c.now().Location()
	title := eventTitle(s.EventType, s.Data)
	start, hasTime, dated := startTime(s.Data, loc)

	doc := docstore.Doc{
		"familyId":            s.FamilyID,
		"userId":              s.UserID,
		"title":               title,
		"eventType":           s.EventType,
		"category":            category(s.EventType),
		"childName":           str(s.Data, "childName"),
		"location":            firstOf(s.Data, "location", "destination"),
		"description":         str(s.Data, "description"),
		"details":             details(s.Data),
		"source":              "chat",
		"collectionSessionId": s.ID,
		"createdAt":           c.now().UTC().Format(time.RFC3339),
	}
	if dated {
		doc["dateTime"] = start.Format(time.RFC3339)
		doc["endDateTime"] = endTime(s.Data, start, loc).Format(time.RFC3339)
	}

	eventID, err := c.docs.Add(ctx, CalendarCollection, doc)
	if err != nil {
		return Reply{}, fmt.Errorf("save calendar event: %w", err)
	}

	s.Status = StatusCompleted
	s.EventID = eventID
	if err := c.save(ctx, s); err != nil {
		// The event is already written.
		c.logger.Warn("session update failed after event write", "session_id", s.ID, "error", err)
	}
	c.sink.Notify(events.SourceCollector, events.KindCalendarRefresh, map[string]any{"eventId": eventID})
	c.logger.Info("calendar event added", "session_id", s.ID, "event_id", eventID, "event_type", s.EventType)

	msg := fmt.Sprintf("I've added %s to your calendar", title)
	switch {
	case dated && hasTime:
		msg += fmt.Sprintf(" for %s at %s", start.Format("Monday, January 2"), start.Format("3:04 PM"))
	case dated:
		msg += fmt.Sprintf(" for %s", start.Format("Monday, January 2"))
	}
	msg += "."

	return Reply{
		SessionID: s.ID,
		Status:    StatusCompleted,
		Message:   msg,
		EventID:   eventID,
		Title:     title,
	}, nil
}

func (c *Collector) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = c.now().UTC()
	doc, err := docstore.From(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.docs.Set(ctx, SessionCollection, s.ID, doc, false); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (c *Collector) load(ctx context.Context, id string) (*Session, error) {
	doc, err := c.docs.Get(ctx, SessionCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := doc.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	s.ID = id
	if s.Data == nil {
		s.Data = map[string]any{}
	}
	return &s, nil
}

func (c *Collector) prompt(s *Session) Reply {
	field := s.Missing[s.Step]
	total := len(s.Missing)
	return Reply{
		SessionID:  s.ID,
		Status:     StatusInProgress,
		Field:      field,
		Prompt:     question(s, field),
		Step:       s.Step + 1,
		TotalSteps: total,
		Progress:   fmt.Sprintf("%d/%d", s.Step+1, total),
	}
}

var followUpIntros = []string{
	"Thanks! Just a few more details. ",
	"Got it! Also, ",
	"Perfect! Now, ",
}

func question(s *Session, field string) string {
	base, ok := RequirementFor(s.EventType).Prompts[field]
	if !ok {
		display, ok := fieldDisplay[field]
		if !ok {
			display = splitCamel(field)
		}
		base = fmt.Sprintf("Could you tell me %s for this %s?", display, typeNoun(s.EventType))
	}
	switch field {
	case "location":
		base = "Where is this happening? I'll make sure everyone gets there on time!"
	case "equipmentNeeded":
		base = "Don't forget the gear! What equipment is needed for this?"
	}

	var intro string
	switch {
	case s.Step == 0:
		intro = "Great! Let's get this on your calendar. "
	case s.Step == len(s.Missing)-1:
		intro = "Almost done! "
	default:
		intro = followUpIntros[(s.Step-1)%len(followUpIntros)]
	}

	prefix := contextPrefix(s)
	if prefix == "" {
		return intro + base
	}
	return intro + prefix + lowerFirst(base)
}

func contextPrefix(s *Session) string {
	child := str(s.Data, "childName")
	switch t := s.EventType; {
	case t == TypeGeneral:
		return ""
	case child != "" && (t == TypeDoctor || t == TypeDentist):
		return fmt.Sprintf("For %s's %s appointment, ", child, t)
	case child != "" && t == TypeActivity:
		activity := str(s.Data, "activityType")
		if activity == "" {
			activity = "activity"
		}
		return fmt.Sprintf("For %s's %s, ", child, activity)
	case child != "":
		return fmt.Sprintf("For %s's %s, ", child, typeNoun(t))
	case t == TypeDoctor || t == TypeDentist:
		return fmt.Sprintf("For this %s appointment, ", t)
	case t == TypeDateNight:
		return "For your date night, "
	case t == TypeTravel || t == TypeVacation:
		return fmt.Sprintf("For your %s, ", t)
	default:
		return fmt.Sprintf("For this %s, ", typeNoun(t))
	}
}

func typeNoun(eventType string) string {
	switch eventType {
	case TypeGeneral:
		return "event"
	case TypeParentTeacher:
		return "parent-teacher conference"
	case TypeDateNight:
		return "date night"
	case TypeBirthday:
		return "birthday party"
	}
	return eventType
}

func seedData(seed Seed, eventType string) map[string]any {
	data := map[string]any{}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			data[key] = val
		}
	}
	set("title", seed.Title)
	set("childName", seed.ChildName)
	set("doctorName", seed.DoctorName)
	set("location", seed.Location)
	set("description", seed.Description)
	set("originalText", seed.OriginalText)
	set("eventType", seed.EventType)
	if !seed.DateTime.IsZero() {
		key := "date"
		if eventType == TypeTravel || eventType == TypeVacation {
			key = "startDate"
		}
		data[key] = seed.DateTime.Format(time.DateOnly)
		if h, m, _ := seed.DateTime.Clock(); h != 0 || m != 0 {
			data["time"] = seed.DateTime.Format("15:04")
		}
	}
	return data
}

func eventTitle(eventType string, data map[string]any) string {
	if t := str(data, "title"); t != "" {
		return t
	}
	child := str(data, "childName")
	switch eventType {
	case TypeDoctor, TypeDentist:
		t := possessive(child, eventType+" appointment")
		if doc := str(data, "doctorName"); doc != "" {
			t += " with " + doc
		}
		return t
	case TypeActivity:
		activity := str(data, "activityType")
		if activity == "" {
			activity = "activity"
		}
		return possessive(child, activity)
	case TypeBirthday:
		return possessive(str(data, "birthdayChildName"), "birthday party")
	case TypeParentTeacher:
		t := possessive(child, "parent-teacher conference")
		if teacher := str(data, "teacherName"); teacher != "" {
			t += " with " + teacher
		}
		return t
	case TypeDateNight:
		return "Date night"
	case TypePlaydate:
		return possessive(child, "playdate")
	case TypeTravel, TypeVacation:
		if dest := str(data, "destination"); dest != "" {
			return upperFirst(eventType) + " to " + dest
		}
		return upperFirst(eventType)
	}
	return "Event"
}

func possessive(name, thing string) string {
	if name == "" {
		return upperFirst(thing)
	}
	return name + "'s " + thing
}

func category(eventType string) string {
	switch eventType {
	case TypeDoctor, TypeDentist:
		return "appointment"
	case TypeGeneral:
		return "event"
	}
	return eventType
}

// Fields stored at the top level of a calendar event; the rest go
// under details.
var coreFields = map[string]bool{
	"title": true, "childName": true, "location": true, "description": true,
	"date": true, "time": true, "startDate": true, "endDate": true,
	"eventType": true, "originalText": true,
}

func details(data map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range data {
		if !coreFields[k] {
			out[k] = v
		}
	}
	return out
}

func firstOf(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := str(data, k); v != "" {
			return v
		}
	}
	return ""
}

func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

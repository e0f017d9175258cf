package eventcollect

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
)

// Monday.
var now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *recordingSink) Notify(source, kind string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, source+"/"+kind)
}

func testCollector(t *testing.T) (*Collector, *docstore.Store, *recordingSink) {
	t.Helper()
	s, err := docstore.NewStore(filepath.Join(t.TempDir(), "collect_test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	sink := &recordingSink{}
	c := New(s, sink, nil)
	c.SetClock(func() time.Time { return now })
	return c, s, sink
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name string
		seed Seed
		want string
	}{
		{"explicit dentist", Seed{EventType: "dentist"}, TypeDentist},
		{"appointment type", Seed{EventType: "appointment"}, TypeDoctor},
		{"practice type", Seed{EventType: "soccer practice"}, TypeActivity},
		{"playdate type", Seed{EventType: "playdate"}, TypePlaydate},
		{"date night type", Seed{EventType: "date night"}, TypeDateNight},
		{"vacation type", Seed{EventType: "vacation"}, TypeVacation},
		{"doctor in text", Seed{OriginalText: "appointment with Dr. Patel on Friday"}, TypeDoctor},
		{"doctor name field", Seed{DoctorName: "Dr. Lee"}, TypeDoctor},
		{"birthday title", Seed{Title: "Emma's birthday"}, TypeBirthday},
		{"lesson title", Seed{Title: "Piano lesson"}, TypeActivity},
		{"dental appt text", Seed{OriginalText: "dentist appt for Max"}, TypeDentist},
		{"plain appt text", Seed{OriginalText: "add an appt for Max"}, TypeDoctor},
		{"nothing known", Seed{EventType: "event", Title: "Dinner"}, TypeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectType(tt.seed); got != tt.want {
				t.Errorf("DetectType(%+v) = %q, want %q", tt.seed, got, tt.want)
			}
		})
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		data      map[string]any
		want      []string
	}{
		{
			name:      "doctor adds follow-up",
			eventType: TypeDoctor,
			data:      map[string]any{"date": "2026-03-10", "time": "14:00", "childName": "Emma", "doctorName": "Dr. Lee"},
			want:      []string{"location", "reasonForVisit"},
		},
		{
			name:      "general orders date first",
			eventType: TypeGeneral,
			data:      map[string]any{},
			want:      []string{"date", "time", "title"},
		},
		{
			name:      "capped at three",
			eventType: TypeBirthday,
			data:      map[string]any{},
			want:      []string{"date", "time", "location"},
		},
		{
			name:      "blank counts as missing",
			eventType: TypeDateNight,
			data:      map[string]any{"date": "2026-03-07", "time": " "},
			want:      []string{"time", "childcareArranged"},
		},
		{
			name:      "child from original text",
			eventType: TypePlaydate,
			data:      map[string]any{"date": "2026-03-07", "time": "10:00", "location": "park", "originalText": "playdate for Emma on Saturday"},
			want:      []string{"otherChildren"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := missingFields(tt.eventType, tt.data)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("missingFields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		field, answer string
		want          any
	}{
		{"date", "tomorrow", "2026-03-03"},
		{"date", "today", "2026-03-02"},
		{"date", "this friday", "2026-03-06"},
		{"date", "monday", "2026-03-09"},
		{"date", "3/15", "2026-03-15"},
		{"date", "4/1/27", "2027-04-01"},
		{"date", "2026-04-01", "2026-04-01"},
		{"date", "sometime soon", "sometime soon"},
		{"startDate", "next sunday", "2026-03-08"},
		{"time", "3pm", "15:00"},
		{"time", "4:30 PM", "16:30"},
		{"time", "12 am", "00:00"},
		{"time", "noon", "12:00"},
		{"time", "after lunch", "after lunch"},
		{"childcareArranged", "yes, grandma has them", true},
		{"childcareArranged", "not yet", false},
		{"childcareArranged", "maybe", "maybe"},
		{"location", "  Lincoln Park ", "Lincoln Park"},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.answer, func(t *testing.T) {
			if got := parseAnswer(tt.field, tt.answer, now); got != tt.want {
				t.Errorf("parseAnswer(%q, %q) = %#v, want %#v", tt.field, tt.answer, got, tt.want)
			}
		})
	}
}

func TestCollectorFlow(t *testing.T) {
	c, store, sink := testCollector(t)
	ctx := context.Background()

	r, err := c.Start(ctx, "fam-1", "user-1", Seed{Title: "Bake sale", OriginalText: "put the bake sale on the calendar"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := Reply{
		SessionID:  r.SessionID,
		Status:     StatusInProgress,
		Field:      "date",
		Prompt:     "Great! Let's get this on your calendar. Could you tell me what date for this event?",
		Step:       1,
		TotalSteps: 2,
		Progress:   "1/2",
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("Start reply mismatch (-want +got):\n%s", diff)
	}

	again, err := c.NextPrompt(ctx, r.SessionID)
	if err != nil {
		t.Fatalf("NextPrompt: %v", err)
	}
	if again.Prompt != r.Prompt {
		t.Errorf("NextPrompt = %q, want %q", again.Prompt, r.Prompt)
	}

	blank, err := c.Respond(ctx, r.SessionID, "   ")
	if err != nil {
		t.Fatalf("Respond blank: %v", err)
	}
	if blank.Field != "date" {
		t.Errorf("blank answer moved to %q", blank.Field)
	}

	r, err = c.Respond(ctx, r.SessionID, "next friday")
	if err != nil {
		t.Fatalf("Respond date: %v", err)
	}
	if r.Field != "time" || r.Prompt != "Almost done! Could you tell me what time for this event?" {
		t.Errorf("second question = %q %q", r.Field, r.Prompt)
	}

	r, err = c.Respond(ctx, r.SessionID, "4:30 pm")
	if err != nil {
		t.Fatalf("Respond time: %v", err)
	}
	if !r.Done() {
		t.Fatalf("reply status = %q, want completed", r.Status)
	}
	if want := "I've added Bake sale to your calendar for Friday, March 6 at 4:30 PM."; r.Text() != want {
		t.Errorf("completion = %q, want %q", r.Text(), want)
	}

	ev, err := store.Get(ctx, CalendarCollection, r.EventID)
	if err != nil {
		t.Fatalf("Get event: %v", err)
	}
	if got := ev.String("dateTime"); got != "2026-03-06T16:30:00Z" {
		t.Errorf("dateTime = %q", got)
	}
	if got := ev.String("endDateTime"); got != "2026-03-06T17:30:00Z" {
		t.Errorf("endDateTime = %q", got)
	}
	if ev.String("familyId") != "fam-1" || ev.String("title") != "Bake sale" || ev.String("category") != "event" {
		t.Errorf("stored event = %v", ev)
	}
	if diff := cmp.Diff([]string{events.SourceCollector + "/" + events.KindCalendarRefresh}, sink.kinds); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Respond(ctx, r.SessionID, "more"); !errors.Is(err, ErrSessionDone) {
		t.Errorf("Respond after completion error = %v, want ErrSessionDone", err)
	}
	done, err := c.NextPrompt(ctx, r.SessionID)
	if err != nil {
		t.Fatalf("NextPrompt completed: %v", err)
	}
	if !done.Done() || done.EventID != r.EventID {
		t.Errorf("NextPrompt after completion = %+v", done)
	}
}

func TestCollectorContextPrompt(t *testing.T) {
	c, _, _ := testCollector(t)
	ctx := context.Background()

	r, err := c.Start(ctx, "fam-1", "user-1", Seed{
		EventType:  "doctor",
		Title:      "Checkup",
		ChildName:  "Emma",
		DoctorName: "Dr. Lee",
		Location:   "Main St Clinic",
		DateTime:   time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := "Great! Let's get this on your calendar. For Emma's doctor appointment, what's the reason for this visit?"
	if r.Prompt != want {
		t.Errorf("prompt = %q, want %q", r.Prompt, want)
	}

	r, err = c.Respond(ctx, r.SessionID, "annual physical")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if want := "I've added Checkup to your calendar for Tuesday, March 10 at 2:00 PM."; r.Message != want {
		t.Errorf("completion = %q, want %q", r.Message, want)
	}
}

func TestCollectorCompletesImmediately(t *testing.T) {
	c, store, sink := testCollector(t)
	ctx := context.Background()

	r, err := c.Start(ctx, "fam-1", "user-1", Seed{
		Title:    "Book club",
		DateTime: time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if want := "I've added Book club to your calendar for Thursday, March 12 at 7:00 PM."; r.Message != want {
		t.Errorf("message = %q, want %q", r.Message, want)
	}
	n, err := store.Count(ctx, CalendarCollection)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("calendar events = %d, want 1", n)
	}
	if len(sink.kinds) != 1 {
		t.Errorf("notifications = %v", sink.kinds)
	}
}

func TestCollectorUnknownSession(t *testing.T) {
	c, _, _ := testCollector(t)
	if _, err := c.Respond(context.Background(), "nope", "yes"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Respond error = %v, want ErrNoSession", err)
	}
	if _, err := c.NextPrompt(context.Background(), "nope"); !errors.Is(err, ErrNoSession) {
		t.Errorf("NextPrompt error = %v, want ErrNoSession", err)
	}
}

func TestEventTitle(t *testing.T) {
	tests := []struct {
		eventType string
		data      map[string]any
		want      string
	}{
		{TypeDentist, map[string]any{"childName": "Max", "doctorName": "Dr. Kim"}, "Max's dentist appointment with Dr. Kim"},
		{TypeBirthday, map[string]any{"birthdayChildName": "Lily"}, "Lily's birthday party"},
		{TypeActivity, map[string]any{"activityType": "soccer"}, "Soccer"},
		{TypeVacation, map[string]any{"destination": "Maine"}, "Vacation to Maine"},
		{TypeGeneral, map[string]any{}, "Event"},
		{TypeMeeting, map[string]any{"title": "Budget review"}, "Budget review"},
	}
	for _, tt := range tests {
		if got := eventTitle(tt.eventType, tt.data); got != tt.want {
			t.Errorf("eventTitle(%s, %v) = %q, want %q", tt.eventType, tt.data, got, tt.want)
		}
	}
}

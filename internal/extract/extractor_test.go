package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/llm"
)

type scriptedClient struct {
	reply string
	err   error
	last  llm.Request
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.reply}, nil
}

func (c *scriptedClient) Ping(context.Context) error { return nil }

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestExtractor(c llm.Client) *Extractor {
	e := New(c, "test-model", time.Second, nil)
	e.SetClock(func() time.Time { return fixedNow })
	return e
}

func TestProviderScenarioPianoTeacher(t *testing.T) {
	msg := "add a piano teacher named Jane Smith, her email is jane@example.com"
	tests := []struct {
		name   string
		client llm.Client
	}{
		{"model answers", &scriptedClient{reply: `{"name":"Jane Smith","type":"education","specialty":"piano teacher","email":"jane@example.com","phone":null}`}},
		{"model rambles", &scriptedClient{reply: "Here is what I found: a teacher."}},
		{"model down", &scriptedClient{err: errors.New("503")}},
		{"no model", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestExtractor(tt.client).Provider(context.Background(), msg)
			if err != nil {
				t.Fatalf("Provider: %v", err)
			}
			if got.Name != "Jane Smith" || got.Type != TypeMusic || got.Email != "jane@example.com" {
				t.Errorf("provider = %+v", got)
			}
			if !strings.Contains(got.Specialty, "piano") {
				t.Errorf("specialty = %q, want piano", got.Specialty)
			}
			if got.Phone != "" || got.ChildName != "" {
				t.Errorf("absent fields should be empty: %+v", got)
			}
		})
	}
}

func TestProviderScenarioSwimCoach(t *testing.T) {
	c := &scriptedClient{reply: "```json\n{\"name\": \"Max's Swim Coach\", \"type\": \"coach\", \"specialty\": \"swim coach\", \"email\": null, \"phone\": null}\n```"}
	got, err := newTestExtractor(c).Provider(context.Background(), "schedule a swim coach for Max")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	want := Provider{
		Name:      "Max's Swim Coach",
		Type:      TypeCoach,
		Specialty: "swimming coach",
		ChildName: "Max",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Provider mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(c.last.System, "childName: Max") {
		t.Error("pre-extracted child name not passed to the model")
	}
}

func TestProviderBabysitterOverridesModel(t *testing.T) {
	c := &scriptedClient{reply: `{"name":"Maria","type":"coach","specialty":"soccer"}`}
	got, err := newTestExtractor(c).Provider(context.Background(), "add a babysitter for Lily named Maria")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeChildcare || got.Specialty != "babysitter" || got.ChildName != "Lily" {
		t.Errorf("provider = %+v", got)
	}
}

func TestProviderNoName(t *testing.T) {
	_, err := newTestExtractor(&scriptedClient{reply: "{}"}).Provider(context.Background(), "add a doctor")
	if !errors.Is(err, ErrNoName) {
		t.Errorf("err = %v, want ErrNoName", err)
	}
}

func TestEvent(t *testing.T) {
	c := &scriptedClient{reply: `{"title":"Dental cleaning","eventType":"dental","appointmentType":"checkup","date":"2026-03-10","time":"14:30","location":"Smile Dental","childName":"Emma"}`}
	got, err := newTestExtractor(c).Event(context.Background(), "schedule a dentist appointment for Emma on March 10 at 2:30pm")
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	wantTime := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	if !got.DateTime.Equal(wantTime) {
		t.Errorf("DateTime = %v, want %v", got.DateTime, wantTime)
	}
	if got.Title != "Dental cleaning" || got.ChildName != "Emma" || got.Location != "Smile Dental" {
		t.Errorf("event = %+v", got)
	}
}

func TestEventTitleFallback(t *testing.T) {
	got, err := newTestExtractor(nil).Event(context.Background(), "add a checkup appointment for Noah")
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if got.Title != "Checkup" || got.ChildName != "Noah" || !got.DateTime.IsZero() {
		t.Errorf("event = %+v", got)
	}

	if _, err := newTestExtractor(nil).Event(context.Background(), "put something on"); !errors.Is(err, ErrNoName) {
		t.Errorf("err = %v, want ErrNoName", err)
	}
}

func TestTask(t *testing.T) {
	c := &scriptedClient{reply: `Sure thing! {"title":"Book swim lessons","assignedTo":"Papa","dueDate":"2026-03-05","priority":"High","subTasks":["compare pools",{"title":"call the pool"}]}`}
	got, err := newTestExtractor(c).Task(context.Background(), "add a task for papa to book swim lessons by Thursday")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got.Title != "Book swim lessons" || got.AssignedTo != "Papa" || got.Priority != "high" {
		t.Errorf("task = %+v", got)
	}
	if got.DueDate == nil || got.DueDate.Format(time.DateOnly) != "2026-03-05" {
		t.Errorf("due = %v", got.DueDate)
	}
	if diff := cmp.Diff([]string{"compare pools", "call the pool"}, got.SubTasks); diff != "" {
		t.Errorf("subtasks (-want +got):\n%s", diff)
	}
	if got.Description == "" {
		t.Error("description should default to the message")
	}
}

func TestTaskAfterLeadInLine(t *testing.T) {
	c := &scriptedClient{reply: "Here's the extracted task:\n{\"title\":\"Buy milk\",\"assignedTo\":\"Papa\",\"dueDate\":\"2026-03-04\"}"}
	got, err := newTestExtractor(c).Task(context.Background(), "papa needs to buy milk by wednesday")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got.Title != "Buy milk" || got.AssignedTo != "Papa" {
		t.Errorf("task = %+v", got)
	}
	if got.DueDate == nil || got.DueDate.Format(time.DateOnly) != "2026-03-04" {
		t.Errorf("due = %v", got.DueDate)
	}
}

func TestTaskRegexFallback(t *testing.T) {
	got, err := newTestExtractor(nil).Task(context.Background(), "add a task to renew passports")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if got.Title != "Renew passports" || got.DueDate != nil {
		t.Errorf("task = %+v", got)
	}
}

func TestGrowth(t *testing.T) {
	c := &scriptedClient{reply: `{"childName":"Lily","height":null,"weight":"52 lbs","date":null}`}
	got, err := newTestExtractor(c).Growth(context.Background(), "record Lily's height 4 ft 2 in")
	if err != nil {
		t.Fatalf("Growth: %v", err)
	}
	want := Growth{ChildName: "Lily", Height: "4 ft 2 in", Weight: "52 lbs", Date: "2026-03-02"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Growth mismatch (-want +got):\n%s", diff)
	}
}

func TestParamsNeverFails(t *testing.T) {
	e := newTestExtractor(&scriptedClient{reply: "no idea"})
	if got := e.Params(context.Background(), "sys", "user"); len(got) != 0 {
		t.Errorf("Params = %v, want empty", got)
	}
}

func TestStr(t *testing.T) {
	m := map[string]any{"s": " x ", "n": float64(4.5), "null": "null", "nil": nil, "b": true}
	tests := map[string]string{"s": "x", "n": "4.5", "null": "", "nil": "", "b": "true", "missing": ""}
	for key, want := range tests {
		if got := Str(m, key); got != want {
			t.Errorf("Str(%q) = %q, want %q", key, got, want)
		}
	}
}

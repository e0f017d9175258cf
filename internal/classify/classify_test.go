package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/llm"
)

func TestMain(m *testing.M) {
	// The Gemini SDK starts the opencensus stats worker at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type cannedClient struct {
	reply string
	err   error
	last  llm.Request
}

func (c *cannedClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.reply}, nil
}

func (c *cannedClient) Ping(context.Context) error { return c.err }

func TestMatchDirect(t *testing.T) {
	tests := []struct {
		msg  string
		want action.Kind
		ok   bool
	}{
		{"add a babysitter for Lily named Maria", action.AddProvider, true},
		{"Create a new chore for the kids", action.AddTask, true},
		{"add to-do: call the plumber", action.AddTask, true},
		{"new tasks for this weekend", action.AddTask, true},
		{"Schedule a checkup for Emma next Tuesday", action.AddAppointment, true},
		{"add an appointment with the dentist", action.AddAppointment, true},
		{"record Lily's height 4 ft 2 in", action.TrackGrowth, true},
		{"track weight for Max", action.TrackGrowth, true},
		// Task rule outranks provider rule.
		{"add a task to email the piano teacher", action.AddTask, true},
		// Provider rule outranks appointment rule.
		{"add doctor appointment for Max", action.AddProvider, true},
		// Word boundaries: "address" is not "add".
		{"what is the doctor's address", "", false},
		{"what tasks does Kim have this week", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := MatchDirect(tt.msg)
			if got != tt.want || ok != tt.ok {
				t.Errorf("MatchDirect(%q) = %q, %v; want %q, %v", tt.msg, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRecheck(t *testing.T) {
	tests := []struct {
		msg  string
		want action.Kind
		ok   bool
	}{
		{"adding our new doctors", action.AddProvider, true},
		{"could you schedule Max's dental appointments", action.AddAppointment, true},
		{"tracking heights this month", action.TrackGrowth, true},
		{"created todos yesterday", action.AddTask, true},
		{"what tasks does Kim have this week", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := Recheck(tt.msg)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Recheck(%q) = %q, %v; want %q, %v", tt.msg, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		raw  string
		want action.Kind
		ok   bool
		via  string
	}{
		{"query_tasks", action.QueryTasks, true, ViaModel},
		{"  ADD_PROVIDER\n", action.AddProvider, true, ViaModel},
		{"add-provider", action.AddProvider, true, ViaNormalized},
		{"add event.", action.AddEvent, true, ViaNormalized},
		{"`track_growth`", action.TrackGrowth, true, ViaNormalized},
		{"The intent is: add_task", action.AddTask, true, ViaNormalized},
		{"unknown", "", false, ViaNone},
		{"Unknown.", "", false, ViaNone},
		{"", "", false, ViaNone},
		{"I cannot help with that", "", false, ViaNone},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d := Interpret(tt.raw)
			if d.Kind != tt.want || d.OK != tt.ok || d.Via != tt.via {
				t.Errorf("Interpret(%q) = %+v; want kind %q ok %v via %s", tt.raw, d, tt.want, tt.ok, tt.via)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("model label", func(t *testing.T) {
		client := &cannedClient{reply: "query_providers"}
		c := New(client, "m", time.Second, nil, nil)
		d := c.Classify(context.Background(), "who is our dentist?")
		if d.Kind != action.QueryProviders || !d.OK {
			t.Fatalf("Classify = %+v", d)
		}
		if !strings.Contains(client.last.System, "- add_provider (") {
			t.Errorf("system prompt does not list the catalog:\n%s", client.last.System)
		}
		if client.last.Temperature == nil || *client.last.Temperature != classifyTemperature {
			t.Errorf("temperature = %v, want %v", client.last.Temperature, classifyTemperature)
		}
		if got := client.last.Messages[0].Content; got != `Classify this request: "who is our dentist?"` {
			t.Errorf("user turn = %q", got)
		}
	})

	t.Run("model down uses keyword map", func(t *testing.T) {
		c := New(&cannedClient{err: errors.New("offline")}, "m", time.Second, nil, nil)
		d := c.Classify(context.Background(), "please query tasks for Kim")
		if d.Kind != action.QueryTasks || d.Via != ViaKeyword {
			t.Errorf("Classify = %+v, want keyword fallback to query_tasks", d)
		}
	})

	t.Run("explicit unknown stays unknown", func(t *testing.T) {
		c := New(&cannedClient{reply: "unknown"}, "m", time.Second, nil, nil)
		if d := c.Classify(context.Background(), "please query tasks"); d.OK {
			t.Errorf("Classify = %+v, want miss", d)
		}
	})

	t.Run("calendar detection", func(t *testing.T) {
		c := New(&cannedClient{reply: "unknown"}, "m", time.Second, &Guard{}, nil)
		d := c.Classify(context.Background(), "put soccer practice on Saturday at 9am")
		if d.Kind != action.AddEvent || d.Via != ViaCalendar {
			t.Errorf("Classify = %+v, want calendar detection", d)
		}
	})

	t.Run("calendar detection suppressed", func(t *testing.T) {
		g := &Guard{}
		release := g.Hold(time.Minute)
		defer release()
		c := New(&cannedClient{reply: "unknown"}, "m", time.Second, g, nil)
		if d := c.Classify(context.Background(), "put soccer practice on Saturday at 9am"); d.OK {
			t.Errorf("Classify = %+v, want miss while suppressed", d)
		}
	})
}

func TestLooksLikeCalendar(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"schedule dinner with the Smiths tomorrow", true},
		{"add swim lesson at 4:30pm", true},
		{"book a sitter for next friday", true},
		{"add a babysitter for Lily", false},
		{"what is on tomorrow", false},
	}
	for _, tt := range tests {
		if got := LooksLikeCalendar(tt.msg); got != tt.want {
			t.Errorf("LooksLikeCalendar(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestGuard(t *testing.T) {
	t.Run("nil guard is never suppressed", func(t *testing.T) {
		var g *Guard
		if g.Suppressed() {
			t.Error("nil guard suppressed")
		}
	})

	t.Run("explicit release", func(t *testing.T) {
		g := &Guard{}
		release := g.Hold(time.Minute)
		if !g.Suppressed() {
			t.Fatal("not suppressed after Hold")
		}
		release()
		release()
		if g.Suppressed() {
			t.Error("still suppressed after release")
		}
	})

	t.Run("overlapping holds", func(t *testing.T) {
		g := &Guard{}
		r1 := g.Hold(time.Minute)
		r2 := g.Hold(time.Minute)
		r1()
		if !g.Suppressed() {
			t.Error("first release cleared the second hold")
		}
		r2()
		if g.Suppressed() {
			t.Error("suppressed after both releases")
		}
	})

	t.Run("deadline", func(t *testing.T) {
		g := &Guard{}
		release := g.Hold(10 * time.Millisecond)
		defer release()
		deadline := time.Now().Add(2 * time.Second)
		for g.Suppressed() {
			if time.Now().After(deadline) {
				t.Fatal("hold outlived its window")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
}

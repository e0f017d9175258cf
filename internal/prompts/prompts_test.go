package prompts

import (
	"strings"
	"testing"
)

func TestClassifierSystemPrompt(t *testing.T) {
	got := ClassifierSystemPrompt([]Label{
		{Name: "add_provider", Hint: "for adding providers"},
		{Name: "add_event", Hint: "for adding events"},
	})
	for _, want := range []string{
		"- add_provider (for adding providers)",
		"- add_event (for adding events)",
		"- unknown",
		"Return ONLY the intent label",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestClassifierUserTurn(t *testing.T) {
	got := ClassifierUserTurn(`add "Dr. Lee"`)
	want := `Classify this request: "add \"Dr. Lee\""`
	if got != want {
		t.Errorf("ClassifierUserTurn() = %q, want %q", got, want)
	}
}

func TestEntityPrompt(t *testing.T) {
	tests := []struct {
		schema  string
		want    []string
		wantErr bool
	}{
		{SchemaProvider, []string{"ALWAYS set type to \"childcare\"", "childName: Max"}, false},
		{SchemaEvent, []string{"Today is 2026-03-02", "dateTime"}, false},
		{SchemaTask, []string{"assignedTo", "subTasks"}, false},
		{SchemaGrowth, []string{"shoeSize", "clothingSize"}, false},
		{"recipe", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			got, err := EntityPrompt(tt.schema, "2026-03-02", map[string]string{"childName": "Max"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("prompt missing %q", w)
				}
			}
		})
	}
}

func TestEntityPromptHintsSorted(t *testing.T) {
	got, err := EntityPrompt(SchemaProvider, "", map[string]string{"phone": "555", "email": "a@b.co"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(got, "- email:") > strings.Index(got, "- phone:") {
		t.Error("hints should be listed in key order")
	}
}

func TestQueryPrompts(t *testing.T) {
	if !strings.Contains(TaskQueryPrompt("2026-03-02"), "timeframe") {
		t.Error("task query prompt missing timeframe")
	}
	if !strings.Contains(ProviderQueryPrompt(), "specialty") {
		t.Error("provider query prompt missing specialty")
	}
	if !strings.Contains(CalendarQueryPrompt("2026-03-02"), "startDate") {
		t.Error("calendar query prompt missing startDate")
	}
	if got := QueryUserTurn("task", "what's due"); got != `Extract task query parameters from: "what's due"` {
		t.Errorf("QueryUserTurn() = %q", got)
	}
}

package extract

import "testing"

func TestChildName(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"add a babysitter for Lily named Maria", "Lily"},
		{"we need a nanny for my daughter Emma", "Emma"},
		{"Sophie needs a babysitter on Friday", "Sophie"},
		{"schedule a swim coach for Max", "Max"},
		{"add a dentist appointment for Monday for Noah", "Noah"},
		{"add a piano teacher named Jane Smith", ""},
		{"for the kids", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := ChildName(tt.msg); got != tt.want {
				t.Errorf("ChildName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContactExtractors(t *testing.T) {
	msg := "Dr. Lee can be reached at (555) 123-4567 or lee.office@clinic-example.org."
	if got := Email(msg); got != "lee.office@clinic-example.org" {
		t.Errorf("Email() = %q", got)
	}
	if got := Phone(msg); got != "(555) 123-4567" {
		t.Errorf("Phone() = %q", got)
	}
	if got := Phone("call +1 555.222.3333 today"); got != "+1 555.222.3333" {
		t.Errorf("Phone(country code) = %q", got)
	}
	if got := Phone("no digits"); got != "" {
		t.Errorf("Phone(none) = %q", got)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		explicit string
		full     string
	}{
		{"named two tokens", "add a piano teacher named Jane Smith, her email is jane@example.com", "Jane Smith", "Jane Smith"},
		{"called one token", "add a babysitter called Maria", "Maria", ""},
		{"is two tokens", "our new pediatrician is Emily Chen", "Emily Chen", "Emily Chen"},
		{"title skipped", "Add Dr. Robert Fox to the directory", "", "Robert Fox"},
		{"sentence starter skipped", "Please add Tom Baker as our plumber", "", "Tom Baker"},
		{"short message", "Add Al Bo", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExplicitName(tt.msg); got != tt.explicit {
				t.Errorf("ExplicitName() = %q, want %q", got, tt.explicit)
			}
			if got := FullName(tt.msg); got != tt.full {
				t.Errorf("FullName() = %q, want %q", got, tt.full)
			}
		})
	}
}

func TestTaskTitle(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"add a task to buy milk", "Buy milk"},
		{"create a new todo: call the plumber.", "Call the plumber"},
		{"new chore for the kids", "The kids"},
		{"what is on the calendar", ""},
	}
	for _, tt := range tests {
		if got := TaskTitle(tt.msg); got != tt.want {
			t.Errorf("TaskTitle(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestMeasurements(t *testing.T) {
	h, w, shoe, cloth := Measurements("record Lily's height 4 ft 2 in and weight 52 lbs, shoe size 13, clothing size 5T")
	if h != "4 ft 2 in" {
		t.Errorf("height = %q", h)
	}
	if w != "52 lbs" {
		t.Errorf("weight = %q", w)
	}
	if shoe != "13" {
		t.Errorf("shoe = %q", shoe)
	}
	if cloth != "5T" {
		t.Errorf("clothing = %q", cloth)
	}
}

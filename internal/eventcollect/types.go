package eventcollect

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// Event types with their own field requirements.
const (
	TypeDentist       = "dentist"
	TypeDoctor        = "doctor"
	TypeActivity      = "activity"
	TypeBirthday      = "birthday"
	TypeMeeting       = "meeting"
	TypeParentTeacher = "parent-teacher"
	TypeDateNight     = "date-night"
	TypeTravel        = "travel"
	TypeVacation      = "vacation"
	TypePlaydate      = "playdate"
	TypeGeneral       = "general"
)

// Requirement lists the fields an event type needs before it goes on
// the calendar, and the question asked for each.
type Requirement struct {
	Required []string
	Prompts  map[string]string
}

var requirements = map[string]Requirement{
	TypeDentist: {
		Required: []string{"date", "time", "childName", "location", "doctorName", "insuranceInfo"},
		Prompts: map[string]string{
			"childName":     "Which child is this dental appointment for?",
			"doctorName":    "Which dentist will you be seeing?",
			"location":      "Where is the dentist office located?",
			"date":          "What date is this appointment scheduled for?",
			"time":          "What time is the appointment?",
			"insuranceInfo": "Should I note any insurance information for this appointment?",
		},
	},
	TypeDoctor: {
		Required: []string{"date", "time", "childName", "location", "doctorName", "reasonForVisit"},
		Prompts: map[string]string{
			"childName":      "Which child is this doctor appointment for?",
			"doctorName":     "Which doctor will you be seeing?",
			"location":       "Where is the doctor's office located?",
			"date":           "What date is this appointment scheduled for?",
			"time":           "What time is the appointment?",
			"reasonForVisit": "What's the reason for this visit?",
		},
	},
	TypeActivity: {
		Required: []string{"activityType", "date", "time", "location", "childName"},
		Prompts: map[string]string{
			"childName":       "Which child is participating in this activity?",
			"activityType":    "What type of activity is this? (e.g., soccer, music, dance)",
			"date":            "What date is this activity scheduled for?",
			"time":            "What time does the activity start?",
			"location":        "Where will this activity take place?",
			"equipmentNeeded": "Is there any equipment needed for this activity?",
		},
	},
	TypeBirthday: {
		Required: []string{"date", "time", "location", "birthdayChildName", "birthdayChildAge", "guestList"},
		Prompts: map[string]string{
			"birthdayChildName": "Whose birthday party is this?",
			"birthdayChildAge":  "How old will they be turning?",
			"date":              "What date is the birthday party?",
			"time":              "What time does the party start?",
			"location":          "Where will the party be held?",
			"guestList":         "Who's invited to the party?",
		},
	},
	TypeMeeting: {
		Required: []string{"title", "date", "time", "agenda"},
		Prompts: map[string]string{
			"title":  "What's the title or purpose of this meeting?",
			"date":   "What date is the meeting scheduled for?",
			"time":   "What time is the meeting?",
			"agenda": "What items should be on the agenda for this meeting?",
		},
	},
	TypeParentTeacher: {
		Required: []string{"date", "time", "location", "childName", "teacherName"},
		Prompts: map[string]string{
			"childName":   "Which child is this parent-teacher conference for?",
			"teacherName": "What's the teacher's name?",
			"date":        "What date is the conference scheduled for?",
			"time":        "What time is the conference?",
			"location":    "Where will the conference take place?",
		},
	},
	TypeDateNight: {
		Required: []string{"date", "time", "childcareArranged"},
		Prompts: map[string]string{
			"date":              "What date is your date night planned for?",
			"time":              "What time will you be going out?",
			"childcareArranged": "Have you arranged childcare for the kids?",
		},
	},
	TypeTravel: {
		Required: []string{"title", "startDate", "endDate", "destination", "participants"},
		Prompts: map[string]string{
			"title":        "What would you like to call this trip?",
			"startDate":    "When will you be departing?",
			"endDate":      "When will you be returning?",
			"destination":  "Where are you planning to go?",
			"participants": "Who will be going on this trip?",
		},
	},
	TypeVacation: {
		Required: []string{"title", "startDate", "endDate", "destination", "participants"},
		Prompts: map[string]string{
			"title":        "What would you like to call this vacation?",
			"startDate":    "When will your vacation begin?",
			"endDate":      "When will you be returning from vacation?",
			"destination":  "Where are you planning to vacation?",
			"participants": "Who will be going on this vacation?",
		},
	},
	TypePlaydate: {
		Required: []string{"date", "time", "location", "childName", "otherChildren"},
		Prompts: map[string]string{
			"childName":     "Which of your children is having the playdate?",
			"otherChildren": "Which other children will be at the playdate?",
			"date":          "What date is the playdate scheduled for?",
			"time":          "What time will the playdate start?",
			"location":      "Where will the playdate take place?",
		},
	},
	TypeGeneral: {
		Required: []string{"title", "date", "time"},
	},
}

// RequirementFor returns the requirement for an event type, falling
// back to the general one.
func RequirementFor(eventType string) Requirement {
	if r, ok := requirements[eventType]; ok {
		return r
	}
	return requirements[TypeGeneral]
}

// Asked after the required fields when at most two are missing.
var followUpField = map[string]string{
	TypeDoctor:   "reasonForVisit",
	TypeActivity: "equipmentNeeded",
	TypeDentist:  "insuranceInfo",
}

// Fields asked first, in this order; others keep their listed order.
var fieldPriority = []string{"date", "time", "childName", "doctorName", "location"}

// maxQuestions bounds how many questions a session asks.
const maxQuestions = 3

var fieldDisplay = map[string]string{
	"childName":      "which child this is for",
	"date":           "what date",
	"time":           "what time",
	"location":       "where",
	"title":          "what to call this event",
	"doctorName":     "which doctor you'll be seeing",
	"reasonForVisit": "the reason for this visit",
	"duration":       "how long it will last",
}

var (
	sportRe      = regexp.MustCompile(`soccer|basketball|baseball|dance|piano|guitar|swim`)
	drNameRe     = regexp.MustCompile(`\bdr\.?\s+[a-z]+`)
	seeDoctorRe  = regexp.MustCompile(`(?:with|see)\s+(?:dr\.?|doctor)\s+[a-z]+`)
	tripRe       = regexp.MustCompile(`trip|travel|going to`)
	forChildRe   = regexp.MustCompile(`(?i)for\s+(\w+)(?:\s+(?:next|on|at|this)|\s*$)`)
	notChildWord = map[string]bool{
		"myself": true, "me": true, "appointment": true, "meeting": true, "doctor": true, "dentist": true,
	}
)

// Seed is what is known about an event before any question is asked.
type Seed struct {
	EventType    string
	Title        string
	ChildName    string
	DoctorName   string
	Location     string
	Description  string
	OriginalText string
	// DateTime is zero when no date was read. A midnight time counts
	// as a date without a time.
	DateTime time.Time
}

// DetectType picks the event type from the extracted type, the title
// and the original request text, in that order.
func DetectType(s Seed) string {
	text := strings.ToLower(s.OriginalText)
	title := strings.ToLower(s.Title)

	if typ := strings.ToLower(s.EventType); typ != "" {
		switch {
		case containsAny(typ, "dentist", "dental") || strings.Contains(title, "dentist") || strings.Contains(text, "dentist"):
			return TypeDentist
		case containsAny(typ, "doctor", "medical", "appointment", "pediatr", "check-up", "checkup") ||
			containsAny(title, "doctor", "dr.", "checkup") ||
			containsAny(text, "doctor", "dr.") || drNameRe.MatchString(text):
			return TypeDoctor
		case containsAny(typ, "soccer", "practice", "lesson", "class", "music", "sport") || sportRe.MatchString(text):
			return TypeActivity
		case strings.Contains(typ, "birthday") || strings.Contains(text, "birthday"):
			return TypeBirthday
		case strings.Contains(typ, "meeting") || strings.Contains(text, "meeting"):
			return TypeMeeting
		case containsAny(typ, "conference", "teacher") || containsAny(text, "parent-teacher", "teacher conference"):
			return TypeParentTeacher
		case containsAny(typ, "playdate", "play date") || containsAny(text, "playdate", "play date"):
			return TypePlaydate
		case containsAny(typ, "date", "night out") || strings.Contains(text, "date night"):
			return TypeDateNight
		case containsAny(typ, "trip", "travel") || tripRe.MatchString(text):
			return TypeTravel
		case strings.Contains(typ, "vacation") || strings.Contains(text, "vacation"):
			return TypeVacation
		}
	}

	if seeDoctorRe.MatchString(text) || s.DoctorName != "" {
		return TypeDoctor
	}

	switch {
	case title == "":
	case containsAny(title, "dentist", "dental"):
		return TypeDentist
	case containsAny(title, "doctor", "dr.", "medical", "appointment", "checkup", "check-up"):
		return TypeDoctor
	case strings.Contains(title, "birthday"):
		return TypeBirthday
	case containsAny(title, "practice", "lesson", "class", "activity") || sportRe.MatchString(title):
		return TypeActivity
	}

	if containsAny(text, "appt", "appointment") {
		if containsAny(text, "dental", "dentist", "teeth") {
			return TypeDentist
		}
		return TypeDoctor
	}
	return TypeGeneral
}

// missingFields lists the questions to ask for data, at most
// maxQuestions, most important first. It may fill childName in data
// from a "for <name>" phrase in the original text.
func missingFields(eventType string, data map[string]any) []string {
	if !present(data, "childName") {
		if m := forChildRe.FindStringSubmatch(str(data, "originalText")); m != nil && !notChildWord[strings.ToLower(m[1])] {
			data["childName"] = m[1]
		}
	}

	var missing []string
	for _, field := range RequirementFor(eventType).Required {
		if field == "title" && (eventType == TypeDoctor || eventType == TypeDentist) && present(data, "doctorName") {
			continue
		}
		if !present(data, field) {
			missing = append(missing, field)
		}
	}

	if len(missing) <= 2 {
		if f, ok := followUpField[eventType]; ok && !present(data, f) && !slices.Contains(missing, f) {
			missing = append(missing, f)
		}
	}

	ordered := make([]string, 0, len(missing))
	for _, f := range fieldPriority {
		if slices.Contains(missing, f) {
			ordered = append(ordered, f)
		}
	}
	for _, f := range missing {
		if !slices.Contains(fieldPriority, f) {
			ordered = append(ordered, f)
		}
	}
	if len(ordered) > maxQuestions {
		ordered = ordered[:maxQuestions]
	}
	return ordered
}

func present(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	}
	return true
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

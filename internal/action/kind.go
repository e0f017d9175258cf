package action

import "strings"

// Kind identifies one action in the catalog.
type Kind string

// Provider directory actions.
const (
	AddProvider    Kind = "add_provider"
	UpdateProvider Kind = "update_provider"
	DeleteProvider Kind = "delete_provider"
)

// Calendar actions.
const (
	AddEvent       Kind = "add_event"
	AddAppointment Kind = "add_appointment"
	UpdateEvent    Kind = "update_event"
	DeleteEvent    Kind = "delete_event"
)

// Task board actions.
const (
	AddTask      Kind = "add_task"
	CompleteTask Kind = "complete_task"
	ReassignTask Kind = "reassign_task"
)

// Child tracking actions.
const (
	TrackGrowth      Kind = "track_growth"
	AddMedicalRecord Kind = "add_medical_record"
	AddMilestone     Kind = "add_milestone"
)

// Document, relationship and query actions.
const (
	AddDocument       Kind = "add_document"
	ScheduleDateNight Kind = "schedule_date_night"
	QueryCalendar     Kind = "query_calendar"
	QueryTasks        Kind = "query_tasks"
	QueryProviders    Kind = "query_providers"
)

// Unknown is the classifier's explicit "none of the above" label. It is
// not routable.
const Unknown Kind = "unknown"

// Group names a family of related kinds.
type Group string

const (
	GroupProvider     Group = "provider"
	GroupEvent        Group = "event"
	GroupTask         Group = "task"
	GroupChild        Group = "child"
	GroupDocument     Group = "document"
	GroupRelationship Group = "relationship"
	GroupQuery        Group = "query"
)

// Spec describes one catalog entry.
type Spec struct {
	Kind  Kind
	Group Group
	// Hint is the one-line description given to the classifier.
	Hint string
	// Label is the human wording used in messages ("add provider").
	Label string
}

var catalog = []Spec{
	{AddProvider, GroupProvider, "for adding healthcare providers, teachers, coaches, babysitters; a name with a phone or email and no schedule means a provider", "add provider"},
	{UpdateProvider, GroupProvider, "for changing details of an existing provider", "update provider"},
	{DeleteProvider, GroupProvider, "for removing a provider from the directory", "delete provider"},
	{AddEvent, GroupEvent, "for adding events to calendar; a concrete date or time means an event", "add event"},
	{AddAppointment, GroupEvent, "for medical/dental appointments", "add appointment"},
	{UpdateEvent, GroupEvent, "for modifying existing events", "update event"},
	{DeleteEvent, GroupEvent, "for removing events", "delete event"},
	{AddTask, GroupTask, "for creating tasks or todos", "add task"},
	{CompleteTask, GroupTask, "for marking tasks as complete", "complete task"},
	{ReassignTask, GroupTask, "for reassigning tasks to other family members", "reassign task"},
	{TrackGrowth, GroupChild, "for recording children's measurements", "track growth"},
	{AddMedicalRecord, GroupChild, "for medical records", "add medical record"},
	{AddMilestone, GroupChild, "for child development milestones", "add milestone"},
	{AddDocument, GroupDocument, "for uploading or storing documents", "add document"},
	{ScheduleDateNight, GroupRelationship, "for couple activities", "schedule date night"},
	{QueryCalendar, GroupQuery, "for calendar questions", "query calendar"},
	{QueryTasks, GroupQuery, "for task-related questions", "query tasks"},
	{QueryProviders, GroupQuery, "for provider directory questions", "query providers"},
}

var byKind = func() map[Kind]Spec {
	m := make(map[Kind]Spec, len(catalog))
	for _, s := range catalog {
		m[s.Kind] = s
	}
	return m
}()

// Catalog returns every routable kind in declaration order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Kinds returns every routable kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(catalog))
	for i, s := range catalog {
		out[i] = s.Kind
	}
	return out
}

// Lookup returns the catalog entry for k.
func Lookup(k Kind) (Spec, bool) {
	s, ok := byKind[k]
	return s, ok
}

// Valid reports whether k is a routable catalog kind.
func (k Kind) Valid() bool {
	_, ok := byKind[k]
	return ok
}

// String returns the wire label.
func (k Kind) String() string { return string(k) }

// Label returns the human wording for k, or the raw label.
func (k Kind) Label() string {
	if s, ok := byKind[k]; ok {
		return s.Label
	}
	return strings.ReplaceAll(string(k), "_", " ")
}

// Parse matches a raw label exactly against the catalog.
func Parse(s string) (Kind, bool) {
	k := Kind(s)
	return k, k.Valid()
}

// fallbackPhrases is the small keyword map used only when the classifier
// is unavailable or answers with an unrecognised token. Order matters.
var fallbackPhrases = []struct {
	phrase string
	kind   Kind
}{
	{"add provider", AddProvider},
	{"add event", AddEvent},
	{"add task", AddTask},
	{"track growth", TrackGrowth},
	{"add document", AddDocument},
	{"query calendar", QueryCalendar},
	{"query tasks", QueryTasks},
	{"query providers", QueryProviders},
}

// Fallback maps free text onto a kind by phrase containment.
func Fallback(text string) (Kind, bool) {
	lower := strings.ToLower(text)
	for _, f := range fallbackPhrases {
		if strings.Contains(lower, f.phrase) {
			return f.kind, true
		}
	}
	return "", false
}

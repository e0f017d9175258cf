package extract

import (
	"context"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
)

// Provider is an extracted directory entry. Absent string fields are "".
type Provider struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	ChildName string `json:"childName"`
}

// Event is an extracted calendar event or appointment. DateTime is zero
// when no date could be read.
type Event struct {
	Title           string    `json:"title"`
	EventType       string    `json:"eventType"`
	AppointmentType string    `json:"appointmentType"`
	DateTime        time.Time `json:"dateTime"`
	Location        string    `json:"location"`
	Doctor          string    `json:"doctor"`
	Description     string    `json:"description"`
	ChildName       string    `json:"childName"`
}

// Task is an extracted task.
type Task struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	SubTasks    []string   `json:"subTasks"`
}

// Growth is an extracted measurement.
type Growth struct {
	ChildName    string `json:"childName"`
	Height       string `json:"height"`
	Weight       string `json:"weight"`
	ShoeSize     string `json:"shoeSize"`
	ClothingSize string `json:"clothingSize"`
	Date         string `json:"date"`
}

// Empty reports whether no measurement was found.
func (g Growth) Empty() bool {
	return g.Height == "" && g.Weight == "" && g.ShoeSize == "" && g.ClothingSize == ""
}

// Provider extracts a directory entry. Keyword inference wins over the
// model's type, and sitter keywords win over everything.
func (e *Extractor) Provider(ctx context.Context, message string) (Provider, error) {
	hints := Hints(message)
	kind, inferred := InferProviderType(message)
	if inferred {
		hints["type"] = kind.Type
		hints["specialty"] = kind.Specialty
	}

	m, err := e.Raw(ctx, message, prompts.SchemaProvider, hints)
	if err != nil {
		return Provider{}, err
	}
	childName := Str(m, "childName")
	if childName == "" {
		childName = Str(m, "forChild")
	}
	p := Provider{
		Name:      firstNonEmpty(Str(m, "name"), hints["name"], FullName(message)),
		Type:      Str(m, "type"),
		Specialty: Str(m, "specialty"),
		Phone:     firstNonEmpty(Str(m, "phone"), hints["phone"]),
		Email:     firstNonEmpty(Str(m, "email"), hints["email"]),
		Address:   Str(m, "address"),
		Notes:     Str(m, "notes"),
		ChildName: firstNonEmpty(childName, hints["childName"]),
	}
	if inferred {
		p.Type = kind.Type
		if !strings.Contains(strings.ToLower(p.Specialty), strings.Fields(kind.Specialty)[0]) {
			p.Specialty = kind.Specialty
		}
	}
	if p.Type == "" {
		p.Type = TypeMedical
	}
	applySitterOverride(message, &p)

	if p.Name == "" {
		return p, wrapNoName(prompts.SchemaProvider)
	}
	return p, nil
}

// Event extracts a calendar event or appointment.
func (e *Extractor) Event(ctx context.Context, message string) (Event, error) {
	hints := Hints(message)
	delete(hints, "email")
	delete(hints, "phone")
	delete(hints, "name")

	m, err := e.Raw(ctx, message, prompts.SchemaEvent, hints)
	if err != nil {
		return Event{}, err
	}
	loc := e.now().Location()
	ev := Event{
		Title:           Str(m, "title"),
		EventType:       firstNonEmpty(Str(m, "eventType"), Str(m, "type")),
		AppointmentType: Str(m, "appointmentType"),
		Location:        Str(m, "location"),
		Doctor:          Str(m, "doctor"),
		Description:     Str(m, "description"),
		ChildName:       firstNonEmpty(Str(m, "childName"), hints["childName"]),
	}
	if t, ok := ParseTime(firstNonEmpty(Str(m, "dateTime"), Str(m, "date")), loc); ok {
		if tm := Str(m, "time"); tm != "" && Str(m, "dateTime") == "" {
			if hm, err := time.ParseInLocation("15:04", tm, loc); err == nil {
				t = time.Date(t.Year(), t.Month(), t.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
			}
		}
		ev.DateTime = t
	}
	if ev.Title == "" {
		ev.Title = appointmentTitle(message)
	}
	if ev.Title == "" {
		return ev, wrapNoName(prompts.SchemaEvent)
	}
	return ev, nil
}

// Task extracts a task.
func (e *Extractor) Task(ctx context.Context, message string) (Task, error) {
	m, err := e.Raw(ctx, message, prompts.SchemaTask, nil)
	if err != nil {
		return Task{}, err
	}
	t := Task{
		Title:       firstNonEmpty(Str(m, "title"), TaskTitle(message)),
		Description: Str(m, "description"),
		AssignedTo:  Str(m, "assignedTo"),
		Priority:    strings.ToLower(Str(m, "priority")),
		Category:    Str(m, "category"),
	}
	if due, ok := ParseTime(Str(m, "dueDate"), e.now().Location()); ok {
		t.DueDate = &due
	}
	if subs, ok := m["subTasks"].([]any); ok {
		for _, s := range subs {
			switch v := s.(type) {
			case string:
				if v = strings.TrimSpace(v); v != "" {
					t.SubTasks = append(t.SubTasks, v)
				}
			case map[string]any:
				if title := Str(v, "title"); title != "" {
					t.SubTasks = append(t.SubTasks, title)
				}
			}
		}
	}
	if t.Description == "" {
		t.Description = message
	}
	if t.Title == "" {
		return t, wrapNoName(prompts.SchemaTask)
	}
	return t, nil
}

// Growth extracts a measurement. A missing child is not an error here;
// the caller decides how to report it.
func (e *Extractor) Growth(ctx context.Context, message string) (Growth, error) {
	hints := map[string]string{}
	if c := ChildName(message); c != "" {
		hints["childName"] = c
	}
	h, w, shoe, cloth := Measurements(message)

	m, err := e.Raw(ctx, message, prompts.SchemaGrowth, hints)
	if err != nil {
		return Growth{}, err
	}
	g := Growth{
		ChildName:    firstNonEmpty(Str(m, "childName"), hints["childName"], possessiveName(message)),
		Height:       firstNonEmpty(Str(m, "height"), h),
		Weight:       firstNonEmpty(Str(m, "weight"), w),
		ShoeSize:     firstNonEmpty(Str(m, "shoeSize"), shoe),
		ClothingSize: firstNonEmpty(Str(m, "clothingSize"), cloth),
		Date:         Str(m, "date"),
	}
	if _, ok := ParseTime(g.Date, e.now().Location()); !ok {
		g.Date = e.now().Format(time.DateOnly)
	}
	return g, nil
}

func appointmentTitle(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "dentist") || strings.Contains(lower, "dental"):
		return "Dentist Appointment"
	case strings.Contains(lower, "checkup") || strings.Contains(lower, "check-up"):
		return "Checkup"
	case strings.Contains(lower, "doctor") || strings.Contains(lower, "pediatrician"):
		return "Doctor Appointment"
	case strings.Contains(lower, "appointment"):
		return "Medical Appointment"
	}
	return ""
}

// possessiveName reads "Lily's height" style phrasings.
func possessiveName(msg string) string {
	for _, w := range strings.Fields(msg) {
		w = strings.Trim(w, ".,!?")
		if base, ok := strings.CutSuffix(w, "'s"); ok && isNameWord(base) && !notNames[strings.ToLower(base)] {
			return base
		}
	}
	return ""
}

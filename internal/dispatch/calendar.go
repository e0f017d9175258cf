package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/eventcollect"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
)

// AppointmentsCollection holds medical appointments. Each one is
// mirrored into the calendar collection.
const AppointmentsCollection = "medicalAppointments"

// Appointment is a stored medical appointment.
type Appointment struct {
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	AppointmentType string    `json:"appointmentType"`
	DateTime        time.Time `json:"dateTime"`
	Location        string    `json:"location"`
	Doctor          string    `json:"doctor"`
	Notes           string    `json:"notes"`
	Completed       bool      `json:"completed"`
	ChildID         string    `json:"childId,omitempty"`
	ChildName       string    `json:"childName,omitempty"`
	FamilyID        string    `json:"familyId"`
	UserID          string    `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (d *Dispatcher) addAppointment(ctx context.Context, message string, ac ActionContext) action.Result {
	ev, err := d.extractor.Event(ctx, message)
	if err != nil {
		if errors.Is(err, extract.ErrNoName) {
			return action.Fail("I couldn't identify the appointment details. Could you provide more information?", err.Error())
		}
		return action.Fail("I encountered an error while adding this appointment.", err.Error())
	}

	now := d.extractor.Now()
	appt := Appointment{
		Title:           ev.Title,
		Type:            ev.EventType,
		AppointmentType: ev.AppointmentType,
		DateTime:        ev.DateTime,
		Location:        ev.Location,
		Doctor:          ev.Doctor,
		Notes:           ev.Description,
		ChildName:       ev.ChildName,
		FamilyID:        ac.FamilyID,
		UserID:          ac.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if appt.Title == "" {
		appt.Title = "Medical Appointment"
	}
	if appt.Type == "" {
		appt.Type = "medical"
	}
	if appt.AppointmentType == "" {
		appt.AppointmentType = "general"
	}
	if appt.DateTime.IsZero() {
		appt.DateTime = now
	}
	if appt.ChildName != "" {
		child, ok, err := d.roster.Child(ctx, ac.FamilyID, appt.ChildName)
		switch {
		case err != nil:
			d.logger.Warn("child lookup failed", "family_id", ac.FamilyID, "error", err)
		case ok:
			appt.ChildID, appt.ChildName = child.ID, child.Name
		}
	}

	doc, err := docstore.From(appt)
	if err != nil {
		return action.Fail("I had trouble saving this appointment. Let's try again with more details.", err.Error())
	}
	apptID, err := d.docs.Add(ctx, AppointmentsCollection, doc)
	if err != nil {
		d.logger.Warn("appointment save failed", "family_id", ac.FamilyID, "error", err)
		return action.Fail("I had trouble saving this appointment. Let's try again with more details.", err.Error())
	}
	d.sink.Notify(events.SourceDispatch, events.KindChildDataUpdated, map[string]any{
		"childId":  appt.ChildID,
		"dataType": "appointment",
	})

	msg := fmt.Sprintf("I've scheduled a %s appointment", appt.AppointmentType)
	if appt.ChildName != "" {
		msg += " for " + appt.ChildName
	}
	msg += fmt.Sprintf(" on %s at %s.", appt.DateTime.Format("January 2, 2006"), appt.DateTime.Format("3:04 PM"))
	data := map[string]any{
		"appointmentId": apptID,
		"appointment":   appt,
	}

	// The appointment stays written when the mirror fails.
	calID, err := d.docs.Add(ctx, eventcollect.CalendarCollection, docstore.Doc{
		"title":         appt.Title,
		"description":   appt.Notes,
		"location":      appt.Location,
		"dateTime":      appt.DateTime.Format(time.RFC3339),
		"endDateTime":   appt.DateTime.Add(time.Hour).Format(time.RFC3339),
		"eventType":     "appointment",
		"category":      "medical",
		"familyId":      ac.FamilyID,
		"userId":        ac.UserID,
		"childId":       appt.ChildID,
		"childName":     appt.ChildName,
		"appointmentId": apptID,
		"source":        "chat",
		"createdAt":     now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		d.logger.Warn("calendar mirror failed", "appointment_id", apptID, "error", err)
		data["partial"] = true
		data["calendarError"] = err.Error()
		return action.Succeed(msg+" I saved the appointment, but couldn't add it to your calendar. Please add it there manually.", data)
	}
	data["calendarEventId"] = calID
	d.sink.Notify(events.SourceDispatch, events.KindCalendarRefresh, map[string]any{"eventId": calID})
	d.logger.Info("appointment added", "appointment_id", apptID, "calendar_event_id", calID, "family_id", ac.FamilyID)
	return action.Succeed(msg, data)
}

func (d *Dispatcher) addEvent(ctx context.Context, message string, ac ActionContext) action.Result {
	ev, err := d.extractor.Event(ctx, message)
	if err != nil && !errors.Is(err, extract.ErrNoName) {
		return action.Fail("I encountered an error while adding this event to your calendar. Please try again with a clearer date and time.", err.Error())
	}
	reply, err := d.collector.Start(ctx, ac.FamilyID, ac.UserID, eventcollect.Seed{
		EventType:    ev.EventType,
		Title:        ev.Title,
		ChildName:    ev.ChildName,
		DoctorName:   ev.Doctor,
		Location:     ev.Location,
		Description:  ev.Description,
		OriginalText: message,
		DateTime:     ev.DateTime,
	})
	if err != nil {
		return action.Fail("I encountered an error while adding this event to your calendar. Please try again with a clearer date and time.", err.Error())
	}
	text := reply.Text()
	if text == "" {
		return action.Fail("I couldn't process this calendar event. Please try again with more details about the event date, time, and title.", "empty collector reply")
	}
	return action.Succeed(text, reply)
}

// CalendarEvent is the listing view of a calendar document.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	EventType string    `json:"eventType"`
	Category  string    `json:"category"`
	Location  string    `json:"location,omitempty"`
	ChildName string    `json:"childName,omitempty"`
	Start     time.Time `json:"dateTime"`
}

func (d *Dispatcher) queryCalendar(ctx context.Context, message string, ac ActionContext) action.Result {
	now := d.extractor.Now()
	loc := now.Location()
	params := d.extractor.Params(ctx, prompts.CalendarQueryPrompt(now.Format(time.DateOnly)), prompts.QueryUserTurn("calendar", message))

	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if t, ok := extract.ParseTime(extract.Str(params, "startDate"), loc); ok {
		from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	var until time.Time
	if t, ok := extract.ParseTime(extract.Str(params, "endDate"), loc); ok {
		until = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}
	eventType := strings.ToLower(extract.Str(params, "eventType"))

	docs, err := d.docs.Find(ctx, eventcollect.CalendarCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("familyId", ac.FamilyID)},
	})
	if err != nil {
		return action.Fail("I encountered an error while searching your calendar. Please try a more specific query.", err.Error())
	}

	found := []CalendarEvent{}
	for _, doc := range docs {
		start, ok := doc.Data.Time("dateTime")
		if !ok || start.Before(from) || (!until.IsZero() && !start.Before(until)) {
			continue
		}
		ev := CalendarEvent{
			ID:        doc.ID,
			Title:     doc.Data.String("title"),
			EventType: doc.Data.String("eventType"),
			Category:  doc.Data.String("category"),
			Location:  doc.Data.String("location"),
			ChildName: doc.Data.String("childName"),
			Start:     start.In(loc),
		}
		if eventType != "" && !containsFold(ev.EventType, eventType) && !containsFold(ev.Category, eventType) && !containsFold(ev.Title, eventType) {
			continue
		}
		found = append(found, ev)
	}
	slices.SortStableFunc(found, func(a, b CalendarEvent) int { return a.Start.Compare(b.Start) })

	if len(found) == 0 {
		return action.Succeed("I couldn't find any matching events in your calendar.", map[string]any{"events": found})
	}

	noun := "events"
	if len(found) == 1 {
		noun = "event"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d %s", len(found), noun)
	if until.IsZero() {
		fmt.Fprintf(&sb, " from %s on", from.Format("January 2"))
	} else {
		fmt.Fprintf(&sb, " between %s and %s", from.Format("January 2"), until.AddDate(0, 0, -1).Format("January 2"))
	}
	sb.WriteString(":\n\n")
	for i, ev := range found[:min(listLimit, len(found))] {
		fmt.Fprintf(&sb, "%d. %s on %s at %s", i+1, ev.Title, ev.Start.Format("Monday, January 2"), ev.Start.Format("3:04 PM"))
		if ev.Location != "" {
			fmt.Fprintf(&sb, " (%s)", ev.Location)
		}
		sb.WriteByte('\n')
	}
	if n := len(found) - listLimit; n > 0 {
		fmt.Fprintf(&sb, "\n...and %d more events. You can see everything in the Calendar tab.", n)
	}
	return action.Succeed(sb.String(), map[string]any{"events": found})
}

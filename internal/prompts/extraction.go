package prompts

import (
	"fmt"
	"strings"
)

// Schema names accepted by EntityPrompt.
const (
	SchemaProvider = "provider"
	SchemaEvent    = "event"
	SchemaTask     = "task"
	SchemaGrowth   = "growth"
)

const providerTemplate = `You are extracting provider information from a user message.
Extract the following details as a single JSON object:
- name: Provider's full name
- type: Provider type (medical, childcare, education, music, coach)
- specialty: More specific detail (pediatrician, piano teacher, swimming coach, etc.)
- childName: Which child this provider is for, if any
- email: Provider email if mentioned
- phone: Provider phone if mentioned
- address: Provider address if mentioned
- notes: Anything else worth keeping

IMPORTANT:
- For babysitters and nannies, ALWAYS set type to "childcare"
- Use "" for fields that are not mentioned`

const eventTemplate = `You are extracting calendar event information from a user message.
Today is %s.
Extract the following details as a single JSON object:
- title: Event title
- eventType: Event type (medical, dental, activity, birthday, meeting, general)
- appointmentType: For appointments, the kind of visit (checkup, dental, vaccination, general)
- dateTime: Start date and time in RFC 3339 format
- location: Event location if mentioned
- doctor: Doctor or host name if mentioned
- childName: Which child this is for, if any
- description: Brief description

IMPORTANT:
- Resolve relative dates ("next Tuesday") against today
- If an exact time is not given, make a reasonable inference ("morning" = 09:00)`

const taskTemplate = `You are extracting task information from a user message.
Today is %s.
Extract the following details as a single JSON object:
- title: Short task title
- description: Full task description
- assignedTo: Who the task is assigned to (a name, "Mama", "Papa"), or null
- dueDate: When the task is due (YYYY-MM-DD), or null
- priority: Task priority (high, medium, low)
- category: Task category (Visible Household Tasks, Invisible Household Tasks, Visible Parental Tasks, Invisible Parental Tasks)
- subTasks: Array of short step titles, may be empty

IMPORTANT:
- Be concise with the title, but descriptive with the description`

const growthTemplate = `You are extracting child growth information from a user message.
Today is %s.
Extract the following details as a single JSON object:
- childName: Name of the child
- height: Height with unit (e.g. "4 ft 2 in", "120 cm"), or null
- weight: Weight with unit (e.g. "52 lbs"), or null
- shoeSize: Shoe size, or null
- clothingSize: Clothing size, or null
- date: When the measurement was taken (YYYY-MM-DD)

IMPORTANT:
- Be precise about which child this is for`

const jsonOnly = `

Return ONLY the JSON object, no commentary.`

// EntityPrompt returns the system prompt for extracting one schema.
// today is formatted as YYYY-MM-DD by the caller. hints are values a
// deterministic pre-pass already found; they are listed so the model
// keeps them.
func EntityPrompt(schema, today string, hints map[string]string) (string, error) {
	var base string
	switch schema {
	case SchemaProvider:
		base = providerTemplate
	case SchemaEvent:
		base = fmt.Sprintf(eventTemplate, today)
	case SchemaTask:
		base = fmt.Sprintf(taskTemplate, today)
	case SchemaGrowth:
		base = fmt.Sprintf(growthTemplate, today)
	default:
		return "", fmt.Errorf("unknown extraction schema %q", schema)
	}

	var sb strings.Builder
	sb.WriteString(base)
	if len(hints) > 0 {
		sb.WriteString("\n\nAlready detected in the message (keep these values):\n")
		for _, key := range sortedKeys(hints) {
			fmt.Fprintf(&sb, "- %s: %s\n", key, hints[key])
		}
	}
	sb.WriteString(jsonOnly)
	return sb.String(), nil
}

// EntityUserTurn wraps the raw message for extraction.
func EntityUserTurn(schema, message string) string {
	return fmt.Sprintf("Extract %s details from: %q", schema, message)
}

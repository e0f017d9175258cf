package prompts

import (
	"fmt"
	"sort"
)

const taskQueryPrompt = `You are an AI assistant that extracts task query parameters.
Today is %s.
From the user's question, extract as a JSON object:
- assignee: Person the tasks are assigned to, or null
- status: "completed", "pending", or null
- timeframe: "today", "this week", "upcoming", or null
- category: Task category, or null

Return ONLY a JSON object with these fields.`

const providerQueryPrompt = `You are an AI assistant that extracts provider query parameters.
From the user's question, extract as a JSON object:
- providerName: Name of a specific provider, or null
- providerType: Type of provider (medical, childcare, education, music, coach), or null
- specialty: Specialty (pediatrician, dentist, piano, etc.), or null

Return ONLY a JSON object with these fields.`

const calendarQueryPrompt = `You are an AI assistant that extracts calendar query parameters.
Today is %s.
From the user's question, extract as a JSON object:
- startDate: First day of the range (YYYY-MM-DD), or null
- endDate: Last day of the range (YYYY-MM-DD), or null
- eventType: Kind of event (medical, activity, birthday, ...), or null

Return ONLY a JSON object with these fields.`

// TaskQueryPrompt returns the system prompt for task query parameters.
func TaskQueryPrompt(today string) string { return fmt.Sprintf(taskQueryPrompt, today) }

// ProviderQueryPrompt returns the system prompt for provider query parameters.
func ProviderQueryPrompt() string { return providerQueryPrompt }

// CalendarQueryPrompt returns the system prompt for calendar query parameters.
func CalendarQueryPrompt(today string) string { return fmt.Sprintf(calendarQueryPrompt, today) }

// QueryUserTurn wraps the raw question. subject is "task", "provider" or
// "calendar".
func QueryUserTurn(subject, message string) string {
	return fmt.Sprintf("Extract %s query parameters from: %q", subject, message)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

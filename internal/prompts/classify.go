package prompts

import (
	"fmt"
	"strings"
)

// Label is one classifier answer with its disambiguation hint.
type Label struct {
	Name string
	Hint string
}

const classifierHeader = `You are an intent classifier for Allie, a family management assistant.
Determine what action the user wants to perform from their message.

Disambiguation:
- A concrete date or time for something happening means an event or appointment.
- A person's name with a phone number or email and no schedule means a provider.
- Any request about a babysitter or nanny is add_provider.

Return ONE of the following intent labels without explanation:
`

const classifierFooter = `- unknown (if none of the above)

Return ONLY the intent label, nothing else.`

// ClassifierSystemPrompt enumerates every routable label with its hint.
func ClassifierSystemPrompt(labels []Label) string {
	var sb strings.Builder
	sb.WriteString(classifierHeader)
	for _, l := range labels {
		fmt.Fprintf(&sb, "- %s (%s)\n", l.Name, l.Hint)
	}
	sb.WriteString(classifierFooter)
	return sb.String()
}

// ClassifierUserTurn wraps the raw message for the classifier.
func ClassifierUserTurn(message string) string {
	return fmt.Sprintf("Classify this request: %q", message)
}

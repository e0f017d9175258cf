// Package classify decides which catalog action a message asks for.
//
// Deterministic direct rules are consulted first. Otherwise a completion
// provider is asked for a single label; its answer is normalized and
// matched against the catalog. Classification misses are ordinary
// outcomes, reported through Decision rather than errors.
package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/llm"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
)

// How a Decision was reached.
const (
	ViaModel      = "model"
	ViaNormalized = "normalized"
	ViaKeyword    = "fallback-keyword"
	ViaCalendar   = "calendar-detection"
	ViaNone       = "none"
)

const (
	classifyTemperature = 0.1
	classifyMaxTokens   = 20
)

// Decision is the classifier's answer.
type Decision struct {
	Kind action.Kind `json:"kind,omitempty"`
	OK   bool        `json:"ok"`
	Via  string      `json:"via"`
	Raw  string      `json:"raw,omitempty"`
}

// Classifier labels messages with a catalog kind.
type Classifier struct {
	client  llm.Client
	model   string
	timeout time.Duration
	guard   *Guard
	logger  *slog.Logger
	system  string
}

// New creates a classifier. guard may be nil.
func New(client llm.Client, model string, timeout time.Duration, guard *Guard, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	var labels []prompts.Label
	for _, s := range action.Catalog() {
		labels = append(labels, prompts.Label{Name: s.Kind.String(), Hint: s.Hint})
	}
	return &Classifier{
		client:  client,
		model:   model,
		timeout: timeout,
		guard:   guard,
		logger:  logger.With("component", "classify"),
		system:  prompts.ClassifierSystemPrompt(labels),
	}
}

// Classify asks the model for a label. It never fails.
func (c *Classifier) Classify(ctx context.Context, message string) Decision {
	raw := llm.Generate(ctx, c.client, llm.Request{
		Model:       c.model,
		System:      c.system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompts.ClassifierUserTurn(message)}},
		Temperature: llm.Temp(classifyTemperature),
		MaxTokens:   classifyMaxTokens,
	}, c.timeout, "", c.logger)

	d := Interpret(raw)
	if !d.OK && raw == "" {
		// Model unavailable: the keyword map is the only signal left.
		if k, ok := action.Fallback(message); ok {
			d = Decision{Kind: k, OK: true, Via: ViaKeyword}
		}
	}
	if !d.OK && !c.guard.Suppressed() && LooksLikeCalendar(message) {
		d = Decision{Kind: action.AddEvent, OK: true, Via: ViaCalendar, Raw: raw}
	}

	c.logger.Debug("classified", "kind", d.Kind, "via", d.Via, "raw", raw)
	return d
}

var unexpectedChars = regexp.MustCompile(`[^a-z_]`)

// Interpret matches a raw model answer against the catalog: exactly,
// then after normalization, then by the keyword map. An explicit
// "unknown" is a miss.
func Interpret(raw string) Decision {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return Decision{Via: ViaNone}
	}
	if k, ok := action.Parse(clean); ok {
		return Decision{Kind: k, OK: true, Via: ViaModel, Raw: raw}
	}

	norm := strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(clean)
	norm = strings.Trim(unexpectedChars.ReplaceAllString(norm, ""), "_")
	if k, ok := action.Parse(norm); ok {
		return Decision{Kind: k, OK: true, Via: ViaNormalized, Raw: raw}
	}
	if norm == string(action.Unknown) {
		return Decision{Via: ViaNone, Raw: raw}
	}

	// Chatty answers sometimes wrap the label in a sentence.
	for _, k := range action.Kinds() {
		if strings.Contains(norm, string(k)) {
			return Decision{Kind: k, OK: true, Via: ViaNormalized, Raw: raw}
		}
	}
	if k, ok := action.Fallback(clean); ok {
		return Decision{Kind: k, OK: true, Via: ViaKeyword, Raw: raw}
	}
	return Decision{Via: ViaNone, Raw: raw}
}

var calendarCue = regexp.MustCompile(`(?i)\b(?:tomorrow|tonight|next\s+(?:week|monday|tuesday|wednesday|thursday|friday|saturday|sunday)|on\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|at\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?|\d{1,2}(?::\d{2})\s*(?:am|pm)|\d{1,2}\s*(?:am|pm))\b`)

var calendarVerb = regexp.MustCompile(`(?i)\b(?:add|put|schedule|book|plan|set\s+up)\b`)

// LooksLikeCalendar is the calendar-detection heuristic: a scheduling
// verb plus a date or time cue.
func LooksLikeCalendar(message string) bool {
	return calendarVerb.MatchString(message) && calendarCue.MatchString(message)
}

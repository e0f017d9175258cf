// Package extract turns free text into structured entities. A completion
// provider is asked for JSON; its output is treated as untrusted and run
// through a recovery ladder, and deterministic regex extractors seed the
// prompt and fill whatever the model missed.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/llm"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
)

// ErrNoName reports that neither the model nor any regex fallback found
// the entity's name or title.
var ErrNoName = errors.New("no name or title found")

const (
	extractTemperature = 0.2
	extractMaxTokens   = 800
)

// Extractor asks a completion provider for entities.
type Extractor struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Extractor. client may be nil, in which case only the
// regex extractors run.
func New(client llm.Client, model string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "extract"),
		now:     time.Now,
	}
}

// Raw asks for one schema and returns the recovered object. It never
// fails on bad model output; the result is empty instead.
func (e *Extractor) Raw(ctx context.Context, message, schema string, hints map[string]string) (map[string]any, error) {
	system, err := prompts.EntityPrompt(schema, e.now().Format(time.DateOnly), hints)
	if err != nil {
		return nil, err
	}
	return e.ask(ctx, system, prompts.EntityUserTurn(schema, message)), nil
}

// Params runs a lightweight parameter prompt. Parse failures yield an
// empty map, never an error.
func (e *Extractor) Params(ctx context.Context, system, user string) map[string]any {
	return e.ask(ctx, system, user)
}

func (e *Extractor) ask(ctx context.Context, system, user string) map[string]any {
	text := llm.Generate(ctx, e.client, llm.Request{
		Model:       e.model,
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		Temperature: llm.Temp(extractTemperature),
		MaxTokens:   extractMaxTokens,
	}, e.timeout, "", e.logger)

	obj, ok := AsObject(ParseWithRecovery(text, map[string]any{}))
	if !ok {
		e.logger.Debug("model output held no object", "preview", preview(text))
		return map[string]any{}
	}
	return obj
}

// Now returns the extractor's clock; handlers share it for date math.
func (e *Extractor) Now() time.Time { return e.now() }

// SetClock replaces the clock. Tests only.
func (e *Extractor) SetClock(now func() time.Time) { e.now = now }

// Str reads a string field, converting numbers and treating null as "".
func Str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") || strings.EqualFold(s, "n/a") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// ParseTime accepts the date and time layouts models commonly emit.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", time.DateOnly, "01/02/2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func preview(s string) string {
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func wrapNoName(schema string) error {
	return fmt.Errorf("%s: %w", schema, ErrNoName)
}

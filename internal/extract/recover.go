package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON reports that no layer of the ladder produced a value.
var ErrNoJSON = errors.New("no JSON found in model output")

var errNotProse = errors.New("not a prose answer")

// Layer is one step of the recovery ladder.
type Layer func(text string) (any, error)

// Ladder is the recovery order applied to untrusted model output.
var Ladder = []Layer{ProseWrapper, DirectJSON, EmbeddedObject, EmbeddedArray}

// proseOpeners start a conversational answer that may carry no JSON.
var proseOpeners = []string{"here are", "based on"}

// ProseWrapper turns a conversational answer into a minimal object built
// from its first non-empty lines. Text that carries a parsable object
// or array block is left to the later layers.
func ProseWrapper(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	prose := false
	for _, p := range proseOpeners {
		if strings.HasPrefix(lower, p) {
			prose = true
			break
		}
	}
	if !prose {
		return nil, errNotProse
	}
	if _, err := EmbeddedObject(trimmed); err == nil {
		return nil, errNotProse
	}
	if _, err := EmbeddedArray(trimmed); err == nil {
		return nil, errNotProse
	}

	var lines []string
	for _, l := range strings.Split(trimmed, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	head := lines
	if len(head) > 3 {
		head = head[:3]
	}
	out := map[string]any{
		"description": strings.Join(head, " "),
		"notes":       "",
		"prose":       true,
	}
	if len(lines) > 3 {
		out["notes"] = lines[3]
	}
	return out, nil
}

// DirectJSON parses the whole text.
func DirectJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmbeddedObject parses the first {...} block found in text.
func EmbeddedObject(text string) (any, error) {
	return embedded(text, '{', '}')
}

// EmbeddedArray parses the first [...] block found in text.
func EmbeddedArray(text string) (any, error) {
	return embedded(text, '[', ']')
}

func embedded(text string, open, close byte) (any, error) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return nil, ErrNoJSON
	}
	var candidates []string
	if end := balancedEnd(text, start, open, close); end > start {
		candidates = append(candidates, text[start:end+1])
	}
	if end := strings.LastIndexByte(text, close); end > start {
		candidates = append(candidates, text[start:end+1])
	}

	var lastErr error = ErrNoJSON
	for _, c := range candidates {
		for _, attempt := range []string{c, normalizeEscapes(c)} {
			v, err := DirectJSON(attempt)
			if err == nil {
				return v, nil
			}
			lastErr = err
		}
	}
	return nil, lastErr
}

// balancedEnd returns the index of the delimiter closing the one at
// start, skipping string literals, or -1.
func balancedEnd(text string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeEscapes undoes the double escaping some models emit when they
// quote JSON inside prose.
func normalizeEscapes(s string) string {
	r := strings.NewReplacer(`\'`, `'`, `\"`, `"`, "\r\n", " ", "\n", " ")
	return r.Replace(s)
}

// Recover runs the ladder and returns the first value produced.
func Recover(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoJSON
	}
	for _, layer := range Ladder {
		if v, err := layer(text); err == nil {
			return v, nil
		}
	}
	return nil, ErrNoJSON
}

// ParseWithRecovery runs the ladder and returns fallback when every
// layer fails.
func ParseWithRecovery(text string, fallback any) any {
	v, err := Recover(text)
	if err != nil {
		return fallback
	}
	return v
}

// AsObject returns v as an object. An array yields its first object.
func AsObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}

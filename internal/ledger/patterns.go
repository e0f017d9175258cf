package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SuccessPatterns returns the most frequent 2 to 4 word phrases among
// the last successful requests of kind. Phrases must occur at least
// three times.
func (s *Store) SuccessPatterns(ctx context.Context, kind string) ([]Phrase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM action_history
		 WHERE action_kind = ? AND success = 1
		 ORDER BY timestamp DESC LIMIT ?`, kind, patternSample)
	if err != nil {
		return nil, fmt.Errorf("query successful messages: %w", err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		if m != "" {
			messages = append(messages, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return CommonPhrases(messages), nil
}

// CommonPhrases counts lowercase n-grams (n = 2..4) across messages.
func CommonPhrases(messages []string) []Phrase {
	counts := make(map[string]int)
	for _, m := range messages {
		words := strings.Fields(strings.ToLower(m))
		for n := 2; n <= 4; n++ {
			for i := 0; i+n <= len(words); i++ {
				counts[strings.Join(words[i:i+n], " ")]++
			}
		}
	}

	out := make([]Phrase, 0)
	for p, c := range counts {
		if c >= patternMinCount {
			out = append(out, Phrase{Phrase: p, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > patternTop {
		out = out[:patternTop]
	}
	return out
}

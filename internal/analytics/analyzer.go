package analytics

import (
	"cmp"
	"fmt"
	"slices"
)

const uncategorized = "Uncategorized"

// CategoryRate is the completion rate of one task category.
type CategoryRate struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"completion_rate"`
}

// CompletionRates groups tasks by category.
func CompletionRates(tasks []Task) map[string]CategoryRate {
	out := make(map[string]CategoryRate)
	for _, t := range tasks {
		cat := t.Category
		if cat == "" {
			cat = uncategorized
		}
		r := out[cat]
		r.Total++
		if t.Completed {
			r.Completed++
		}
		out[cat] = r
	}
	for cat, r := range out {
		r.Rate = float64(r.Completed) / float64(r.Total) * 100
		out[cat] = r
	}
	return out
}

// BalanceImpact is, per category, Mama's share of completions minus her
// share of assignments, in percentage points.
func BalanceImpact(tasks []Task) map[string]float64 {
	type counts struct{ mama, papa, mamaDone, papaDone int }
	byCat := map[string]*counts{}
	for _, t := range tasks {
		if t.AssignedTo != Mama && t.AssignedTo != Papa {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = uncategorized
		}
		c, ok := byCat[cat]
		if !ok {
			c = &counts{}
			byCat[cat] = c
		}
		if t.AssignedTo == Mama {
			c.mama++
			if t.Completed {
				c.mamaDone++
			}
		} else {
			c.papa++
			if t.Completed {
				c.papaDone++
			}
		}
	}

	out := make(map[string]float64, len(byCat))
	for cat, c := range byCat {
		assigned := float64(c.mama) / float64(c.mama+c.papa) * 100
		var completed float64
		if done := c.mamaDone + c.papaDone; done > 0 {
			completed = float64(c.mamaDone) / float64(done) * 100
		}
		out[cat] = completed - assigned
	}
	return out
}

// Streaks is the longest run of consecutive assignments per parent,
// ordered by creation time.
func Streaks(tasks []Task) map[string]int {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b Task) int { return a.CreatedAt.Compare(b.CreatedAt) })

	out := map[string]int{Mama: 0, Papa: 0}
	last, run := "", 0
	for _, t := range sorted {
		if t.AssignedTo != Mama && t.AssignedTo != Papa {
			continue
		}
		if t.AssignedTo == last {
			run++
		} else {
			run = 1
		}
		last = t.AssignedTo
		out[last] = max(out[last], run)
	}
	return out
}

// Insight is one observation about task patterns.
type Insight struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Analysis is the result of [Analyze].
type Analysis struct {
	CompletionRates map[string]CategoryRate `json:"completionRates"`
	BalanceImpact   map[string]float64      `json:"balanceImpact"`
	Streaks         map[string]int          `json:"streaks"`
	Insights        []Insight               `json:"insights"`
}

// Analyze computes task pattern statistics and derived insights.
func Analyze(tasks []Task) Analysis {
	a := Analysis{
		CompletionRates: CompletionRates(tasks),
		BalanceImpact:   BalanceImpact(tasks),
		Streaks:         Streaks(tasks),
		Insights:        []Insight{},
	}

	for _, cat := range sortedKeys(a.CompletionRates) {
		r := a.CompletionRates[cat]
		if r.Rate < 50 && r.Total >= 3 {
			a.Insights = append(a.Insights, Insight{
				Type:     "completion",
				Category: cat,
				Message:  fmt.Sprintf("%s tasks have a low completion rate (%.1f%%). Consider simplifying these tasks or allowing more time.", cat, r.Rate),
				Severity: "medium",
			})
		}
	}
	for _, cat := range sortedKeys(a.BalanceImpact) {
		impact := a.BalanceImpact[cat]
		if abs(impact) <= 15 {
			continue
		}
		person, direction := Mama, "more"
		if impact < 0 {
			person, direction = Papa, "fewer"
		}
		a.Insights = append(a.Insights, Insight{
			Type:     "balance",
			Category: cat,
			Message:  fmt.Sprintf("%s is completing %s %s tasks than assigned. Consider adjusting task assignments to better reflect who actually completes them.", person, direction, cat),
			Severity: "high",
		})
	}
	for _, p := range []string{Mama, Papa} {
		if n := a.Streaks[p]; n > 5 {
			a.Insights = append(a.Insights, Insight{
				Type:     "pattern",
				Category: "All",
				Message:  fmt.Sprintf("%s was assigned %d consecutive tasks at one point. Try to alternate task assignments more evenly.", p, n),
				Severity: "high",
			})
		}
	}

	slices.SortStableFunc(a.Insights, func(x, y Insight) int {
		return cmp.Compare(severityRank[x.Severity], severityRank[y.Severity])
	})
	return a
}

var severityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

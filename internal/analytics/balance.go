package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Survey answers outweigh task assignments when the two are blended.
const (
	surveyShare = 0.7
	taskShare   = 0.3
)

var categoryWeights = map[string]float64{
	VisibleHousehold:   1.0,
	InvisibleHousehold: 1.2,
	VisibleParental:    1.1,
	InvisibleParental:  1.5,
}

// SurveyBalance splits weighted survey answers per category. Shared
// answers (Both, Neutral, Neither) count half to each parent. The overall
// split weights each category by its importance and answer count,
// boosted for the family's priority categories.
func SurveyBalance(answers []SurveyAnswer, pri Priorities) Balance {
	weights := map[string]float64{}
	for k, v := range categoryWeights {
		weights[k] = v
	}
	for _, boost := range []struct {
		cat string
		w   float64
	}{{pri.Highest, 1.5}, {pri.Secondary, 1.3}, {pri.Tertiary, 1.1}} {
		if _, ok := weights[boost.cat]; ok {
			weights[boost.cat] = boost.w
		}
	}

	type tally struct {
		mama, papa, total float64
		n                 int
	}
	tallies := map[string]*tally{}
	for _, a := range answers {
		cat := Canonical(a.Category)
		if _, ok := categoryWeights[cat]; !ok {
			continue
		}
		w := a.Weight
		if w <= 0 {
			w = 1
		}
		t, ok := tallies[cat]
		if !ok {
			t = &tally{}
			tallies[cat] = t
		}
		switch a.Answer {
		case Mama:
			t.mama += w
		case Papa:
			t.papa += w
		case "Both", "Neutral", "Neither":
			t.mama += w / 2
			t.papa += w / 2
		default:
			continue
		}
		t.total += w
		t.n++
	}

	b := Balance{Overall: Share{Mama: 50, Papa: 50}, Categories: map[string]Share{}}
	var wMama, wPapa, wTotal float64
	for _, cat := range Categories {
		t, ok := tallies[cat]
		if !ok || t.total == 0 {
			continue
		}
		s := split(t.mama, t.papa, t.total)
		b.Categories[cat] = s
		cw := weights[cat] * float64(t.n)
		wMama += s.Mama * cw
		wPapa += s.Papa * cw
		wTotal += cw
	}
	if wTotal > 0 {
		b.Overall = Share{Mama: wMama / wTotal, Papa: wPapa / wTotal, Imbalance: abs(wMama-wPapa) / wTotal}
	}
	return b
}

// TaskBalance splits the weight of open tasks. Unknown categories count
// as visible household work.
func TaskBalance(tasks []Task) Balance {
	type tally struct{ mama, papa, total float64 }
	tallies := map[string]*tally{}
	for _, c := range Categories {
		tallies[c] = &tally{}
	}
	var mama, papa float64
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		cat := Canonical(t.Category)
		tl, ok := tallies[cat]
		if !ok {
			tl = tallies[VisibleHousehold]
		}
		w := t.weight()
		tl.total += w
		switch t.AssignedTo {
		case Mama:
			tl.mama += w
			mama += w
		case Papa:
			tl.papa += w
			papa += w
		}
	}

	b := Balance{Overall: split(mama, papa, mama+papa), Categories: map[string]Share{}}
	for _, c := range Categories {
		tl := tallies[c]
		b.Categories[c] = split(tl.mama, tl.papa, tl.total)
	}
	return b
}

// Combine blends survey and task balances. A category missing from
// either side counts as an even split.
func Combine(survey, tasks Balance) Balance {
	mama := survey.Overall.Mama*surveyShare + tasks.Overall.Mama*taskShare
	out := Balance{
		Overall:    Share{Mama: mama, Papa: 100 - mama, Imbalance: abs(2*mama - 100)},
		Categories: map[string]Share{},
	}
	for _, c := range Categories {
		m := mamaShare(survey, c)*surveyShare + mamaShare(tasks, c)*taskShare
		out.Categories[c] = Share{Mama: m, Papa: 100 - m, Imbalance: abs(2*m - 100)}
	}
	return out
}

func mamaShare(b Balance, category string) float64 {
	if s, ok := b.Categories[category]; ok {
		return s.Mama
	}
	return 50
}

// ImbalanceScore is 0 for a perfect split and at most 100: 70% overall
// imbalance plus 30% mean category imbalance.
func ImbalanceScore(b Balance) float64 {
	overall := abs(b.Overall.Mama - b.Overall.Papa)
	var sum float64
	for _, s := range b.Categories {
		sum += s.Imbalance
	}
	var avg float64
	if len(b.Categories) > 0 {
		avg = sum / float64(len(b.Categories))
	}
	return min(100, overall*0.7+avg*0.3)
}

// Time slots for open tasks.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	Weekend   = "weekend"
)

var timeSlots = []struct {
	slot  string
	terms []string
}{
	{Morning, []string{"morning", "breakfast", "wake", "school prep"}},
	{Afternoon, []string{"afternoon", "lunch", "school pickup"}},
	{Evening, []string{"evening", "dinner", "bedtime", "night"}},
	{Weekend, []string{"weekend", "saturday", "sunday"}},
}

// TimeDistribution splits open task weight by time of day, inferred from
// the task text or, failing that, a weekend due date.
func TimeDistribution(tasks []Task) map[string]Share {
	type tally struct{ mama, papa, total float64 }
	tallies := map[string]*tally{}
	for _, s := range timeSlots {
		tallies[s.slot] = &tally{}
	}
	add := func(slot string, t Task) {
		tl := tallies[slot]
		w := t.weight()
		tl.total += w
		switch t.AssignedTo {
		case Mama:
			tl.mama += w
		case Papa:
			tl.papa += w
		}
	}

	for _, t := range tasks {
		if t.Completed {
			continue
		}
		text := t.text()
		matched := false
		for _, s := range timeSlots {
			if containsAny(text, s.terms) {
				add(s.slot, t)
				matched = true
			}
		}
		if !matched && t.DueDate != nil {
			if wd := t.DueDate.Weekday(); wd == 0 || wd == 6 {
				add(Weekend, t)
			}
		}
	}

	out := make(map[string]Share, len(tallies))
	for slot, tl := range tallies {
		out[slot] = split(tl.mama, tl.papa, tl.total)
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Alert flags a significant imbalance.
type Alert struct {
	Type     string `json:"type"` // critical or warning
	Category string `json:"category"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

func heavier(s Share) (string, string) {
	if s.Mama > s.Papa {
		return Mama, Papa
	}
	return Papa, Mama
}

// Alerts lists critical alerts before warnings.
func Alerts(combined Balance, times map[string]Share) []Alert {
	alerts := []Alert{}

	overall := abs(combined.Overall.Mama - combined.Overall.Papa)
	if overall > 20 {
		who, _ := heavier(combined.Overall)
		pct := math.Round(max(combined.Overall.Mama, combined.Overall.Papa))
		if overall > 30 {
			alerts = append(alerts, Alert{"critical", "Overall Balance",
				fmt.Sprintf("There's a significant imbalance in family workload, with %s handling %.0f%% of tasks.", who, pct),
				"Review the task distribution and reassign tasks more evenly."})
		} else {
			alerts = append(alerts, Alert{"warning", "Overall Balance",
				fmt.Sprintf("There's a moderate imbalance in family workload, with %s handling %.0f%% of tasks.", who, pct),
				"Look for opportunities to redistribute some tasks more evenly."})
		}
	}

	for _, cat := range Categories {
		s, ok := combined.Categories[cat]
		if !ok || s.Imbalance <= 25 {
			continue
		}
		who, other := heavier(s)
		pct := math.Round(max(s.Mama, s.Papa))
		if s.Imbalance > 40 {
			alerts = append(alerts, Alert{"critical", cat,
				fmt.Sprintf("%s shows a severe imbalance, with %s handling %.0f%% of these tasks.", cat, who, pct),
				fmt.Sprintf("Reassign some %s to %s.", cat, other)})
		} else {
			alerts = append(alerts, Alert{"warning", cat,
				fmt.Sprintf("%s shows a notable imbalance, with %s handling %.0f%% of these tasks.", cat, who, pct),
				fmt.Sprintf("Look for opportunities to reassign some %s to %s.", cat, other)})
		}
	}

	for _, s := range timeSlots {
		sh, ok := times[s.slot]
		if !ok || sh.Imbalance <= 25 {
			continue
		}
		who, other := heavier(sh)
		label := strings.ToUpper(s.slot[:1]) + s.slot[1:]
		pct := math.Round(max(sh.Mama, sh.Papa))
		if sh.Imbalance > 40 {
			alerts = append(alerts, Alert{"critical", label + " Tasks",
				fmt.Sprintf("%s tasks show a severe time imbalance, with %s handling %.0f%% of tasks during this time.", label, who, pct),
				fmt.Sprintf("Reassign some %s tasks to %s.", s.slot, other)})
		} else {
			alerts = append(alerts, Alert{"warning", label + " Tasks",
				fmt.Sprintf("%s tasks show a notable time imbalance, with %s handling %.0f%% of tasks during this time.", label, who, pct),
				fmt.Sprintf("Consider redistributing some %s tasks more evenly.", s.slot)})
		}
	}

	slices.SortStableFunc(alerts, func(a, b Alert) int {
		return cmp.Compare(alertRank(a.Type), alertRank(b.Type))
	})
	return alerts
}

func alertRank(t string) int {
	if t == "critical" {
		return 0
	}
	return 1
}

// Report is the result of [DetectImbalance].
type Report struct {
	Survey         Balance          `json:"surveyBasedBalance"`
	Tasks          Balance          `json:"taskBasedBalance"`
	Combined       Balance          `json:"combinedAnalysis"`
	Time           map[string]Share `json:"timeAnalysis"`
	Alerts         []Alert          `json:"alerts"`
	ImbalanceScore float64          `json:"imbalanceScore"`
}

// DetectImbalance runs the full workload balance analysis.
func DetectImbalance(tasks []Task, answers []SurveyAnswer, pri Priorities) Report {
	r := Report{
		Survey: SurveyBalance(answers, pri),
		Tasks:  TaskBalance(tasks),
		Time:   TimeDistribution(tasks),
	}
	r.Combined = Combine(r.Survey, r.Tasks)
	r.Alerts = Alerts(r.Combined, r.Time)
	r.ImbalanceScore = ImbalanceScore(r.Combined)
	return r
}

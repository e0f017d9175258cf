package classify

import (
	"strings"
	"unicode"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
)

// Rule routes a message straight to a kind when it contains one of
// Verbs and one of Nouns as words. Nouns also match plurals.
type Rule struct {
	Kind  action.Kind
	Verbs []string
	Nouns []string
}

// DirectRules are checked in order before the classifier runs.
var DirectRules = []Rule{
	{action.AddTask, []string{"add", "create", "new"}, []string{"task", "todo", "to-do", "assignment", "chore"}},
	{action.AddProvider, []string{"add"}, []string{"doctor", "provider", "coach", "teacher", "therapist", "babysitter", "nanny", "tutor"}},
	{action.AddAppointment, []string{"add", "schedule"}, []string{"appointment", "checkup", "check-up"}},
	{action.TrackGrowth, []string{"record", "track"}, []string{"height", "weight"}},
}

// MatchDirect returns the first rule that matches message.
func MatchDirect(message string) (action.Kind, bool) {
	words := tokenize(message)
	for _, r := range DirectRules {
		if hasWord(words, r.Verbs, false) && hasWord(words, r.Nouns, true) {
			return r.Kind, true
		}
	}
	return "", false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func hasWord(words, want []string, plural bool) bool {
	for _, w := range words {
		for _, x := range want {
			if w == x || (plural && (w == x+"s" || w == x+"es")) {
				return true
			}
		}
	}
	return false
}

// recheckRules are substring tests, looser than DirectRules, tried once
// after the classifier misses.
var recheckRules = []Rule{
	{action.AddProvider, []string{"add"}, []string{"doctor", "provider"}},
	{action.AddAppointment, []string{"add", "schedule"}, []string{"appointment", "checkup"}},
	{action.TrackGrowth, []string{"record", "track"}, []string{"height", "weight"}},
	{action.AddTask, []string{"add", "create"}, []string{"task", "todo"}},
}

// Recheck matches message by substring containment, so "adding" counts
// as "add".
func Recheck(message string) (action.Kind, bool) {
	lower := strings.ToLower(message)
	for _, r := range recheckRules {
		if containsAny(lower, r.Verbs) && containsAny(lower, r.Nouns) {
			return r.Kind, true
		}
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

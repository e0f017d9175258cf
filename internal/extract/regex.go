package extract

import (
	"regexp"
	"strings"
	"unicode"
)

const nameToken = `[A-Z][a-zA-Z'\-]+`

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)

	sitterChildRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i:babysitter|nanny|sitter)\s+(?i:for)\s+(?:(?i:my)\s+(?i:son|daughter|kid|child)\s+)?(` + nameToken + `)`),
		regexp.MustCompile(`(?i:for\s+my\s+(?:son|daughter|kid|child))\s+(` + nameToken + `)`),
		regexp.MustCompile(`\b(` + nameToken + `)\s+(?i:needs\s+a\s+(?:babysitter|nanny|sitter))`),
	}
	genericChildRe = regexp.MustCompile(`\b(?i:for)\s+(` + nameToken + `)`)

	explicitNameRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(?i:named|called)\s+(` + nameToken + `(?:\s+` + nameToken + `)?)`),
		regexp.MustCompile(`\b(?i:is)\s+(` + nameToken + `\s+` + nameToken + `)`),
	}

	taskTitleRe = regexp.MustCompile(`(?i)(?:task|todo|to-do|reminder|chore|assignment)\s*(?:to|:|for|-)?\s+(.+)$`)
	heightRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(centimeters|cm|inches|in|"|feet|ft|')(?:\s*(\d+(?:\.\d+)?)\s*(?:in|inches|"))?`)
	weightRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(lbs?|pounds|kg|kilograms)\b`)
	shoeRe      = regexp.MustCompile(`(?i)shoe\s+size\s*(?:is|of|:)?\s*(\d+(?:\.\d+)?\s*[a-z]?)`)
	clothingRe  = regexp.MustCompile(`(?i)(?:clothing|clothes|shirt|pants)\s+size\s*(?:is|of|:)?\s*([a-z0-9]+)`)
)

// Words that look like a capitalized name but are not one.
var notNames = map[string]bool{
	"add": true, "create": true, "new": true, "schedule": true, "please": true,
	"can": true, "could": true, "would": true, "my": true, "our": true, "the": true,
	"i": true, "a": true, "an": true, "dr": true, "mr": true, "mrs": true, "ms": true,
	"record": true, "track": true, "what": true, "when": true, "who": true, "show": true,
	"me": true, "monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true, "today": true, "tomorrow": true,
	"mama": true, "papa": true, "mom": true, "dad": true,
}

// ChildName finds the child a request is for. Sitter phrasings are
// tried before the generic "for X".
func ChildName(msg string) string {
	for _, re := range sitterChildRes {
		if m := re.FindStringSubmatch(msg); m != nil && !notNames[strings.ToLower(m[1])] {
			return m[1]
		}
	}
	for _, m := range genericChildRe.FindAllStringSubmatch(msg, -1) {
		if !notNames[strings.ToLower(m[1])] {
			return m[1]
		}
	}
	return ""
}

// Email returns the first email address in msg.
func Email(msg string) string {
	return emailRe.FindString(msg)
}

// Phone returns the first North American phone number in msg.
func Phone(msg string) string {
	return strings.TrimSpace(phoneRe.FindString(msg))
}

// ExplicitName returns a name introduced by "named", "called" or "is".
func ExplicitName(msg string) string {
	for _, re := range explicitNameRes {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}

// FullName returns the first pair of consecutive capitalized words that
// are not sentence starters or titles. Short messages yield "".
func FullName(msg string) string {
	if len(msg) < 12 {
		return ""
	}
	words := strings.Fields(msg)
	clean := make([]string, len(words))
	for i, w := range words {
		clean[i] = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' && r != '-' })
	}
	for i := 0; i+1 < len(clean); i++ {
		a, b := clean[i], clean[i+1]
		if isNameWord(a) && isNameWord(b) && !notNames[strings.ToLower(a)] && !notNames[strings.ToLower(b)] {
			// A comma or period after the first word ends the name.
			if strings.HasSuffix(words[i], ",") || strings.HasSuffix(words[i], ".") {
				continue
			}
			return a + " " + b
		}
	}
	return ""
}

func isNameWord(w string) bool {
	if len(w) < 2 {
		return false
	}
	r := []rune(w)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	for _, c := range r[1:] {
		if !unicode.IsLower(c) && c != '\'' && c != '-' {
			return false
		}
	}
	return true
}

// TaskTitle pulls a title from "add a task to ..." phrasings.
func TaskTitle(msg string) string {
	m := taskTitleRe.FindStringSubmatch(strings.TrimSpace(msg))
	if m == nil {
		return ""
	}
	title := strings.TrimRight(strings.TrimSpace(m[1]), ".!?")
	if r := []rune(title); len(r) > 80 {
		title = strings.TrimSpace(string(r[:80]))
	}
	if title == "" {
		return ""
	}
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Measurements pulls height, weight, shoe and clothing sizes.
func Measurements(msg string) (height, weight, shoe, clothing string) {
	if m := heightRe.FindStringSubmatch(msg); m != nil {
		height = strings.TrimSpace(m[0])
	}
	if m := weightRe.FindStringSubmatch(msg); m != nil {
		weight = m[1] + " " + m[2]
	}
	if m := shoeRe.FindStringSubmatch(msg); m != nil {
		shoe = strings.TrimSpace(m[1])
	}
	if m := clothingRe.FindStringSubmatch(msg); m != nil {
		clothing = m[1]
	}
	return height, weight, shoe, clothing
}

// Hints runs every pre-extractor and returns the values found, keyed by
// the entity field they seed.
func Hints(msg string) map[string]string {
	h := make(map[string]string)
	if v := ChildName(msg); v != "" {
		h["childName"] = v
	}
	if v := Email(msg); v != "" {
		h["email"] = v
	}
	if v := Phone(msg); v != "" {
		h["phone"] = v
	}
	if v := ExplicitName(msg); v != "" {
		h["name"] = v
	}
	return h
}

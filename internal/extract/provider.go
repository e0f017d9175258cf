package extract

import "strings"

// Provider types.
const (
	TypeMedical   = "medical"
	TypeChildcare = "childcare"
	TypeEducation = "education"
	TypeMusic     = "music"
	TypeCoach     = "coach"
)

// ProviderKind is an inferred provider type and specialty.
type ProviderKind struct {
	Type      string
	Specialty string
}

type keywordRule struct {
	keyword   string
	specialty string
}

var (
	instrumentRules = []keywordRule{
		{"piano", "piano teacher"}, {"guitar", "guitar teacher"}, {"violin", "violin teacher"},
		{"cello", "cello teacher"}, {"drum", "drum teacher"}, {"flute", "flute teacher"},
		{"singing", "voice teacher"}, {"voice", "voice teacher"}, {"music", "music teacher"},
	}
	sportRules = []keywordRule{
		{"swim", "swimming coach"}, {"running", "running coach"},
		{"soccer", "soccer coach"}, {"basketball", "basketball coach"}, {"baseball", "baseball coach"},
		{"tennis", "tennis coach"}, {"gymnastics", "gymnastics coach"}, {"hockey", "hockey coach"},
		{"dance", "dance coach"}, {"karate", "karate coach"}, {"coach", "coach"}, {"trainer", "trainer"},
	}
	medicalRules = []keywordRule{
		{"pediatrician", "pediatrician"}, {"orthodontist", "orthodontist"}, {"dentist", "dentist"},
		{"dermatologist", "dermatologist"}, {"allergist", "allergist"}, {"optometrist", "optometrist"},
		{"psychologist", "psychologist"}, {"psychiatrist", "psychiatrist"}, {"therapist", "therapist"},
		{"nurse", "nurse"}, {"physician", "physician"}, {"doctor", "doctor"},
	}
	subjectRules = []keywordRule{
		{"math", "math tutor"}, {"reading", "reading tutor"}, {"science", "science tutor"},
		{"english", "english tutor"}, {"spanish", "spanish tutor"}, {"french", "french tutor"},
		{"tutor", "tutor"}, {"teacher", "teacher"}, {"instructor", "instructor"},
	}
	sitterKeywords = []string{"babysitter", "nanny", "baby sitter", "sitter"}
)

// InferProviderType classifies a request by keyword. ok is false when no
// keyword matched. Sitter keywords always yield childcare/babysitter.
func InferProviderType(msg string) (kind ProviderKind, ok bool) {
	lower := strings.ToLower(msg)

	if hasAny(lower, sitterKeywords) {
		return ProviderKind{Type: TypeChildcare, Specialty: "babysitter"}, true
	}
	if strings.Contains(lower, "daycare") {
		return ProviderKind{Type: TypeChildcare, Specialty: "daycare"}, true
	}

	if r, found := firstRule(lower, instrumentRules); found {
		return ProviderKind{Type: TypeMusic, Specialty: r.specialty}, true
	}
	if r, found := firstRule(lower, sportRules); found {
		return ProviderKind{Type: TypeCoach, Specialty: r.specialty}, true
	}
	if r, found := firstRule(lower, medicalRules); found {
		return ProviderKind{Type: TypeMedical, Specialty: r.specialty}, true
	}
	if r, found := firstRule(lower, subjectRules); found {
		return ProviderKind{Type: TypeEducation, Specialty: r.specialty}, true
	}
	return ProviderKind{Type: TypeMedical}, false
}

// applySitterOverride forces the childcare type for sitter requests,
// whatever an earlier step decided.
func applySitterOverride(msg string, p *Provider) {
	if hasAny(strings.ToLower(msg), sitterKeywords) {
		p.Type = TypeChildcare
		p.Specialty = "babysitter"
	}
}

func firstRule(lower string, rules []keywordRule) (keywordRule, bool) {
	for _, r := range rules {
		if strings.Contains(lower, r.keyword) {
			return r, true
		}
	}
	return keywordRule{}, false
}

func hasAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

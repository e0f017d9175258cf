package extract

import (
	"strings"
	"testing"
)

func TestInferProviderType(t *testing.T) {
	tests := []struct {
		msg       string
		wantType  string
		specialty string
		ok        bool
	}{
		{"add a piano teacher named Jane Smith", TypeMusic, "piano", true},
		{"add my son's guitar instructor", TypeMusic, "guitar", true},
		{"schedule a swim coach for Max", TypeCoach, "swim", true},
		{"add a running coach", TypeCoach, "running", true},
		{"add Dr. Lee, our pediatrician", TypeMedical, "pediatrician", true},
		{"add a math tutor for Emma", TypeEducation, "math", true},
		{"add the daycare on Main St", TypeChildcare, "daycare", true},
		{"add Sam Jones", TypeMedical, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, ok := InferProviderType(tt.msg)
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
			if !strings.Contains(got.Specialty, tt.specialty) {
				t.Errorf("specialty = %q, want it to contain %q", got.Specialty, tt.specialty)
			}
		})
	}
}

func TestSitterOverrideAlwaysWins(t *testing.T) {
	msgs := []string{
		"add a babysitter for Lily named Maria",
		"add a nanny who is also a soccer coach",
		"add our piano teacher who babysits as a babysitter",
		"the doctor recommended a nanny, add her: Ana Ruiz",
	}
	for _, msg := range msgs {
		t.Run(msg, func(t *testing.T) {
			got, _ := InferProviderType(msg)
			if got.Type != TypeChildcare || got.Specialty != "babysitter" {
				t.Errorf("InferProviderType = %+v, want childcare/babysitter", got)
			}

			p := Provider{Type: TypeCoach, Specialty: "soccer coach"}
			applySitterOverride(msg, &p)
			if p.Type != TypeChildcare || p.Specialty != "babysitter" {
				t.Errorf("override = %+v, want childcare/babysitter", p)
			}
		})
	}
}

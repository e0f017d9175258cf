package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/action"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/events"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/extract"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/prompts"
)

// ProvidersCollection holds the family provider directory.
const ProvidersCollection = "providers"

const defaultProviderNotes = "Added via Allie chat"

// Provider is a stored directory entry.
type Provider struct {
	ID        string    `json:"-"`
	FamilyID  string    `json:"familyId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Specialty string    `json:"specialty"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	ChildName string    `json:"childName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Follow-up suggestions shown after adding a provider of a known type.
var providerSuggestions = map[string][]string{
	extract.TypeMusic: {
		"Set up a regular lesson schedule on the calendar",
		"Add a daily practice reminder to the task board",
	},
	extract.TypeCoach: {
		"Add practice and game times to the calendar",
		"Make a checklist of gear to bring to each session",
	},
	extract.TypeMedical: {
		"Schedule the next checkup",
		"Keep insurance details with the provider notes",
	},
	extract.TypeEducation: {
		"Add tutoring sessions to the calendar",
		"Note the goals you want to work on together",
	},
	extract.TypeChildcare: {
		"Share emergency contacts and house rules",
		"Coordinate the sitter's schedule with your date nights",
	},
}

func (d *Dispatcher) addProvider(ctx context.Context, message string, ac ActionContext) action.Result {
	in, err := d.extractor.Provider(ctx, message)
	if err != nil {
		if errors.Is(err, extract.ErrNoName) {
			return action.Fail("I couldn't identify the provider details. Could you please be more specific?", err.Error())
		}
		return action.Fail("I encountered an error while adding this provider.", err.Error())
	}

	now := d.extractor.Now()
	p := Provider{
		FamilyID:  ac.FamilyID,
		Name:      in.Name,
		Type:      in.Type,
		Specialty: in.Specialty,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		Notes:     in.Notes,
		ChildName: in.ChildName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Type == "" {
		p.Type = extract.TypeMedical
	}
	if p.Notes == "" {
		p.Notes = defaultProviderNotes
	}

	doc, err := docstore.From(p)
	if err != nil {
		return action.Fail("I had trouble saving this provider. Let's try again with more specific information.", err.Error())
	}
	id, err := d.docs.Add(ctx, ProvidersCollection, doc)
	if err != nil {
		d.logger.Warn("provider save failed", "family_id", ac.FamilyID, "error", err)
		return action.Fail("I had trouble saving this provider. Let's try again with more specific information.", err.Error())
	}
	p.ID = id

	d.sink.Notify(events.SourceDispatch, events.KindProviderAdded, map[string]any{"providerId": id})
	d.sink.Notify(events.SourceDispatch, events.KindDirectoryRefresh, nil)
	d.logger.Info("provider added", "provider_id", id, "family_id", ac.FamilyID, "type", p.Type)

	return action.Succeed(providerMessage(p), map[string]any{
		"providerId": id,
		"provider":   p,
	})
}

func providerMessage(p Provider) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I've added %s as a %s provider to your directory.", p.Name, p.Type)

	var saved []string
	add := func(label, v string) {
		if v != "" {
			saved = append(saved, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Specialty", p.Specialty)
	add("For", p.ChildName)
	add("Phone", p.Phone)
	add("Email", p.Email)
	add("Address", p.Address)
	if len(saved) > 0 {
		sb.WriteString("\n\nHere's what I saved:\n")
		sb.WriteString(strings.Join(saved, "\n"))
	}

	if tips := providerSuggestions[p.Type]; len(tips) > 0 {
		sb.WriteString("\n\nYou might also want to:")
		for _, t := range tips {
			sb.WriteString("\n- " + t)
		}
	}

	switch {
	case p.Phone == "" && p.Email == "":
		sb.WriteString("\n\nWould you like to add contact information for them?")
	case p.Address == "":
		sb.WriteString("\n\nWould you like to add their address or any other details?")
	}
	return sb.String()
}

// Providers lists the provider directory of familyID in insertion order.
func (d *Dispatcher) Providers(ctx context.Context, familyID string) ([]Provider, error) {
	found, err := d.docs.Find(ctx, ProvidersCollection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("familyId", familyID)},
	})
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	out := make([]Provider, 0, len(found))
	for _, doc := range found {
		var p Provider
		if err := doc.Data.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode provider %s: %w", doc.ID, err)
		}
		p.ID = doc.ID
		out = append(out, p)
	}
	return out, nil
}

type providerQuery struct {
	name, typ, specialty string
}

func (q providerQuery) match(p Provider) bool {
	return containsFold(p.Name, q.name) &&
		containsFold(p.Type, q.typ) &&
		containsFold(p.Specialty, q.specialty)
}

func (q providerQuery) describe() string {
	var sb strings.Builder
	if q.name != "" {
		sb.WriteString(" named " + q.name)
	}
	if q.typ != "" {
		sb.WriteString(" of type " + q.typ)
	}
	if q.specialty != "" {
		sb.WriteString(" specializing in " + q.specialty)
	}
	return sb.String()
}

func (d *Dispatcher) queryProviders(ctx context.Context, message string, ac ActionContext) action.Result {
	params := d.extractor.Params(ctx, prompts.ProviderQueryPrompt(), prompts.QueryUserTurn("provider", message))
	q := providerQuery{
		name:      extract.Str(params, "providerName"),
		typ:       extract.Str(params, "providerType"),
		specialty: extract.Str(params, "specialty"),
	}

	all, err := d.Providers(ctx, ac.FamilyID)
	if err != nil {
		return action.Fail("I encountered an error while retrieving providers. Please try a more specific query.", err.Error())
	}
	found := []Provider{}
	for _, p := range all {
		if q.match(p) {
			found = append(found, p)
		}
	}

	if len(found) == 0 {
		return action.Succeed("I couldn't find any matching providers"+q.describe()+" in your provider directory.",
			map[string]any{"providers": found})
	}

	noun := "providers"
	if len(found) == 1 {
		noun = "provider"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d %s%s:\n\n", len(found), noun, q.describe())
	for i, p := range found[:min(listLimit, len(found))] {
		fmt.Fprintf(&sb, "%d. %s", i+1, p.Name)
		if p.Specialty != "" {
			fmt.Fprintf(&sb, " (%s)", p.Specialty)
		}
		if contact := joinNonEmpty(", ", p.Phone, p.Email); contact != "" {
			sb.WriteString(": " + contact)
		}
		sb.WriteByte('\n')
	}
	if n := len(found) - listLimit; n > 0 {
		fmt.Fprintf(&sb, "\n...and %d more providers. You can see all providers in the Provider Directory.", n)
	}
	return action.Succeed(sb.String(), map[string]any{"providers": found})
}

// listLimit bounds how many items a query reply enumerates.
const listLimit = 5

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func joinNonEmpty(sep string, vals ...string) string {
	var parts []string
	for _, v := range vals {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

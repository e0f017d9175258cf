// Package family looks up the members of a household in the document
// store. Name matching is case-insensitive and exact; there is no fuzzy
// matching.
package family

import (
	"context"
	"fmt"
	"strings"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/docstore"
)

// Collection holds one document per family member.
const Collection = "familyMembers"

// Member roles.
const (
	RoleChild  = "child"
	RoleParent = "parent"
)

// Parent roles used for workload balance and task assignment.
const (
	Mama = "Mama"
	Papa = "Papa"
)

// Member is one person in a family.
type Member struct {
	ID       string `json:"-"`
	FamilyID string `json:"familyId"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	// ParentRole is Mama or Papa for parents.
	ParentRole string `json:"roleType,omitempty"`
}

// Roster reads family members.
type Roster struct {
	docs docstore.Documents
}

// NewRoster creates a roster over docs.
func NewRoster(docs docstore.Documents) *Roster {
	return &Roster{docs: docs}
}

// Members returns every member of familyID.
func (r *Roster) Members(ctx context.Context, familyID string) ([]Member, error) {
	found, err := r.docs.Find(ctx, Collection, docstore.Query{
		Where: []docstore.Filter{docstore.Where("familyId", familyID)},
	})
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	out := make([]Member, 0, len(found))
	for _, d := range found {
		var m Member
		if err := d.Data.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode member %s: %w", d.ID, err)
		}
		m.ID = d.ID
		out = append(out, m)
	}
	return out, nil
}

// Children returns the child members of familyID.
func (r *Roster) Children(ctx context.Context, familyID string) ([]Member, error) {
	return r.withRole(ctx, familyID, RoleChild)
}

// Parents returns the parent members of familyID.
func (r *Roster) Parents(ctx context.Context, familyID string) ([]Member, error) {
	return r.withRole(ctx, familyID, RoleParent)
}

func (r *Roster) withRole(ctx context.Context, familyID, role string) ([]Member, error) {
	all, err := r.Members(ctx, familyID)
	if err != nil {
		return nil, err
	}
	var out []Member
	for _, m := range all {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out, nil
}

// Child finds a child of familyID by name.
func (r *Roster) Child(ctx context.Context, familyID, name string) (Member, bool, error) {
	kids, err := r.Children(ctx, familyID)
	if err != nil {
		return Member{}, false, err
	}
	m, ok := ByName(kids, name)
	return m, ok, nil
}

// ByName returns the member whose name equals name, ignoring case.
func ByName(members []Member, name string) (Member, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, false
	}
	for _, m := range members {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Member{}, false
}

var parentAliases = map[string]string{
	"mama": Mama, "mom": Mama, "mommy": Mama, "mother": Mama, "mum": Mama,
	"papa": Papa, "dad": Papa, "daddy": Papa, "father": Papa,
}

// Assignee resolves a task assignee against parents: by name first, then
// by parent role alias ("Mom", "Papa"). ok is false when nobody matches.
func Assignee(parents []Member, who string) (Member, bool) {
	if m, ok := ByName(parents, who); ok {
		return m, true
	}
	role, ok := parentAliases[strings.ToLower(strings.TrimSpace(who))]
	if !ok {
		return Member{}, false
	}
	for _, m := range parents {
		if strings.EqualFold(m.ParentRole, role) {
			return m, true
		}
	}
	return Member{}, false
}

// ParentRoleOf maps an assignee label onto Mama or Papa, or "".
func ParentRoleOf(who string) string {
	return parentAliases[strings.ToLower(strings.TrimSpace(who))]
}

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
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/family"
)

// GrowthCollection holds measurements for children without a member
// document.
const GrowthCollection = "growthMeasurements"

// GrowthEntry is one measurement appended to a child's growthData.
type GrowthEntry struct {
	Date         string `json:"date"`
	Height       string `json:"height,omitempty"`
	Weight       string `json:"weight,omitempty"`
	ShoeSize     string `json:"shoeSize,omitempty"`
	ClothingSize string `json:"clothingSize,omitempty"`
	Notes        string `json:"notes"`
	ChildID      string `json:"childId"`
	ChildName    string `json:"childName"`
	CreatedAt    string `json:"createdAt"`
}

func (d *Dispatcher) trackGrowth(ctx context.Context, message string, ac ActionContext) action.Result {
	g, err := d.extractor.Growth(ctx, message)
	if err != nil {
		return action.Fail("I encountered an error while recording this growth data.", err.Error())
	}
	if g.Empty() {
		return action.Fail("I couldn't identify the growth measurement details. Could you provide more information?", "no measurement found")
	}

	var child family.Member
	if g.ChildName != "" {
		c, ok, err := d.roster.Child(ctx, ac.FamilyID, g.ChildName)
		if err != nil {
			return action.Fail("I encountered an error while recording this growth data.", err.Error())
		}
		if ok {
			child = c
		}
	}
	if child.ID == "" {
		return action.Fail("I couldn't determine which child this measurement is for. Please specify the child's name.", "child not found: "+g.ChildName)
	}

	now := d.extractor.Now()
	entry := GrowthEntry{
		Date:         g.Date,
		Height:       g.Height,
		Weight:       g.Weight,
		ShoeSize:     g.ShoeSize,
		ClothingSize: g.ClothingSize,
		Notes:        fmt.Sprintf("Added via Allie chat: %q", truncate(message, 100)),
		ChildID:      child.ID,
		ChildName:    child.Name,
		CreatedAt:    now.UTC().Format(time.RFC3339),
	}
	doc, err := docstore.From(entry)
	if err != nil {
		return action.Fail("I had trouble saving this growth data. Please try again with more specific measurements.", err.Error())
	}

	err = d.docs.Update(ctx, family.Collection, child.ID, map[string]any{
		"growthData": docstore.ArrayUnion(map[string]any(doc)),
		"updatedAt":  now.UTC().Format(time.RFC3339),
	})
	if errors.Is(err, docstore.ErrNotFound) {
		doc["familyId"] = ac.FamilyID
		_, err = d.docs.Add(ctx, GrowthCollection, doc)
	}
	if err != nil {
		d.logger.Warn("growth save failed", "child_id", child.ID, "error", err)
		return action.Fail("I had trouble saving this growth data. Please try again with more specific measurements.", err.Error())
	}

	d.sink.Notify(events.SourceDispatch, events.KindChildDataUpdated, map[string]any{
		"childId":  child.ID,
		"dataType": "growth",
	})
	d.logger.Info("growth recorded", "child_id", child.ID, "family_id", ac.FamilyID)

	var recorded []string
	for _, m := range []struct{ label, v string }{
		{"height", entry.Height},
		{"weight", entry.Weight},
		{"shoe size", entry.ShoeSize},
		{"clothing size", entry.ClothingSize},
	} {
		if m.v != "" {
			recorded = append(recorded, m.label+": "+m.v)
		}
	}
	msg := fmt.Sprintf("I've recorded the growth data for %s. I recorded %s. You can view this data in the Children Tracking tab.",
		child.Name, strings.Join(recorded, ", "))

	return action.Succeed(msg, map[string]any{
		"childId":     child.ID,
		"childName":   child.Name,
		"growthEntry": entry,
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

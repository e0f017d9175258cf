package api

import (
	"fmt"
	"net/http"

	"github.com/emersion/go-vcard"
	"github.com/go-chi/chi/v5"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/dispatch"
)

// providerCard renders one directory entry as a vCard 4.0 contact.
func providerCard(p dispatch.Provider) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldFormattedName, p.Name)
	card.SetValue(vcard.FieldKind, "individual")
	if p.ID != "" {
		card.SetValue(vcard.FieldUID, p.ID)
	}
	if p.Specialty != "" {
		card.SetValue(vcard.FieldTitle, p.Specialty)
	}
	if p.Type != "" {
		card.SetValue(vcard.FieldCategories, p.Type)
	}
	if p.Phone != "" {
		card.AddValue(vcard.FieldTelephone, p.Phone)
	}
	if p.Email != "" {
		card.AddValue(vcard.FieldEmail, p.Email)
	}
	if p.Address != "" {
		card.AddAddress(&vcard.Address{Field: &vcard.Field{}, StreetAddress: p.Address})
	}
	note := p.Notes
	if p.ChildName != "" {
		if note != "" {
			note += "\n"
		}
		note += "For: " + p.ChildName
	}
	if note != "" {
		card.SetValue(vcard.FieldNote, note)
	}
	vcard.ToV4(card)
	return card
}

func (s *Server) handleProvidersVCard(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyId")
	providers, err := s.dispatcher.Providers(r.Context(), familyID)
	if err != nil {
		s.logger.Error("provider export failed", "family_id", familyID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load providers")
		return
	}

	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-providers.vcf"`, familyID))
	enc := vcard.NewEncoder(w)
	for _, p := range providers {
		if err := enc.Encode(providerCard(p)); err != nil {
			s.logger.Debug("vcard encode failed", "provider_id", p.ID, "error", err)
			return
		}
	}
}

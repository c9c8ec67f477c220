package export

import (
	"io"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/emersion/go-vcard"
)

const VCardContentType = "text/vcard; charset=utf-8"

// Card builds a vCard 3.0 card for p. Empty fields are kept as empty
// properties.
func Card(p *models.Profile) vcard.Card {
	card := vcard.Card{}
	card.SetValue(vcard.FieldVersion, "3.0")
	card.SetValue(vcard.FieldFormattedName, p.DisplayName())
	card.SetValue(vcard.FieldOrganization, models.Deref(p.CompanyName))
	card.SetValue(vcard.FieldTitle, models.Deref(p.JobTitle))
	card.SetValue(vcard.FieldNote, models.Deref(p.Bio))
	card.SetValue(vcard.FieldURL, p.SocialLinks.Website)
	return card
}

// WriteVCard encodes the card of p with CRLF line endings.
func WriteVCard(w io.Writer, p *models.Profile) error {
	return vcard.NewEncoder(w).Encode(Card(p))
}

func VCardFilename(p *models.Profile) string {
	return p.Username + ".vcf"
}

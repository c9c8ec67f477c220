package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeadService(db *storetest.DB) *LeadService {
	return NewLeadService(db.LeadRepo(), db.ChipRepo(), db.ProfileRepo())
}

func TestLeadService_SubmitUsesFirstChip(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := db.AddChip(&models.Chip{ChipUID: "old", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID, CreatedAt: base})
	db.AddChip(&models.Chip{ChipUID: "new", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID, CreatedAt: base.Add(time.Hour)})

	lead, err := newLeadService(db).Submit(context.Background(), "anna", LeadInput{
		Name:    " Max ",
		Email:   "max@example.com",
		Message: "hi,there",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, lead.ChipID)
	assert.Equal(t, "Max", models.Deref(lead.Name))
	assert.Nil(t, lead.Phone)
	assert.Len(t, db.Leads(), 1)
}

func TestLeadService_SubmitErrors(t *testing.T) {
	db := storetest.New()
	seedOwner(db, "nochips")
	svc := newLeadService(db)
	valid := LeadInput{Name: "Max", Email: "max@example.com"}

	_, err := svc.Submit(context.Background(), "nochips", valid)
	assert.ErrorIs(t, err, ErrNoActiveChip)

	_, err = svc.Submit(context.Background(), "ghost", valid)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Submit(context.Background(), "nochips", LeadInput{Name: "Max", Email: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, db.Leads())
}

func TestLeadService_ListNewestFirst(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	other := seedOwner(db, "bert")
	mine := db.AddChip(&models.Chip{ChipUID: "a", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID})
	theirs := db.AddChip(&models.Chip{ChipUID: "b", ActiveMode: models.ModeVCard, AssignedTo: &other.ID})

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db.AddLead(&models.Lead{ChipID: mine.ID, Name: strPtr("old"), CreatedAt: base})
	db.AddLead(&models.Lead{ChipID: mine.ID, Name: strPtr("new"), CreatedAt: base.Add(time.Hour)})
	db.AddLead(&models.Lead{ChipID: theirs.ID, Name: strPtr("foreign"), CreatedAt: base})

	leads, err := newLeadService(db).List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "new", models.Deref(leads[0].Name))
	assert.Equal(t, "old", models.Deref(leads[1].Name))
}

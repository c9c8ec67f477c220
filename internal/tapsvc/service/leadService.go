package service

import (
	"context"
	"strings"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
)

// LeadInput is the public contact form.
type LeadInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=64"`
	Message string `json:"message" validate:"max=5000"`
}

type LeadService struct {
	leads    LeadRepository
	chips    ChipRepository
	profiles ProfileRepository
}

func NewLeadService(leads LeadRepository, chips ChipRepository, profiles ProfileRepository) *LeadService {
	return &LeadService{leads: leads, chips: chips, profiles: profiles}
}

// Submit stores a lead against the first chip of the profile behind username.
func (s *LeadService) Submit(ctx context.Context, username string, in LeadInput) (*models.Lead, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}

	chipID, err := s.chips.FirstIDByOwner(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if chipID == nil {
		return nil, ErrNoActiveChip
	}

	return s.leads.Insert(ctx, &models.Lead{
		ChipID:  *chipID,
		Name:    models.NullIfEmpty(in.Name),
		Email:   models.NullIfEmpty(in.Email),
		Phone:   models.NullIfEmpty(strings.TrimSpace(in.Phone)),
		Message: models.NullIfEmpty(strings.TrimSpace(in.Message)),
	})
}

// List returns the leads of every chip owned by owner, newest first.
func (s *LeadService) List(ctx context.Context, owner uuid.UUID) ([]*models.Lead, error) {
	ids, err := s.chips.ListIDsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Lead{}, nil
	}

	leads, err := s.leads.ListByChips(ctx, ids)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	return leads, nil
}

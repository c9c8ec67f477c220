package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
)

type CreateChipInput struct {
	ChipUID    string `json:"chip_uid" validate:"required,max=128"`
	ActiveMode string `json:"active_mode" validate:"omitempty,oneof=vcard redirect menu review"`
	TargetURL  string `json:"target_url" validate:"omitempty,url"`
}

// UpdateChipInput switches a chip to ActiveMode and stores the payload of
// that mode. URL holds the menu or review link, TargetURL the redirect.
type UpdateChipInput struct {
	ActiveMode string          `json:"active_mode" validate:"required,oneof=vcard redirect menu review"`
	TargetURL  string          `json:"target_url" validate:"omitempty,url"`
	URL        string          `json:"url" validate:"omitempty,url"`
	Title      string          `json:"title" validate:"max=200"`
	Platform   string          `json:"platform" validate:"max=64"`
	VCardData  json.RawMessage `json:"vcard_data"`
}

func (in UpdateChipInput) payload() models.ModePayload {
	switch models.ChipMode(in.ActiveMode) {
	case models.ModeRedirect:
		return models.RedirectPayload{TargetURL: in.TargetURL}
	case models.ModeMenu:
		return models.MenuPayload{URL: in.URL, Title: in.Title}
	case models.ModeReview:
		return models.ReviewPayload{URL: in.URL, Platform: in.Platform}
	default:
		return models.VCardPayload{Data: in.VCardData}
	}
}

type ChipService struct {
	chips ChipRepository
	roles RoleRepository
}

func NewChipService(chips ChipRepository, roles RoleRepository) *ChipService {
	return &ChipService{chips: chips, roles: roles}
}

func (s *ChipService) List(ctx context.Context, owner uuid.UUID) ([]*models.Chip, error) {
	chips, err := s.chips.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if chips == nil {
		chips = []*models.Chip{}
	}
	return chips, nil
}

// Create registers a chip for owner. The mode defaults to vcard.
func (s *ChipService) Create(ctx context.Context, owner uuid.UUID, in CreateChipInput) (*models.Chip, error) {
	in.ChipUID = strings.TrimSpace(in.ChipUID)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	mode := models.ModeVCard
	if in.ActiveMode != "" {
		mode = models.ChipMode(in.ActiveMode)
	}

	chip := &models.Chip{
		ChipUID:    in.ChipUID,
		ActiveMode: mode,
		TargetURL:  models.NullIfEmpty(in.TargetURL),
		AssignedTo: &owner,
		IsActive:   true,
	}
	return s.chips.Create(ctx, chip)
}

// Update changes the mode and payload of a chip owned by owner.
func (s *ChipService) Update(ctx context.Context, owner, id uuid.UUID, in UpdateChipInput) (*models.Chip, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	chip, err := s.chips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chip == nil || !chip.OwnedBy(owner) {
		return nil, ErrNotFound
	}

	if err := chip.SetPayload(in.payload()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.chips.Update(ctx, owner, chip)
}

// Toggle flips the active flag and returns the new value.
func (s *ChipService) Toggle(ctx context.Context, owner, id uuid.UUID) (bool, error) {
	return s.chips.ToggleActive(ctx, owner, id)
}

func (s *ChipService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.chips.Delete(ctx, owner, id)
}

// ListAll returns every chip and requires the admin role.
func (s *ChipService) ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Chip, error) {
	ok, err := s.roles.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	chips, err := s.chips.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if chips == nil {
		chips = []*models.Chip{}
	}
	return chips, nil
}

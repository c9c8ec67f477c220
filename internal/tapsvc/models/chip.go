package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChipMode string

const (
	ModeVCard    ChipMode = "vcard"
	ModeRedirect ChipMode = "redirect"
	ModeMenu     ChipMode = "menu"
	ModeReview   ChipMode = "review"
)

var ChipModes = []ChipMode{ModeVCard, ModeRedirect, ModeMenu, ModeReview}

func (m ChipMode) Valid() bool {
	switch m {
	case ModeVCard, ModeRedirect, ModeMenu, ModeReview:
		return true
	}
	return false
}

// Chip represents the nfc_chips table.
type Chip struct {
	ID            uuid.UUID       `json:"id"`
	ChipUID       string          `json:"chip_uid"` // hardware identifier printed in the tag URL
	ActiveMode    ChipMode        `json:"active_mode"`
	TargetURL     *string         `json:"target_url"`
	VCardData     json.RawMessage `json:"vcard_data,omitempty"`
	MenuData      json.RawMessage `json:"menu_data,omitempty"`
	ReviewData    json.RawMessage `json:"review_data,omitempty"`
	AssignedTo    *uuid.UUID      `json:"assigned_to"`
	IsActive      bool            `json:"is_active"`
	LastScannedAt *time.Time      `json:"last_scanned_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Owner *Profile `json:"owner,omitempty"` // joined on lookups that need it
}

func (c *Chip) OwnedBy(userID uuid.UUID) bool {
	return c.AssignedTo != nil && *c.AssignedTo == userID
}

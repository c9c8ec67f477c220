package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a visitor submitted contact record. Rows are insert only.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	ChipID    uuid.UUID `json:"chip_id"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

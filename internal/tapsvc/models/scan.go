package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
	DeviceOther   = "Other"
)

// ScanEvent represents one row of scan_analytics, written once per tap.
type ScanEvent struct {
	ID         uuid.UUID       `json:"id"`
	ChipID     uuid.UUID       `json:"chip_id"`
	DeviceType *string         `json:"device_type"`
	UserAgent  *string         `json:"user_agent"`
	IPAddress  *string         `json:"ip_address"`
	Location   json.RawMessage `json:"location,omitempty"`
	ScannedAt  time.Time       `json:"scanned_at"`
}

package comm

import (
	"encoding/json"
	"time"
)

// ScanSubject carries one ScanNotice per recorded NFC tap.
const ScanSubject = "tap.scan"

// ScanNotice is published by the tap service after a scan row is written.
type ScanNotice struct {
	ScanID     string    `json:"scan_id"`
	ChipID     string    `json:"chip_id"`
	ChipUID    string    `json:"chip_uid"`
	OwnerID    string    `json:"owner_id"` // empty for unassigned chips
	Mode       string    `json:"mode"`
	DeviceType string    `json:"device_type"`
	IPAddress  string    `json:"ip_address,omitempty"`
	ScannedAt  time.Time `json:"scanned_at"`
}

// WSMessage is the frame exchanged with dashboard websocket clients.
type WSMessage struct {
	Type     string          `json:"type"` // "history", "scan", "error"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// FeedItem is one entry of the live scan feed.
type FeedItem struct {
	OwnerID    string    `json:"owner_id" bson:"owner_id"`
	ScanID     string    `json:"scan_id" bson:"scan_id"`
	ChipUID    string    `json:"chip_uid" bson:"chip_uid"`
	Mode       string    `json:"mode" bson:"mode"`
	DeviceType string    `json:"device_type" bson:"device_type"`
	IPAddress  string    `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	ScannedAt  time.Time `json:"scanned_at" bson:"scanned_at"`
	ExpiresAt  time.Time `json:"-" bson:"expires_at"`
}

func (n ScanNotice) FeedItem(ttl time.Duration) FeedItem {
	return FeedItem{
		OwnerID:    n.OwnerID,
		ScanID:     n.ScanID,
		ChipUID:    n.ChipUID,
		Mode:       n.Mode,
		DeviceType: n.DeviceType,
		IPAddress:  n.IPAddress,
		ScannedAt:  n.ScannedAt,
		ExpiresAt:  n.ScannedAt.Add(ttl),
	}
}

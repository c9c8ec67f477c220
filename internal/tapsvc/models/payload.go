package models

import (
	"encoding/json"
	"fmt"
)

// ModePayload is the mode-specific configuration of a chip. Exactly one
// variant is authoritative, selected by Chip.ActiveMode.
type ModePayload interface {
	Mode() ChipMode
	// Destination is the URL stored in the payload, empty when unset.
	Destination() string
}

// VCardPayload sends visitors to the owner's public profile.
type VCardPayload struct {
	Data json.RawMessage `json:"data,omitempty"`
}

type RedirectPayload struct {
	TargetURL string `json:"target_url"`
}

type MenuPayload struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type ReviewPayload struct {
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"` // e.g. google, tripadvisor
}

func (VCardPayload) Mode() ChipMode    { return ModeVCard }
func (RedirectPayload) Mode() ChipMode { return ModeRedirect }
func (MenuPayload) Mode() ChipMode     { return ModeMenu }
func (ReviewPayload) Mode() ChipMode   { return ModeReview }

func (VCardPayload) Destination() string      { return "" }
func (p RedirectPayload) Destination() string { return p.TargetURL }
func (p MenuPayload) Destination() string     { return p.URL }
func (p ReviewPayload) Destination() string   { return p.URL }

// ErrUnknownMode is returned by Payload for modes outside ChipModes.
type ErrUnknownMode struct {
	Mode ChipMode
}

func (e ErrUnknownMode) Error() string {
	return fmt.Sprintf("unknown chip mode %q", string(e.Mode))
}

// Payload decodes the column that the active mode makes authoritative.
func (c *Chip) Payload() (ModePayload, error) {
	switch c.ActiveMode {
	case ModeVCard:
		return VCardPayload{Data: c.VCardData}, nil
	case ModeRedirect:
		p := RedirectPayload{}
		if c.TargetURL != nil {
			p.TargetURL = *c.TargetURL
		}
		return p, nil
	case ModeMenu:
		p := MenuPayload{}
		if err := decodeOptional(c.MenuData, &p); err != nil {
			return p, fmt.Errorf("decode menu_data: %w", err)
		}
		return p, nil
	case ModeReview:
		p := ReviewPayload{}
		if err := decodeOptional(c.ReviewData, &p); err != nil {
			return p, fmt.Errorf("decode review_data: %w", err)
		}
		return p, nil
	default:
		return nil, ErrUnknownMode{Mode: c.ActiveMode}
	}
}

// SetPayload writes p into the column its mode owns and switches the chip
// to that mode. Columns of other modes are left as they are.
func (c *Chip) SetPayload(p ModePayload) error {
	switch v := p.(type) {
	case VCardPayload:
		c.VCardData = v.Data
	case RedirectPayload:
		if v.TargetURL == "" {
			c.TargetURL = nil
		} else {
			u := v.TargetURL
			c.TargetURL = &u
		}
	case MenuPayload:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.MenuData = raw
	case ReviewPayload:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.ReviewData = raw
	default:
		return fmt.Errorf("unsupported payload %T", p)
	}
	c.ActiveMode = p.Mode()
	return nil
}

func decodeOptional(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"github.com/avvvet/tap-services/internal/tapsvc/models"
)

var (
	tabletPattern = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	mobilePattern = regexp.MustCompile(`(?i)mobile|iphone|ipod|android|blackberry|opera mini|iemobile`)
)

// DeviceType classifies a user agent. Tablet patterns take precedence over
// mobile ones.
func DeviceType(userAgent string) string {
	if tabletPattern.MatchString(userAgent) {
		return models.DeviceTablet
	}
	if mobilePattern.MatchString(userAgent) {
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}

// ProfilePath is the public page of a profile.
func ProfilePath(username string) string {
	return "/p/" + url.PathEscape(username)
}

type Outcome string

const (
	OutcomeNotFound Outcome = "not_found" // no active chip with the uid
	OutcomeProfile  Outcome = "profile"   // vcard mode, owner page
	OutcomeExternal Outcome = "external"  // redirect/menu/review url
	OutcomeFallback Outcome = "fallback"  // unknown mode or missing url, owner page
	OutcomeNone     Outcome = "none"      // nowhere to send the visitor
)

// Visit describes the inbound tap request.
type Visit struct {
	UserAgent string
	IPAddress string
	Location  map[string]string
}

// Resolution is the result of one tap. The write errors are reported so the
// caller decides what to do with them; none of them prevents navigation.
type Resolution struct {
	Chip        *models.Chip
	Scan        *models.ScanEvent
	Destination string
	Outcome     Outcome

	ScanErr    error
	TouchErr   error
	PublishErr error
	PayloadErr error
}

// Err joins all partial failures, nil when every step succeeded.
func (r *Resolution) Err() error {
	return errors.Join(r.ScanErr, r.TouchErr, r.PublishErr, r.PayloadErr)
}

type RedirectService struct {
	chips     ChipRepository
	scans     ScanRepository
	publisher ScanPublisher
	now       func() time.Time
}

// NewRedirectService wires the resolver. publisher may be nil.
func NewRedirectService(chips ChipRepository, scans ScanRepository, publisher ScanPublisher) *RedirectService {
	return &RedirectService{
		chips:     chips,
		scans:     scans,
		publisher: publisher,
		now:       time.Now,
	}
}

// Resolve looks up the active chip for uid, records the visit and picks the
// destination. The returned error is only set when the lookup itself failed.
func (s *RedirectService) Resolve(ctx context.Context, uid string, v Visit) (*Resolution, error) {
	chip, err := s.chips.GetActiveByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if chip == nil {
		return &Resolution{Outcome: OutcomeNotFound}, nil
	}

	res := &Resolution{Chip: chip}
	now := s.now()

	scan := &models.ScanEvent{
		ChipID:     chip.ID,
		DeviceType: models.NullIfEmpty(DeviceType(v.UserAgent)),
		UserAgent:  models.NullIfEmpty(v.UserAgent),
		IPAddress:  models.NullIfEmpty(v.IPAddress),
		ScannedAt:  now,
	}
	if len(v.Location) > 0 {
		if raw, err := json.Marshal(v.Location); err == nil {
			scan.Location = raw
		}
	}

	res.Scan, res.ScanErr = s.scans.Insert(ctx, scan)
	res.TouchErr = s.chips.TouchLastScanned(ctx, chip.ID, now)

	if res.ScanErr == nil && s.publisher != nil {
		res.PublishErr = s.publisher.PublishScan(ctx, scanNotice(chip, res.Scan))
	}

	res.Destination, res.Outcome, res.PayloadErr = destination(chip)
	return res, nil
}

func destination(chip *models.Chip) (string, Outcome, error) {
	profilePage := ""
	if chip.Owner != nil && chip.Owner.Username != "" {
		profilePage = ProfilePath(chip.Owner.Username)
	}

	fallback := func(err error) (string, Outcome, error) {
		if profilePage != "" {
			return profilePage, OutcomeFallback, err
		}
		return "", OutcomeNone, err
	}

	payload, err := chip.Payload()
	if err != nil {
		var unknown models.ErrUnknownMode
		if errors.As(err, &unknown) {
			err = nil
		}
		return fallback(err)
	}

	if payload.Mode() == models.ModeVCard {
		if profilePage == "" {
			return "", OutcomeNone, nil
		}
		return profilePage, OutcomeProfile, nil
	}

	if dest := payload.Destination(); dest != "" {
		return dest, OutcomeExternal, nil
	}
	return fallback(nil)
}

func scanNotice(chip *models.Chip, scan *models.ScanEvent) comm.ScanNotice {
	n := comm.ScanNotice{
		ScanID:     scan.ID.String(),
		ChipID:     chip.ID.String(),
		ChipUID:    chip.ChipUID,
		Mode:       string(chip.ActiveMode),
		DeviceType: models.Deref(scan.DeviceType),
		IPAddress:  models.Deref(scan.IPAddress),
		ScannedAt:  scan.ScannedAt,
	}
	if chip.AssignedTo != nil {
		n.OwnerID = chip.AssignedTo.String()
	}
	return n
}

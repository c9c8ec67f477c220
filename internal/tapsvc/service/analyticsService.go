package service

import (
	"context"
	"strings"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MetricsWindowDays = 30
	RecentScanLimit   = 5
)

type Overview struct {
	ChipsCount  int                 `json:"chips_count"`
	ScansCount  int                 `json:"scans_count"`
	LeadsCount  int                 `json:"leads_count"`
	RecentScans []*models.ScanEvent `json:"recent_scans"`
}

type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD in the service time zone
	Scans int    `json:"scans"`
}

type DeviceCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Metrics covers the trailing MetricsWindowDays. Leads are counted over all
// time, as on the overview.
type Metrics struct {
	TotalScans     int             `json:"total_scans"`
	UniqueVisitors int             `json:"unique_visitors"`
	AvgDaily       decimal.Decimal `json:"avg_daily"`
	ConversionRate decimal.Decimal `json:"conversion_rate"` // percent
	ScansByDay     []DayCount      `json:"scans_by_day"`
	Devices        []DeviceCount   `json:"devices"`
}

type AnalyticsService struct {
	chips ChipRepository
	scans ScanRepository
	leads LeadRepository
	loc   *time.Location
}

func NewAnalyticsService(chips ChipRepository, scans ScanRepository, leads LeadRepository, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{chips: chips, scans: scans, leads: leads, loc: loc}
}

func (s *AnalyticsService) Overview(ctx context.Context, owner uuid.UUID) (*Overview, error) {
	chipIDs, err := s.chips.ListIDsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	o := &Overview{ChipsCount: len(chipIDs), RecentScans: []*models.ScanEvent{}}
	if len(chipIDs) == 0 {
		return o, nil
	}

	if o.ScansCount, err = s.scans.CountByChips(ctx, chipIDs); err != nil {
		return nil, err
	}
	if o.LeadsCount, err = s.leads.CountByChips(ctx, chipIDs); err != nil {
		return nil, err
	}
	recent, err := s.scans.RecentByChips(ctx, chipIDs, RecentScanLimit)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		o.RecentScans = recent
	}
	return o, nil
}

func (s *AnalyticsService) Metrics(ctx context.Context, owner uuid.UUID, now time.Time) (*Metrics, error) {
	chipIDs, err := s.chips.ListIDsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(chipIDs) == 0 {
		return Summarize(nil, 0, s.loc), nil
	}

	since := now.AddDate(0, 0, -MetricsWindowDays)
	scans, err := s.scans.ListSince(ctx, chipIDs, since)
	if err != nil {
		return nil, err
	}

	leads, err := s.leads.CountByChips(ctx, chipIDs)
	if err != nil {
		return nil, err
	}

	return Summarize(scans, leads, s.loc), nil
}

// Summarize aggregates scans ordered oldest first in a single pass.
func Summarize(scans []*models.ScanEvent, leads int, loc *time.Location) *Metrics {
	if loc == nil {
		loc = time.UTC
	}

	m := &Metrics{
		TotalScans:     len(scans),
		AvgDaily:       decimal.Zero,
		ConversionRate: decimal.Zero,
		ScansByDay:     []DayCount{},
		Devices:        []DeviceCount{},
	}

	visitors := make(map[string]struct{})
	dayIndex := make(map[string]int)
	devices := map[string]int{}

	for _, scan := range scans {
		visitors[models.Deref(scan.IPAddress)] = struct{}{}

		day := scan.ScannedAt.In(loc).Format("2006-01-02")
		if i, ok := dayIndex[day]; ok {
			m.ScansByDay[i].Scans++
		} else {
			dayIndex[day] = len(m.ScansByDay)
			m.ScansByDay = append(m.ScansByDay, DayCount{Date: day, Scans: 1})
		}

		devices[deviceBucket(models.Deref(scan.DeviceType))]++
	}

	m.UniqueVisitors = len(visitors)

	total := decimal.NewFromInt(int64(m.TotalScans))
	m.AvgDaily = total.Div(decimal.NewFromInt(MetricsWindowDays)).Round(1)
	if m.TotalScans > 0 {
		m.ConversionRate = decimal.NewFromInt(int64(leads)).Mul(decimal.NewFromInt(100)).Div(total).Round(1)
	}

	for _, name := range []string{models.DeviceMobile, models.DeviceDesktop, models.DeviceTablet, models.DeviceOther} {
		if n := devices[name]; n > 0 {
			m.Devices = append(m.Devices, DeviceCount{Name: name, Value: n})
		}
	}

	return m
}

func deviceBucket(deviceType string) string {
	switch {
	case strings.Contains(deviceType, models.DeviceMobile):
		return models.DeviceMobile
	case strings.Contains(deviceType, models.DeviceDesktop):
		return models.DeviceDesktop
	case strings.Contains(deviceType, models.DeviceTablet):
		return models.DeviceTablet
	default:
		return models.DeviceOther
	}
}

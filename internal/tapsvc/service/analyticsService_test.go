package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAt(at time.Time, ip, device string) *models.ScanEvent {
	return &models.ScanEvent{
		ScannedAt:  at,
		IPAddress:  models.NullIfEmpty(ip),
		DeviceType: models.NullIfEmpty(device),
	}
}

func TestSummarize_NoScans(t *testing.T) {
	m := Summarize(nil, 3, time.UTC)

	assert.Zero(t, m.TotalScans)
	assert.Zero(t, m.UniqueVisitors)
	assert.Equal(t, "0", m.AvgDaily.String())
	assert.Equal(t, "0", m.ConversionRate.String())
	assert.Empty(t, m.ScansByDay)
	assert.Empty(t, m.Devices)
}

func TestSummarize_AverageDaily(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var scans []*models.ScanEvent
	for i := 0; i < 15; i++ {
		scans = append(scans, scanAt(base.Add(time.Duration(i)*time.Hour), "10.0.0.1", models.DeviceMobile))
	}

	m := Summarize(scans, 0, time.UTC)
	assert.Equal(t, 15, m.TotalScans)
	assert.Equal(t, "0.5", m.AvgDaily.String())
	assert.Equal(t, "0", m.ConversionRate.String())
}

func TestSummarize_Conversion(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	scans := []*models.ScanEvent{
		scanAt(base, "1.1.1.1", models.DeviceMobile),
		scanAt(base, "1.1.1.2", models.DeviceMobile),
		scanAt(base, "1.1.1.3", models.DeviceMobile),
	}

	m := Summarize(scans, 1, time.UTC)
	assert.Equal(t, "33.3", m.ConversionRate.String())
	assert.Equal(t, "0.1", m.AvgDaily.String())
}

func TestSummarize_VisitorsDaysAndDevices(t *testing.T) {
	day1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	scans := []*models.ScanEvent{
		scanAt(day1, "1.1.1.1", models.DeviceDesktop),
		scanAt(day1, "1.1.1.1", models.DeviceMobile),
		scanAt(day1, "", models.DeviceTablet),
		scanAt(day2, "", "Smart TV"),
		scanAt(day2, "2.2.2.2", models.DeviceMobile),
	}

	m := Summarize(scans, 0, time.UTC)

	assert.Equal(t, 3, m.UniqueVisitors, "a missing address counts as one visitor")
	assert.Equal(t, []DayCount{{Date: "2026-05-01", Scans: 3}, {Date: "2026-05-03", Scans: 2}}, m.ScansByDay)
	assert.Equal(t, []DeviceCount{
		{Name: models.DeviceMobile, Value: 2},
		{Name: models.DeviceDesktop, Value: 1},
		{Name: models.DeviceTablet, Value: 1},
		{Name: models.DeviceOther, Value: 1},
	}, m.Devices)
}

func TestSummarize_DropsEmptyDeviceBuckets(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m := Summarize([]*models.ScanEvent{scanAt(at, "", models.DeviceDesktop)}, 0, time.UTC)
	assert.Equal(t, []DeviceCount{{Name: models.DeviceDesktop, Value: 1}}, m.Devices)
}

func TestSummarize_GroupsByLocalDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	late := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)
	m := Summarize([]*models.ScanEvent{scanAt(late, "", models.DeviceMobile)}, 0, berlin)
	assert.Equal(t, "2026-05-02", m.ScansByDay[0].Date)
}

func TestAnalytics_OwnerWithoutChips(t *testing.T) {
	db := storetest.New()
	svc := NewAnalyticsService(db.ChipRepo(), db.ScanRepo(), db.LeadRepo(), time.UTC)

	m, err := svc.Metrics(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, m.TotalScans)
	assert.Equal(t, "0", m.ConversionRate.String())
	assert.Zero(t, db.Calls("scans.ListSince"))

	o, err := svc.Overview(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, o.ChipsCount)
	assert.NotNil(t, o.RecentScans)
}

func TestAnalytics_MetricsWindowAndOwnership(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	other := seedOwner(db, "bert")
	mine := db.AddChip(&models.Chip{ChipUID: "a", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID, IsActive: true})
	theirs := db.AddChip(&models.Chip{ChipUID: "b", ActiveMode: models.ModeVCard, AssignedTo: &other.ID, IsActive: true})

	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	db.AddScan(&models.ScanEvent{ChipID: mine.ID, ScannedAt: now.AddDate(0, 0, -1), IPAddress: strPtr("1.1.1.1")})
	db.AddScan(&models.ScanEvent{ChipID: mine.ID, ScannedAt: now.AddDate(0, 0, -2), IPAddress: strPtr("1.1.1.2")})
	db.AddScan(&models.ScanEvent{ChipID: mine.ID, ScannedAt: now.AddDate(0, 0, -45)})
	db.AddScan(&models.ScanEvent{ChipID: theirs.ID, ScannedAt: now.AddDate(0, 0, -1)})
	db.AddLead(&models.Lead{ChipID: mine.ID, CreatedAt: now.AddDate(0, -3, 0)})

	svc := NewAnalyticsService(db.ChipRepo(), db.ScanRepo(), db.LeadRepo(), time.UTC)
	m, err := svc.Metrics(context.Background(), owner.ID, now)
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalScans)
	assert.Equal(t, 2, m.UniqueVisitors)
	assert.Equal(t, "50", m.ConversionRate.String(), "leads are counted over all time")
	require.Len(t, m.ScansByDay, 2)
	assert.Equal(t, "2026-06-28", m.ScansByDay[0].Date)
}

func TestAnalytics_Overview(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	chip := db.AddChip(&models.Chip{ChipUID: "a", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID, IsActive: true})
	db.AddChip(&models.Chip{ChipUID: "b", ActiveMode: models.ModeVCard, AssignedTo: &owner.ID, IsActive: false})

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		db.AddScan(&models.ScanEvent{ChipID: chip.ID, ScannedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	db.AddLead(&models.Lead{ChipID: chip.ID, CreatedAt: base})

	o, err := NewAnalyticsService(db.ChipRepo(), db.ScanRepo(), db.LeadRepo(), time.UTC).Overview(context.Background(), owner.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, o.ChipsCount)
	assert.Equal(t, 7, o.ScansCount)
	assert.Equal(t, 1, o.LeadsCount)
	require.Len(t, o.RecentScans, RecentScanLimit)
	assert.True(t, o.RecentScans[0].ScannedAt.Equal(base.Add(6*time.Minute)), "newest first")
}

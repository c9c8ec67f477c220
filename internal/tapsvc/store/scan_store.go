package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScanStore struct {
	db *pgxpool.Pool
}

func NewScanStore(db *pgxpool.Pool) *ScanStore {
	return &ScanStore{db: db}
}

const scanColumns = `id, chip_id, device_type, user_agent, host(ip_address), location, scanned_at`

func (s *ScanStore) Insert(ctx context.Context, scan *models.ScanEvent) (*models.ScanEvent, error) {
	query := `
		INSERT INTO scan_analytics (chip_id, device_type, user_agent, ip_address, location, scanned_at)
		VALUES ($1, $2, $3, $4::inet, $5, $6)
		RETURNING id, scanned_at
	`

	created := *scan
	err := s.db.QueryRow(ctx, query,
		scan.ChipID, scan.DeviceType, scan.UserAgent, scan.IPAddress, nullJSON(scan.Location), scan.ScannedAt,
	).Scan(&created.ID, &created.ScannedAt)
	if err != nil {
		return nil, fmt.Errorf("could not insert scan: %w", err)
	}
	return &created, nil
}

func (s *ScanStore) CountByChips(ctx context.Context, chipIDs []uuid.UUID) (int, error) {
	if len(chipIDs) == 0 {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM scan_analytics WHERE chip_id = ANY($1::uuid[])`, chipIDs).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return n, nil
}

// RecentByChips returns the newest scans first.
func (s *ScanStore) RecentByChips(ctx context.Context, chipIDs []uuid.UUID, limit int) ([]*models.ScanEvent, error) {
	if len(chipIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, `
		SELECT `+scanColumns+`
		FROM scan_analytics
		WHERE chip_id = ANY($1::uuid[])
		ORDER BY scanned_at DESC
		LIMIT $2
	`, chipIDs, limit)
}

// ListSince returns scans at or after since, oldest first.
func (s *ScanStore) ListSince(ctx context.Context, chipIDs []uuid.UUID, since time.Time) ([]*models.ScanEvent, error) {
	if len(chipIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, `
		SELECT `+scanColumns+`
		FROM scan_analytics
		WHERE chip_id = ANY($1::uuid[]) AND scanned_at >= $2
		ORDER BY scanned_at ASC
	`, chipIDs, since)
}

func (s *ScanStore) list(ctx context.Context, query string, args ...any) ([]*models.ScanEvent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	scans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.ScanEvent, error) {
		var e models.ScanEvent
		err := row.Scan(&e.ID, &e.ChipID, &e.DeviceType, &e.UserAgent, &e.IPAddress, (*[]byte)(&e.Location), &e.ScannedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return scans, nil
}

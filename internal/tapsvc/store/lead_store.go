package store

import (
	"context"
	"fmt"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeadStore struct {
	db *pgxpool.Pool
}

func NewLeadStore(db *pgxpool.Pool) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) Insert(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	query := `
		INSERT INTO leads (chip_id, name, email, phone, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	created := *lead
	err := s.db.QueryRow(ctx, query, lead.ChipID, lead.Name, lead.Email, lead.Phone, lead.Message).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not insert lead: %w", err)
	}
	return &created, nil
}

func (s *LeadStore) CountByChips(ctx context.Context, chipIDs []uuid.UUID) (int, error) {
	if len(chipIDs) == 0 {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM leads WHERE chip_id = ANY($1::uuid[])`, chipIDs).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// ListByChips returns leads newest first.
func (s *LeadStore) ListByChips(ctx context.Context, chipIDs []uuid.UUID) ([]*models.Lead, error) {
	if len(chipIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, chip_id, name, email, phone, message, created_at
		FROM leads
		WHERE chip_id = ANY($1::uuid[])
		ORDER BY created_at DESC
	`, chipIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.ChipID, &l.Name, &l.Email, &l.Phone, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, &l)
	}
	return leads, rows.Err()
}

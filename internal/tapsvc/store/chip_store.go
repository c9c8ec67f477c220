package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChipStore struct {
	db *pgxpool.Pool
}

func NewChipStore(db *pgxpool.Pool) *ChipStore {
	return &ChipStore{db: db}
}

const chipColumns = `c.id, c.chip_uid, c.active_mode::text, c.target_url, c.vcard_data, c.menu_data, c.review_data,
	c.assigned_to, c.is_active, c.last_scanned_at, c.created_at, c.updated_at`

func scanChip(row pgx.Row, extra ...any) (*models.Chip, error) {
	c := &models.Chip{}
	var mode string
	dest := []any{
		&c.ID,
		&c.ChipUID,
		&mode,
		&c.TargetURL,
		(*[]byte)(&c.VCardData),
		(*[]byte)(&c.MenuData),
		(*[]byte)(&c.ReviewData),
		&c.AssignedTo,
		&c.IsActive,
		&c.LastScannedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.ActiveMode = models.ChipMode(mode)
	return c, nil
}

// GetActiveByUID returns the active chip with its owning profile, or nil
// when no active chip carries uid.
func (s *ChipStore) GetActiveByUID(ctx context.Context, uid string) (*models.Chip, error) {
	query := `
		SELECT ` + chipColumns + `,
			p.id, p.username, p.full_name, p.job_title, p.company_name, p.bio, p.avatar_url,
			p.social_links, p.created_at, p.updated_at
		FROM nfc_chips c
		LEFT JOIN profiles p ON p.id = c.assigned_to
		WHERE c.chip_uid = $1 AND c.is_active = true
		LIMIT 1
	`

	var pID *uuid.UUID
	var pUsername, pFullName, pJob, pCompany, pBio, pAvatar *string
	var pLinks []byte
	var pCreated, pUpdated *time.Time
	chip, err := scanChip(s.db.QueryRow(ctx, query, uid),
		&pID, &pUsername, &pFullName, &pJob, &pCompany, &pBio, &pAvatar, &pLinks, &pCreated, &pUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chip by uid: %w", err)
	}

	if pID != nil {
		links, err := models.DecodeSocialLinks(pLinks)
		if err != nil {
			return nil, fmt.Errorf("decode social_links: %w", err)
		}
		chip.Owner = &models.Profile{
			ID:          *pID,
			Username:    models.Deref(pUsername),
			FullName:    pFullName,
			JobTitle:    pJob,
			CompanyName: pCompany,
			Bio:         pBio,
			AvatarURL:   pAvatar,
			SocialLinks: links,
		}
		if pCreated != nil {
			chip.Owner.CreatedAt = *pCreated
		}
		if pUpdated != nil {
			chip.Owner.UpdatedAt = *pUpdated
		}
	}

	return chip, nil
}

func (s *ChipStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Chip, error) {
	query := `SELECT ` + chipColumns + ` FROM nfc_chips c WHERE c.id = $1`

	chip, err := scanChip(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chip by id: %w", err)
	}
	return chip, nil
}

func (s *ChipStore) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*models.Chip, error) {
	query := `SELECT ` + chipColumns + ` FROM nfc_chips c WHERE c.assigned_to = $1 ORDER BY c.created_at DESC`
	return s.list(ctx, query, owner)
}

// ListAll returns every chip, including unassigned ones.
func (s *ChipStore) ListAll(ctx context.Context) ([]*models.Chip, error) {
	query := `SELECT ` + chipColumns + ` FROM nfc_chips c ORDER BY c.created_at DESC`
	return s.list(ctx, query)
}

func (s *ChipStore) list(ctx context.Context, query string, args ...any) ([]*models.Chip, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chips: %w", err)
	}
	defer rows.Close()

	var chips []*models.Chip
	for rows.Next() {
		chip, err := scanChip(rows)
		if err != nil {
			return nil, err
		}
		chips = append(chips, chip)
	}

	return chips, rows.Err()
}

func (s *ChipStore) ListIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM nfc_chips WHERE assigned_to = $1`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list chip ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FirstIDByOwner returns the oldest chip of owner, or nil when the owner has none.
func (s *ChipStore) FirstIDByOwner(ctx context.Context, owner uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT id FROM nfc_chips
		WHERE assigned_to = $1
		ORDER BY created_at
		LIMIT 1
	`, owner).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first chip: %w", err)
	}
	return &id, nil
}

func (s *ChipStore) Create(ctx context.Context, chip *models.Chip) (*models.Chip, error) {
	query := `
		INSERT INTO nfc_chips AS c (chip_uid, active_mode, target_url, assigned_to, is_active)
		VALUES ($1, $2::chip_mode, $3, $4, true)
		RETURNING ` + chipColumns

	created, err := scanChip(s.db.QueryRow(ctx, query,
		chip.ChipUID, string(chip.ActiveMode), chip.TargetURL, chip.AssignedTo))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("chip %s: %w", chip.ChipUID, ErrDuplicate)
		}
		return nil, fmt.Errorf("could not create chip: %w", err)
	}
	return created, nil
}

// Update writes mode and payload columns of a chip owned by owner.
func (s *ChipStore) Update(ctx context.Context, owner uuid.UUID, chip *models.Chip) (*models.Chip, error) {
	query := `
		UPDATE nfc_chips AS c
		SET active_mode = $3::chip_mode,
			target_url = $4,
			vcard_data = $5,
			menu_data = $6,
			review_data = $7,
			updated_at = now()
		WHERE c.id = $1 AND c.assigned_to = $2
		RETURNING ` + chipColumns

	updated, err := scanChip(s.db.QueryRow(ctx, query,
		chip.ID, owner, string(chip.ActiveMode), chip.TargetURL,
		nullJSON(chip.VCardData), nullJSON(chip.MenuData), nullJSON(chip.ReviewData)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not update chip: %w", err)
	}
	return updated, nil
}

// ToggleActive flips is_active and returns the new value.
func (s *ChipStore) ToggleActive(ctx context.Context, owner, id uuid.UUID) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		UPDATE nfc_chips
		SET is_active = NOT is_active, updated_at = now()
		WHERE id = $1 AND assigned_to = $2
		RETURNING is_active
	`, id, owner).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("could not toggle chip: %w", err)
	}
	return active, nil
}

func (s *ChipStore) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM nfc_chips WHERE id = $1 AND assigned_to = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("could not delete chip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ChipStore) TouchLastScanned(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE nfc_chips SET last_scanned_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("could not update last_scanned_at: %w", err)
	}
	return nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileStore struct {
	db *pgxpool.Pool
}

func NewProfileStore(db *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileColumns = `id, username, full_name, job_title, company_name, bio, avatar_url, social_links, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	var links []byte
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.JobTitle,
		&p.CompanyName,
		&p.Bio,
		&p.AvatarURL,
		&links,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.SocialLinks, err = models.DecodeSocialLinks(links); err != nil {
		return nil, fmt.Errorf("decode social_links: %w", err)
	}
	return p, nil
}

// GetByID returns nil, nil when the user has no profile row yet.
func (s *ProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by id: %w", err)
	}
	return p, nil
}

// GetByUsername returns nil, nil when no profile has the slug.
func (s *ProfileStore) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return p, nil
}

// Update writes the editable scalar fields and social links in one statement.
func (s *ProfileStore) Update(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	links, err := json.Marshal(p.SocialLinks)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE profiles
		SET full_name = $2,
			username = $3,
			job_title = $4,
			company_name = $5,
			bio = $6,
			social_links = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + profileColumns

	updated, err := scanProfile(s.db.QueryRow(ctx, query,
		p.ID, p.FullName, p.Username, p.JobTitle, p.CompanyName, p.Bio, string(links)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %s: %w", p.Username, ErrDuplicate)
		}
		return nil, fmt.Errorf("could not update profile: %w", err)
	}
	return updated, nil
}

func (s *ProfileStore) SetAvatar(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := s.db.Exec(ctx, `UPDATE profiles SET avatar_url = $2, updated_at = now() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("could not set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

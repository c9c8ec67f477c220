package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/store"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = store.ErrNotFound
	ErrDuplicate       = store.ErrDuplicate
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoActiveChip    = errors.New("no active chip found for profile")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

type ChipRepository interface {
	GetActiveByUID(ctx context.Context, uid string) (*models.Chip, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chip, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*models.Chip, error)
	ListAll(ctx context.Context) ([]*models.Chip, error)
	ListIDsByOwner(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error)
	FirstIDByOwner(ctx context.Context, owner uuid.UUID) (*uuid.UUID, error)
	Create(ctx context.Context, chip *models.Chip) (*models.Chip, error)
	Update(ctx context.Context, owner uuid.UUID, chip *models.Chip) (*models.Chip, error)
	ToggleActive(ctx context.Context, owner, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	TouchLastScanned(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ScanRepository interface {
	Insert(ctx context.Context, scan *models.ScanEvent) (*models.ScanEvent, error)
	CountByChips(ctx context.Context, chipIDs []uuid.UUID) (int, error)
	RecentByChips(ctx context.Context, chipIDs []uuid.UUID, limit int) ([]*models.ScanEvent, error)
	ListSince(ctx context.Context, chipIDs []uuid.UUID, since time.Time) ([]*models.ScanEvent, error)
}

type LeadRepository interface {
	Insert(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	CountByChips(ctx context.Context, chipIDs []uuid.UUID) (int, error)
	ListByChips(ctx context.Context, chipIDs []uuid.UUID) ([]*models.Lead, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) (*models.Profile, error)
	SetAvatar(ctx context.Context, id uuid.UUID, url string) error
}

type RoleRepository interface {
	HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error)
}

// ScanPublisher forwards recorded scans to the live feed.
type ScanPublisher interface {
	PublishScan(ctx context.Context, notice comm.ScanNotice) error
}

// ProfileCache holds public profiles by username. Get returns nil on a miss.
type ProfileCache interface {
	Get(ctx context.Context, username string) (*models.Profile, error)
	Set(ctx context.Context, p *models.Profile) error
	Delete(ctx context.Context, usernames ...string) error
}

// AvatarStorage stores an avatar image and returns its public URL.
type AvatarStorage interface {
	PutAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, body io.Reader, size int64) (string, error)
}

var (
	_ ChipRepository    = (*store.ChipStore)(nil)
	_ ScanRepository    = (*store.ScanStore)(nil)
	_ LeadRepository    = (*store.LeadStore)(nil)
	_ ProfileRepository = (*store.ProfileStore)(nil)
	_ RoleRepository    = (*store.RoleStore)(nil)
)

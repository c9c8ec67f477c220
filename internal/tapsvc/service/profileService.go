package service

import (
	"context"
	"io"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type SocialLinksInput struct {
	LinkedIn  string `json:"linkedin" validate:"max=500"`
	Twitter   string `json:"twitter" validate:"max=500"`
	Website   string `json:"website" validate:"max=500"`
	Instagram string `json:"instagram" validate:"max=500"`
}

// ProfileInput replaces every editable field of a profile. Values are
// stored as entered.
type ProfileInput struct {
	FullName    string           `json:"full_name" validate:"max=200"`
	Username    string           `json:"username" validate:"required,max=100"`
	JobTitle    string           `json:"job_title" validate:"max=200"`
	CompanyName string           `json:"company_name" validate:"max=200"`
	Bio         string           `json:"bio" validate:"max=2000"`
	SocialLinks SocialLinksInput `json:"social_links"`
}

const MaxAvatarBytes = 5 << 20

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type ProfileService struct {
	profiles ProfileRepository
	cache    ProfileCache
	storage  AvatarStorage
}

// NewProfileService wires the profile views. cache and storage may be nil.
func NewProfileService(profiles ProfileRepository, cache ProfileCache, storage AvatarStorage) *ProfileService {
	return &ProfileService{profiles: profiles, cache: cache, storage: storage}
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetPublic looks a profile up by username, nil when there is none.
// Cache failures fall through to the database.
func (s *ProfileService) GetPublic(ctx context.Context, username string) (*models.Profile, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, username)
		if err != nil {
			log.Warnf("profile cache get %s: %s", username, err)
		} else if p != nil {
			return p, nil
		}
	}

	p, err := s.profiles.GetByUsername(ctx, username)
	if err != nil || p == nil {
		return p, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			log.Warnf("profile cache set %s: %s", username, err)
		}
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, in ProfileInput) (*models.Profile, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *current
	p.FullName = models.NullIfEmpty(in.FullName)
	p.Username = in.Username
	p.JobTitle = models.NullIfEmpty(in.JobTitle)
	p.CompanyName = models.NullIfEmpty(in.CompanyName)
	p.Bio = models.NullIfEmpty(in.Bio)
	p.SocialLinks = models.SocialLinks{
		LinkedIn:  in.SocialLinks.LinkedIn,
		Twitter:   in.SocialLinks.Twitter,
		Website:   in.SocialLinks.Website,
		Instagram: in.SocialLinks.Instagram,
	}

	updated, err := s.profiles.Update(ctx, &p)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, current.Username, updated.Username)
	return updated, nil
}

// UploadAvatar stores the image and points avatar_url at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, id uuid.UUID, filename, contentType string, body io.Reader, size int64) (*models.Profile, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if !avatarTypes[contentType] {
		return nil, ErrInvalidInput
	}
	if size <= 0 || size > MaxAvatarBytes {
		return nil, ErrInvalidInput
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.PutAvatar(ctx, id, filename, contentType, body, size)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.SetAvatar(ctx, id, url); err != nil {
		return nil, err
	}

	s.invalidate(ctx, current.Username)

	current.AvatarURL = &url
	return current, nil
}

func (s *ProfileService) invalidate(ctx context.Context, usernames ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, usernames...); err != nil {
		log.Warnf("profile cache delete: %s", err)
	}
}

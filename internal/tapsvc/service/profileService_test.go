package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	items   map[string]models.Profile
	deleted []string
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]models.Profile)}
}

func (c *memoryCache) Get(_ context.Context, username string) (*models.Profile, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if p, ok := c.items[username]; ok {
		return &p, nil
	}
	return nil, nil
}

func (c *memoryCache) Set(_ context.Context, p *models.Profile) error {
	c.items[p.Username] = *p
	return nil
}

func (c *memoryCache) Delete(_ context.Context, usernames ...string) error {
	for _, u := range usernames {
		delete(c.items, u)
	}
	c.deleted = append(c.deleted, usernames...)
	return nil
}

type memoryStorage struct {
	body []byte
}

func (s *memoryStorage) PutAvatar(_ context.Context, userID uuid.UUID, filename, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.body = b
	return "https://cdn.example.com/avatars/" + userID.String() + "/" + filename, nil
}

func TestProfileService_GetPublicCaches(t *testing.T) {
	db := storetest.New()
	seedOwner(db, "anna")
	cache := newMemoryCache()
	svc := NewProfileService(db.ProfileRepo(), cache, nil)

	p, err := svc.GetPublic(context.Background(), "anna")
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = svc.GetPublic(context.Background(), "anna")
	require.NoError(t, err)
	assert.Equal(t, 1, db.Calls("profiles.GetByUsername"))

	p, err = svc.GetPublic(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProfileService_GetPublicIgnoresCacheErrors(t *testing.T) {
	db := storetest.New()
	seedOwner(db, "anna")
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")

	p, err := NewProfileService(db.ProfileRepo(), cache, nil).GetPublic(context.Background(), "anna")
	require.NoError(t, err)
	assert.Equal(t, "anna", p.Username)
}

func TestProfileService_Update(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	cache := newMemoryCache()
	svc := NewProfileService(db.ProfileRepo(), cache, nil)

	p, err := svc.Update(context.Background(), owner.ID, ProfileInput{
		FullName:    "Anna Schmidt",
		Username:    "Anna.Schmidt",
		JobTitle:    "Owner",
		CompanyName: "Cafe Anna",
		SocialLinks: SocialLinksInput{Website: "https://anna.example"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Anna.Schmidt", p.Username)
	assert.Equal(t, "Anna Schmidt", p.DisplayName())
	assert.Nil(t, p.Bio)
	assert.Equal(t, "https://anna.example", p.SocialLinks.Website)
	assert.ElementsMatch(t, []string{"anna", "Anna.Schmidt"}, cache.deleted)
}

func TestProfileService_UpdateStoresValuesAsEntered(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "Anna.Schmidt")
	svc := NewProfileService(db.ProfileRepo(), nil, nil)
	ctx := context.Background()

	p, err := svc.Update(ctx, owner.ID, ProfileInput{Username: "Anna.Schmidt"})
	require.NoError(t, err)
	assert.Equal(t, "Anna.Schmidt", p.Username)

	p, err = svc.Update(ctx, owner.ID, ProfileInput{
		Username:    "AnnaS",
		SocialLinks: SocialLinksInput{LinkedIn: "linkedin.com/in/anna", Instagram: "@anna"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AnnaS", p.Username)
	assert.Equal(t, "linkedin.com/in/anna", p.SocialLinks.LinkedIn)
	assert.Equal(t, "@anna", p.SocialLinks.Instagram)

	stored, err := svc.Get(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "AnnaS", stored.Username)
	assert.Equal(t, "linkedin.com/in/anna", stored.SocialLinks.LinkedIn)
}

func TestProfileService_UpdateRejects(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	seedOwner(db, "taken")
	svc := NewProfileService(db.ProfileRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, owner.ID, ProfileInput{FullName: "Anna"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, owner.ID, ProfileInput{Username: "anna", Bio: strings.Repeat("x", 2001)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, owner.ID, ProfileInput{Username: "taken"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Update(ctx, uuid.New(), ProfileInput{Username: "fresh"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileService_UploadAvatar(t *testing.T) {
	db := storetest.New()
	owner := seedOwner(db, "anna")
	storage := &memoryStorage{}
	cache := newMemoryCache()
	svc := NewProfileService(db.ProfileRepo(), cache, storage)
	ctx := context.Background()

	body := "png-bytes"
	p, err := svc.UploadAvatar(ctx, owner.ID, "me.png", "image/png", strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/"+owner.ID.String()+"/me.png", models.Deref(p.AvatarURL))
	assert.Equal(t, body, string(storage.body))
	assert.Contains(t, cache.deleted, "anna")

	stored, err := svc.Get(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, p.AvatarURL, stored.AvatarURL)

	_, err = svc.UploadAvatar(ctx, owner.ID, "me.svg", "image/svg+xml", strings.NewReader(body), int64(len(body)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewProfileService(db.ProfileRepo(), nil, nil).UploadAvatar(ctx, owner.ID, "me.png", "image/png", strings.NewReader(body), 9)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

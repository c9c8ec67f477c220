package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/db"
	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One migrated Postgres container is shared by the package. Tests seed rows
// under fresh ids so they do not see each other's data.
var (
	sharedOnce      sync.Once
	sharedContainer *tcpostgres.PostgresContainer
	sharedPool      *pgxpool.Pool
	sharedErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()

	if sharedPool != nil {
		sharedPool.Close()
	}
	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = sharedContainer.Terminate(ctx)
		cancel()
	}
	os.Exit(code)
}

func startPostgres() (*pgxpool.Pool, error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tap_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, err
	}
	sharedContainer = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	mg, err := db.NewMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer mg.Close()
	if err := mg.Up(); err != nil {
		return nil, err
	}

	return db.Connect(ctx, dsn)
}

// testPool skips the test when no container runtime is available.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}

	sharedOnce.Do(func() {
		sharedPool, sharedErr = startPostgres()
	})
	if sharedErr != nil {
		t.Skipf("postgres container unavailable: %s", sharedErr)
	}
	return sharedPool
}

func seedProfile(t *testing.T, pool *pgxpool.Pool, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO profiles (id, username, full_name, social_links) VALUES ($1, $2, $3, $4)`,
		id, username, "Anna Schmidt", `{"linkedin":"https://linkedin.com/in/anna"}`)
	require.NoError(t, err)
	return id
}

func seedChip(t *testing.T, chips *ChipStore, owner *uuid.UUID) *models.Chip {
	t.Helper()
	target := "https://example.com"
	chip, err := chips.Create(context.Background(), &models.Chip{
		ChipUID:    "04" + uuid.NewString()[:8],
		ActiveMode: models.ModeRedirect,
		TargetURL:  &target,
		AssignedTo: owner,
	})
	require.NoError(t, err)
	return chip
}

func TestChipStore_GetActiveByUIDJoinsOwner(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chips := NewChipStore(pool)

	username := "anna-" + uuid.NewString()[:8]
	owner := seedProfile(t, pool, username)
	chip := seedChip(t, chips, &owner)

	got, err := chips.GetActiveByUID(ctx, chip.ChipUID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, chip.ID, got.ID)
	assert.Equal(t, models.ModeRedirect, got.ActiveMode)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.Owner)
	assert.Equal(t, owner, got.Owner.ID)
	assert.Equal(t, username, got.Owner.Username)
	assert.Equal(t, "Anna Schmidt", models.Deref(got.Owner.FullName))
	assert.Equal(t, "https://linkedin.com/in/anna", got.Owner.SocialLinks.LinkedIn)
}

func TestChipStore_GetActiveByUIDUnassigned(t *testing.T) {
	pool := testPool(t)
	chips := NewChipStore(pool)
	chip := seedChip(t, chips, nil)

	got, err := chips.GetActiveByUID(context.Background(), chip.ChipUID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Owner)
	assert.Nil(t, got.AssignedTo)
}

func TestChipStore_GetActiveByUIDSkipsInactive(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chips := NewChipStore(pool)

	owner := seedProfile(t, pool, "inactive-"+uuid.NewString()[:8])
	chip := seedChip(t, chips, &owner)

	active, err := chips.ToggleActive(ctx, owner, chip.ID)
	require.NoError(t, err)
	assert.False(t, active)

	got, err := chips.GetActiveByUID(ctx, chip.ChipUID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = chips.GetActiveByUID(ctx, "no-such-uid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChipStore_OwnerScopedWrites(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chips := NewChipStore(pool)

	owner := seedProfile(t, pool, "owner-"+uuid.NewString()[:8])
	other := seedProfile(t, pool, "other-"+uuid.NewString()[:8])
	chip := seedChip(t, chips, &owner)

	_, err := chips.ToggleActive(ctx, other, chip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = chips.Delete(ctx, other, chip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	chip.ActiveMode = models.ModeVCard
	_, err = chips.Update(ctx, other, chip)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := chips.GetByID(ctx, chip.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsActive)
	assert.Equal(t, models.ModeRedirect, got.ActiveMode)

	require.NoError(t, chips.Delete(ctx, owner, chip.ID))
	got, err = chips.GetByID(ctx, chip.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = chips.Delete(ctx, owner, chip.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChipStore_CreateDuplicateUID(t *testing.T) {
	pool := testPool(t)
	chips := NewChipStore(pool)
	chip := seedChip(t, chips, nil)

	_, err := chips.Create(context.Background(), &models.Chip{
		ChipUID:    chip.ChipUID,
		ActiveMode: models.ModeVCard,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestProfileStore_UpdateDuplicateUsername(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	profiles := NewProfileStore(pool)

	taken := "taken-" + uuid.NewString()[:8]
	seedProfile(t, pool, taken)
	id := seedProfile(t, pool, "free-"+uuid.NewString()[:8])

	p, err := profiles.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)

	p.Username = taken
	_, err = profiles.Update(ctx, p)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = profiles.Update(ctx, &models.Profile{ID: uuid.New(), Username: "nobody-" + uuid.NewString()[:8]})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanStore_InsertStoresInetAndLocation(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chip := seedChip(t, NewChipStore(pool), nil)
	scans := NewScanStore(pool)

	ip := "203.0.113.7"
	device := models.DeviceMobile
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	created, err := scans.Insert(ctx, &models.ScanEvent{
		ChipID:     chip.ID,
		DeviceType: &device,
		IPAddress:  &ip,
		Location:   []byte(`{"country":"DE","city":"Berlin"}`),
		ScannedAt:  at,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	_, err = scans.Insert(ctx, &models.ScanEvent{ChipID: chip.ID, ScannedAt: at.Add(time.Minute)})
	require.NoError(t, err)

	got, err := scans.ListSince(ctx, []uuid.UUID{chip.ID}, at)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, created.ID, got[0].ID)
	require.NotNil(t, got[0].IPAddress)
	assert.Equal(t, ip, *got[0].IPAddress)
	assert.JSONEq(t, `{"country":"DE","city":"Berlin"}`, string(got[0].Location))
	assert.Equal(t, device, models.Deref(got[0].DeviceType))

	assert.Nil(t, got[1].IPAddress)
	assert.Empty(t, got[1].Location)
}

func TestScanStore_InsertRejectsNonIP(t *testing.T) {
	pool := testPool(t)
	chip := seedChip(t, NewChipStore(pool), nil)

	bad := "unknown"
	_, err := NewScanStore(pool).Insert(context.Background(), &models.ScanEvent{
		ChipID:    chip.ID,
		IPAddress: &bad,
		ScannedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestScanStore_ListSinceBounds(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chips := NewChipStore(pool)
	chip := seedChip(t, chips, nil)
	otherChip := seedChip(t, chips, nil)
	scans := NewScanStore(pool)

	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []struct {
		chip uuid.UUID
		at   time.Time
	}{
		{chip.ID, since.Add(time.Hour)},
		{chip.ID, since.Add(-time.Microsecond)},
		{chip.ID, since},
		{otherChip.ID, since.Add(2 * time.Hour)},
	} {
		_, err := scans.Insert(ctx, &models.ScanEvent{ChipID: s.chip, ScannedAt: s.at})
		require.NoError(t, err)
	}

	got, err := scans.ListSince(ctx, []uuid.UUID{chip.ID}, since)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].ScannedAt.Equal(since), "inclusive lower bound, got %s", got[0].ScannedAt)
	assert.True(t, got[1].ScannedAt.Equal(since.Add(time.Hour)))

	n, err := scans.CountByChips(ctx, []uuid.UUID{chip.ID, otherChip.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	recent, err := scans.RecentByChips(ctx, []uuid.UUID{chip.ID}, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].ScannedAt.Equal(since.Add(time.Hour)))

	got, err = scans.ListSince(ctx, nil, since)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLeadStore_InsertAndList(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chip := seedChip(t, NewChipStore(pool), nil)
	leads := NewLeadStore(pool)

	for _, name := range []string{"first", "second"} {
		n := name
		_, err := leads.Insert(ctx, &models.Lead{ChipID: chip.ID, Name: &n})
		require.NoError(t, err)
	}

	got, err := leads.ListByChips(ctx, []uuid.UUID{chip.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"first", "second"},
		[]string{models.Deref(got[0].Name), models.Deref(got[1].Name)})
	assert.False(t, got[0].CreatedAt.Before(got[1].CreatedAt), "newest first")
	assert.Nil(t, got[0].Email)

	n, err := leads.CountByChips(ctx, []uuid.UUID{chip.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

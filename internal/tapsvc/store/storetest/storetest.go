// Package storetest holds in-memory versions of the tap stores for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/avvvet/tap-services/internal/tapsvc/store"
	"github.com/google/uuid"
)

// DB is shared by the repositories it hands out so joins behave like the
// real schema.
type DB struct {
	mu       sync.Mutex
	chips    []*models.Chip
	profiles map[uuid.UUID]*models.Profile
	scans    []*models.ScanEvent
	leads    []*models.Lead
	roles    map[uuid.UUID][]models.Role
	fail     map[string]error
	calls    map[string]int
	now      func() time.Time
}

func New() *DB {
	return &DB{
		profiles: make(map[uuid.UUID]*models.Profile),
		roles:    make(map[uuid.UUID][]models.Role),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

// FailOn makes op (e.g. "scans.Insert") return err.
func (db *DB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fail[op] = err
}

// Calls reports how often op was invoked.
func (db *DB) Calls(op string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calls[op]
}

// enter is called with db.mu held.
func (db *DB) enter(op string) error {
	db.calls[op]++
	return db.fail[op]
}

func (db *DB) AddProfile(p *models.Profile) *models.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = db.now()
		p.UpdatedAt = p.CreatedAt
	}
	cp := *p
	db.profiles[p.ID] = &cp
	return p
}

func (db *DB) AddChip(c *models.Chip) *models.Chip {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now()
		c.UpdatedAt = c.CreatedAt
	}
	cp := *c
	db.chips = append(db.chips, &cp)
	return c
}

func (db *DB) AddScan(s *models.ScanEvent) *models.ScanEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	db.scans = append(db.scans, &cp)
	return s
}

func (db *DB) AddLead(l *models.Lead) *models.Lead {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	db.leads = append(db.leads, &cp)
	return l
}

func (db *DB) AddRole(userID uuid.UUID, role models.Role) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.roles[userID] = append(db.roles[userID], role)
}

// Chip returns a copy of the stored chip, nil when unknown.
func (db *DB) Chip(id uuid.UUID) *models.Chip {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c := db.chip(id); c != nil {
		cp := *c
		return &cp
	}
	return nil
}

func (db *DB) Scans() []*models.ScanEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*models.ScanEvent, 0, len(db.scans))
	for _, s := range db.scans {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

func (db *DB) Leads() []*models.Lead {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*models.Lead, 0, len(db.leads))
	for _, l := range db.leads {
		cp := *l
		out = append(out, &cp)
	}
	return out
}

func (db *DB) chip(id uuid.UUID) *models.Chip {
	for _, c := range db.chips {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (db *DB) ChipRepo() *ChipRepo       { return &ChipRepo{db: db} }
func (db *DB) ScanRepo() *ScanRepo       { return &ScanRepo{db: db} }
func (db *DB) LeadRepo() *LeadRepo       { return &LeadRepo{db: db} }
func (db *DB) ProfileRepo() *ProfileRepo { return &ProfileRepo{db: db} }
func (db *DB) RoleRepo() *RoleRepo       { return &RoleRepo{db: db} }

type ChipRepo struct{ db *DB }

func (r *ChipRepo) GetActiveByUID(_ context.Context, uid string) (*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.GetActiveByUID"); err != nil {
		return nil, err
	}
	for _, c := range r.db.chips {
		if c.ChipUID != uid || !c.IsActive {
			continue
		}
		cp := *c
		if c.AssignedTo != nil {
			if p, ok := r.db.profiles[*c.AssignedTo]; ok {
				owner := *p
				cp.Owner = &owner
			}
		}
		return &cp, nil
	}
	return nil, nil
}

func (r *ChipRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.GetByID"); err != nil {
		return nil, err
	}
	if c := r.db.chip(id); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *ChipRepo) ListByOwner(_ context.Context, owner uuid.UUID) ([]*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.ListByOwner"); err != nil {
		return nil, err
	}
	return r.collect(func(c *models.Chip) bool { return c.OwnedBy(owner) }), nil
}

func (r *ChipRepo) ListAll(_ context.Context) ([]*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.ListAll"); err != nil {
		return nil, err
	}
	return r.collect(func(*models.Chip) bool { return true }), nil
}

// collect returns matching chips newest first.
func (r *ChipRepo) collect(match func(*models.Chip) bool) []*models.Chip {
	var out []*models.Chip
	for _, c := range r.db.chips {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *ChipRepo) ListIDsByOwner(_ context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.ListIDsByOwner"); err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, c := range r.db.chips {
		if c.OwnedBy(owner) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (r *ChipRepo) FirstIDByOwner(_ context.Context, owner uuid.UUID) (*uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.FirstIDByOwner"); err != nil {
		return nil, err
	}
	var first *models.Chip
	for _, c := range r.db.chips {
		if c.OwnedBy(owner) && (first == nil || c.CreatedAt.Before(first.CreatedAt)) {
			first = c
		}
	}
	if first == nil {
		return nil, nil
	}
	id := first.ID
	return &id, nil
}

func (r *ChipRepo) Create(_ context.Context, chip *models.Chip) (*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.Create"); err != nil {
		return nil, err
	}
	for _, c := range r.db.chips {
		if c.ChipUID == chip.ChipUID {
			return nil, store.ErrDuplicate
		}
	}
	cp := *chip
	cp.ID = uuid.New()
	cp.IsActive = true
	cp.CreatedAt = r.db.now()
	cp.UpdatedAt = cp.CreatedAt
	r.db.chips = append(r.db.chips, &cp)
	out := cp
	return &out, nil
}

func (r *ChipRepo) Update(_ context.Context, owner uuid.UUID, chip *models.Chip) (*models.Chip, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.Update"); err != nil {
		return nil, err
	}
	c := r.db.chip(chip.ID)
	if c == nil || !c.OwnedBy(owner) {
		return nil, store.ErrNotFound
	}
	c.ActiveMode = chip.ActiveMode
	c.TargetURL = chip.TargetURL
	c.VCardData = chip.VCardData
	c.MenuData = chip.MenuData
	c.ReviewData = chip.ReviewData
	c.UpdatedAt = r.db.now()
	out := *c
	return &out, nil
}

func (r *ChipRepo) ToggleActive(_ context.Context, owner, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.ToggleActive"); err != nil {
		return false, err
	}
	c := r.db.chip(id)
	if c == nil || !c.OwnedBy(owner) {
		return false, store.ErrNotFound
	}
	c.IsActive = !c.IsActive
	return c.IsActive, nil
}

func (r *ChipRepo) Delete(_ context.Context, owner, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.Delete"); err != nil {
		return err
	}
	for i, c := range r.db.chips {
		if c.ID == id && c.OwnedBy(owner) {
			r.db.chips = append(r.db.chips[:i], r.db.chips[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *ChipRepo) TouchLastScanned(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("chips.TouchLastScanned"); err != nil {
		return err
	}
	if c := r.db.chip(id); c != nil {
		c.LastScannedAt = &at
	}
	return nil
}

type ScanRepo struct{ db *DB }

func (r *ScanRepo) Insert(_ context.Context, scan *models.ScanEvent) (*models.ScanEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("scans.Insert"); err != nil {
		return nil, err
	}
	cp := *scan
	cp.ID = uuid.New()
	if cp.ScannedAt.IsZero() {
		cp.ScannedAt = r.db.now()
	}
	r.db.scans = append(r.db.scans, &cp)
	out := cp
	return &out, nil
}

func (r *ScanRepo) CountByChips(_ context.Context, chipIDs []uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("scans.CountByChips"); err != nil {
		return 0, err
	}
	return len(r.filter(chipIDs, time.Time{})), nil
}

func (r *ScanRepo) RecentByChips(_ context.Context, chipIDs []uuid.UUID, limit int) ([]*models.ScanEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("scans.RecentByChips"); err != nil {
		return nil, err
	}
	scans := r.filter(chipIDs, time.Time{})
	sort.SliceStable(scans, func(i, j int) bool { return scans[i].ScannedAt.After(scans[j].ScannedAt) })
	if len(scans) > limit {
		scans = scans[:limit]
	}
	return scans, nil
}

func (r *ScanRepo) ListSince(_ context.Context, chipIDs []uuid.UUID, since time.Time) ([]*models.ScanEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("scans.ListSince"); err != nil {
		return nil, err
	}
	scans := r.filter(chipIDs, since)
	sort.SliceStable(scans, func(i, j int) bool { return scans[i].ScannedAt.Before(scans[j].ScannedAt) })
	return scans, nil
}

func (r *ScanRepo) filter(chipIDs []uuid.UUID, since time.Time) []*models.ScanEvent {
	var out []*models.ScanEvent
	for _, s := range r.db.scans {
		if contains(chipIDs, s.ChipID) && !s.ScannedAt.Before(since) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

type LeadRepo struct{ db *DB }

func (r *LeadRepo) Insert(_ context.Context, lead *models.Lead) (*models.Lead, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("leads.Insert"); err != nil {
		return nil, err
	}
	cp := *lead
	cp.ID = uuid.New()
	cp.CreatedAt = r.db.now()
	r.db.leads = append(r.db.leads, &cp)
	out := cp
	return &out, nil
}

func (r *LeadRepo) CountByChips(_ context.Context, chipIDs []uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("leads.CountByChips"); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range r.db.leads {
		if contains(chipIDs, l.ChipID) {
			n++
		}
	}
	return n, nil
}

func (r *LeadRepo) ListByChips(_ context.Context, chipIDs []uuid.UUID) ([]*models.Lead, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("leads.ListByChips"); err != nil {
		return nil, err
	}
	var out []*models.Lead
	for _, l := range r.db.leads {
		if contains(chipIDs, l.ChipID) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type ProfileRepo struct{ db *DB }

func (r *ProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("profiles.GetByID"); err != nil {
		return nil, err
	}
	if p, ok := r.db.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *ProfileRepo) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("profiles.GetByUsername"); err != nil {
		return nil, err
	}
	for _, p := range r.db.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ProfileRepo) Update(_ context.Context, p *models.Profile) (*models.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("profiles.Update"); err != nil {
		return nil, err
	}
	if _, ok := r.db.profiles[p.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range r.db.profiles {
		if id != p.ID && other.Username == p.Username {
			return nil, store.ErrDuplicate
		}
	}
	cp := *p
	cp.UpdatedAt = r.db.now()
	r.db.profiles[p.ID] = &cp
	out := cp
	return &out, nil
}

func (r *ProfileRepo) SetAvatar(_ context.Context, id uuid.UUID, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("profiles.SetAvatar"); err != nil {
		return err
	}
	p, ok := r.db.profiles[id]
	if !ok {
		return store.ErrNotFound
	}
	p.AvatarURL = &url
	return nil
}

type RoleRepo struct{ db *DB }

func (r *RoleRepo) HasRole(_ context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("roles.HasRole"); err != nil {
		return false, err
	}
	for _, have := range r.db.roles[userID] {
		if have == role {
			return true, nil
		}
	}
	return false, nil
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// memory — хранилище профилей в памяти процесса.
// Семантика совпадает с mongo-реализацией: уникальность userId, адресные апдейты,
// условное списание квоты и идемпотентная запись о совпадении.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/storage"
)

// Memory — потокобезопасная реализация storage.Storage.
type Memory struct {
	mu       sync.RWMutex
	profiles map[int64]*models.Profile
	matches  map[string]models.Match
	now      func() time.Time
}

var _ storage.Storage = (*Memory)(nil)

// New создаёт пустое хранилище. now == nil -> time.Now.
func New(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}

	return &Memory{
		profiles: make(map[int64]*models.Profile),
		matches:  make(map[string]models.Match),
		now:      now,
	}
}

func (m *Memory) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return clone(p), nil
}

func (m *Memory) Candidates(ctx context.Context, filter models.CandidateFilter) ([]models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Profile, 0)
	for id, p := range m.profiles {
		if slices.Contains(filter.Exclude, id) {
			continue
		}

		if !slices.Contains(filter.Genders, p.Gender) {
			continue
		}

		if !slices.Contains(filter.InterestedIn, p.InterestedIn) {
			continue
		}

		out = append(out, *clone(p))
	}

	return out, nil
}

func (m *Memory) CreateProfile(ctx context.Context, profile models.Profile) error {
	if err := ctx.Err(); err != nil {
		return storage.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[profile.UserID]; ok {
		return storage.ErrAlreadyExists
	}

	now := m.now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	m.profiles[profile.UserID] = clone(&profile)

	return nil
}

func (m *Memory) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if update.RequireQuota && p.SwipeCount <= 0 {
		return nil, storage.ErrPreconditionFailed
	}

	if update.Empty() {
		return clone(p), nil
	}

	if update.Username != nil {
		p.Username = *update.Username
	}

	if update.ProfilePic != nil {
		p.ProfilePic = *update.ProfilePic
	}

	if update.AddLiked != nil && !slices.Contains(p.LikedUsers, *update.AddLiked) {
		p.LikedUsers = append(p.LikedUsers, *update.AddLiked)
	}

	if update.AddDisliked != nil && !slices.Contains(p.DislikedUsers, *update.AddDisliked) {
		p.DislikedUsers = append(p.DislikedUsers, *update.AddDisliked)
	}

	p.SwipeCount += update.QuotaDelta
	p.UpdatedAt = m.now().UTC()

	return clone(p), nil
}

func (m *Memory) CreateMatch(ctx context.Context, a, b int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.PairKey(a, b)
	if _, ok := m.matches[key]; ok {
		return false, nil
	}

	m.matches[key] = models.NewMatch(a, b, m.now().UTC())

	return true, nil
}

func (m *Memory) ExpireSubscriptions(ctx context.Context, now time.Time, quota int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, p := range m.profiles {
		if !p.IsSubscribed || p.SubscriptionExpiry == nil || p.SubscriptionExpiry.After(now) {
			continue
		}

		p.IsSubscribed = false
		p.SwipeCount = quota
		p.UpdatedAt = now.UTC()
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}

func (m *Memory) ResetQuotas(ctx context.Context, quota int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, p := range m.profiles {
		if p.IsSubscribed {
			continue
		}

		p.SwipeCount = quota
		n++
	}

	return n, nil
}

// Put записывает профиль как есть (перезапись). Нужен тестам и сидированию.
func (m *Memory) Put(profile models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.UserID] = clone(&profile)
}

// Matches возвращает число записанных совпадений.
func (m *Memory) Matches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.matches)
}

func (m *Memory) Ping(ctx context.Context) error {
	if ctx.Err() != nil {
		return storage.ErrUnavailable
	}

	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

func clone(p *models.Profile) *models.Profile {
	c := *p
	c.LikedUsers = slices.Clone(p.LikedUsers)
	c.DislikedUsers = slices.Clone(p.DislikedUsers)

	if p.SubscriptionExpiry != nil {
		exp := *p.SubscriptionExpiry
		c.SubscriptionExpiry = &exp
	}

	return &c
}

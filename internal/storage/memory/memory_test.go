package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/storage"
	"github.com/stretchr/testify/require"
)

// Тесты in-memory хранилища.
//
//  Проверяем:
//  - уникальность userId при создании и ErrNotFound на чтении/апдейте;
//  - семантику множеств likedUsers/dislikedUsers и условного списания квоты;
//  - идемпотентность CreateMatch для неупорядоченной пары;
//  - снятие истёкших подписок и сброс квот;
//  - изоляцию возвращаемых копий от внутреннего состояния.

func profile(id int64, g models.Gender, p models.Preference) models.Profile {
	return models.Profile{
		UserID:       id,
		Name:         "user",
		Age:          25,
		Gender:       g,
		Location:     "here",
		Interests:    "things",
		InterestedIn: p,
		ProfilePic:   "file",
		SwipeCount:   2,
	}
}

func TestCreateAndProfile(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	require.NoError(t, m.CreateProfile(ctx, profile(1, models.GenderMale, models.PreferenceWomen)))
	require.ErrorIs(t, m.CreateProfile(ctx, profile(1, models.GenderMale, models.PreferenceWomen)), storage.ErrAlreadyExists)

	got, err := m.Profile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.UserID)
	require.False(t, got.CreatedAt.IsZero())

	_, err = m.Profile(ctx, 2)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateProfile_SetsAndQuota(t *testing.T) {
	m := New(nil)
	ctx := context.Background()
	m.Put(profile(1, models.GenderMale, models.PreferenceWomen))

	target := int64(2)
	got, err := m.UpdateProfile(ctx, 1, models.ProfileUpdate{AddLiked: &target, QuotaDelta: -1, RequireQuota: true})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, got.LikedUsers)
	require.Equal(t, 1, got.SwipeCount)

	// повторное добавление не дублирует элемент множества.
	got, err = m.UpdateProfile(ctx, 1, models.ProfileUpdate{AddLiked: &target})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, got.LikedUsers)

	other := int64(3)
	_, err = m.UpdateProfile(ctx, 1, models.ProfileUpdate{AddLiked: &other, QuotaDelta: -1, RequireQuota: true})
	require.NoError(t, err)

	// квота 0: условный апдейт не применяется и ничего не меняет.
	fourth := int64(4)
	_, err = m.UpdateProfile(ctx, 1, models.ProfileUpdate{AddLiked: &fourth, QuotaDelta: -1, RequireQuota: true})
	require.ErrorIs(t, err, storage.ErrPreconditionFailed)

	got, err = m.Profile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, got.SwipeCount)
	require.Equal(t, []int64{2, 3}, got.LikedUsers)

	_, err = m.UpdateProfile(ctx, 99, models.ProfileUpdate{AddLiked: &target})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Пустой апдейт ничего не пишет (updatedAt не меняется), но условие по квоте проверяет.
func TestUpdateProfile_EmptyIsNoop(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	m := New(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.CreateProfile(ctx, profile(1, models.GenderMale, models.PreferenceWomen)))
	before, err := m.Profile(ctx, 1)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	got, err := m.UpdateProfile(ctx, 1, models.ProfileUpdate{})
	require.NoError(t, err)
	require.Equal(t, before.UpdatedAt, got.UpdatedAt)
	require.Equal(t, before.SwipeCount, got.SwipeCount)

	_, err = m.UpdateProfile(ctx, 404, models.ProfileUpdate{})
	require.ErrorIs(t, err, storage.ErrNotFound)

	p := profile(2, models.GenderFemale, models.PreferenceMen)
	p.SwipeCount = 0
	m.Put(p)
	_, err = m.UpdateProfile(ctx, 2, models.ProfileUpdate{RequireQuota: true})
	require.ErrorIs(t, err, storage.ErrPreconditionFailed)
}

func TestCandidates_PreFilter(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	m.Put(profile(1, models.GenderMale, models.PreferenceWomen))
	m.Put(profile(2, models.GenderFemale, models.PreferenceMen))
	m.Put(profile(3, models.GenderFemale, models.PreferenceWomen))
	m.Put(profile(4, models.GenderOther, models.PreferenceEveryone))
	m.Put(profile(5, models.GenderFemale, models.PreferenceEveryone))

	requester := profile(1, models.GenderMale, models.PreferenceWomen)
	requester.DislikedUsers = []int64{5}

	got, err := m.Candidates(ctx, models.FilterFor(&requester))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].UserID)
}

func TestCreateMatch_Idempotent(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	created, err := m.CreateMatch(ctx, 2, 1)
	require.NoError(t, err)
	require.True(t, created)

	created, err = m.CreateMatch(ctx, 1, 2)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, m.Matches())
}

func TestExpireSubscriptionsAndResetQuotas(t *testing.T) {
	m := New(nil)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := profile(1, models.GenderMale, models.PreferenceWomen)
	expired.IsSubscribed = true
	expired.SubscriptionExpiry = &past
	expired.SwipeCount = 0

	active := profile(2, models.GenderFemale, models.PreferenceMen)
	active.IsSubscribed = true
	active.SubscriptionExpiry = &future
	active.SwipeCount = 0

	free := profile(3, models.GenderFemale, models.PreferenceMen)
	free.SwipeCount = 0

	m.Put(expired)
	m.Put(active)
	m.Put(free)

	ids, err := m.ExpireSubscriptions(ctx, now, 20)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)

	got, _ := m.Profile(ctx, 1)
	require.False(t, got.IsSubscribed)
	require.Equal(t, 20, got.SwipeCount)

	n, err := m.ResetQuotas(ctx, 20)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, _ = m.Profile(ctx, 2)
	require.Equal(t, 0, got.SwipeCount, "у подписчика квота не трогается")
	got, _ = m.Profile(ctx, 3)
	require.Equal(t, 20, got.SwipeCount)
}

func TestProfile_ReturnsCopy(t *testing.T) {
	m := New(nil)
	ctx := context.Background()
	p := profile(1, models.GenderMale, models.PreferenceWomen)
	p.LikedUsers = []int64{7}
	m.Put(p)

	got, err := m.Profile(ctx, 1)
	require.NoError(t, err)
	got.LikedUsers[0] = 100

	again, err := m.Profile(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, again.LikedUsers)
}

func TestCanceledContext_Unavailable(t *testing.T) {
	m := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Profile(ctx, 1)
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.ErrorIs(t, m.Ping(ctx), storage.ErrUnavailable)
}

package sweeper

// Тесты фонового обслуживания профилей.
//
//  Проверяем:
//  - снятие истёкших подписок с восстановлением квоты и уведомлением владельца;
//  - сброс квоты только у профилей без подписки;
//  - ошибки хранилища возвращаются и учитываются в метриках;
//  - цикл Start: проход сразу, затем по тикеру, остановка по ctx.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/match-bot/internal/clock"
	"github.com/pribylovaa/match-bot/internal/config"
	"github.com/pribylovaa/match-bot/internal/metrics"
	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/notify"
	"github.com/pribylovaa/match-bot/internal/storage/memory"
	"github.com/pribylovaa/match-bot/mocks"
)

var epoch = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type inbox struct {
	mu   sync.Mutex
	sent map[int64]int
}

func (i *inbox) Send(_ context.Context, userID int64, _ notify.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.sent == nil {
		i.sent = make(map[int64]int)
	}
	i.sent[userID]++

	return nil
}

func (i *inbox) count(userID int64) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.sent[userID]
}

func testConfig(resetQuotas bool) config.Config {
	return config.Config{
		Limits:  config.LimitsConfig{DailySwipes: 20},
		Sweeper: config.SweeperConfig{Enabled: true, Interval: time.Hour, ResetQuotas: resetQuotas},
	}
}

func profile(id int64, subscribed bool, expiry *time.Time, swipes int) models.Profile {
	return models.Profile{
		UserID:             id,
		Name:               "u",
		Age:                30,
		Gender:             models.GenderMale,
		InterestedIn:       models.PreferenceWomen,
		IsSubscribed:       subscribed,
		SubscriptionExpiry: expiry,
		SwipeCount:         swipes,
	}
}

func at(t time.Time) *time.Time { return &t }

func TestRunOnce(t *testing.T) {
	clk := clock.Fake(epoch)
	st := memory.New(clk.Now)
	box := &inbox{}
	m := metrics.New(prometheus.NewRegistry())

	st.Put(profile(1, true, at(epoch.Add(-time.Hour)), 0))
	st.Put(profile(2, true, at(epoch.Add(time.Hour)), 0))
	st.Put(profile(3, false, nil, 3))

	sw := New(st, box, clk, testConfig(true), m)
	require.NoError(t, sw.RunOnce(context.Background()))

	p1, _ := st.Profile(context.Background(), 1)
	require.False(t, p1.IsSubscribed)
	require.Equal(t, 20, p1.SwipeCount)
	require.Equal(t, 1, box.count(1))

	p2, _ := st.Profile(context.Background(), 2)
	require.True(t, p2.IsSubscribed)
	require.Equal(t, 0, p2.SwipeCount)
	require.Zero(t, box.count(2))

	p3, _ := st.Profile(context.Background(), 3)
	require.Equal(t, 20, p3.SwipeCount)
	require.Zero(t, box.count(3))

	require.Equal(t, 1.0, testutil.ToFloat64(m.SweeperRuns.WithLabelValues("expire", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SweeperRuns.WithLabelValues("reset", "ok")))
}

func TestRunOnce_WithoutQuotaReset(t *testing.T) {
	clk := clock.Fake(epoch)
	st := memory.New(clk.Now)
	st.Put(profile(3, false, nil, 3))

	require.NoError(t, New(st, &inbox{}, clk, testConfig(false), nil).RunOnce(context.Background()))

	p3, _ := st.Profile(context.Background(), 3)
	require.Equal(t, 3, p3.SwipeCount)
}

func TestRunOnce_StorageErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockStorage(ctrl)
	mn := mocks.NewMockNotifier(ctrl)
	m := metrics.New(prometheus.NewRegistry())
	clk := clock.Fake(epoch)
	boom := errors.New("boom")

	sw := New(ms, mn, clk, testConfig(true), m)

	ms.EXPECT().ExpireSubscriptions(gomock.Any(), epoch, 20).Return(nil, boom)
	require.ErrorIs(t, sw.RunOnce(context.Background()), boom)
	require.Equal(t, 1.0, testutil.ToFloat64(m.SweeperRuns.WithLabelValues("expire", "error")))

	ms.EXPECT().ExpireSubscriptions(gomock.Any(), epoch, 20).Return([]int64{5}, nil)
	mn.EXPECT().Send(gomock.Any(), int64(5), gomock.Any()).Return(errors.New("blocked"))
	ms.EXPECT().ResetQuotas(gomock.Any(), 20).Return(int64(0), boom)
	require.ErrorIs(t, sw.RunOnce(context.Background()), boom)
	require.Equal(t, 1.0, testutil.ToFloat64(m.SweeperRuns.WithLabelValues("reset", "error")))
}

func TestStart_Disabled(t *testing.T) {
	cfg := testConfig(true)
	cfg.Sweeper.Enabled = false

	err := New(memory.New(nil), &inbox{}, clock.Fake(epoch), cfg, nil).Start(context.Background())
	require.Error(t, err)
}

func TestStart_Loop(t *testing.T) {
	clk := clock.Fake(epoch)
	st := memory.New(clk.Now)
	box := &inbox{}

	st.Put(profile(1, true, at(epoch), 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(st, box, clk, testConfig(true), nil).Start(ctx) }()

	require.Eventually(t, func() bool { return box.count(1) == 1 }, time.Second, 5*time.Millisecond)

	st.Put(profile(2, true, at(epoch.Add(time.Hour)), 0))
	clk.Advance(time.Hour)

	require.Eventually(t, func() bool { return box.count(2) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/state"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты Redis-таблицы состояния (включаются GO_TEST_INTEGRATION).
// Контейнер поднимается один раз на пакет; каждый тест работает со своим префиксом ключей.

const testTimeout = 10 * time.Second

func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		_ = redisC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := redisC.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = redisC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("REDIS_URL", fmt.Sprintf("redis://%s:%s/0", host, port.Port()))

	code := m.Run()

	_ = redisC.Terminate(context.Background())
	os.Exit(code)
}

func mustNewRedis(t *testing.T) *Redis {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run redis integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	r, err := New(ctx, os.Getenv("REDIS_URL"), "test:"+uuid.NewString()+":", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestBoolTo01(t *testing.T) {
	require.Equal(t, "1", boolTo01(true))
	require.Equal(t, "0", boolTo01(false))
}

func TestAtoi(t *testing.T) {
	n, err := atoi("")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = atoi("12")
	require.NoError(t, err)
	require.Equal(t, 12, n)

	_, err = atoi("x")
	require.Error(t, err)
}

func TestRedis_SessionLifecycle(t *testing.T) {
	r := mustNewRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := r.Session(ctx, 1)
	require.ErrorIs(t, err, state.ErrNotFound)

	in := &models.Session{UserID: 1, Step: models.StepInterestedIn, Name: "Ann", Age: 30, Gender: models.GenderFemale}
	require.NoError(t, r.SaveSession(ctx, in))

	got, err := r.Session(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, in, got)

	ttl, err := r.rdb.TTL(ctx, r.sessionKey(1)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, r.DeleteSession(ctx, 1))
	_, err = r.Session(ctx, 1)
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestRedis_Chain(t *testing.T) {
	r := mustNewRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	cs, err := r.Chain(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, models.ChainState{}, cs)

	want := models.ChainState{AutoServed: 2, DislikeStreak: 4, Generation: 11, AwaitingPhoto: true}
	require.NoError(t, r.SaveChain(ctx, 9, want))

	cs, err = r.Chain(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, want, cs)
}

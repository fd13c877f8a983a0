package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/staybuddy/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client, time.Hour), mr
}

func TestRedisStoreLoadMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	session, err := store.Load(context.Background(), "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRedisStoreSaveSetsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	session := NewSession("5511999990000")
	session.SetDates("2026-12-15", "2026-12-20")
	require.NoError(t, store.Save(ctx, session))

	assert.True(t, mr.Exists("session:5511999990000"))
	assert.Equal(t, time.Hour, mr.TTL("session:5511999990000"))

	loaded, err := store.Load(ctx, "5511999990000")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "2026-12-15", loaded.CheckInDate)
	assert.Equal(t, StateDatesSet, loaded.Stage)
}

func TestRedisStoreMergeKeepsExistingFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Merge(ctx, "lead", func(s *Session) {
		s.SetDates("2026-12-15", "2026-12-20")
	})
	require.NoError(t, err)

	merged, err := store.Merge(ctx, "lead", func(s *Session) {
		s.SetCustomer("Maria", "")
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-12-15", merged.CheckInDate)
	assert.Equal(t, "2026-12-20", merged.CheckOutDate)
	assert.Equal(t, "Maria", merged.CustomerName)
	assert.True(t, merged.PersonalDataCompleted)
}

func TestRedisStoreMergeRefreshesExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewSession("lead")))
	mr.FastForward(50 * time.Minute)

	_, err := store.Merge(ctx, "lead", func(s *Session) { s.SetCustomer("Ana", "") })
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:lead"))

	mr.FastForward(61 * time.Minute)
	session, err := store.Load(ctx, "lead")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRedisStoreMergeDropsStaleAvailability(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := &models.AvailabilityReport{
		CheckIn:  "2026-12-15",
		CheckOut: "2026-12-20",
		Rooms:    []models.Room{{ID: 2, Name: "Suíte Luxo", DailyRate: 150, IsAvailable: true, AvailableCount: 1}},
	}
	_, err := store.Merge(ctx, "lead", func(s *Session) {
		s.SetDates("2026-12-15", "2026-12-20")
		s.SetAvailability(report)
	})
	require.NoError(t, err)

	merged, err := store.Merge(ctx, "lead", func(s *Session) {
		s.SetDates("", "2026-12-22")
	})
	require.NoError(t, err)
	assert.Nil(t, merged.Availability)
	assert.Equal(t, StateDatesSet, merged.Stage)
}

func TestRedisStoreCorruptData(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("session:lead", "{not json"))

	_, err := store.Load(ctx, "lead")
	assert.ErrorIs(t, err, ErrCorruptSession)

	merged, err := store.Merge(ctx, "lead", func(s *Session) { s.SetCustomer("Ana", "") })
	require.NoError(t, err)
	assert.Equal(t, "Ana", merged.CustomerName)
}

func TestRedisStoreDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewSession("lead")))
	require.NoError(t, store.Delete(ctx, "lead"))
	assert.False(t, mr.Exists("session:lead"))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "lead"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	_, err := store.Load(ctx, "lead")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.Save(ctx, NewSession("lead"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = store.Merge(ctx, "lead", func(*Session) {})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRedisStorePing(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

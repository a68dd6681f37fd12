package results

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/contactload/internal/core"
)

func sampleEntry(id string) Entry {
	return Entry{
		UploadID: id,
		Source:   "contacts.csv",
		Status:   207,
		Result: core.BatchResult{
			LinesInFile: 2,
			LinesParsed: 1,
			Errors:      []string{"Invalid Email: no"},
		},
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemory_SaveGet(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	want := sampleEntry("u-1")
	require.NoError(t, m.Save(ctx, want))

	got, err := m.Get(ctx, "u-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUploadNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, sampleEntry("a")))
	require.NoError(t, m.Save(ctx, sampleEntry("b")))

	now = now.Add(30 * time.Second)
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, core.ErrUploadNotFound)

	assert.Equal(t, 1, m.Sweep(), "b should be swept")
	assert.Equal(t, 0, m.Sweep())
}

func TestMemory_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewMemory(0).ttl)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://not-redis", time.Minute)
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNewRedis_Unreachable(t *testing.T) {
	var captured *redis.Options
	orig := NewClient
	NewClient = func(opt *redis.Options) redis.UniversalClient {
		captured = opt
		return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	}
	t.Cleanup(func() { NewClient = orig })

	_, err := NewRedis(context.Background(), "redis://cache.internal:6380/2", time.Minute)
	assert.ErrorContains(t, err, "ping redis")

	require.NotNil(t, captured)
	assert.Equal(t, "cache.internal:6380", captured.Addr)
	assert.Equal(t, 2, captured.DB)
}

func TestRedis_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewRedis(ctx, url, 30*time.Second)
	require.NoError(t, err)
	defer s.Close()

	id := fmt.Sprintf("it-%d", time.Now().UnixNano())
	want := sampleEntry(id)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.Result, got.Result)
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))

	_, err = s.Get(ctx, id+"-missing")
	assert.ErrorIs(t, err, core.ErrUploadNotFound)
}

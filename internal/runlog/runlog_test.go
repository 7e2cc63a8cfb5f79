package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Insert(ctx, Run{
			Trigger:    "background",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 10*time.Second),
			Pages:      3,
			Records:    40 + i,
		})
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first.
	assert.Equal(t, 42, runs[0].Records)
	assert.Equal(t, 40, runs[2].Records)
	assert.Equal(t, "background", runs[0].Trigger)
	assert.NotEmpty(t, runs[0].ID, "insert assigns an id when missing")
	assert.True(t, runs[0].StartedAt.After(runs[2].StartedAt))
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, Run{
			Trigger:   "manual",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestInsertRecordsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, Run{
		ID:        "run-1",
		Trigger:   "foreground",
		StartedAt: time.Now(),
		Error:     "upstream status 502: bad gateway",
	}))

	runs, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Contains(t, runs[0].Error, "502")
}

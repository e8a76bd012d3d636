package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(location string) domain.FeltReport {
	return domain.FeltReport{
		Location:           location,
		Perception:         domain.Perception{Shaking: 5, Duration: 4, Objects: 5, Reaction: 5, Damage: 5},
		PredictedMagnitude: 4.6,
		SubmissionTime:     "2024-03-02T11:04:12Z",
		Strategy:           "formula",
	}
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "reports.json"))

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestStore_AppendAssignsSequentialIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	s := New(path)
	ctx := context.Background()

	first, err := s.Append(ctx, sampleReport("Tirana"))
	require.NoError(t, err)
	second, err := s.Append(ctx, sampleReport("Durres"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	reports, err := New(path).Load(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Tirana", reports[0].Location)
	assert.Equal(t, "Durres", reports[1].Location)
	assert.Equal(t, 4.6, reports[1].PredictedMagnitude)
}

func TestStore_AppendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "reports.json"))

	_, err := s.Append(context.Background(), sampleReport(""))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reports.json", entries[0].Name())
}

func TestStore_ConcurrentAppendsGetUniqueIDs(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "reports.json"))
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	ids := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Append(ctx, sampleReport(""))
			assert.NoError(t, err)
			ids[i] = r.ID
		}()
	}
	wg.Wait()

	reports, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, n)

	seen := make(map[int]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	for id := 1; id <= n; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}

func TestStore_BlankFileIsEmpty(t *testing.T) {
	for _, content := range []string{"", "  \n"} {
		path := filepath.Join(t.TempDir(), "reports.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		s := New(path)

		reports, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reports)

		r, err := s.Append(context.Background(), sampleReport("Elbasan"))
		require.NoError(t, err)
		assert.Equal(t, 1, r.ID)
	}
}

func TestStore_CorruptFileSurfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s := New(path)

	_, err := s.Load(context.Background())
	require.Error(t, err)

	_, err = s.Append(context.Background(), sampleReport(""))
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestStore_UnwritableDirSurfaces(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "reports.json"))

	_, err := s.Append(context.Background(), sampleReport(""))
	require.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

func TestStore_Ping(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "reports.json"))
	assert.NoError(t, s.Ping(context.Background()))
}

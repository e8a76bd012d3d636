package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/couchcryptid/quake-felt-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "felt_reports"), mr
}

func report(location string, magnitude float64) domain.FeltReport {
	return domain.FeltReport{
		Location:           location,
		Perception:         domain.Perception{Shaking: 3, Duration: 3, Objects: 3, Reaction: 3, Damage: 3},
		PredictedMagnitude: magnitude,
		SubmissionTime:     "2024-11-26T02:54:00Z",
		Strategy:           "regression",
	}
}

func TestStore_EmptyLoad(t *testing.T) {
	s, _ := newTestStore(t)

	reports, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestStore_AppendAndLoad(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	a, err := s.Append(ctx, report("Shkoder", 3.4))
	require.NoError(t, err)
	b, err := s.Append(ctx, report("Vlore", 3.9))
	require.NoError(t, err)

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)

	reports, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, a, reports[0])
	assert.Equal(t, b, reports[1])

	seq, err := mr.Get("felt_reports:seq")
	require.NoError(t, err)
	assert.Equal(t, "2", seq)
}

func TestStore_ConcurrentAppendsGetUniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, report("", 3.0))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	reports, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reports, n)

	for i, r := range reports {
		assert.Equal(t, i+1, r.ID, "list position %d", i)
	}
}

func TestStore_ListOrderMatchesIDsAcrossRounds(t *testing.T) {
	for round := range 10 {
		s, _ := newTestStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Append(ctx, report("Korce", 3.2))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		reports, err := s.Load(ctx)
		require.NoError(t, err)
		for i, r := range reports {
			require.Equal(t, i+1, r.ID, "round %d position %d", round, i)
		}
	}
}

func TestStore_AppendPreservesFields(t *testing.T) {
	s, mr := newTestStore(t)

	in := report("Tirane", 4.6)
	in.ID = 99
	out, err := s.Append(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.ID)

	items, err := mr.List("felt_reports")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{
		"id": 1,
		"location": "Tirane",
		"shaking": 3, "duration": 3, "objects": 3, "reaction": 3, "damage": 3,
		"predicted_magnitude": 4.6,
		"submission_time": "2024-11-26T02:54:00Z",
		"strategy": "regression"
	}`, items[0])
}

func TestStore_CorruptEntrySurfaces(t *testing.T) {
	s, mr := newTestStore(t)
	_, err := mr.Push("felt_reports", "not json")
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode report 0")
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Append(context.Background(), report("", 3.0))
	require.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := Open(context.Background(), Options{Addr: mr.Addr(), Key: "reports"})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))

	mr.Close()
	_, err = Open(context.Background(), Options{Addr: mr.Addr(), Key: "reports"})
	assert.Error(t, err)
}

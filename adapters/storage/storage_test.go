package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-rank/core/ranking"
	"restaurant-rank/core/types"
	rerrors "restaurant-rank/internal/errors"
)

func result(id string, rank int, score float64) types.RankedResult {
	return types.RankedResult{
		Record: types.Record{ID: id, Service: 80, Price: decimal.NewFromInt(30000)},
		Score:  score,
		Rank:   rank,
	}
}

func report(id string, at time.Time, mean float64, results ...types.RankedResult) *ranking.Report {
	return &ranking.Report{
		ID:        id,
		Profile:   "standard",
		CreatedAt: at,
		Results:   results,
		Summary:   ranking.Summary{Count: len(results), Mean: mean},
	}
}

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "history"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreSaveGet(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			run := NewStoredRun("restoran.csv", report("run-1", at, 50, result("A", 1, 100)))
			require.NoError(t, s.Save(ctx, run))

			got, err := s.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, "restoran.csv", got.Source)
			assert.Equal(t, "standard", got.Profile)
			assert.True(t, at.Equal(got.CreatedAt))
			require.Len(t, got.Report.Results, 1)
			assert.Equal(t, "A", got.Report.Results[0].ID)
			assert.True(t, decimal.NewFromInt(30000).Equal(got.Report.Results[0].Price))
		})
	}
}

func TestStoreAssignsIDAndTimestamp(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			run := &StoredRun{Source: "x"}
			require.NoError(t, newStore(t).Save(context.Background(), run))
			assert.NotEmpty(t, run.ID)
			assert.False(t, run.CreatedAt.IsZero())
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Get(ctx, "missing")
			assert.True(t, rerrors.IsType(err, rerrors.TypeNotFound))

			err = s.Delete(ctx, "missing")
			assert.True(t, rerrors.IsType(err, rerrors.TypeNotFound))

			_, err = s.Latest(ctx, "nothing.csv")
			assert.True(t, rerrors.IsType(err, rerrors.TypeNotFound))
		})
	}
}

func TestStoreListFilterAndOrder(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			for i, src := range []string{"a.csv", "b.csv", "a.csv", "a.csv"} {
				id := string(rune('1' + i))
				require.NoError(t, s.Save(ctx, NewStoredRun(src, report(id, base.Add(time.Duration(i)*time.Hour), 0))))
			}

			all, err := s.List(ctx, nil)
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, "4", all[0].ID)
			assert.Equal(t, "1", all[3].ID)

			onlyA, err := s.List(ctx, &ListFilter{Source: "a.csv"})
			require.NoError(t, err)
			assert.Len(t, onlyA, 3)

			paged, err := s.List(ctx, &ListFilter{Source: "a.csv", Offset: 1, Limit: 1})
			require.NoError(t, err)
			require.Len(t, paged, 1)
			assert.Equal(t, "3", paged[0].ID)

			since, err := s.List(ctx, &ListFilter{Since: base.Add(2 * time.Hour)})
			require.NoError(t, err)
			assert.Len(t, since, 2)

			latest, err := s.Latest(ctx, "a.csv")
			require.NoError(t, err)
			assert.Equal(t, "4", latest.ID)

			require.NoError(t, s.Delete(ctx, "4"))
			latest, err = s.Latest(ctx, "a.csv")
			require.NoError(t, err)
			assert.Equal(t, "3", latest.ID)
		})
	}
}

func TestStoreCompare(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			now := time.Now()

			require.NoError(t, s.Save(ctx, NewStoredRun("r.csv", report("old", now, 60,
				result("A", 1, 100), result("B", 2, 75), result("C", 3, 55)))))
			require.NoError(t, s.Save(ctx, NewStoredRun("r.csv", report("new", now.Add(time.Minute), 70,
				result("B", 1, 100), result("A", 2, 80), result("D", 3, 60)))))

			cmp, err := s.Compare(ctx, "old", "new")
			require.NoError(t, err)
			assert.Equal(t, "old", cmp.OldID)
			assert.InDelta(t, 10, cmp.MeanDelta, 1e-9)
			assert.Equal(t, []string{"D"}, cmp.Entered)
			assert.Equal(t, []string{"C"}, cmp.Dropped)
			assert.Equal(t, []RankChange{
				{ID: "B", OldRank: 2, NewRank: 1, OldScore: 75, NewScore: 100},
				{ID: "A", OldRank: 1, NewRank: 2, OldScore: 100, NewScore: 80},
				{ID: "D", NewRank: 3, NewScore: 60},
				{ID: "C", OldRank: 3, OldScore: 55},
			}, cmp.Changes)

			_, err = s.Compare(ctx, "old", "missing")
			assert.True(t, rerrors.IsType(err, rerrors.TypeNotFound))
		})
	}
}

func TestFileStoreRejectsPathIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	err = s.Save(context.Background(), &StoredRun{ID: "../escape"})
	assert.True(t, rerrors.IsType(err, rerrors.TypeInput))
}

func TestStoreFactory(t *testing.T) {
	s, err := StoreFactory(BackendMemory, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = StoreFactory(BackendSQLite, map[string]string{"path": filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = StoreFactory("s3", nil)
	assert.True(t, rerrors.IsType(err, rerrors.TypeNotSupported))
}

func TestHistorySink(t *testing.T) {
	store := NewMemoryStore()
	sink := NewHistorySink(store, "restoran.csv")

	rep := report("run-9", time.Now(), 42, result("A", 1, 100))
	require.NoError(t, sink.Write(context.Background(), rep))

	got, err := store.Latest(context.Background(), "restoran.csv")
	require.NoError(t, err)
	assert.Equal(t, "run-9", got.ID)
	assert.Same(t, rep, got.Report)
}

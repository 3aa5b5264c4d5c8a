package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corehistory "github.com/kilianp07/squadopt/core/history"
)

func record(id, criterion string, ts time.Time) corehistory.RunRecord {
	return corehistory.RunRecord{
		RunID:     id,
		Timestamp: ts,
		Criterion: criterion,
		Formation: "3-4-3",
		Budget:    100,
		Status:    "optimal",
		Objective: 61.5,
		Cost:      99,
		Starters:  []corehistory.Pick{{ID: "p1", Name: "Keeper", Team: "ARS", Position: "GK", Cost: 5, Score: 4}},
		Bench:     []corehistory.Pick{{ID: "p2", Name: "Back", Team: "LIV", Position: "DEF", Cost: 4, Score: 2}},
	}
}

// exerciseStore runs the behaviour shared by every backend.
func exerciseStore(t *testing.T, store corehistory.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, record("r1", "xP", base)))
	require.NoError(t, store.Append(ctx, record("r2", "form", base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, record("r3", "xP", base.Add(2*time.Hour))))

	all, err := store.Query(ctx, corehistory.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].RunID)
	assert.Equal(t, "r3", all[2].RunID)
	assert.Equal(t, "Keeper", all[0].Starters[0].Name)
	assert.True(t, base.Equal(all[0].Timestamp))

	xp, err := store.Query(ctx, corehistory.Query{Criterion: "xP"})
	require.NoError(t, err)
	require.Len(t, xp, 2)

	since, err := store.Query(ctx, corehistory.Query{Start: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "r2", since[0].RunID)

	last, err := store.Query(ctx, corehistory.Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, []string{"r2", "r3"}, []string{last[0].RunID, last[1].RunID})

	window, err := store.Query(ctx, corehistory.Query{End: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs", "history.jsonl"), Rotation{})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestJSONLStore_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	store, err := NewJSONLStore(path, Rotation{})
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), record("r1", "xP", time.Now())))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := store.Query(context.Background(), corehistory.Query{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestJSONLStore_ReadsRotatedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONLStore(filepath.Join(dir, "history.jsonl"), Rotation{MaxSizeMB: 1, MaxBackups: 3})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.Append(ctx, record("r1", "xP", base)))
	require.NoError(t, store.Append(ctx, record("r2", "xP", base.Add(time.Minute))))
	require.NoError(t, store.rot.Rotate())
	require.NoError(t, store.Append(ctx, record("r3", "xP", base.Add(2*time.Minute))))

	backups, err := filepath.Glob(filepath.Join(dir, "history-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, backups, 1)

	out, err := store.Query(ctx, corehistory.Query{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "r1", out[0].RunID)
	assert.Equal(t, "r3", out[2].RunID)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestSQLiteStore_DuplicateRunID(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, record("r1", "xP", time.Now())))
	assert.Error(t, store.Append(ctx, record("r1", "xP", time.Now())))
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, corehistory.Nop{}, s)

	s, err = New(Config{Backend: "jsonl", Path: filepath.Join(dir, "h.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = New(Config{Backend: "sqlite", Path: filepath.Join(dir, "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = New(Config{Backend: "sqlite"})
	assert.Error(t, err)
	_, err = New(Config{Backend: "postgres", Path: "x"})
	assert.Error(t, err)
}

package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func newSQLiteRepo(t *testing.T) *ReservationRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(context.Background(), db, zerolog.Nop()))
	return NewReservationRepository(db)
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "reservations.json"), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func eachStore(t *testing.T, fn func(t *testing.T, s ReservationStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteRepo(t)) })
	t.Run("file", func(t *testing.T) { fn(t, newFileStore(t)) })
}

func TestStore_UpsertAndGet(t *testing.T) {
	eachStore(t, func(t *testing.T, s ReservationStore) {
		ctx := context.Background()
		payload := json.RawMessage(`{"data":{"code":"5039895833"}}`)

		rec, err := s.Upsert(ctx, ptr("res_1"), ptr("5039895833"), payload)
		require.NoError(t, err)
		assert.False(t, rec.UpdatedAt.IsZero())

		got, err := s.GetByCode(ctx, "5039895833")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "res_1", got.IDValue())
		assert.Equal(t, "5039895833", got.CodeValue())
		assert.JSONEq(t, string(payload), string(got.Payload))
		assert.WithinDuration(t, rec.UpdatedAt, got.UpdatedAt, time.Millisecond)

		missing, err := s.GetByCode(ctx, "000")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, s.Ping(ctx))
	})
}

func TestStore_UpsertIsFullReplace(t *testing.T) {
	eachStore(t, func(t *testing.T, s ReservationStore) {
		ctx := context.Background()

		_, err := s.Upsert(ctx, ptr("res_1"), ptr("c1"), json.RawMessage(`{"data":{"a":1,"b":2}}`))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, ptr("res_1"), ptr("c1"), json.RawMessage(`{"data":{"a":3}}`))
		require.NoError(t, err)

		got, err := s.GetByCode(ctx, "c1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":{"a":3}}`, string(got.Payload))
	})
}

func TestStore_IndexesWrittenIndependently(t *testing.T) {
	eachStore(t, func(t *testing.T, s ReservationStore) {
		ctx := context.Background()

		_, err := s.Upsert(ctx, nil, ptr("only-code"), json.RawMessage(`{}`))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, ptr("only-id"), nil, json.RawMessage(`{}`))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, ptr(""), ptr(""), json.RawMessage(`{}`))
		require.NoError(t, err)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.ByCode, 1)
		assert.Contains(t, snap.ByCode, "only-code")
		assert.Nil(t, snap.ByCode["only-code"].ID)
		assert.Len(t, snap.ByID, 1)
		assert.Contains(t, snap.ByID, "only-id")

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "only-code", list[0].CodeValue())
	})
}

func TestStore_ConcurrentWritesAndReads(t *testing.T) {
	eachStore(t, func(t *testing.T, s ReservationStore) {
		ctx := context.Background()
		_, err := s.Upsert(ctx, ptr("r"), ptr("c"), json.RawMessage(`{"n":0}`))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 1; i <= 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.Upsert(ctx, ptr("r"), ptr("c"), json.RawMessage(`{"n":1}`))
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				got, err := s.GetByCode(ctx, "c")
				assert.NoError(t, err)
				if assert.NotNil(t, got) {
					assert.True(t, json.Valid(got.Payload), "partial record observed")
				}
			}()
		}
		wg.Wait()
	})
}

func TestFileStore_PersistedLayout(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, ptr("res_1"), ptr("5039895833"), json.RawMessage(`{"data":{}}`))
	require.NoError(t, err)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var layout map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &layout))
	require.Contains(t, layout, "byCode")
	require.Contains(t, layout, "byId")

	rec := layout["byCode"]["5039895833"]
	assert.Equal(t, "res_1", rec["id"])
	assert.Equal(t, "5039895833", rec["code"])
	assert.Contains(t, rec, "updatedAt")
	assert.Contains(t, rec, "payload")
	assert.Contains(t, layout["byId"], "res_1")
}

func TestFileStore_CorruptFileReadsEmpty(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	got, err := s.GetByCode(ctx, "anything")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A write after corruption starts from an empty layout.
	_, err = s.Upsert(ctx, nil, ptr("c"), json.RawMessage(`{}`))
	require.NoError(t, err)
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStore_InitializesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := NewFileStore(path, zerolog.Nop())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"byCode":{},"byId":{}}`, string(raw))
}

func TestReservationRepository_MigrationsIdempotent(t *testing.T) {
	repo := newSQLiteRepo(t)
	require.NoError(t, RunMigrations(context.Background(), repo.DB(), zerolog.Nop()))
	assert.Equal(t, "sqlite", repo.Driver())
}

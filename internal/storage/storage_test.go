package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type namedStore struct {
	name string
	open func(t *testing.T) KeyValue
}

func storeFactories() []namedStore {
	return []namedStore{
		{"memory", func(t *testing.T) KeyValue { return NewMemoryStore() }},
		{"file", func(t *testing.T) KeyValue {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		}},
		{"redis", func(t *testing.T) KeyValue {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisStoreFromClient(client, "test")
		}},
		{"sqlite", func(t *testing.T) KeyValue {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestKeyValueContract(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			kv := f.open(t)

			_, err := kv.Get(ctx, KeyAccounts)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, KeyAccounts, []byte(`[1]`)))
			got, err := kv.Get(ctx, KeyAccounts)
			require.NoError(t, err)
			assert.Equal(t, `[1]`, string(got))

			require.NoError(t, kv.Set(ctx, KeyAccounts, []byte(`[1,2]`)))
			got, err = kv.Get(ctx, KeyAccounts)
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(got))

			require.NoError(t, kv.Set(ctx, KeyStories, []byte(`[]`)))
			require.NoError(t, kv.Delete(ctx, KeyAccounts))
			_, err = kv.Get(ctx, KeyAccounts)
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = kv.Get(ctx, KeyStories)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			// deleting a missing key is not an error
			assert.NoError(t, kv.Delete(ctx, "missing"))
		})
	}
}

func TestLoadSaveJSON(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()

	var ids []string
	ok, err := LoadJSON(ctx, kv, KeyFollowMap, &ids)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveJSON(ctx, kv, KeyFollowMap, []string{"a", "b"}))
	ok, err = LoadJSON(ctx, kv, KeyFollowMap, &ids)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, kv.Set(ctx, KeyFollowMap, []byte("{not json")))
	ok, err = LoadJSON(ctx, kv, KeyFollowMap, &ids)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStoreEscapesKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "../outside", []byte("x")))
	got, err := s.Get(ctx, "../outside")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestRedisStorePrefixesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	s := NewRedisStoreFromClient(client, "revayat")
	require.NoError(t, s.Set(context.Background(), KeyStories, []byte("[]")))

	got, err := mr.Get("revayat:" + KeyStories)
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestNewRedisStoreFailsWhenUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1", "")
	assert.Error(t, err)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestSQLStoreGetMapsMissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	s := &SQLStore{db: db}

	mock.ExpectQuery(`SELECT \* FROM "kv_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key", "value", "updated_at"}))

	_, err := s.Get(context.Background(), KeyAccounts)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetPropagatesDriverErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	s := &SQLStore{db: db}

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT \* FROM "kv_entries"`).WillReturnError(boom)

	_, err := s.Get(context.Background(), KeyAccounts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=revayat sslmode=disable",
		PostgresDSN("db", "5432", "u", "p", "revayat", ""),
	)
}

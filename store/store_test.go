package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSaveLoadDelete(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.SaveLink(LinkRecord{LinkID: "b", Address: `{"hashtag":"b0"}`}))
	require.NoError(t, s.SaveLink(LinkRecord{LinkID: "a", Address: `{"hashtag":"a0"}`, Loaded: true}))

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].LinkID)
	require.True(t, records[0].Loaded)
	require.Equal(t, "b", records[1].LinkID)

	require.NoError(t, s.DeleteLink("a"))
	records, err = s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b", records[0].LinkID)

	require.NoError(t, s.Close())
}

func TestInMemoryStoreSaveReplaces(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.SaveLink(LinkRecord{LinkID: "a", Address: "old"}))
	require.NoError(t, s.SaveLink(LinkRecord{LinkID: "a", Address: "new"}))

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "new", records[0].Address)
}

func TestInMemoryStoreDeleteUnknownIsNoop(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.DeleteLink("ghost"))
}

func TestPostgresConnectionString(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "links"}
	require.Equal(t, "host=db port=5432 user=u password=p dbname=links sslmode=disable", cfg.ConnectionString())

	cfg.SSLMode = "require"
	require.Contains(t, cfg.ConnectionString(), "sslmode=require")
}

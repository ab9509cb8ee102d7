package transport

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func registryLink(id string) *Link {
	addr := LinkAddress{Hashtag: "tag" + id}
	return NewLink(id, addr, Properties{}, NewMockPoster(), NewRecordingEvents(), slog.Default())
}

func TestRegistryAddGetRemove(t *testing.T) {
	reg := NewRegistry()
	require.Zero(t, reg.Size())

	reg.Add(registryLink("a"))
	reg.Add(registryLink("b"))
	require.Equal(t, 2, reg.Size())

	link, err := reg.Get("a")
	require.NoError(t, err)
	require.Equal(t, "a", link.ID())

	removed := reg.Remove("a")
	require.NotNil(t, removed)
	require.Equal(t, "a", removed.ID())
	require.Equal(t, 1, reg.Size())

	_, err = reg.Get("a")
	require.ErrorIs(t, err, ErrLinkNotFound)
}

func TestRegistryRemoveUnknownReturnsNil(t *testing.T) {
	reg := NewRegistry()
	require.Nil(t, reg.Remove("ghost"))
}

func TestRegistryAddReplaces(t *testing.T) {
	reg := NewRegistry()
	first := registryLink("a")
	second := registryLink("a")

	reg.Add(first)
	reg.Add(second)
	require.Equal(t, 1, reg.Size())

	link, err := reg.Get("a")
	require.NoError(t, err)
	require.Same(t, second, link)
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	reg := NewRegistry()
	reg.Add(registryLink("a"))

	snap := reg.Snapshot()
	reg.Remove("a")

	require.Len(t, snap, 1)
	require.Zero(t, reg.Size())
}

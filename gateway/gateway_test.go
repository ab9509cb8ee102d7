package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tst-race/mastodon-transport/store"
	"github.com/tst-race/mastodon-transport/transport"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mastodon.ServerURL = "https://mastodon.test"
	cfg.Mastodon.AccessToken = "token"
	cfg.Transport.HashtagPrefix = "gwtest"
	return cfg
}

func newTestGateway(t *testing.T) (*Gateway, *transport.MockPoster, *store.InMemoryStore) {
	t.Helper()
	poster := transport.NewMockPoster()
	book := store.NewInMemoryStore()
	return New(testConfig(), poster, book, nil), poster, book
}

func TestGatewayCreateLinkPersists(t *testing.T) {
	gw, _, book := newTestGateway(t)

	info, err := gw.CreateLink("")
	require.NoError(t, err)
	require.NotEmpty(t, info.LinkID)
	require.NotEmpty(t, info.Address)

	addr, err := transport.ParseLinkAddress(info.Address)
	require.NoError(t, err)
	require.Equal(t, "gwtest0", addr.Hashtag)

	records, err := book.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, info.LinkID, records[0].LinkID)
	require.False(t, records[0].Loaded)
}

func TestGatewayLoadLinkPersists(t *testing.T) {
	gw, _, book := newTestGateway(t)

	peerAddr := transport.GenerateLinkAddress("peer", 0)
	info, err := gw.LoadLink("peer-link", peerAddr.String())
	require.NoError(t, err)
	require.Equal(t, "peer-link", info.LinkID)

	records, err := book.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].Loaded)
}

func TestGatewayDestroyLinkRemovesRecord(t *testing.T) {
	gw, _, book := newTestGateway(t)

	info, err := gw.CreateLink("doomed")
	require.NoError(t, err)
	require.NoError(t, gw.DestroyLink(info.LinkID))

	records, err := book.LoadAll()
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, gw.ListLinks())

	err = gw.DestroyLink("doomed")
	require.ErrorIs(t, err, transport.ErrLinkNotFound)
}

func TestGatewayRestoreLinks(t *testing.T) {
	cfg := testConfig()
	poster := transport.NewMockPoster()
	book := store.NewInMemoryStore()

	created := transport.GenerateLinkAddress("mine", 0)
	loaded := transport.GenerateLinkAddress("theirs", 0)
	require.NoError(t, book.SaveLink(store.LinkRecord{LinkID: "link-a", Address: created.String()}))
	require.NoError(t, book.SaveLink(store.LinkRecord{LinkID: "link-b", Address: loaded.String(), Loaded: true}))

	gw := New(cfg, poster, book, nil)
	require.NoError(t, gw.RestoreLinks())
	require.Len(t, gw.ListLinks(), 2)

	props, err := gw.Router().LinkProperties("link-b")
	require.NoError(t, err)
	require.Contains(t, props.Address, "theirs0")
}

func TestGatewaySendTextMessage(t *testing.T) {
	gw, poster, _ := newTestGateway(t)
	info, err := gw.CreateLink("")
	require.NoError(t, err)

	handle, err := gw.SendMessage(info.LinkID, []byte("ZnJhZ21lbnQ="), nil)
	require.NoError(t, err)

	require.Len(t, poster.StatusCalls, 1)
	require.Equal(t, "ZnJhZ21lbnQ=", poster.StatusCalls[0].Text)
	require.Equal(t, "#gwtest0", poster.StatusCalls[0].Hashtag)

	status, ok := gw.PackageStatus(handle)
	require.True(t, ok)
	require.Equal(t, transport.PackageSent, status)
}

func TestGatewaySendImageMessage(t *testing.T) {
	gw, poster, _ := newTestGateway(t)
	info, err := gw.CreateLink("")
	require.NoError(t, err)

	_, err = gw.SendMessage(info.LinkID, nil, []byte{0xff, 0xd8})
	require.NoError(t, err)
	require.Len(t, poster.ImageCalls, 1)
}

func TestGatewaySendMixedMessage(t *testing.T) {
	gw, poster, _ := newTestGateway(t)
	info, err := gw.CreateLink("")
	require.NoError(t, err)

	_, err = gw.SendMessage(info.LinkID, []byte("caption"), []byte{0x01})
	require.NoError(t, err)

	require.Equal(t, 1, poster.TotalPosts())
	require.Len(t, poster.MixedCalls, 1)
	require.Equal(t, "caption", poster.MixedCalls[0].Text)
}

func TestGatewaySendEmptyMessage(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	info, err := gw.CreateLink("")
	require.NoError(t, err)

	_, err = gw.SendMessage(info.LinkID, nil, nil)
	require.Error(t, err)
}

func TestGatewaySendToUnknownLink(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	_, err := gw.SendMessage("ghost", []byte("x"), nil)
	require.ErrorIs(t, err, transport.ErrLinkNotFound)
}

func TestGatewayFetchFillsInbox(t *testing.T) {
	gw, poster, _ := newTestGateway(t)
	_, err := gw.CreateLink("")
	require.NoError(t, err)

	poster.SearchResults["#gwtest0"] = []transport.Content{
		{Type: transport.MimeText, Data: []byte("incoming")},
	}

	require.NoError(t, gw.Fetch(""))

	messages := gw.DrainInbox()
	require.Len(t, messages, 1)
	require.Equal(t, transport.MimeText, messages[0].ContentType)
	require.Equal(t, []byte("incoming"), messages[0].Data)
	require.False(t, messages[0].ReceivedAt.IsZero())

	// The drain cleared the buffer.
	require.Empty(t, gw.DrainInbox())
}

func TestGatewayStatus(t *testing.T) {
	gw, poster, _ := newTestGateway(t)
	info, err := gw.CreateLink("")
	require.NoError(t, err)

	_, err = gw.SendMessage(info.LinkID, []byte("ok"), nil)
	require.NoError(t, err)

	poster.PostStatusErr = transport.Fatalf("server gone")
	_, err = gw.SendMessage(info.LinkID, []byte("fails"), nil)
	require.Error(t, err)

	status := gw.Status()
	require.Equal(t, transport.StateStarted, status.State)
	require.Equal(t, 1, status.Links)
	require.Equal(t, 1, status.Sent)
	require.Equal(t, 1, status.Failed)
}

func TestGatewayFailedStateLatches(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	gw.OnStateChanged(transport.StateFailed)
	require.Equal(t, transport.StateFailed, gw.Status().State)

	// A later started signal does not clear the failure.
	gw.OnStateChanged(transport.StateStarted)
	require.Equal(t, transport.StateFailed, gw.Status().State)
}

package mastodon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tst-race/mastodon-transport/testutil"
	"github.com/tst-race/mastodon-transport/transport"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{ServerURL: srv.URL, AccessToken: "test-token"}, nil)
	return client, srv
}

func TestClientPostStatus(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/statuses", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		fmt.Fprint(w, `{"id":"1"}`)
	}))

	require.NoError(t, client.PostStatus("payload", "#tag0"))
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, []string{"payload #tag0"}, gotForm["status"])
	require.Equal(t, []string{"public"}, gotForm["visibility"])
}

func TestClientPostStatusServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))

	err := client.PostStatus("payload", "#tag0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestClientPostImage(t *testing.T) {
	img := testutil.RandomBytes(64)

	var mediaUploaded bool
	var statusForm map[string][]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/media":
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			require.Equal(t, "image.jpg", header.Filename)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			require.Equal(t, img, data)
			mediaUploaded = true
			fmt.Fprint(w, `{"id":"media-7"}`)
		case "/api/v1/statuses":
			require.True(t, mediaUploaded, "status posted before media upload")
			require.NoError(t, r.ParseForm())
			statusForm = r.PostForm
			fmt.Fprint(w, `{"id":"1"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, client.PostImage(img, "#tag0"))
	require.Equal(t, []string{"#tag0"}, statusForm["status"])
	require.Equal(t, []string{"media-7"}, statusForm["media_ids[]"])
}

func TestClientPostImageWithText(t *testing.T) {
	var statusForm map[string][]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/media":
			fmt.Fprint(w, `{"id":"media-9"}`)
		case "/api/v1/statuses":
			require.NoError(t, r.ParseForm())
			statusForm = r.PostForm
			fmt.Fprint(w, `{"id":"1"}`)
		}
	}))

	require.NoError(t, client.PostImageWithText([]byte{0x01}, "caption", "#tag0"))
	require.Equal(t, []string{"caption #tag0"}, statusForm["status"])
	require.Equal(t, []string{"media-9"}, statusForm["media_ids[]"])
}

func TestClientPostImageUploadFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/media", r.URL.Path)
		fmt.Fprint(w, `{}`)
	}))

	err := client.PostImage([]byte{0x01}, "#tag0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no id")
}

func TestClientSearch(t *testing.T) {
	var srv *httptest.Server
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/search":
			require.Equal(t, "#tag0", r.URL.Query().Get("q"))
			require.Equal(t, "statuses", r.URL.Query().Get("type"))
			json.NewEncoder(w).Encode(testutil.SearchResponse(
				testutil.Status("100", testutil.WithText("aGVsbG8=", "#tag0")),
				testutil.Status("101", testutil.WithTagOnly("#tag0"), testutil.WithImageURL(srv.URL+"/media/img.jpg")),
			))
		case "/media/img.jpg":
			w.Write([]byte{0xff, 0xd8, 0xff})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	client, s := newTestClient(t, handler)
	srv = s

	results, err := client.Search("#tag0")
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, transport.MimeImage, results[0].Type)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, results[0].Data)
	require.Equal(t, transport.MimeText, results[1].Type)
	require.Equal(t, "aGVsbG8=", string(results[1].Data))
}

func TestClientSearchSkipsAlreadySeen(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testutil.SearchResponse(
			testutil.Status("100", testutil.WithText("first", "#tag0")),
		))
	}))

	results, err := client.Search("#tag0")
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = client.Search("#tag0")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestClientSearchSkipsTagOnlyStatuses(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testutil.SearchResponse(
			testutil.Status("100", testutil.WithRawContent("<p>#tag0</p>")),
			testutil.Status("101", testutil.WithRawContent("<p></p>")),
		))
	}))

	results, err := client.Search("#tag0")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestClientSearchServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))

	_, err := client.Search("#tag0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestExtractText(t *testing.T) {
	text, err := extractText(`<p>hello <span>world</span> <a href="https://x">#tag</a></p>`)
	require.NoError(t, err)
	require.Equal(t, "hello world #tag", text)
}

func TestHashQueueEvictsOldest(t *testing.T) {
	q := newHashQueue(2)
	q.add("a")
	q.add("b")
	require.True(t, q.contains("a"))

	q.add("c")
	require.False(t, q.contains("a"))
	require.True(t, q.contains("b"))
	require.True(t, q.contains("c"))
}

func TestHashQueueRemove(t *testing.T) {
	q := newHashQueue(4)
	sum := q.add("a")
	q.add("b")

	q.remove(sum)
	require.False(t, q.contains("a"))
	require.True(t, q.contains("b"))
}

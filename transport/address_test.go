package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLinkAddress(t *testing.T) {
	addr, err := ParseLinkAddress(`{"hashtag":"pqrstuv42","maxTries":120,"timestamp":1724400000.5}`)
	require.NoError(t, err)
	require.Equal(t, "pqrstuv42", addr.Hashtag)
	require.Equal(t, 120, addr.MaxTries)
	require.Equal(t, "#pqrstuv42", addr.Tag())
}

func TestParseLinkAddressRejectsInvalid(t *testing.T) {
	_, err := ParseLinkAddress("")
	require.Error(t, err)

	_, err = ParseLinkAddress("not json")
	require.Error(t, err)

	_, err = ParseLinkAddress(`{"maxTries":3}`)
	require.Error(t, err)
}

func TestLinkAddressRoundTrip(t *testing.T) {
	addr := GenerateLinkAddress("covert", 9)
	require.Equal(t, "covert9", addr.Hashtag)
	require.Greater(t, addr.Timestamp, float64(0))

	parsed, err := ParseLinkAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestParseActionPayload(t *testing.T) {
	payload, err := parseActionPayload(Action{ID: 1, Payload: `{"linkId":"link-0","type":"post","contentType":"image"}`})
	require.NoError(t, err)
	require.Equal(t, "link-0", payload.LinkID)
	require.Equal(t, ActionPost, payload.Type)
	require.Equal(t, MimeImage, payload.mimeType())
	require.False(t, payload.mixed())
}

func TestParseActionPayloadContentTypeHints(t *testing.T) {
	cases := map[string]string{
		"":      MimeText,
		"text":  MimeText,
		"image": MimeImage,
		"jpg":   MimeImage,
		"jpeg":  MimeImage,
	}
	for hint, want := range cases {
		p := actionPayload{ContentType: hint}
		require.Equal(t, want, p.mimeType(), "hint %q", hint)
	}

	require.True(t, actionPayload{ContentType: "mixed"}.mixed())
	require.True(t, actionPayload{ContentType: "text+image"}.mixed())
	require.False(t, actionPayload{ContentType: "image"}.mixed())
}

func TestParseActionPayloadRejectsInvalid(t *testing.T) {
	_, err := parseActionPayload(Action{ID: 1})
	require.Error(t, err)

	_, err = parseActionPayload(Action{ID: 1, Payload: "{broken"})
	require.Error(t, err)

	_, err = parseActionPayload(Action{ID: 1, Payload: `{"type":"post"}`})
	require.Error(t, err)

	_, err = parseActionPayload(Action{ID: 1, Payload: `{"linkId":"a","type":"delete"}`})
	require.Error(t, err)
}

// Package testutil provides test data generators for the transport packages.
//
// The central fixture is the Mastodon search response: most retrieval tests
// need a /api/v2/search payload with some combination of text statuses and
// image attachments. The option pattern keeps individual tests focused on
// what varies:
//
//	body := testutil.SearchResponse(
//	    testutil.Status("100", testutil.WithText("payload", "#tag0")),
//	    testutil.Status("101", testutil.WithImageURL(srv.URL+"/img.jpg")),
//	)
//
// This package is intended for testing purposes only.
package testutil

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("generating random bytes: %v", err))
	}
	return buf
}

// StatusFixture is one status entry in a fabricated search response.
type StatusFixture struct {
	ID               string           `json:"id"`
	Content          string           `json:"content"`
	MediaAttachments []MediaAttachment `json:"media_attachments,omitempty"`
}

// MediaAttachment is one media entry of a StatusFixture.
type MediaAttachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// StatusOption customizes a StatusFixture.
type StatusOption func(*StatusFixture)

// WithText sets the status body to the HTML Mastodon would produce for a
// plain-text post carrying the given payload and hashtag.
func WithText(payload, hashtag string) StatusOption {
	return func(s *StatusFixture) {
		s.Content = fmt.Sprintf(`<p>%s <a href="#">%s</a></p>`, payload, hashtag)
	}
}

// WithTagOnly sets the status body to a post carrying only the hashtag, as
// produced for image-only posts.
func WithTagOnly(hashtag string) StatusOption {
	return func(s *StatusFixture) {
		s.Content = fmt.Sprintf(`<p><a href="#">%s</a></p>`, hashtag)
	}
}

// WithRawContent sets the status body verbatim.
func WithRawContent(html string) StatusOption {
	return func(s *StatusFixture) { s.Content = html }
}

// WithImageURL appends an image attachment pointing at url.
func WithImageURL(url string) StatusOption {
	return func(s *StatusFixture) {
		s.MediaAttachments = append(s.MediaAttachments, MediaAttachment{Type: "image", URL: url})
	}
}

// WithAttachment appends an attachment of an arbitrary media type.
func WithAttachment(mediaType, url string) StatusOption {
	return func(s *StatusFixture) {
		s.MediaAttachments = append(s.MediaAttachments, MediaAttachment{Type: mediaType, URL: url})
	}
}

// Status builds one status fixture.
func Status(id string, options ...StatusOption) StatusFixture {
	s := StatusFixture{ID: id}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// SearchResponse assembles a search API payload from status fixtures.
func SearchResponse(statuses ...StatusFixture) map[string]any {
	if statuses == nil {
		statuses = []StatusFixture{}
	}
	return map[string]any{"statuses": statuses}
}

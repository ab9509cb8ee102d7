package mastodon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tst-race/mastodon-transport/transport"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultSeenLimit = 1024
)

// Config holds the connection parameters for one Mastodon instance.
type Config struct {
	// ServerURL is the instance base URL, e.g. https://mastodon.example.
	ServerURL string `yaml:"serverUrl"`

	// AccessToken is the OAuth bearer token of the posting account.
	AccessToken string `yaml:"accessToken"`

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration `yaml:"-"`

	// SeenLimit bounds the per-hashtag dedup window: how many already
	// delivered statuses are remembered before the oldest are forgotten.
	// Zero means 1024.
	SeenLimit int `yaml:"seenLimit"`
}

// Client talks to a single Mastodon instance. It implements
// transport.PostingService: statuses are published with public visibility so
// hashtag search finds them, and retrieved statuses are deduplicated by id so
// repeated fetches only deliver new content.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	mu   sync.Mutex
	seen map[string]*hashQueue // hashtag -> delivered status ids
}

// NewClient creates a client for the configured instance. Only request
// construction can fail later; construction itself always succeeds.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SeenLimit == 0 {
		cfg.SeenLimit = defaultSeenLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With("server", cfg.ServerURL),
		seen: make(map[string]*hashQueue),
	}
}

// PostStatus publishes text as a public status tagged with hashtag.
func (c *Client) PostStatus(text, hashtag string) error {
	return c.postForm(url.Values{
		"status":     {text + " " + hashtag},
		"visibility": {"public"},
	})
}

// PostImage uploads image and publishes a public status carrying it, with the
// hashtag as the only text.
func (c *Client) PostImage(image []byte, hashtag string) error {
	mediaID, err := c.uploadMedia(image)
	if err != nil {
		return err
	}
	return c.postForm(url.Values{
		"status":      {hashtag},
		"visibility":  {"public"},
		"media_ids[]": {mediaID},
	})
}

// PostImageWithText uploads image and publishes a public status carrying it
// alongside a text caption and the hashtag.
func (c *Client) PostImageWithText(image []byte, text, hashtag string) error {
	mediaID, err := c.uploadMedia(image)
	if err != nil {
		return err
	}
	return c.postForm(url.Values{
		"status":      {text + " " + hashtag},
		"visibility":  {"public"},
		"media_ids[]": {mediaID},
	})
}

func (c *Client) postForm(form url.Values) error {
	req, err := http.NewRequest(http.MethodPost, c.cfg.ServerURL+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("posting status: server returned status %d", resp.StatusCode)
	}
	return nil
}

// uploadMedia pushes image bytes to the media endpoint and returns the
// attachment id to reference from a status.
func (c *Client) uploadMedia(image []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("building media request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("building media request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building media request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.ServerURL+"/api/v1/media", &body)
	if err != nil {
		return "", fmt.Errorf("building media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("uploading media: server returned status %d", resp.StatusCode)
	}

	var media struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return "", fmt.Errorf("parsing media response: %w", err)
	}
	if media.ID == "" {
		return "", fmt.Errorf("media upload returned no id")
	}
	c.log.Debug("uploaded media", "mediaId", media.ID, "bytes", len(image))
	return media.ID, nil
}

// searchResponse is the subset of the /api/v2/search payload this client
// consumes.
type searchResponse struct {
	Statuses []struct {
		ID               string `json:"id"`
		Content          string `json:"content"`
		MediaAttachments []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"media_attachments"`
	} `json:"statuses"`
}

// Search returns the content of every public status tagged with hashtag that
// has not been delivered before, in the order the server returned them. Image
// attachments of a status are yielded before its text body. A status whose
// text is empty after stripping the markup and the hashtag itself is skipped.
func (c *Client) Search(hashtag string) ([]transport.Content, error) {
	query := url.Values{
		"q":       {hashtag},
		"type":    {"statuses"},
		"resolve": {"true"},
	}
	req, err := http.NewRequest(http.MethodGet, c.cfg.ServerURL+"/api/v2/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", hashtag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching %s: server returned status %d", hashtag, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	var results []transport.Content
	for _, status := range parsed.Statuses {
		if c.alreadySeen(hashtag, status.ID) {
			continue
		}

		for _, media := range status.MediaAttachments {
			if media.Type != "image" || media.URL == "" {
				continue
			}
			data, err := c.downloadImage(media.URL)
			if err != nil {
				c.log.Error("cannot download attachment", "url", media.URL, "err", err)
				continue
			}
			results = append(results, transport.Content{Type: transport.MimeImage, Data: data})
		}

		text, err := extractText(status.Content)
		if err != nil {
			c.log.Error("cannot parse status content", "status", status.ID, "err", err)
			continue
		}
		// Drop the routing hashtag; only the payload text is delivered.
		if pos := strings.Index(text, " "+hashtag); pos >= 0 {
			text = text[:pos]
		}
		if text == "" || text == hashtag {
			continue
		}
		results = append(results, transport.Content{Type: transport.MimeText, Data: []byte(text)})
	}

	c.log.Debug("search complete", "hashtag", hashtag, "statuses", len(parsed.Statuses), "new", len(results))
	return results, nil
}

// alreadySeen records status id under hashtag and reports whether it had
// been recorded before.
func (c *Client) alreadySeen(hashtag, statusID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.seen[hashtag]
	if queue == nil {
		queue = newHashQueue(c.cfg.SeenLimit)
		c.seen[hashtag] = queue
	}
	if queue.contains(statusID) {
		return true
	}
	queue.add(statusID)
	return false
}

func (c *Client) downloadImage(imageURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	return data, nil
}

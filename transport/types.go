package transport

// MIME types carried by this transport. Encoded payloads are either plain
// text (base64 produced by an upstream encoder) or JPEG image bytes.
const (
	MimeText  = "text/plain"
	MimeImage = "image/jpeg"
)

// Handle identifies one in-flight scheduler operation. Handles are opaque to
// the transport; they are echoed back through Events callbacks so the
// scheduler can correlate results.
type Handle uint64

// PackageStatus reports the outcome of a send attempt for one handle.
type PackageStatus string

const (
	PackageSent          PackageStatus = "sent"
	PackageFailedGeneric PackageStatus = "failed"
)

// LinkStatus reports link lifecycle transitions to the scheduler.
type LinkStatus string

const (
	LinkCreated   LinkStatus = "created"
	LinkLoaded    LinkStatus = "loaded"
	LinkDestroyed LinkStatus = "destroyed"
)

// State is the coarse component state reported through Events. The router
// reports StateFailed on unrecoverable parse failures during parameter
// derivation; the scheduler is expected to halt further actions until
// external intervention.
type State string

const (
	StateStarted State = "started"
	StateFailed  State = "failed"
)

// LinkSide describes which end of a link exchange this instance plays.
// Creators generate fresh addresses; loaders consume addresses generated
// elsewhere.
type LinkSide int

const (
	LinkSideUndef LinkSide = iota
	LinkSideCreator
	LinkSideLoader
	LinkSideBoth
)

func (s LinkSide) String() string {
	switch s {
	case LinkSideCreator:
		return "creator"
	case LinkSideLoader:
		return "loader"
	case LinkSideBoth:
		return "both"
	}
	return "undef"
}

// ParseLinkSide maps a configuration string to a LinkSide. Unrecognized
// values map to LinkSideUndef, which refuses every link operation.
func ParseLinkSide(s string) LinkSide {
	switch s {
	case "creator":
		return LinkSideCreator
	case "loader":
		return LinkSideLoader
	case "both":
		return LinkSideBoth
	}
	return LinkSideUndef
}

// EncodingParameters describes one content requirement for an action: which
// link the content targets, the MIME type an encoder must produce, and
// whether the fragment can carry message payload.
type EncodingParameters struct {
	LinkID          string `json:"linkId"`
	Type            string `json:"type"`
	CanCarryPayload bool   `json:"canCarryPayload"`
	Extra           []byte `json:"extra,omitempty"`
}

// Content is one kind-tagged blob retrieved from the remote service.
type Content struct {
	Type string
	Data []byte
}

// PostingService is the remote API capability this transport posts through.
// All calls block the calling goroutine until the request completes or the
// underlying HTTP client times out; the transport adds no retry or
// cancellation on top.
type PostingService interface {
	// PostStatus publishes text as a public status tagged with hashtag.
	PostStatus(text, hashtag string) error

	// PostImage publishes an image attachment with the hashtag as caption.
	PostImage(image []byte, hashtag string) error

	// PostImageWithText publishes an image attachment with a text caption
	// and the hashtag.
	PostImageWithText(image []byte, text, hashtag string) error

	// Search returns all public content tagged with hashtag, in retrieval
	// order. A search with no matches returns an empty slice and nil error.
	Search(hashtag string) ([]Content, error)
}

// Events is the callback surface into the host scheduler. All callbacks are
// invoked synchronously on the goroutine executing the transport call.
type Events interface {
	// OnPackageStatusChanged reports the outcome of a send for one handle.
	OnPackageStatusChanged(handle Handle, status PackageStatus)

	// OnReceive delivers one retrieved fragment to the scheduler.
	OnReceive(linkID string, params EncodingParameters, data []byte)

	// OnLinkStatusChanged reports a link lifecycle transition.
	OnLinkStatusChanged(handle Handle, linkID string, status LinkStatus)

	// OnStateChanged reports a component state transition.
	OnStateChanged(state State)
}

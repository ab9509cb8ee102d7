package transport

import (
	"fmt"
	"log/slog"
)

// Properties describes a link's transmission characteristics, surfaced to
// the scheduler so it can plan actions. Address is the serialized
// LinkAddress a peer needs to load this link.
type Properties struct {
	LinkType     string `json:"linkType"`
	Reliable     bool   `json:"reliable"`
	MTU          int    `json:"mtu"`
	Address      string `json:"linkAddress"`
	DurationSecs int    `json:"duration_s,omitempty"`
	PeriodSecs   int    `json:"period_s,omitempty"`
}

// Link is one logical bidirectional channel bound to a unique hashtag. It
// stages outbound content per action, commits staged content as posts, and
// fetches tagged statuses back to the caller.
//
// A link's methods must only be invoked between NewLink and Shutdown; the
// Router enforces this by removing links from the registry before shutting
// them down.
type Link struct {
	id      string
	address LinkAddress
	props   Properties
	poster  PostingService
	events  Events
	log     *slog.Logger

	staging stagingTable
}

// NewLink constructs a link bound to addr. The serialized address is folded
// into the link's properties so peers can be given everything needed to load
// the link.
func NewLink(id string, addr LinkAddress, props Properties, poster PostingService, events Events, log *slog.Logger) *Link {
	props.Address = addr.String()
	return &Link{
		id:      id,
		address: addr,
		props:   props,
		poster:  poster,
		events:  events,
		log:     log.With("link", id),
		staging: make(stagingTable),
	}
}

// ID returns the link's identifier.
func (l *Link) ID() string { return l.id }

// Address returns the link's address.
func (l *Link) Address() LinkAddress { return l.address }

// Properties returns the link's properties, including its serialized address.
func (l *Link) Properties() Properties { return l.props }

// Start begins link operation. Present for lifecycle symmetry; the link has
// no background work to start.
func (l *Link) Start() {}

// Shutdown discards all staged content. No commit happens on teardown; any
// content the scheduler still cares about must be re-encoded as new actions.
func (l *Link) Shutdown() {
	for actionID := range l.staging {
		l.staging.unstage(actionID)
	}
}

// Stage records data under contentType for actionID, overwriting any prior
// value of that kind for the same action.
func (l *Link) Stage(actionID uint64, data []byte, contentType string) error {
	if err := l.staging.stage(actionID, data, contentType); err != nil {
		l.log.Error("cannot stage content", "action", actionID, "contentType", contentType)
		return fmt.Errorf("staging content for action %d: %w", actionID, err)
	}
	l.log.Debug("staged content", "action", actionID, "contentType", contentType, "bytes", len(data))
	return nil
}

// Unstage discards any staged content for actionID. Absent entries are not
// an error, so repeated unstage calls are safe.
func (l *Link) Unstage(actionID uint64) {
	l.staging.unstage(actionID)
}

// Post commits the content staged for actionID as a single outbound post and
// reports the outcome to every handle. The staged entry is cleared whether
// the post succeeds or fails; a failed post is never retried here, the
// scheduler re-encodes and re-queues as a new action if it wants another
// attempt.
//
// Exactly one network call sequence is made per invocation: a combined
// image+caption post when both kinds are staged, otherwise an image-only or
// text-only post.
func (l *Link) Post(handles []Handle, actionID uint64) error {
	content, ok := l.staging.takeAndClear(actionID)
	if !ok {
		l.log.Info("no staged content for action", "action", actionID)
		l.updatePackageStatus(handles, PackageFailedGeneric)
		return fmt.Errorf("action %d: %w", actionID, ErrNoStagedContent)
	}

	tag := l.address.Tag()
	var err error
	switch {
	case content.hasImage && content.hasText:
		l.log.Debug("posting mixed content", "action", actionID)
		err = l.poster.PostImageWithText(content.image, string(content.text), tag)
	case content.hasImage:
		l.log.Debug("posting image content", "action", actionID)
		err = l.poster.PostImage(content.image, tag)
	default:
		l.log.Debug("posting text content", "action", actionID)
		err = l.poster.PostStatus(string(content.text), tag)
	}

	if err != nil {
		l.log.Error("post failed", "action", actionID, "err", err)
		l.updatePackageStatus(handles, PackageFailedGeneric)
		return fmt.Errorf("posting action %d: %w", actionID, err)
	}

	l.updatePackageStatus(handles, PackageSent)
	return nil
}

// Fetch searches the remote service for the link's hashtag and forwards each
// result to the caller through OnReceive. Results are partitioned by kind
// and delivered text-first: all text fragments in retrieval order, then all
// image fragments in retrieval order. This mirrors the text-then-image order
// of encoding parameters for mixed posts, so two-fragment messages line up
// positionally on both sides.
//
// Zero results is a success. Only a transport-level fault is an error, and
// it is propagated without retry.
func (l *Link) Fetch() error {
	results, err := l.poster.Search(l.address.Tag())
	if err != nil {
		return fmt.Errorf("searching %s: %w", l.address.Tag(), err)
	}

	l.log.Info("fetched items", "hashtag", l.address.Hashtag, "count", len(results))

	var texts, images []Content
	for _, content := range results {
		switch content.Type {
		case MimeText:
			texts = append(texts, content)
		case MimeImage:
			images = append(images, content)
		}
	}

	for _, content := range texts {
		l.deliver(content)
	}
	for _, content := range images {
		l.deliver(content)
	}
	return nil
}

func (l *Link) deliver(content Content) {
	l.log.Debug("delivering fetched content", "contentType", content.Type, "bytes", len(content.Data))
	params := EncodingParameters{LinkID: l.id, Type: content.Type}
	l.events.OnReceive(l.id, params, content.Data)
}

func (l *Link) updatePackageStatus(handles []Handle, status PackageStatus) {
	for _, handle := range handles {
		l.events.OnPackageStatusChanged(handle, status)
	}
}

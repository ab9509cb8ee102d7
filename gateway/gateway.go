// Package gateway exposes the transport over a local HTTP control plane. It
// plays the scheduler role: it mints actions and handles, drives the
// stage/execute cycle, and buffers received content until a client collects
// it.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tst-race/mastodon-transport/store"
	"github.com/tst-race/mastodon-transport/transport"
)

// InboxMessage is one received fragment awaiting collection.
type InboxMessage struct {
	LinkID      string    `json:"linkId"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"data"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// LinkInfo describes one registered link.
type LinkInfo struct {
	LinkID     string               `json:"linkId"`
	Address    string               `json:"address"`
	Properties transport.Properties `json:"properties"`
}

// Status is the gateway's observable state.
type Status struct {
	State     transport.State `json:"state"`
	Links     int             `json:"links"`
	InboxSize int             `json:"inboxSize"`
	Sent      int             `json:"sent"`
	Failed    int             `json:"failed"`
}

// Gateway owns a transport router and implements transport.Events for it.
// All scheduler bookkeeping (handles, actions, delivery buffering) lives
// here; the router below it stays policy-free.
type Gateway struct {
	cfg    Config
	router *transport.Router
	book   store.AddressBook
	log    *slog.Logger

	nextAction atomic.Uint64
	nextHandle atomic.Uint64
	failed     atomic.Bool

	mu       sync.Mutex
	inbox    []InboxMessage
	packages map[transport.Handle]transport.PackageStatus
	sent     int
	sendFail int
}

// New creates a gateway. The poster is injected so tests can substitute the
// live Mastodon client; book may be an in-memory store when persistence is
// not configured.
func New(cfg Config, poster transport.PostingService, book store.AddressBook, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{
		cfg:      cfg,
		book:     book,
		log:      log,
		packages: make(map[transport.Handle]transport.PackageStatus),
	}
	g.router = transport.NewRouter(transport.RouterConfig{
		HashtagPrefix: cfg.Transport.HashtagPrefix,
		MaxLinks:      cfg.Transport.MaxLinks,
		LinkSide:      transport.ParseLinkSide(cfg.Transport.LinkSide),
	}, transport.NewRegistry(), poster, g, log)
	return g
}

// Router returns the underlying transport router.
func (g *Gateway) Router() *transport.Router { return g.router }

// RestoreLinks reloads every persisted link into the router. Records that can
// no longer be loaded (for example after a link-side policy change) are
// logged and skipped, not treated as fatal.
func (g *Gateway) RestoreLinks() error {
	records, err := g.book.LoadAll()
	if err != nil {
		return fmt.Errorf("loading address book: %w", err)
	}

	for _, rec := range records {
		handle := transport.Handle(g.nextHandle.Inc())
		var err error
		if rec.Loaded {
			err = g.router.LoadLinkAddress(handle, rec.LinkID, rec.Address)
		} else {
			err = g.router.CreateLinkFromAddress(handle, rec.LinkID, rec.Address)
		}
		if err != nil {
			g.log.Error("cannot restore link", "link", rec.LinkID, "err", err)
		}
	}

	g.log.Info("restored links", "records", len(records), "links", g.router.Links().Size())
	return nil
}

// CreateLink registers a fresh link and returns its id and the serialized
// address to hand to a peer. An empty linkID gets a generated one.
func (g *Gateway) CreateLink(linkID string) (LinkInfo, error) {
	if linkID == "" {
		linkID = "link-" + uuid.NewString()
	}
	handle := transport.Handle(g.nextHandle.Inc())
	if err := g.router.CreateLink(handle, linkID); err != nil {
		return LinkInfo{}, err
	}
	return g.persistLink(linkID, false)
}

// LoadLink registers a link from a peer-supplied address. An empty linkID
// gets a generated one.
func (g *Gateway) LoadLink(linkID, address string) (LinkInfo, error) {
	if linkID == "" {
		linkID = "link-" + uuid.NewString()
	}
	handle := transport.Handle(g.nextHandle.Inc())
	if err := g.router.LoadLinkAddress(handle, linkID, address); err != nil {
		return LinkInfo{}, err
	}
	return g.persistLink(linkID, true)
}

func (g *Gateway) persistLink(linkID string, loaded bool) (LinkInfo, error) {
	props, err := g.router.LinkProperties(linkID)
	if err != nil {
		return LinkInfo{}, err
	}
	rec := store.LinkRecord{LinkID: linkID, Address: props.Address, Loaded: loaded}
	if err := g.book.SaveLink(rec); err != nil {
		g.log.Error("cannot persist link", "link", linkID, "err", err)
	}
	return LinkInfo{LinkID: linkID, Address: props.Address, Properties: props}, nil
}

// DestroyLink tears down a link and removes it from the address book.
func (g *Gateway) DestroyLink(linkID string) error {
	handle := transport.Handle(g.nextHandle.Inc())
	if err := g.router.DestroyLink(handle, linkID); err != nil {
		return err
	}
	if err := g.book.DeleteLink(linkID); err != nil {
		g.log.Error("cannot remove link from address book", "link", linkID, "err", err)
	}
	return nil
}

// ListLinks returns every registered link.
func (g *Gateway) ListLinks() []LinkInfo {
	snapshot := g.router.Links().Snapshot()
	infos := make([]LinkInfo, 0, len(snapshot))
	for id, link := range snapshot {
		props := link.Properties()
		infos = append(infos, LinkInfo{LinkID: id, Address: props.Address, Properties: props})
	}
	return infos
}

type actionRequest struct {
	LinkID      string `json:"linkId"`
	Type        string `json:"type"`
	ContentType string `json:"contentType,omitempty"`
}

func (g *Gateway) mintAction(linkID, actionType, contentType string) (transport.Action, error) {
	payload, err := json.Marshal(actionRequest{LinkID: linkID, Type: actionType, ContentType: contentType})
	if err != nil {
		return transport.Action{}, fmt.Errorf("building action: %w", err)
	}
	return transport.Action{ID: g.nextAction.Inc(), Payload: string(payload)}, nil
}

// SendMessage posts text, an image, or both over the given link by driving a
// full action cycle: derive the encoding requirements, stage the matching
// content, commit. The returned handle tracks the send outcome, observable
// through PackageStatus.
func (g *Gateway) SendMessage(linkID string, text, image []byte) (transport.Handle, error) {
	var contentType string
	switch {
	case len(text) > 0 && len(image) > 0:
		contentType = "mixed"
	case len(image) > 0:
		contentType = "image"
	case len(text) > 0:
		contentType = "text"
	default:
		return 0, fmt.Errorf("message has no content")
	}

	action, err := g.mintAction(linkID, "post", contentType)
	if err != nil {
		return 0, err
	}

	params := g.router.ActionParams(action)
	if len(params) == 0 {
		return 0, fmt.Errorf("action %d: no encoding parameters", action.ID)
	}

	for _, p := range params {
		content := text
		if p.Type == transport.MimeImage {
			content = image
		}
		if err := g.router.StageContent(p, action, content); err != nil {
			// Discard whatever was staged before the failure.
			if uerr := g.router.UnstageContent(action); uerr != nil {
				g.log.Error("cannot unstage after failure", "action", action.ID, "err", uerr)
			}
			return 0, err
		}
	}

	handle := transport.Handle(g.nextHandle.Inc())
	if err := g.router.Execute([]transport.Handle{handle}, action); err != nil {
		return handle, err
	}
	return handle, nil
}

// Fetch retrieves new content from one link, or from every link when linkID
// is empty. Retrieved fragments land in the inbox.
func (g *Gateway) Fetch(linkID string) error {
	if linkID == "" {
		linkID = transport.WildcardLinkID
	}
	action, err := g.mintAction(linkID, "fetch", "")
	if err != nil {
		return err
	}
	return g.router.Execute(nil, action)
}

// DrainInbox returns the buffered received fragments and clears the buffer.
func (g *Gateway) DrainInbox() []InboxMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.inbox
	g.inbox = nil
	return out
}

// PackageStatus reports the recorded outcome for a send handle.
func (g *Gateway) PackageStatus(handle transport.Handle) (transport.PackageStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.packages[handle]
	return status, ok
}

// Status summarizes the gateway's current state.
func (g *Gateway) Status() Status {
	state := transport.StateStarted
	if g.failed.Load() {
		state = transport.StateFailed
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		State:     state,
		Links:     g.router.Links().Size(),
		InboxSize: len(g.inbox),
		Sent:      g.sent,
		Failed:    g.sendFail,
	}
}

// OnPackageStatusChanged implements transport.Events.
func (g *Gateway) OnPackageStatusChanged(handle transport.Handle, status transport.PackageStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.packages[handle] = status
	if status == transport.PackageSent {
		g.sent++
	} else {
		g.sendFail++
	}
}

// OnReceive implements transport.Events.
func (g *Gateway) OnReceive(linkID string, params transport.EncodingParameters, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox = append(g.inbox, InboxMessage{
		LinkID:      linkID,
		ContentType: params.Type,
		Data:        data,
		ReceivedAt:  time.Now(),
	})
}

// OnLinkStatusChanged implements transport.Events.
func (g *Gateway) OnLinkStatusChanged(handle transport.Handle, linkID string, status transport.LinkStatus) {
	g.log.Info("link status changed", "link", linkID, "status", status, "handle", uint64(handle))
}

// OnStateChanged implements transport.Events. A failed state latches until
// restart; the control plane reports it so operators notice.
func (g *Gateway) OnStateChanged(state transport.State) {
	if state == transport.StateFailed {
		g.failed.Store(true)
		g.log.Error("transport entered failed state")
	}
}

package transport

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// RouterConfig carries the deployment parameters of a Router.
type RouterConfig struct {
	// HashtagPrefix is prepended to the sequence number when generating
	// fresh link addresses.
	HashtagPrefix string

	// MaxLinks caps the number of simultaneously registered links.
	// Zero means unlimited.
	MaxLinks int

	// LinkSide is the role this instance plays in link exchanges. Creating
	// a fresh link requires the creator side; loading a peer's address
	// requires the loader side. LinkSideBoth allows either.
	LinkSide LinkSide
}

// TransportProperties describes the actions this transport supports and the
// MIME types each accepts from encoders.
type TransportProperties struct {
	SupportedActions map[string][]string `json:"supportedActions"`
}

// Router is the scheduler-facing orchestrator. It owns the link lifecycle,
// maps each action to the link it targets (resolving wildcard targets), and
// drives the stage → execute/unstage action machinery.
//
// A Router performs no internal multithreading: every method runs to
// completion on the calling goroutine, including the blocking network calls
// made while executing post and fetch actions. Callers may invoke methods
// from multiple goroutines as long as they never issue concurrent
// stage/execute/unstage calls for the same action id; that discipline is
// assumed, not enforced.
type Router struct {
	cfg    RouterConfig
	links  *Registry
	poster PostingService
	events Events
	log    *slog.Logger

	mu sync.Mutex
	// actionLinks binds a staged action to its concrete target link so a
	// later wildcard post can resolve it. An entry exists iff a post
	// action has staged content pending execution; it is consumed exactly
	// once, on execute or unstage.
	actionLinks map[uint64]string
	// actionKinds remembers the MIME type most recently staged per action,
	// for diagnostics and cleanup symmetry with actionLinks.
	actionKinds map[uint64]string
	nextTag     uint64
}

// NewRouter creates a Router operating on the given registry. The registry
// is passed in rather than created internally so tests and hosts can
// construct isolated instances.
func NewRouter(cfg RouterConfig, links *Registry, poster PostingService, events Events, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		cfg:         cfg,
		links:       links,
		poster:      poster,
		events:      events,
		log:         log,
		actionLinks: make(map[uint64]string),
		actionKinds: make(map[uint64]string),
	}
}

// Links returns the registry this router operates on.
func (rt *Router) Links() *Registry { return rt.links }

// Properties returns the action surface this transport supports: post
// accepts any encoder output, fetch takes no outbound content.
func (rt *Router) Properties() TransportProperties {
	return TransportProperties{
		SupportedActions: map[string][]string{
			"post":  {"*/*"},
			"fetch": {},
		},
	}
}

// LinkProperties returns the properties of a registered link.
func (rt *Router) LinkProperties(linkID string) (Properties, error) {
	link, err := rt.links.Get(linkID)
	if err != nil {
		return Properties{}, err
	}
	return link.Properties(), nil
}

// preLinkCreate validates that a new link may be created. invalidSide is the
// role under which this particular call is not allowed (a loader cannot
// originate addresses, a creator cannot load them). On refusal the link is
// reported destroyed so the scheduler is never left with an ambiguous
// pending link.
func (rt *Router) preLinkCreate(handle Handle, linkID string, invalidSide LinkSide) bool {
	if rt.cfg.MaxLinks > 0 && rt.links.Size() >= rt.cfg.MaxLinks {
		rt.log.Error("too many links", "links", rt.links.Size(), "maxLinks", rt.cfg.MaxLinks)
		rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
		return false
	}
	if rt.cfg.LinkSide == LinkSideUndef || rt.cfg.LinkSide == invalidSide {
		rt.log.Error("invalid role for link call", "linkSide", rt.cfg.LinkSide.String())
		rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
		return false
	}
	return true
}

func (rt *Router) postLinkCreate(handle Handle, link *Link, status LinkStatus) error {
	link.Start()
	rt.links.Add(link)
	rt.events.OnLinkStatusChanged(handle, link.ID(), status)
	return nil
}

func (rt *Router) newLink(linkID string, addr LinkAddress) *Link {
	props := Properties{LinkType: "bidi", Reliable: false}
	return NewLink(linkID, addr, props, rt.poster, rt.events, rt.log)
}

// CreateLink generates a fresh address and registers a link bound to it. The
// serialized address is available from the link's properties for delivery to
// a peer.
func (rt *Router) CreateLink(handle Handle, linkID string) error {
	if !rt.preLinkCreate(handle, linkID, LinkSideLoader) {
		return fmt.Errorf("link %q: creation refused", linkID)
	}

	rt.mu.Lock()
	seq := rt.nextTag
	rt.nextTag++
	rt.mu.Unlock()

	addr := GenerateLinkAddress(rt.cfg.HashtagPrefix, seq)
	rt.log.Debug("generated link address", "hashtag", addr.Hashtag, "timestamp", addr.Timestamp)

	return rt.postLinkCreate(handle, rt.newLink(linkID, addr), LinkCreated)
}

// LoadLinkAddress registers a link bound to an address generated by a peer.
func (rt *Router) LoadLinkAddress(handle Handle, linkID, address string) error {
	if !rt.preLinkCreate(handle, linkID, LinkSideCreator) {
		return fmt.Errorf("link %q: load refused", linkID)
	}

	addr, err := ParseLinkAddress(address)
	if err != nil {
		rt.log.Error("cannot parse link address", "link", linkID, "err", err)
		rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
		return err
	}
	rt.log.Debug("parsed link address", "hashtag", addr.Hashtag, "maxTries", addr.MaxTries)

	return rt.postLinkCreate(handle, rt.newLink(linkID, addr), LinkLoaded)
}

// LoadLinkAddresses is unsupported: this transport has no multi-address
// links. The link is reported destroyed.
func (rt *Router) LoadLinkAddresses(handle Handle, linkID string, addresses []string) error {
	rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
	return fmt.Errorf("multi-address loading: %w", ErrUnsupported)
}

// CreateLinkFromAddress registers a link bound to a concrete address chosen
// by this side, rather than a generated one.
func (rt *Router) CreateLinkFromAddress(handle Handle, linkID, address string) error {
	if !rt.preLinkCreate(handle, linkID, LinkSideLoader) {
		return fmt.Errorf("link %q: creation refused", linkID)
	}

	addr, err := ParseLinkAddress(address)
	if err != nil {
		rt.log.Error("cannot parse link address", "link", linkID, "err", err)
		rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
		return err
	}

	return rt.postLinkCreate(handle, rt.newLink(linkID, addr), LinkCreated)
}

// DestroyLink removes the link and discards everything staged on it. No
// partial commit happens on teardown.
func (rt *Router) DestroyLink(handle Handle, linkID string) error {
	link := rt.links.Remove(linkID)
	if link == nil {
		rt.log.Error("cannot destroy unknown link", "link", linkID)
		return fmt.Errorf("destroying link %q: %w", linkID, ErrLinkNotFound)
	}
	link.Shutdown()
	rt.events.OnLinkStatusChanged(handle, linkID, LinkDestroyed)
	return nil
}

// ActionParams derives the encoding requirements for an action. A fetch
// needs no outbound content and yields none. A post yields one text
// requirement by default, one image requirement when the action is marked as
// image content, and a text-then-image pair when marked mixed — that order
// is load-bearing: it matches the order Fetch forwards fragments, so
// two-fragment reconstruction lines up positionally on the remote side.
//
// A malformed or empty payload is unrecoverable at this stage of the
// pipeline: it is logged, the component transitions to StateFailed, and no
// requirements are returned.
func (rt *Router) ActionParams(action Action) []EncodingParameters {
	payload, err := parseActionPayload(action)
	if err != nil {
		rt.log.Error("invalid action payload", "action", action.ID, "err", err)
		rt.events.OnStateChanged(StateFailed)
		return nil
	}

	if payload.Type == ActionFetch {
		return nil
	}

	if payload.mixed() {
		rt.log.Debug("deriving mixed encoding parameters", "action", action.ID)
		return []EncodingParameters{
			{LinkID: payload.LinkID, Type: MimeText, CanCarryPayload: true},  // fragment 0
			{LinkID: payload.LinkID, Type: MimeImage, CanCarryPayload: true}, // fragment 1
		}
	}

	mime := payload.mimeType()
	rt.log.Debug("deriving encoding parameters", "action", action.ID, "contentType", mime)
	return []EncodingParameters{{LinkID: payload.LinkID, Type: mime, CanCarryPayload: true}}
}

// StageContent records encoded bytes for a post action ahead of execution.
// Empty content is a no-op success: there is nothing to stage. The action's
// binding to its concrete target link is recorded so a later wildcard post
// can resolve it.
func (rt *Router) StageContent(params EncodingParameters, action Action, content []byte) error {
	if len(content) == 0 {
		rt.log.Debug("skipping empty content", "action", action.ID)
		return nil
	}

	payload, err := parseActionPayload(action)
	if err != nil {
		rt.log.Error("invalid action payload", "action", action.ID, "err", err)
		return err
	}

	if payload.Type == ActionFetch {
		// Nothing to stage for a fetch.
		return nil
	}

	link, err := rt.links.Get(params.LinkID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	rt.actionLinks[action.ID] = params.LinkID
	rt.actionKinds[action.ID] = params.Type
	rt.mu.Unlock()

	return link.Stage(action.ID, content, params.Type)
}

// UnstageContent discards whatever was staged for an abandoned action. The
// action's declared target may be the wildcard, in which case the recorded
// binding resolves it; a wildcard action that never staged anything is a
// no-op. Repeated unstage calls for the same action are safe.
func (rt *Router) UnstageContent(action Action) error {
	payload, err := parseActionPayload(action)
	if err != nil {
		rt.log.Error("invalid action payload", "action", action.ID, "err", err)
		return err
	}

	rt.mu.Lock()
	linkID := payload.LinkID
	if linkID == WildcardLinkID {
		bound, ok := rt.actionLinks[action.ID]
		if !ok {
			// Nothing was staged under this action; nothing to discard.
			rt.mu.Unlock()
			return nil
		}
		linkID = bound
	}
	delete(rt.actionLinks, action.ID)
	delete(rt.actionKinds, action.ID)
	rt.mu.Unlock()

	if payload.Type != ActionPost {
		// No content is ever staged for other action kinds.
		return nil
	}

	link, err := rt.links.Get(linkID)
	if err != nil {
		return err
	}
	link.Unstage(action.ID)
	return nil
}

// Execute performs an action. For a post the staged content is committed to
// the target link and every handle is reported SENT or FAILED. For a fetch
// the target link (or, for a wildcard, every registered link) is queried and
// retrieved fragments are forwarded through OnReceive.
//
// Wildcard fetch fan-out is resilient: a fatal result from any link aborts
// immediately, but a non-fatal failure is recorded and iteration continues
// over the remaining links. The aggregate result is the last non-OK status
// seen.
func (rt *Router) Execute(handles []Handle, action Action) error {
	payload, err := parseActionPayload(action)
	if err != nil {
		rt.log.Error("invalid action payload", "action", action.ID, "err", err)
		return err
	}

	switch payload.Type {
	case ActionFetch:
		// A fetch never stages content, but clear any stray entries so the
		// binding invariant holds.
		rt.clearBindings(action.ID)

		if payload.LinkID == WildcardLinkID {
			return rt.fetchAll()
		}
		link, err := rt.links.Get(payload.LinkID)
		if err != nil {
			return err
		}
		return link.Fetch()

	case ActionPost:
		linkID := payload.LinkID
		if linkID == WildcardLinkID {
			rt.mu.Lock()
			bound, ok := rt.actionLinks[action.ID]
			rt.mu.Unlock()
			if !ok {
				rt.log.Info("skipping wildcard post with no staged content", "action", action.ID)
				rt.clearBindings(action.ID)
				return nil
			}
			linkID = bound
		}
		rt.clearBindings(action.ID)

		link, err := rt.links.Get(linkID)
		if err != nil {
			return err
		}
		return link.Post(handles, action.ID)
	}

	return fmt.Errorf("unrecognized action type %q", payload.Type)
}

// fetchAll fetches from every registered link in a stable order, operating
// on a snapshot so the registry lock is not held across network calls.
func (rt *Router) fetchAll() error {
	snapshot := rt.links.Snapshot()
	rt.log.Info("fetching from all links", "links", len(snapshot))

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var lastErr error
	for _, id := range ids {
		rt.log.Debug("fetching from link", "link", id)
		if err := snapshot[id].Fetch(); err != nil {
			if IsFatal(err) {
				return err
			}
			// Not fatal: remember the failure but keep trying the rest.
			lastErr = err
		}
	}
	return lastErr
}

func (rt *Router) clearBindings(actionID uint64) {
	rt.mu.Lock()
	delete(rt.actionLinks, actionID)
	delete(rt.actionKinds, actionID)
	rt.mu.Unlock()
}

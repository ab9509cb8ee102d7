// Package transport implements a covert message transport that piggybacks on
// a public social-media posting/search API. Participants exchange opaque byte
// payloads by posting them (as status text or image attachments) tagged with a
// shared hashtag, and retrieve them by searching for that hashtag.
//
// The package is organized around four pieces:
//
//   - Link: one logical bidirectional channel bound to a unique hashtag. A
//     link stages outbound content per action, commits it as a post, and
//     fetches tagged statuses back, forwarding them to the caller.
//   - Registry: the concurrent collection of active links.
//   - Router: the orchestrator driven by an external scheduler. It maps
//     scheduler actions to links, derives encoding parameters, stages and
//     unstages content, and executes post/fetch actions (including wildcard
//     targets that fan out across all links).
//   - PostingService: the remote API capability (post text, post image,
//     search by hashtag) implemented by the mastodon package.
//
// # Scheduling contract
//
// Each unit of work is an Action identified by an opaque 64-bit id supplied
// by the external scheduler. The scheduler first asks for encoding
// parameters, then stages encoded bytes (possibly in multiple steps for
// mixed text+image posts), and finally either executes the action or
// unstages it. The Router never generates action ids, only associates state
// with them.
//
// # Ordering
//
// For mixed posts the text fragment is always fragment 0 and the image
// fragment is always fragment 1: ActionParams returns the text requirement
// before the image requirement, and Fetch forwards all text results before
// all image results. Receivers rely on this positional agreement to
// reassemble two-fragment messages.
//
// # Concurrency
//
// No operation here spawns goroutines; every call runs to completion on the
// calling goroutine, including the blocking remote call made by Post and
// Fetch. The Registry is guarded by a single mutex held only for map
// operations, never across a network call. Each link's staging table is
// touched only by calls routed to that link id; the scheduler must not issue
// concurrent stage/post/unstage calls for the same action id.
package transport

package transport

import (
	"encoding/json"
	"fmt"
)

// WildcardLinkID is the action target meaning "whichever link applies". For a
// fetch it fans out across every registered link; for a post it resolves to
// the link the action's content was staged against.
const WildcardLinkID = "*"

// ActionType distinguishes the two kinds of scheduled work.
type ActionType string

const (
	ActionPost  ActionType = "post"
	ActionFetch ActionType = "fetch"
)

// Action is one unit of scheduled work issued by the external scheduler. ID
// is opaque and unique per action; Payload is the scheduler-supplied JSON
// describing the action.
type Action struct {
	ID      uint64
	Payload string
}

// actionPayload is the parsed form of the action JSON:
//
//	{"linkId": "...", "type": "post"|"fetch", "contentType": "text"|"image"|"mixed"}
//
// contentType is optional and defaults to text. It is validated once here at
// the boundary; the rest of the package only sees the typed struct.
type actionPayload struct {
	LinkID      string     `json:"linkId"`
	Type        ActionType `json:"type"`
	ContentType string     `json:"contentType,omitempty"`
}

func parseActionPayload(action Action) (actionPayload, error) {
	var payload actionPayload
	if action.Payload == "" {
		return payload, fmt.Errorf("empty action payload")
	}
	if err := json.Unmarshal([]byte(action.Payload), &payload); err != nil {
		return payload, fmt.Errorf("parsing action payload: %w", err)
	}
	if payload.LinkID == "" {
		return payload, fmt.Errorf("action payload has no linkId")
	}
	switch payload.Type {
	case ActionPost, ActionFetch:
	default:
		return payload, fmt.Errorf("unrecognized action type %q", payload.Type)
	}
	return payload, nil
}

// mixed reports whether the action explicitly requests a combined text+image
// post.
func (p actionPayload) mixed() bool {
	return p.ContentType == "mixed" || p.ContentType == "text+image"
}

// mimeType maps the payload's content type hint to the MIME type an encoder
// must produce. Unknown hints fall back to text.
func (p actionPayload) mimeType() string {
	switch p.ContentType {
	case "image", "jpg", "jpeg":
		return MimeImage
	default:
		return MimeText
	}
}

package transport

import (
	"encoding/json"
	"fmt"
	"time"
)

// LinkAddress identifies a logical channel by its unique hashtag. Addresses
// are exchanged out of band as JSON blobs; both ends of a link must hold the
// same hashtag for posted content to be retrievable.
//
// MaxTries and Timestamp are carried for future retry/expiry policies but are
// not enforced by the transport today.
type LinkAddress struct {
	Hashtag   string  `json:"hashtag"`
	MaxTries  int     `json:"maxTries"`
	Timestamp float64 `json:"timestamp"`
}

// ParseLinkAddress decodes a serialized link address.
func ParseLinkAddress(raw string) (LinkAddress, error) {
	var addr LinkAddress
	if raw == "" {
		return addr, fmt.Errorf("empty link address")
	}
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return addr, fmt.Errorf("parsing link address: %w", err)
	}
	if addr.Hashtag == "" {
		return addr, fmt.Errorf("link address has no hashtag")
	}
	return addr, nil
}

// String returns the canonical JSON form of the address.
func (a LinkAddress) String() string {
	out, _ := json.Marshal(a)
	return string(out)
}

// Tag returns the hashtag with its leading '#', as used on the wire.
func (a LinkAddress) Tag() string {
	return "#" + a.Hashtag
}

// GenerateLinkAddress mints a fresh address from a tag prefix and a sequence
// number, stamped with the current time.
func GenerateLinkAddress(prefix string, seq uint64) LinkAddress {
	return LinkAddress{
		Hashtag:   fmt.Sprintf("%s%d", prefix, seq),
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

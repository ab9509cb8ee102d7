// Package store persists the link address book so a restarted gateway can
// reload the links it created or was given.
package store

// LinkRecord is one persisted link: its identifier, the serialized address it
// is bound to, and whether this side created or loaded the address.
type LinkRecord struct {
	LinkID  string `json:"linkId"`
	Address string `json:"address"`
	Loaded  bool   `json:"loaded"`
}

// AddressBook is the persistence interface for link records.
type AddressBook interface {
	SaveLink(record LinkRecord) error
	DeleteLink(linkID string) error
	LoadAll() ([]LinkRecord, error)
	Close() error
}

// Package ap speaks the Archipelago network protocol. The rest of the
// bridge depends only on the Session interface, so tests run against a
// fake and the wire client stays swappable.
package ap

// NetworkItem is one remote-granted item as delivered by the server.
type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

// LoginOptions carries everything needed to join a multiworld slot.
type LoginOptions struct {
	// Address is a normalized host:port (see NormalizeServerAddress).
	Address  string
	Game     string
	Slot     string
	Password string
}

// Session is the minimal capability surface the bridge needs from a
// connected Archipelago session.
type Session interface {
	// SeedName returns the room's world-seed identifier.
	SeedName() string

	// SlotData returns the loosely-typed option bag for this slot.
	SlotData() map[string]any

	// AllItemsReceived returns the authoritative, append-only list of
	// every item the server has granted this slot, in delivery order.
	AllItemsReceived() []NetworkItem

	// SetItemHandler registers the callback fired once per newly
	// delivered item, together with the item's absolute position in the
	// received list. Items already in the list when the handler is set
	// do not fire; the backlog replayer covers those.
	SetItemHandler(fn func(index int, item NetworkItem))

	// CompleteLocationChecks reports locations as checked.
	CompleteLocationChecks(ids ...int64) error

	// Close tears down the connection.
	Close() error
}

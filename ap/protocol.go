package ap

import "encoding/json"

// Archipelago exchanges JSON arrays of command objects over a websocket.
// Only the commands the bridge needs are modeled; everything else is
// skipped by command name.

const (
	cmdRoomInfo          = "RoomInfo"
	cmdConnect           = "Connect"
	cmdConnected         = "Connected"
	cmdConnectionRefused = "ConnectionRefused"
	cmdReceivedItems     = "ReceivedItems"
	cmdLocationChecks    = "LocationChecks"
	cmdSync              = "Sync"
)

// itemsHandlingAll asks the server to send every item: remote, own-world
// and starting inventory (0b111).
const itemsHandlingAll = 7

type baseMsg struct {
	Cmd string `json:"cmd"`
}

type roomInfoMsg struct {
	Cmd      string `json:"cmd"`
	SeedName string `json:"seed_name"`
}

type versionMsg struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

type connectMsg struct {
	Cmd           string     `json:"cmd"`
	Game          string     `json:"game"`
	Name          string     `json:"name"`
	Password      string     `json:"password"`
	UUID          string     `json:"uuid"`
	Version       versionMsg `json:"version"`
	ItemsHandling int        `json:"items_handling"`
	Tags          []string   `json:"tags"`
	SlotData      bool       `json:"slot_data"`
}

type connectedMsg struct {
	Cmd      string         `json:"cmd"`
	Team     int            `json:"team"`
	Slot     int            `json:"slot"`
	SlotData map[string]any `json:"slot_data"`
}

type connectionRefusedMsg struct {
	Cmd    string   `json:"cmd"`
	Errors []string `json:"errors"`
}

type receivedItemsMsg struct {
	Cmd   string        `json:"cmd"`
	Index int           `json:"index"`
	Items []NetworkItem `json:"items"`
}

type locationChecksMsg struct {
	Cmd       string  `json:"cmd"`
	Locations []int64 `json:"locations"`
}

// splitCommands decodes one websocket frame into its raw command objects.
func splitCommands(frame []byte) ([]json.RawMessage, error) {
	var cmds []json.RawMessage
	if err := json.Unmarshal(frame, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

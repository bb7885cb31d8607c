package archipelago

import "encoding/json"

// Wire command names used by the randomizer server. Every packet is a JSON
// object with a "cmd" discriminator, and the socket carries arrays of them.
const (
	cmdRoomInfo          = "RoomInfo"
	cmdConnect           = "Connect"
	cmdConnected         = "Connected"
	cmdConnectionRefused = "ConnectionRefused"
	cmdReceivedItems     = "ReceivedItems"
	cmdRoomUpdate        = "RoomUpdate"
	cmdPrintJSON         = "PrintJSON"
	cmdDataPackage       = "DataPackage"
	cmdGetDataPackage    = "GetDataPackage"
	cmdLocationChecks    = "LocationChecks"
	cmdLocationScouts    = "LocationScouts"
	cmdStatusUpdate      = "StatusUpdate"
	cmdSet               = "Set"
	cmdSetReply          = "SetReply"
	cmdGet               = "Get"
	cmdRetrieved         = "Retrieved"
	cmdBounce            = "Bounce"
	cmdBounced           = "Bounced"
	cmdInvalidPacket     = "InvalidPacket"
)

// GameName is the slot game this client plays.
const GameName = "Devil May Cry 3"

// ClientStatus values for StatusUpdate.
type ClientStatus int

const (
	StatusUnknown ClientStatus = 0
	StatusReady   ClientStatus = 10
	StatusPlaying ClientStatus = 20
	StatusGoal    ClientStatus = 30
)

type versionWire struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

type roomInfoPacket struct {
	Cmd              string            `json:"cmd"`
	Version          versionWire       `json:"version"`
	Games            []string          `json:"games"`
	DataPackageSums  map[string]string `json:"datapackage_checksums"`
	SeedName         string            `json:"seed_name"`
	Password         bool              `json:"password"`
	HintCostPercent  int               `json:"hint_cost"`
	LocationCheckPts int               `json:"location_check_points"`
}

type connectPacket struct {
	Cmd           string      `json:"cmd"`
	Game          string      `json:"game"`
	Name          string      `json:"name"`
	Password      string      `json:"password"`
	UUID          string      `json:"uuid"`
	Version       versionWire `json:"version"`
	ItemsHandling int         `json:"items_handling"`
	Tags          []string    `json:"tags"`
	SlotData      bool        `json:"slot_data"`
}

type netSlot struct {
	Name  string `json:"name"`
	Game  string `json:"game"`
	Type  int    `json:"type"`
	Group []int  `json:"group_members"`
}

type connectedPacket struct {
	Cmd              string             `json:"cmd"`
	Team             int                `json:"team"`
	Slot             int                `json:"slot"`
	Players          []netPlayer        `json:"players"`
	MissingLocations []int64            `json:"missing_locations"`
	CheckedLocations []int64            `json:"checked_locations"`
	SlotData         json.RawMessage    `json:"slot_data"`
	SlotInfo         map[string]netSlot `json:"slot_info"`
}

type netPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

type connectionRefusedPacket struct {
	Cmd    string   `json:"cmd"`
	Errors []string `json:"errors"`
}

// NetworkItem is one granted item as carried by ReceivedItems.
type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

type receivedItemsPacket struct {
	Cmd   string        `json:"cmd"`
	Index int64         `json:"index"`
	Items []NetworkItem `json:"items"`
}

type roomUpdatePacket struct {
	Cmd              string  `json:"cmd"`
	CheckedLocations []int64 `json:"checked_locations"`
}

type printJSONPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type printJSONPacket struct {
	Cmd  string          `json:"cmd"`
	Data []printJSONPart `json:"data"`
	Type string          `json:"type"`
}

type dataPackagePacket struct {
	Cmd  string `json:"cmd"`
	Data struct {
		Games map[string]GameData `json:"games"`
	} `json:"data"`
}

type getDataPackagePacket struct {
	Cmd   string   `json:"cmd"`
	Games []string `json:"games"`
}

type locationChecksPacket struct {
	Cmd       string  `json:"cmd"`
	Locations []int64 `json:"locations"`
}

type statusUpdatePacket struct {
	Cmd    string       `json:"cmd"`
	Status ClientStatus `json:"status"`
}

// DataOp is one operation of a Set packet.
type DataOp struct {
	Operation string `json:"operation"`
	Value     any    `json:"value"`
}

type setPacket struct {
	Cmd       string   `json:"cmd"`
	Key       string   `json:"key"`
	Default   any      `json:"default"`
	WantReply bool     `json:"want_reply"`
	Ops       []DataOp `json:"operations"`
}

type setReplyPacket struct {
	Cmd           string          `json:"cmd"`
	Key           string          `json:"key"`
	Value         json.RawMessage `json:"value"`
	OriginalValue json.RawMessage `json:"original_value"`
}

type getPacket struct {
	Cmd  string   `json:"cmd"`
	Keys []string `json:"keys"`
}

type retrievedPacket struct {
	Cmd  string                     `json:"cmd"`
	Keys map[string]json.RawMessage `json:"keys"`
}

type bouncePacket struct {
	Cmd   string         `json:"cmd"`
	Games []string       `json:"games"`
	Slots []int          `json:"slots"`
	Tags  []string       `json:"tags"`
	Data  map[string]any `json:"data"`
}

type bouncedPacket struct {
	Cmd  string          `json:"cmd"`
	Tags []string        `json:"tags"`
	Data json.RawMessage `json:"data"`
}

type deathLinkData struct {
	Time   float64 `json:"time"`
	Cause  string  `json:"cause"`
	Source string  `json:"source"`
}

type cmdProbe struct {
	Cmd string `json:"cmd"`
}

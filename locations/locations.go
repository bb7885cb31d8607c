// Package locations is the static catalogue of every randomizable
// location and the reverse mapping from observed pickups to location
// keys. The catalogue ships embedded and is schema-checked at load.
package locations

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"dmc3rando/items"
)

//go:embed locations.json
var rawCatalog []byte

//go:embed locations.schema.json
var rawSchema []byte

// ErrNotFound means no catalogue entry matches the pickup.
var ErrNotFound = errors.New("location not found")

// EventKind classifies a byte in the event-script table.
type EventKind string

const (
	EventGive  EventKind = "give"
	EventCheck EventKind = "check"
	EventEnd   EventKind = "end"
)

// EventRef is one event-table byte belonging to a location.
type EventRef struct {
	Kind   EventKind `json:"kind"`
	Offset uint32    `json:"offset"`
}

type Coordinates struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Entry is one randomizable location. Immutable after load.
type Entry struct {
	Key           string       `json:"key"`
	Mission       uint8        `json:"mission"`
	Room          uint16       `json:"room"`
	DefaultItemID uint8        `json:"default_item_id"`
	Adjudicator   bool         `json:"adjudicator,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	EventOffsets  []EventRef   `json:"event_offsets,omitempty"`

	// TableOffset is the entry's slot in the item-spawn table,
	// relative to the randomized region. Zero for event-only entries.
	TableOffset uint32 `json:"table_offset,omitempty"`
}

// Kind tags a pickup observation.
type Kind uint8

const (
	Standard Kind = iota
	MissionComplete
	SSRank
	PurchaseItem
)

// Location is a pickup observation flowing through the check pipeline.
type Location struct {
	Type    Kind
	ItemID  uint8
	Room    uint16
	Mission uint8
	Coord   Coordinates
}

// Catalog holds the entries plus the reverse indices.
type Catalog struct {
	entries   []Entry
	byKey     map[string]*Entry
	byRoom    map[uint16][]*Entry
	byMission map[uint8][]*Entry
}

// Load parses and validates the embedded catalogue.
func Load() (*Catalog, error) {
	sch, err := jsonschema.CompileString("locations.schema.json", string(rawSchema))
	if err != nil {
		return nil, fmt.Errorf("locations schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(rawCatalog, &doc); err != nil {
		return nil, fmt.Errorf("locations.json: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("locations.json: %w", err)
	}

	var entries []Entry
	dec := json.NewDecoder(bytes.NewReader(rawCatalog))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("locations.json: %w", err)
	}
	return New(entries)
}

// New builds a catalogue from entries, enforcing the invariants the
// schema cannot express: unique keys, missions in [1,20].
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries:   entries,
		byKey:     make(map[string]*Entry, len(entries)),
		byRoom:    make(map[uint16][]*Entry),
		byMission: make(map[uint8][]*Entry),
	}
	for i := range c.entries {
		e := &c.entries[i]
		if e.Mission < 1 || e.Mission > 20 {
			return nil, fmt.Errorf("location %q: mission %d out of range", e.Key, e.Mission)
		}
		if _, dup := c.byKey[e.Key]; dup {
			return nil, fmt.Errorf("location %q: duplicate key", e.Key)
		}
		c.byKey[e.Key] = e
		c.byRoom[e.Room] = append(c.byRoom[e.Room], e)
		c.byMission[e.Mission] = append(c.byMission[e.Mission], e)
	}
	return c, nil
}

func (c *Catalog) All() []Entry { return c.entries }

func (c *Catalog) ByKey(key string) (*Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

func (c *Catalog) ByRoom(room uint16) []*Entry { return c.byRoom[room] }

func (c *Catalog) ByMission(mission uint8) []*Entry { return c.byMission[mission] }

// Synthesized keys for non-standard pickups.
func MissionCompleteKey(mission uint8) string { return fmt.Sprintf("Mission #%d Complete", mission) }
func SSRankKey(mission uint8) string          { return fmt.Sprintf("Mission #%d SS Rank", mission) }
func BlueOrbKey(n int) string                 { return fmt.Sprintf("Blue Orb #%d", n) }
func PurpleOrbKey(n int) string               { return fmt.Sprintf("Purple Orb #%d", n) }

// Classify maps a pickup observation to its location key. nextBlue and
// nextPurple are the 1-based ordinals for purchase pickups. Standard
// pickups match by room, then exact coordinates (when the entry has
// them), then item id; remote and dummy placeholders match any entry
// that survives the first two filters.
func (c *Catalog) Classify(loc Location, nextBlue, nextPurple int) (string, error) {
	switch loc.Type {
	case MissionComplete:
		return MissionCompleteKey(loc.Mission), nil
	case SSRank:
		return SSRankKey(loc.Mission), nil
	case PurchaseItem:
		switch loc.ItemID {
		case items.BlueOrbFragment:
			return BlueOrbKey(nextBlue), nil
		case items.PurpleOrb:
			return PurpleOrbKey(nextPurple), nil
		}
		return "", fmt.Errorf("purchase of item 0x%02X: %w", loc.ItemID, ErrNotFound)
	}

	for _, e := range c.Candidates(loc) {
		if e.DefaultItemID == loc.ItemID || loc.ItemID == items.Remote || loc.ItemID == items.Dummy {
			return e.Key, nil
		}
	}
	return "", fmt.Errorf("room %d item 0x%02X: %w", loc.Room, loc.ItemID, ErrNotFound)
}

// Candidates returns the entries surviving the room and coordinate
// filters for a standard pickup, in catalogue order. Callers holding a
// seed mapping use it to match by the stamped item id when the default
// id does not.
func (c *Catalog) Candidates(loc Location) []*Entry {
	var out []*Entry
	for _, e := range c.byRoom[loc.Room] {
		if e.Coordinates != nil {
			co := *e.Coordinates
			if co.X != loc.Coord.X || co.Y != loc.Coord.Y || co.Z != loc.Coord.Z {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

package archipelago

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadSlotData reports slot data the server sent that this client
// cannot interpret. Connecting with it would desync the whole session,
// so the connect is abandoned instead.
var ErrBadSlotData = errors.New("archipelago: bad slot data")

// GoalKind selects the completion condition the seed was generated with.
type GoalKind int

const (
	GoalStandard GoalKind = iota
	GoalAll
	GoalRandomOrder
)

// DeathLinkMode selects what a received death broadcast does locally.
type DeathLinkMode int

const (
	DeathLinkOff DeathLinkMode = iota
	DeathLinkDeath
	DeathLinkHurt
)

// MappedItem is what one catalogued location holds this session.
type MappedItem struct {
	ItemName  string
	Sender    string
	Receiver  string
	ForeignID int64
}

// Remote reports whether the item at this location belongs to another slot.
func (m MappedItem) Remote() bool { return m.Sender != m.Receiver }

// Mapping is the immutable per-session seed layout decoded from slot data.
type Mapping struct {
	Seed            string
	Slot            string
	Items           map[string]MappedItem
	StarterItems    []string
	MissionOrder    []uint8
	Goal            GoalKind
	DeathLink       DeathLinkMode
	RandomizeSkills bool
}

type slotDataWire struct {
	Goal            *int                        `json:"goal"`
	DeathLink       int                         `json:"death_link"`
	RandomizeSkills bool                        `json:"randomize_skills"`
	MissionOrder    []uint8                     `json:"mission_order"`
	StarterItems    []string                    `json:"starter_items"`
	Locations       map[string]slotLocationWire `json:"locations"`
}

type slotLocationWire struct {
	Item      string `json:"item"`
	Sender    int    `json:"sender"`
	Receiver  int    `json:"receiver"`
	ForeignID int64  `json:"foreign_id"`
}

// decodeSlotData builds the session Mapping from the Connected packet.
// Player slot numbers in the wire form are resolved to display names.
func decodeSlotData(seed, slotName string, raw json.RawMessage, players map[int]string) (Mapping, error) {
	if len(raw) == 0 {
		return Mapping{}, fmt.Errorf("%w: empty", ErrBadSlotData)
	}
	var w slotDataWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Mapping{}, fmt.Errorf("%w: %v", ErrBadSlotData, err)
	}
	if w.Goal == nil {
		return Mapping{}, fmt.Errorf("%w: missing goal", ErrBadSlotData)
	}
	if g := *w.Goal; g < int(GoalStandard) || g > int(GoalRandomOrder) {
		return Mapping{}, fmt.Errorf("%w: goal %d", ErrBadSlotData, g)
	}
	if w.DeathLink < int(DeathLinkOff) || w.DeathLink > int(DeathLinkHurt) {
		return Mapping{}, fmt.Errorf("%w: death_link %d", ErrBadSlotData, w.DeathLink)
	}
	if len(w.MissionOrder) != 0 && len(w.MissionOrder) != 20 {
		return Mapping{}, fmt.Errorf("%w: mission_order has %d entries", ErrBadSlotData, len(w.MissionOrder))
	}

	items := make(map[string]MappedItem, len(w.Locations))
	for key, loc := range w.Locations {
		if loc.Item == "" {
			return Mapping{}, fmt.Errorf("%w: location %q has no item", ErrBadSlotData, key)
		}
		items[key] = MappedItem{
			ItemName:  loc.Item,
			Sender:    playerName(players, loc.Sender),
			Receiver:  playerName(players, loc.Receiver),
			ForeignID: loc.ForeignID,
		}
	}

	return Mapping{
		Seed:            seed,
		Slot:            slotName,
		Items:           items,
		StarterItems:    append([]string(nil), w.StarterItems...),
		MissionOrder:    append([]uint8(nil), w.MissionOrder...),
		Goal:            GoalKind(*w.Goal),
		DeathLink:       DeathLinkMode(w.DeathLink),
		RandomizeSkills: w.RandomizeSkills,
	}, nil
}

func playerName(players map[int]string, slot int) string {
	if name, ok := players[slot]; ok {
		return name
	}
	return fmt.Sprintf("Player %d", slot)
}

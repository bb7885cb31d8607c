package rando

import (
	"dmc3rando/config"
	"dmc3rando/items"
)

// Data aggregates everything granted over the network this session.
// The grant pipeline rebuilds derived game state (max HP, expertise
// bits, gun levels) from it, so replaying the same item prefix after a
// resync lands on identical values.
type Data struct {
	BlueOrbs    int
	PurpleOrbs  int
	DTFragments int

	GunTokens   [config.GunSlots]int
	StyleTokens [config.StyleSlots]int

	Skills   map[uint8]struct{}
	KeyItems map[uint8]struct{}
	Weapons  map[uint8]struct{}

	// Lines holds a bitmask of lit ranks per progressive skill line,
	// keyed by the line's first item id. Bit i is the line's rank i.
	Lines map[uint8]uint8
}

func newData() Data {
	return Data{
		Skills:   map[uint8]struct{}{},
		KeyItems: map[uint8]struct{}{},
		Weapons:  map[uint8]struct{}{},
		Lines:    map[uint8]uint8{},
	}
}

// Reset drops every accumulated grant. Called when the server restarts
// the received-items stream at index zero.
func (d *Data) Reset() {
	*d = newData()
}

// GunLevelIndex maps a gun-level token id to its slot in the ranged
// weapon level array.
func GunLevelIndex(id uint8) (int, bool) {
	if !items.IsGunLevel(id) {
		return 0, false
	}
	return int(id - items.GunLevelEbonyIvory), true
}

// StyleIndex maps a style-level token id to the style slot it bumps.
func StyleIndex(id uint8) (int, bool) {
	if !items.IsStyleLevel(id) {
		return 0, false
	}
	return int(id - items.StyleLevelTrickster), true
}

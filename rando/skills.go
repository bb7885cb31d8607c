package rando

import "dmc3rando/items"

// expertiseBit places one skill inside the eight 32-bit expertise
// words the game reads per character.
type expertiseBit struct {
	word uint8
	bit  uint8
}

var expertiseBits = map[uint8]expertiseBit{
	items.SkillStinger1:       {0, 0},
	items.SkillStinger2:       {0, 1},
	items.SkillAirHike:        {0, 4},
	items.SkillKickJump:       {0, 5},
	items.SkillWallRun:        {0, 6},
	items.SkillRevolver1:      {1, 0},
	items.SkillRevolver2:      {1, 1},
	items.SkillWindmill:       {1, 3},
	items.SkillRollingThunder: {1, 4},
	items.SkillTornado:        {1, 6},
	items.SkillVolcano:        {1, 8},
	items.SkillJetStream1:     {2, 0},
	items.SkillJetStream2:     {2, 1},
	items.SkillJetStream3:     {2, 2},
	items.SkillWhirlwind:      {2, 5},
	items.SkillAirRaid:        {3, 0},
	items.SkillReverb1:        {3, 2},
	items.SkillReverb2:        {3, 3},
	items.SkillBatRift:        {3, 5},
	items.SkillRisingDragon:   {4, 0},
	items.SkillStraight:       {4, 1},
	items.SkillBeast:          {4, 3},
	items.SkillZodiac:         {5, 0},
	items.SkillTwosomeTime:    {5, 2},
	items.SkillRainStorm:      {5, 4},
}

// skillLines lists the progressive lines in rank order. A token may
// carry any rank id of its line; each one lights the lowest unlit rank
// at or above the token's own.
var skillLines = map[uint8][]uint8{
	items.SkillStinger1:   {items.SkillStinger1, items.SkillStinger2},
	items.SkillJetStream1: {items.SkillJetStream1, items.SkillJetStream2, items.SkillJetStream3},
	items.SkillReverb1:    {items.SkillReverb1, items.SkillReverb2},
}

// defaultExpertise is the loadout every character starts with before
// any network skill arrives. Basic movement stays usable even when
// skills are randomized.
var defaultExpertise = [8]uint32{0x00000008, 0, 0, 0, 0, 0, 0x0000FFFF, 0xFFFFFFFF}

// lineRank maps a skill id to its progressive line and rank index.
func lineRank(id uint8) (base uint8, rank int, ok bool) {
	for b, ranks := range skillLines {
		for i, r := range ranks {
			if r == id {
				return b, i, true
			}
		}
	}
	return 0, 0, false
}

// lightRank marks the lowest unlit rank at or above the token's own in
// the line's bitmask. A token past a fully lit tail is absorbed.
func lightRank(mask uint8, rank, size int) uint8 {
	for i := rank; i < size; i++ {
		if mask&(1<<i) == 0 {
			return mask | 1<<i
		}
	}
	return mask
}

// computeExpertise rebuilds the full expertise bitfields from the
// session aggregate. Pure so a resync replay is exact.
func computeExpertise(d *Data) [8]uint32 {
	bits := defaultExpertise
	set := func(id uint8) {
		if eb, ok := expertiseBits[id]; ok {
			bits[eb.word] |= 1 << eb.bit
		}
	}
	for id := range d.Skills {
		set(id)
	}
	for base, mask := range d.Lines {
		for i, id := range skillLines[base] {
			if mask&(1<<i) != 0 {
				set(id)
			}
		}
	}
	return bits
}

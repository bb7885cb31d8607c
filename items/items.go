// Package items holds the game's 1-byte item identifiers and the id
// ranges the grant pipeline dispatches on. Ids are version-locked game
// data, not protocol data; the network side deals in item names.
package items

import "fmt"

// Non-check pickups. World pickups with id <= WhiteOrb never publish.
const (
	RedOrb    uint8 = 0x00
	GoldOrb   uint8 = 0x01
	YellowOrb uint8 = 0x02
	WhiteOrb  uint8 = 0x03
	GreenOrb  uint8 = 0x04

	// Dummy is the inert display id written over checked END events so
	// a mission's end trigger cannot re-fire.
	Dummy uint8 = 0x05
)

// Orb tokens.
const (
	BlueOrbFragment uint8 = 0x07
	PurpleOrb       uint8 = 0x08
)

// Consumables [0x10, 0x15). Bankable.
const (
	VitalStarS  uint8 = 0x10
	VitalStarL  uint8 = 0x11
	DevilStar   uint8 = 0x12
	HolyWater   uint8 = 0x13
	Untouchable uint8 = 0x14
)

// Weapons [0x16, 0x23). AwakenedDT sits inside the range and is
// dispatched before it.
const (
	Cerberus   uint8 = 0x16
	AgniRudra  uint8 = 0x17
	Nevan      uint8 = 0x18
	AwakenedDT uint8 = 0x19
	Beowulf    uint8 = 0x1A
	Shotgun    uint8 = 0x1B
	Artemis    uint8 = 0x1C
	Spiral     uint8 = 0x1D
	KalinaAnn  uint8 = 0x1E
	Yamato     uint8 = 0x1F
	ForceEdge  uint8 = 0x20
	Quicksilver uint8 = 0x21
	Doppelganger uint8 = 0x22
)

// Key items [0x24, 0x3A). Remote is the sentinel displayed in-world
// when a location's reward belongs to another player.
const (
	AstronomicalBoard uint8 = 0x24
	Vajura            uint8 = 0x25
	Remote            uint8 = 0x26
	OrihalconFragment uint8 = 0x27
	SirensShriek      uint8 = 0x28
	CrystalSkull      uint8 = 0x29
	IgnisFatuus       uint8 = 0x2A
	Ambrosia          uint8 = 0x2B
	StoneMask         uint8 = 0x2C
	NeoGenerator      uint8 = 0x2D
	HaywireGenerator  uint8 = 0x2E
	EssenceFighting   uint8 = 0x2F
	EssenceTechnique  uint8 = 0x30
	SoulOfSteel       uint8 = 0x31
	GoldenSun         uint8 = 0x32
	OnyxMoonshard     uint8 = 0x33
	Samsara           uint8 = 0x34
	FloatingStone     uint8 = 0x35
	StoneTablet       uint8 = 0x36
	TridentHead       uint8 = 0x37
	TridentShaft      uint8 = 0x38
	SpiralCoil        uint8 = 0x39
)

// Skills [0x3A, 0x53). Progressive lines occupy consecutive ids.
const (
	SkillStinger1   uint8 = 0x3A
	SkillStinger2   uint8 = 0x3B
	SkillAirHike    uint8 = 0x3C
	SkillKickJump   uint8 = 0x3D
	SkillWallRun    uint8 = 0x3E
	SkillRevolver1  uint8 = 0x3F
	SkillRevolver2  uint8 = 0x40
	SkillWindmill   uint8 = 0x41
	SkillRollingThunder uint8 = 0x42
	SkillTornado    uint8 = 0x43
	SkillVolcano    uint8 = 0x44
	SkillJetStream1 uint8 = 0x45
	SkillJetStream2 uint8 = 0x46
	SkillJetStream3 uint8 = 0x47
	SkillWhirlwind  uint8 = 0x48
	SkillAirRaid    uint8 = 0x49
	SkillReverb1    uint8 = 0x4A
	SkillReverb2    uint8 = 0x4B
	SkillBatRift    uint8 = 0x4C
	SkillRisingDragon uint8 = 0x4D
	SkillStraight   uint8 = 0x4E
	SkillBeast      uint8 = 0x4F
	SkillZodiac     uint8 = 0x50
	SkillTwosomeTime uint8 = 0x51
	SkillRainStorm  uint8 = 0x52
)

// Gun-level tokens [0x53, 0x58), one per gun in slot order.
const (
	GunLevelEbonyIvory uint8 = 0x53
	GunLevelShotgun    uint8 = 0x54
	GunLevelArtemis    uint8 = 0x55
	GunLevelSpiral     uint8 = 0x56
	GunLevelKalinaAnn  uint8 = 0x57
)

// Style-level tokens [0x60, 0x64), one per selectable style.
const (
	StyleLevelTrickster   uint8 = 0x60
	StyleLevelSwordmaster uint8 = 0x61
	StyleLevelGunslinger  uint8 = 0x62
	StyleLevelRoyalguard  uint8 = 0x63
)

func IsConsumable(id uint8) bool { return id >= VitalStarS && id <= Untouchable }
func IsWeapon(id uint8) bool     { return id >= Cerberus && id <= Doppelganger && id != AwakenedDT }
func IsKeyItem(id uint8) bool    { return id >= AstronomicalBoard && id < SkillStinger1 }
func IsSkill(id uint8) bool      { return id >= SkillStinger1 && id <= SkillRainStorm }
func IsGunLevel(id uint8) bool   { return id >= GunLevelEbonyIvory && id <= GunLevelKalinaAnn }
func IsStyleLevel(id uint8) bool { return id >= StyleLevelTrickster && id <= StyleLevelRoyalguard }

var names = map[uint8]string{
	RedOrb:    "Red Orb",
	GoldOrb:   "Gold Orb",
	YellowOrb: "Yellow Orb",
	WhiteOrb:  "White Orb",
	GreenOrb:  "Green Orb",
	Dummy:     "Empty",

	BlueOrbFragment: "Blue Orb Fragment",
	PurpleOrb:       "Purple Orb",

	VitalStarS:  "Vital Star S",
	VitalStarL:  "Vital Star L",
	DevilStar:   "Devil Star",
	HolyWater:   "Holy Water",
	Untouchable: "Untouchable",

	Cerberus:     "Cerberus",
	AgniRudra:    "Agni & Rudra",
	Nevan:        "Nevan",
	AwakenedDT:   "Awakened Devil Trigger",
	Beowulf:      "Beowulf",
	Shotgun:      "Shotgun",
	Artemis:      "Artemis",
	Spiral:       "Spiral",
	KalinaAnn:    "Kalina Ann",
	Yamato:       "Yamato",
	ForceEdge:    "Force Edge",
	Quicksilver:  "Quicksilver",
	Doppelganger: "Doppelganger",

	AstronomicalBoard: "Astronomical Board",
	Vajura:            "Vajura",
	Remote:            "???",
	OrihalconFragment: "Orihalcon Fragment",
	SirensShriek:      "Siren's Shriek",
	CrystalSkull:      "Crystal Skull",
	IgnisFatuus:       "Ignis Fatuus",
	Ambrosia:          "Ambrosia",
	StoneMask:         "Stone Mask",
	NeoGenerator:      "Neo-Generator",
	HaywireGenerator:  "Haywire Neo-Generator",
	EssenceFighting:   "Essence of Fighting",
	EssenceTechnique:  "Essence of Technique",
	SoulOfSteel:       "Soul of Steel",
	GoldenSun:         "Golden Sun",
	OnyxMoonshard:     "Onyx Moonshard",
	Samsara:           "Samsara",
	FloatingStone:     "Floating Stone",
	StoneTablet:       "Stone Tablet",
	TridentHead:       "Trident Head",
	TridentShaft:      "Trident Shaft",
	SpiralCoil:        "Spiral Coil",

	SkillStinger1:       "Stinger Level 1",
	SkillStinger2:       "Stinger Level 2",
	SkillAirHike:        "Air Hike",
	SkillKickJump:       "Kick Jump",
	SkillWallRun:        "Wall Run",
	SkillRevolver1:      "Revolver Level 1",
	SkillRevolver2:      "Revolver Level 2",
	SkillWindmill:       "Windmill",
	SkillRollingThunder: "Rolling Thunder",
	SkillTornado:        "Tornado",
	SkillVolcano:        "Volcano",
	SkillJetStream1:     "Jet Stream Level 1",
	SkillJetStream2:     "Jet Stream Level 2",
	SkillJetStream3:     "Jet Stream Level 3",
	SkillWhirlwind:      "Whirlwind",
	SkillAirRaid:        "Air Raid",
	SkillReverb1:        "Reverb Shock",
	SkillReverb2:        "Reverb Shock Level 2",
	SkillBatRift:        "Bat Rift",
	SkillRisingDragon:   "Rising Dragon",
	SkillStraight:       "Straight",
	SkillBeast:          "Beast Uppercut",
	SkillZodiac:         "Zodiac",
	SkillTwosomeTime:    "Twosome Time",
	SkillRainStorm:      "Rain Storm",

	GunLevelEbonyIvory: "Ebony & Ivory Level",
	GunLevelShotgun:    "Shotgun Level",
	GunLevelArtemis:    "Artemis Level",
	GunLevelSpiral:     "Spiral Level",
	GunLevelKalinaAnn:  "Kalina Ann Level",

	StyleLevelTrickster:   "Trickster Level",
	StyleLevelSwordmaster: "Swordmaster Level",
	StyleLevelGunslinger:  "Gunslinger Level",
	StyleLevelRoyalguard:  "Royalguard Level",
}

// Name returns the display name for an item id.
func Name(id uint8) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("Item 0x%02X", id)
}

// IDByName is the reverse of Name for ids with a display name.
func IDByName(name string) (uint8, bool) {
	for id, n := range names {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

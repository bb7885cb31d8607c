package config

// ============================================================
// DMC3 MEMORY OFFSETS - MAPPED VIA IDA, VERSION-LOCKED
// ============================================================
//
// Every offset below is relative to the dmc3.exe module base and is
// only valid for the binary whose xxh3-64 is GameImageHash. Patching a
// different build with these offsets corrupts the process.

// Version lock. Decimal xxh3-64 of the supported images.
const (
	GameExeName   = "dmc3.exe"
	GameImageHash = uint64(9031715114876197692)

	// Optional host mod (DDMK). Only its UI hooks collide with ours.
	MaryDllName   = "Mary.dll"
	MaryImageHash = uint64(7087074874482460961)
)

// ===== SESSION STRUCT (dmc3.exe + OffSession) =====
// Live from save-load until return to the title screen. The game and
// the grant pipeline both mutate it.
const (
	OffSession uintptr = 0x5CF8B0

	RelMission    uintptr = 0x00 // u32, 1..20
	RelRoom       uintptr = 0x04 // u32, low 16 bits used
	RelDifficulty uintptr = 0x08 // u32
	RelCharacter  uintptr = 0x0C // u32, 0=Dante 1=Vergil
	RelRedOrbs    uintptr = 0x10 // u32
	RelItems      uintptr = 0x14 // 20 x u8 consumable counts
	RelUnlocks    uintptr = 0x28 // 14 x u8 unlock flags
	RelWeapons    uintptr = 0x36 // 8 x u8, 0xFF = empty slot
	RelRangedLvls uintptr = 0x3E // 5 x u8 gun upgrade levels
	RelMeleeIdx   uintptr = 0x44 // u8, active melee slot
	RelGunIdx     uintptr = 0x45 // u8, active gun slot
	RelMaxHP      uintptr = 0x48 // u32, capped at HPCap
	RelMaxMagic   uintptr = 0x4C // u32, capped at MagicCap
	RelStyle      uintptr = 0x50 // u8
	RelStyleLvls  uintptr = 0x51 // 6 x u8
	RelStyleXP    uintptr = 0x58 // 6 x u32
	RelExpertise  uintptr = 0x70 // 8 x u32 skill bitfields

	SessionSize = 0x90

	ItemSlots   = 20
	UnlockSlots = 14
	WeaponSlots = 8
	GunSlots    = 5
	StyleSlots  = 6

	WeaponEmpty = 0xFF

	// Highest count the status screen renders per consumable slot.
	ConsumableMax = 99
)

// ===== CHARACTER RECORD (dmc3.exe + OffCharRecord) =====
// Current/max vitals for the active character. give_hp/give_magic keep
// these in sync with the session maxima.
const (
	OffCharRecord uintptr = 0x5D20A0

	RelCharHP       uintptr = 0x00 // u32 current
	RelCharMaxHP    uintptr = 0x04 // u32
	RelCharMagic    uintptr = 0x08 // u32 current
	RelCharMaxMagic uintptr = 0x0C // u32
)

// ===== GLOBAL FLAGS =====
const (
	// Non-zero while a mission session is live. Zero on the title
	// screen and during load transitions.
	OffInGame uintptr = 0x5CF880

	// Suppresses the vanilla "Parry!" banner on the item-get screen.
	OffItemGetBanner uintptr = 0x5D31C4

	// Mission rank shown on the result screen. Valid only while the
	// result screen is up.
	OffResultRank uintptr = 0x5D3320 // u32, 0=D .. 5=SS
	ResultRankSS          = 5
)

// ===== INVENTORY BYTE ARRAY + CHECK-FLAG BITMAP =====
// Two parallel structures indexed by item id. The byte array holds
// possession counts, the bitmap holds the "already collected from the
// world" bits the game's dedup logic consults. Both must be flipped
// together or key items respawn.
const (
	OffInventory  uintptr = 0x5D0410 // 256 x u8
	OffCheckFlags uintptr = 0x5D0510 // bit (id&7) of byte (id>>3)
)

// ===== ITEM SPAWN TABLE =====
// Per-room spawn records. The randomized ids live at
// OffItemTable + ItemTableRandoBase + entry offset.
const (
	OffItemTable       uintptr = 0x62E000
	ItemTableRandoBase uintptr = 0x1A00

	// 16-byte pickup-mode region. 0x01 routes every slot through the
	// item pickup path, 0x02 is the vanilla orb-path default.
	OffItemModeTable uintptr = 0x62FD80
	ItemModeTableLen         = 16
	ItemModeItem             = 0x01
	ItemModeVanilla          = 0x02
)

// ===== EVENT SCRIPT TABLE =====
// Byte table of scripted give/check/end opcodes, one region per
// mission. Location catalogue entries carry offsets into this table.
const (
	OffEventTable uintptr = 0x64B200
)

// ===== ADJUDICATOR + SECRET MISSION =====
// The adjudicator boss drop is an immediate baked into two code sites,
// not a table entry. The secret-mission reward is a single data byte.
const (
	OffAdjudicatorDropA uintptr = 0x2B4F61 // mov dl, imm8 (+1 = imm)
	OffAdjudicatorDropB uintptr = 0x2B5109
	OffSecretReward     uintptr = 0x631F42
)

// ===== HOOK SITES =====
// Function entries with >= 14 relocatable prologue bytes, verified per
// image. Stolen lengths are part of the version lock.
const (
	OffHookItemSpawn      uintptr = 0x1A3F40 // per-room spawn pass
	OffHookWorldPickup    uintptr = 0x1A65D0 // rcx = item instance
	OffHookEventPickup    uintptr = 0x1B02A0 // rcx = item id, rdx = source marker
	OffHookMissionResult  uintptr = 0x24C880 // result screen entry
	OffHookEventTable     uintptr = 0x1CE130 // event table (re)build
	OffHookInventorySetup uintptr = 0x1C88F0 // mission inventory setup
	OffHookTextDispatch   uintptr = 0x30A5C0 // text render dispatch
	OffHookItemGetSetup   uintptr = 0x2F1D70 // item-get UI create
	OffHookItemGetRender  uintptr = 0x2F2040 // item-get UI per-frame
	OffHookItemGetClose   uintptr = 0x2F22B0 // item-get UI destroy
	OffHookInvOpen        uintptr = 0x2E8A10 // status screen open
	OffHookInvClose       uintptr = 0x2E8DF0 // status screen close
	OffHookUseItem        uintptr = 0x1C5480 // rdx = consumed item id
	OffHookShopPurchase   uintptr = 0x2E9B60 // rdx = purchased item id
)

// ===== ITEM INSTANCE STRUCT (world pickups, rcx at OffHookWorldPickup) =====
const (
	RelPickupID uintptr = 0x10 // u8 item id
	RelPickupX  uintptr = 0x30 // f32
	RelPickupY  uintptr = 0x34
	RelPickupZ  uintptr = 0x38
)

// ===== VITALS TUNING =====
const (
	HPCap    = 20000
	MagicCap = 10000
	OneOrb   = 1000 // max HP/magic granted per orb token
)

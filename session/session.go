// Package session is the typed, validated view over the game's live
// session struct and character record. Every accessor goes through the
// in-game gate: on the title screen or mid-transition the struct is
// garbage and callers get ErrNotUsable instead of garbage reads.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"dmc3rando/config"
	"dmc3rando/gamemem"
)

// ErrNotUsable means the game is on the title screen or loading.
var ErrNotUsable = errors.New("session not usable")

// Accessor reads and mutates the session struct at base+OffSession.
type Accessor struct {
	mem  gamemem.Memory
	base uintptr
	log  *slog.Logger
}

func New(mem gamemem.Memory, base uintptr, log *slog.Logger) *Accessor {
	return &Accessor{mem: mem, base: base, log: log}
}

func (a *Accessor) sess(rel uintptr) uintptr { return a.base + config.OffSession + rel }
func (a *Accessor) char(rel uintptr) uintptr { return a.base + config.OffCharRecord + rel }

// Usable reports whether a mission session is live.
func (a *Accessor) Usable() error {
	v, err := gamemem.ReadU8(a.mem, a.base+config.OffInGame)
	if err != nil {
		return err
	}
	if v == 0 {
		return ErrNotUsable
	}
	return nil
}

func (a *Accessor) Mission() (uint8, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	v, err := gamemem.ReadU32(a.mem, a.sess(config.RelMission))
	return uint8(v), err
}

func (a *Accessor) Room() (uint16, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	v, err := gamemem.ReadU32(a.mem, a.sess(config.RelRoom))
	return uint16(v), err
}

func (a *Accessor) Character() (uint8, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	v, err := gamemem.ReadU32(a.mem, a.sess(config.RelCharacter))
	return uint8(v), err
}

// SetMaxHP writes the maximum HP, clamped to [OneOrb, HPCap], and
// keeps the character record's current and max in step so the bar
// refills on grant.
func (a *Accessor) SetMaxHP(v int64) error {
	if err := a.Usable(); err != nil {
		return err
	}
	next := clamp(v, config.OneOrb, config.HPCap)
	if err := gamemem.WriteU32(a.mem, a.sess(config.RelMaxHP), next); err != nil {
		return err
	}
	if err := gamemem.WriteU32(a.mem, a.char(config.RelCharMaxHP), next); err != nil {
		return err
	}
	return gamemem.WriteU32(a.mem, a.char(config.RelCharHP), next)
}

// SetMaxMagic is SetMaxHP for the devil trigger gauge.
func (a *Accessor) SetMaxMagic(v int64) error {
	if err := a.Usable(); err != nil {
		return err
	}
	next := clamp(v, 0, config.MagicCap)
	if err := gamemem.WriteU32(a.mem, a.sess(config.RelMaxMagic), next); err != nil {
		return err
	}
	if err := gamemem.WriteU32(a.mem, a.char(config.RelCharMaxMagic), next); err != nil {
		return err
	}
	return gamemem.WriteU32(a.mem, a.char(config.RelCharMagic), next)
}

// GiveHP raises (or lowers) the maximum HP by delta through SetMaxHP.
func (a *Accessor) GiveHP(delta int32) error {
	max, err := a.MaxHP()
	if err != nil {
		return err
	}
	return a.SetMaxHP(int64(max) + int64(delta))
}

// GiveMagic is GiveHP for the devil trigger gauge.
func (a *Accessor) GiveMagic(delta int32) error {
	max, err := a.MaxMagic()
	if err != nil {
		return err
	}
	return a.SetMaxMagic(int64(max) + int64(delta))
}

// Hurt halves current HP, never below 1. Used for death-link "Hurt".
func (a *Accessor) Hurt() error {
	if err := a.Usable(); err != nil {
		return err
	}
	cur, err := gamemem.ReadU32(a.mem, a.char(config.RelCharHP))
	if err != nil {
		return err
	}
	next := cur / 2
	if next == 0 {
		next = 1
	}
	return gamemem.WriteU32(a.mem, a.char(config.RelCharHP), next)
}

// Kill zeroes current HP. Used for death-link "Death".
func (a *Accessor) Kill() error {
	if err := a.Usable(); err != nil {
		return err
	}
	return gamemem.WriteU32(a.mem, a.char(config.RelCharHP), 0)
}

func clamp(v, lo, hi int64) uint32 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return uint32(v)
}

// ItemCount reads the inventory byte for an item id.
func (a *Accessor) ItemCount(id uint8) (uint8, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	return gamemem.ReadU8(a.mem, a.base+config.OffInventory+uintptr(id))
}

// SetItemCount writes the inventory byte for an item id.
func (a *Accessor) SetItemCount(id uint8, n uint8) error {
	if err := a.Usable(); err != nil {
		return err
	}
	return gamemem.WriteU8(a.mem, a.base+config.OffInventory+uintptr(id), n)
}

// SetItemFlag sets or clears item possession. With markCollected the
// world-pickup dedup bit is flipped in the same call; the two arrays
// must stay consistent or the game re-spawns collected key items.
func (a *Accessor) SetItemFlag(id uint8, present, markCollected bool) error {
	if err := a.Usable(); err != nil {
		return err
	}
	var count uint8
	if present {
		count = 1
	}
	if err := gamemem.WriteU8(a.mem, a.base+config.OffInventory+uintptr(id), count); err != nil {
		return err
	}
	if !markCollected {
		return nil
	}
	return a.setCollected(id, present)
}

func (a *Accessor) setCollected(id uint8, set bool) error {
	addr := a.base + config.OffCheckFlags + uintptr(id>>3)
	b, err := gamemem.ReadU8(a.mem, addr)
	if err != nil {
		return err
	}
	bit := uint8(1) << (id & 7)
	if set {
		b |= bit
	} else {
		b &^= bit
	}
	return gamemem.WriteU8(a.mem, addr, b)
}

// Collected reads the world-pickup dedup bit for an item id.
func (a *Accessor) Collected(id uint8) (bool, error) {
	if err := a.Usable(); err != nil {
		return false, err
	}
	b, err := gamemem.ReadU8(a.mem, a.base+config.OffCheckFlags+uintptr(id>>3))
	if err != nil {
		return false, err
	}
	return b&(1<<(id&7)) != 0, nil
}

// GunLevels reads the five per-gun upgrade levels.
func (a *Accessor) GunLevels() ([config.GunSlots]uint8, error) {
	var out [config.GunSlots]uint8
	if err := a.Usable(); err != nil {
		return out, err
	}
	b, err := a.mem.ReadBytes(a.sess(config.RelRangedLvls), config.GunSlots)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// SetGunLevels re-derives the whole upgrade array in one write, so
// re-applying a grant prefix is idempotent.
func (a *Accessor) SetGunLevels(levels [config.GunSlots]uint8) error {
	if err := a.Usable(); err != nil {
		return err
	}
	return a.mem.WriteBytes(a.sess(config.RelRangedLvls), levels[:])
}

// SetStyleLevel writes one style's level byte.
func (a *Accessor) SetStyleLevel(style uint8, level uint8) error {
	if err := a.Usable(); err != nil {
		return err
	}
	if int(style) >= config.StyleSlots {
		return fmt.Errorf("style %d out of range", style)
	}
	return gamemem.WriteU8(a.mem, a.sess(config.RelStyleLvls)+uintptr(style), level)
}

// SetExpertise replaces all eight skill bitfields.
func (a *Accessor) SetExpertise(bits [8]uint32) error {
	if err := a.Usable(); err != nil {
		return err
	}
	for i, v := range bits {
		if err := gamemem.WriteU32(a.mem, a.sess(config.RelExpertise)+uintptr(4*i), v); err != nil {
			return err
		}
	}
	return nil
}

// Weapons reads the eight weapon slots (0xFF = empty).
func (a *Accessor) Weapons() ([config.WeaponSlots]uint8, error) {
	var out [config.WeaponSlots]uint8
	if err := a.Usable(); err != nil {
		return out, err
	}
	b, err := a.mem.ReadBytes(a.sess(config.RelWeapons), config.WeaponSlots)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// SetWeaponSlot writes one weapon slot byte.
func (a *Accessor) SetWeaponSlot(slot int, id uint8) error {
	if err := a.Usable(); err != nil {
		return err
	}
	if slot < 0 || slot >= config.WeaponSlots {
		return fmt.Errorf("weapon slot %d out of range", slot)
	}
	return gamemem.WriteU8(a.mem, a.sess(config.RelWeapons)+uintptr(slot), id)
}

// SetUnlock writes one unlock flag byte (weapons granted over the
// network are flagged here; slot placement happens on mission setup).
func (a *Accessor) SetUnlock(idx int, v uint8) error {
	if err := a.Usable(); err != nil {
		return err
	}
	if idx < 0 || idx >= config.UnlockSlots {
		return fmt.Errorf("unlock %d out of range", idx)
	}
	return gamemem.WriteU8(a.mem, a.sess(config.RelUnlocks)+uintptr(idx), v)
}

// CurrentHP reads the character record's current HP.
func (a *Accessor) CurrentHP() (uint32, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	return gamemem.ReadU32(a.mem, a.char(config.RelCharHP))
}

// MaxHP reads the session maximum HP.
func (a *Accessor) MaxHP() (uint32, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	return gamemem.ReadU32(a.mem, a.sess(config.RelMaxHP))
}

// MaxMagic reads the session maximum magic.
func (a *Accessor) MaxMagic() (uint32, error) {
	if err := a.Usable(); err != nil {
		return 0, err
	}
	return gamemem.ReadU32(a.mem, a.sess(config.RelMaxMagic))
}

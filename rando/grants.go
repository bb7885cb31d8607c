package rando

import (
	"errors"
	"fmt"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/items"
	"dmc3rando/session"
)

// applyReceived consumes one ReceivedItems batch. An index of zero is
// a full resync: the aggregate is cleared and the whole prefix is
// replayed, landing on the same derived state it produced the first
// time.
func (c *Core) applyReceived(start int64, batch []archipelago.ReceivedItem) {
	if start == 0 {
		c.mu.Lock()
		c.data.Reset()
		c.mu.Unlock()
		c.curIndex.Store(0)
		c.log.Info("full resync", "items", len(batch))
	}
	for _, it := range batch {
		if it.Index < c.curIndex.Load() {
			continue
		}
		c.grant(it)
		c.curIndex.Store(it.Index + 1)
	}
	c.record("received", map[string]any{"start": start, "count": len(batch), "index": c.curIndex.Load()})
}

func (c *Core) grant(it archipelago.ReceivedItem) {
	id := uint8(it.ID)
	if err := c.applyItem(id); err != nil {
		if errors.Is(err, session.ErrNotUsable) {
			c.log.Debug("grant deferred to next mission setup", "item", items.Name(id))
		} else {
			c.log.Error("grant failed", "item", items.Name(id), "err", err)
		}
	}
	if c.sess.Usable() == nil {
		c.notify.Notify(fmt.Sprintf("Received %s from %s", displayName(it, id), it.Sender))
	}
}

func displayName(it archipelago.ReceivedItem, id uint8) string {
	if it.Name != "" {
		return it.Name
	}
	return items.Name(id)
}

// applyItem mutates the aggregate and pushes the effect into game
// memory. Every branch is idempotent with respect to replaying the
// same aggregate.
func (c *Core) applyItem(id uint8) error {
	switch {
	case id == items.BlueOrbFragment:
		c.mu.Lock()
		c.data.BlueOrbs++
		c.mu.Unlock()
		return c.applyVitals()

	case id == items.PurpleOrb:
		c.mu.Lock()
		c.data.PurpleOrbs++
		c.mu.Unlock()
		return c.applyVitals()

	case id == items.AwakenedDT:
		c.mu.Lock()
		c.data.DTFragments++
		c.mu.Unlock()
		return c.applyVitals()

	case items.IsConsumable(id):
		c.bank.Add(id, 1)
		return nil

	case items.IsWeapon(id):
		c.mu.Lock()
		c.data.Weapons[id] = struct{}{}
		c.mu.Unlock()
		// Slot placement happens on the next inventory setup pass.
		return nil

	case items.IsKeyItem(id):
		c.mu.Lock()
		c.data.KeyItems[id] = struct{}{}
		c.mu.Unlock()
		return c.grantKeyItem(id)

	case items.IsSkill(id):
		return c.grantSkill(id)

	case items.IsGunLevel(id):
		return c.grantGunLevel(id)

	case items.IsStyleLevel(id):
		return c.grantStyleLevel(id)
	}
	c.log.Warn("unhandled item id", "id", id)
	return nil
}

// applyVitals rewrites max HP and magic from the vanilla baseline plus
// the aggregate orb counts. The baseline is captured from the session
// the first time an orb effect lands, before anything was written.
func (c *Core) applyVitals() error {
	if err := c.sess.Usable(); err != nil {
		return err
	}
	curHP, err := c.sess.MaxHP()
	if err != nil {
		return err
	}
	curMagic, err := c.sess.MaxMagic()
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.baseVitals {
		c.baseHP, c.baseMagic = curHP, curMagic
		c.baseVitals = true
	}
	hp := int64(c.baseHP) + int64(c.data.BlueOrbs)*config.OneOrb
	magic := int64(c.baseMagic) + int64(c.data.PurpleOrbs+3*c.data.DTFragments)*config.OneOrb
	c.mu.Unlock()
	if hp > config.HPCap {
		hp = config.HPCap
	}
	if magic > config.MagicCap {
		magic = config.MagicCap
	}
	// Writes happen only on a real change; SetMaxHP refills the bar
	// and a room transition must not heal the player for free.
	if hp != int64(curHP) {
		if err := c.sess.SetMaxHP(hp); err != nil {
			return err
		}
	}
	if magic != int64(curMagic) {
		return c.sess.SetMaxMagic(magic)
	}
	return nil
}

// grantKeyItem sets the inventory flag only when the item belongs to
// the mission in progress; otherwise the flag would let the player
// skip a door the seed still gates.
func (c *Core) grantKeyItem(id uint8) error {
	mission, err := c.sess.Mission()
	if err != nil {
		return err
	}
	if !c.missionNeedsKeyItem(mission, id) {
		return nil
	}
	return c.sess.SetItemFlag(id, true, true)
}

func (c *Core) missionNeedsKeyItem(mission uint8, id uint8) bool {
	for _, e := range c.catalog.ByMission(mission) {
		if e.DefaultItemID == id {
			return true
		}
	}
	return false
}

func (c *Core) grantSkill(id uint8) error {
	c.mu.RLock()
	randomize := c.hasMap && c.mapping.RandomizeSkills
	c.mu.RUnlock()
	if !randomize {
		return nil
	}
	c.mu.Lock()
	if base, rank, ok := lineRank(id); ok {
		c.data.Lines[base] = lightRank(c.data.Lines[base], rank, len(skillLines[base]))
	} else {
		c.data.Skills[id] = struct{}{}
	}
	bits := computeExpertise(&c.data)
	c.mu.Unlock()
	return c.sess.SetExpertise(bits)
}

func (c *Core) grantGunLevel(id uint8) error {
	idx, ok := GunLevelIndex(id)
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.data.GunTokens[idx]++
	tokens := c.data.GunTokens
	c.mu.Unlock()
	return c.applyGunLevels(tokens)
}

// applyGunLevels rewrites the whole ranged level array from the token
// counts so replays cannot over-level a gun.
func (c *Core) applyGunLevels(tokens [config.GunSlots]int) error {
	var levels [config.GunSlots]uint8
	for i, n := range tokens {
		if n > 3 {
			n = 3
		}
		levels[i] = uint8(n)
	}
	return c.sess.SetGunLevels(levels)
}

func (c *Core) grantStyleLevel(id uint8) error {
	idx, ok := StyleIndex(id)
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.data.StyleTokens[idx]++
	n := c.data.StyleTokens[idx]
	c.mu.Unlock()
	if n > 3 {
		n = 3
	}
	return c.sess.SetStyleLevel(uint8(idx), uint8(n))
}

// reapplyDerived is the inventory-setup entry point: it rebuilds every
// derived value from the aggregate after the game reloaded the session
// block from a save.
func (c *Core) reapplyDerived() error {
	c.mu.RLock()
	data := c.data
	randomize := c.hasMap && c.mapping.RandomizeSkills
	c.mu.RUnlock()

	if err := c.applyVitals(); err != nil {
		return err
	}
	if err := c.applyGunLevels(data.GunTokens); err != nil {
		return err
	}
	for idx, n := range data.StyleTokens {
		if n > 3 {
			n = 3
		}
		if err := c.sess.SetStyleLevel(uint8(idx), uint8(n)); err != nil {
			return err
		}
	}
	if randomize {
		c.mu.RLock()
		bits := computeExpertise(&c.data)
		c.mu.RUnlock()
		if err := c.sess.SetExpertise(bits); err != nil {
			return err
		}
	}
	mission, err := c.sess.Mission()
	if err != nil {
		return err
	}
	for id := range data.KeyItems {
		if !c.missionNeedsKeyItem(mission, id) {
			continue
		}
		if err := c.sess.SetItemFlag(id, true, true); err != nil {
			return err
		}
	}
	for id := range data.Weapons {
		if err := c.placeWeapon(id); err != nil {
			return err
		}
	}
	return nil
}

// placeWeapon drops a granted weapon into the first free slot of its
// class. Melee weapons use slots 0..3, guns 4..7.
func (c *Core) placeWeapon(id uint8) error {
	weapons, err := c.sess.Weapons()
	if err != nil {
		return err
	}
	lo, hi := 0, 4
	if id >= items.Shotgun && id <= items.KalinaAnn {
		lo, hi = 4, config.WeaponSlots
	}
	for slot := lo; slot < hi; slot++ {
		if weapons[slot] == id {
			return nil
		}
	}
	for slot := lo; slot < hi; slot++ {
		if weapons[slot] == config.WeaponEmpty {
			return c.sess.SetWeaponSlot(slot, id)
		}
	}
	return nil
}

package rando

import (
	"fmt"

	"dmc3rando/config"
	"dmc3rando/items"
	"dmc3rando/locations"
)

// Installer lifecycle. Idle until a connection delivers a mapping,
// Mapped while the tables carry it, Reverting while the journal rolls
// back after a disconnect.
const (
	installIdle int32 = iota
	installMapped
	installReverting
)

// writeStamped journals a table write once and re-stamps it directly
// afterwards. The first write per name records the vanilla bytes, so
// RestoreAll still lands on the original table no matter how many
// room transitions re-applied the mapping on top.
func (c *Core) writeStamped(name string, addr uintptr, data []byte) error {
	if c.eng.IsActive(name) {
		return c.mem.WriteBytesProtected(addr, data)
	}
	return c.eng.WriteBytes(name, addr, data)
}

// InstallMapping stamps every table for the first time after connect.
func (c *Core) InstallMapping() error {
	if err := c.applyTables(); err != nil {
		return err
	}
	c.installSt.Store(installMapped)
	c.record("mapping_installed", nil)
	return nil
}

// reapplyTables re-stamps the tables if a mapping is installed. Called
// from hook handlers, so failures log instead of propagating.
func (c *Core) reapplyTables(reason string) {
	if c.installSt.Load() != installMapped {
		return
	}
	if err := c.applyTables(); err != nil {
		c.log.Warn("tables not reapplied", "reason", reason, "err", err)
	}
}

func (c *Core) applyTables() error {
	if err := c.applySpawnTable(); err != nil {
		return err
	}
	if err := c.applyEventTable(); err != nil {
		return err
	}
	if err := c.applyModeTable(); err != nil {
		return err
	}
	if err := c.applyAdjudicator(); err != nil {
		return err
	}
	return c.applySecretReward()
}

// applySpawnTable writes each catalogued entry's resolved item id into
// the randomized region of the item-spawn table. Checked locations
// whose script has an end trigger get the dummy id so the trigger
// cannot re-fire.
func (c *Core) applySpawnTable() error {
	tbl := c.base + config.OffItemTable + config.ItemTableRandoBase
	for _, e := range c.catalog.All() {
		if e.TableOffset == 0 {
			continue
		}
		id := c.resolvedID(e.Key)
		if c.keyChecked(e.Key) && hasEvent(e, locations.EventEnd) {
			id = items.Dummy
		}
		name := "spawn:" + e.Key
		if err := c.writeStamped(name, tbl+uintptr(e.TableOffset), []byte{id}); err != nil {
			return fmt.Errorf("spawn table %q: %w", e.Key, err)
		}
	}
	return nil
}

// applyEventTable rewrites the script bytes per catalogued event ref.
// Give slots carry the resolved id; check and end slots carry dummy so
// the script's own award path stays inert; fully checked locations go
// dummy throughout.
func (c *Core) applyEventTable() error {
	for _, e := range c.catalog.All() {
		checked := c.keyChecked(e.Key)
		for _, ev := range e.EventOffsets {
			id := items.Dummy
			if ev.Kind == locations.EventGive && !checked {
				id = c.resolvedID(e.Key)
			}
			name := fmt.Sprintf("event:%s:%s", e.Key, ev.Kind)
			if err := c.writeStamped(name, c.eventTableAddr(ev.Offset), []byte{id}); err != nil {
				return fmt.Errorf("event table %q: %w", e.Key, err)
			}
		}
	}
	return nil
}

// applyModeTable forces every randomized slot onto the item pickup
// code path. The orb path skips the pickup hook entirely.
func (c *Core) applyModeTable() error {
	addr := c.base + config.OffItemModeTable
	mode := make([]byte, config.ItemModeTableLen)
	for i := range mode {
		mode[i] = config.ItemModeItem
	}
	return c.writeStamped("mode-table", addr, mode)
}

// applyAdjudicator patches both boss-drop immediates when the current
// mission has an adjudicator entry.
func (c *Core) applyAdjudicator() error {
	mission, err := c.sess.Mission()
	if err != nil {
		return nil
	}
	for _, e := range c.catalog.ByMission(mission) {
		if !e.Adjudicator {
			continue
		}
		id := c.resolvedID(e.Key)
		if err := c.writeStamped("adjudicator-a", c.base+config.OffAdjudicatorDropA+1, []byte{id}); err != nil {
			return err
		}
		if err := c.writeStamped("adjudicator-b", c.base+config.OffAdjudicatorDropB+1, []byte{id}); err != nil {
			return err
		}
		return nil
	}
	return nil
}

func (c *Core) applySecretReward() error {
	key := secretRewardKey(c.catalog)
	if key == "" {
		return nil
	}
	return c.writeStamped("secret-reward", c.base+config.OffSecretReward, []byte{c.resolvedID(key)})
}

// secretRewardKey picks the catalogued entry backing the secret
// mission reward slot, when the seed randomizes it.
func secretRewardKey(cat *locations.Catalog) string {
	if e, ok := cat.ByKey("Secret Mission Reward"); ok {
		return e.Key
	}
	return ""
}

func hasEvent(e locations.Entry, kind locations.EventKind) bool {
	for _, ev := range e.EventOffsets {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

// RevertAll rolls every journaled patch back and restores the vanilla
// mode table. Used on disconnect and on shutdown.
func (c *Core) RevertAll() error {
	c.installSt.Store(installReverting)
	err := c.eng.RestoreAll()
	// The vanilla bytes put back by the journal already carry the
	// default mode values, but a partially failed restore must not
	// leave the table in item mode.
	addr := c.base + config.OffItemModeTable
	mode := make([]byte, config.ItemModeTableLen)
	for i := range mode {
		mode[i] = config.ItemModeVanilla
	}
	if werr := c.mem.WriteBytesProtected(addr, mode); werr != nil && err == nil {
		err = werr
	}
	c.installSt.Store(installIdle)
	return err
}

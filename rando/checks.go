package rando

import (
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/hook"
	"dmc3rando/items"
	"dmc3rando/locations"
)

// publish hands a pickup observation to the mediator. Hook handlers
// run on the pump goroutine and must not block; a full channel means
// the mediator is wedged and the pickup is dropped with a log line.
func (c *Core) publish(loc locations.Location) {
	select {
	case c.pickupCh <- loc:
	default:
		c.log.Error("pickup channel full, observation dropped", "room", loc.Room, "item", loc.ItemID)
	}
}

// onWorldPickup fires when the player collects an item placed in the
// world. The captured rcx is the item instance.
func (c *Core) onWorldPickup(rec hook.Record) {
	inst := uintptr(rec.Arg(0))
	if inst == 0 {
		return
	}
	id, err := gamemem.ReadU8(c.mem, inst+config.RelPickupID)
	if err != nil {
		c.log.Warn("pickup instance unreadable", "err", err)
		return
	}
	// Ids 0..3 are plain currency orbs, never randomized.
	if id <= items.WhiteOrb {
		return
	}
	mission, room, ok := c.whereabouts()
	if !ok {
		return
	}
	var coord locations.Coordinates
	if coord.X, err = gamemem.ReadF32(c.mem, inst+config.RelPickupX); err != nil {
		return
	}
	if coord.Y, err = gamemem.ReadF32(c.mem, inst+config.RelPickupY); err != nil {
		return
	}
	if coord.Z, err = gamemem.ReadF32(c.mem, inst+config.RelPickupZ); err != nil {
		return
	}
	c.publish(locations.Location{
		Type:    locations.Standard,
		ItemID:  id,
		Room:    room,
		Mission: mission,
		Coord:   coord,
	})
}

// onEventPickup fires for script-awarded items. rdx carries a source
// marker; only -1 means the event actually handed the item over, the
// other values are UI previews.
func (c *Core) onEventPickup(rec hook.Record) {
	if int32(uint32(rec.Arg(1))) != -1 {
		return
	}
	id := uint8(rec.Arg(0))
	mission, room, ok := c.whereabouts()
	if !ok {
		return
	}
	c.publish(locations.Location{
		Type:    locations.Standard,
		ItemID:  id,
		Room:    room,
		Mission: mission,
	})
}

func (c *Core) onMissionResult() {
	mission, _, ok := c.whereabouts()
	if !ok {
		return
	}
	c.publish(locations.Location{
		Type:    locations.MissionComplete,
		Mission: mission,
	})
	rank, err := gamemem.ReadU32(c.mem, c.base+config.OffResultRank)
	if err != nil {
		c.log.Warn("result rank unreadable", "err", err)
		return
	}
	if rank == config.ResultRankSS {
		c.publish(locations.Location{
			Type:    locations.SSRank,
			Mission: mission,
		})
	}
}

// onShopPurchase fires when the statue shop vends an item. Only the
// blue and purple orb purchases are catalogued locations; everything
// else the shop sells is plain stock.
func (c *Core) onShopPurchase(rec hook.Record) {
	id := uint8(rec.Arg(0))
	if id != items.BlueOrbFragment && id != items.PurpleOrb {
		return
	}
	mission, room, ok := c.whereabouts()
	if !ok {
		return
	}
	c.publish(locations.Location{
		Type:    locations.PurchaseItem,
		ItemID:  id,
		Room:    room,
		Mission: mission,
	})
}

func (c *Core) whereabouts() (mission uint8, room uint16, ok bool) {
	mission, err := c.sess.Mission()
	if err != nil {
		return 0, 0, false
	}
	room, err = c.sess.Room()
	if err != nil {
		return 0, 0, false
	}
	return mission, room, true
}

// onRoomSpawn re-stamps the spawn table before the room's item pass
// reads it, so freshly checked locations spawn their mapped item.
func (c *Core) onRoomSpawn() {
	c.reapplyTables("room spawn")
}

func (c *Core) onEventTableBuild() {
	c.reapplyTables("event table build")
}

// onInventorySetup fires on mission start and room transition, after
// the game reloaded the session block. Both the tables and the derived
// session values need re-stamping.
func (c *Core) onInventorySetup() {
	c.reapplyTables("inventory setup")
	if err := c.reapplyDerived(); err != nil {
		c.log.Warn("derived state not reapplied", "err", err)
	}
}

// onTextDispatch keeps the vanilla item-get banner suppressed while a
// network item text is on screen. The game rewrites the flag every
// frame it draws text, so the hook re-asserts it.
func (c *Core) onTextDispatch() {
	c.mu.RLock()
	active := c.itemGetText != ""
	c.mu.RUnlock()
	if !active {
		return
	}
	if err := gamemem.WriteU8(c.mem, c.base+config.OffItemGetBanner, 1); err != nil {
		c.log.Debug("banner flag not written", "err", err)
	}
}

func (c *Core) onItemGetOpen() {
	c.mu.RLock()
	text := c.itemGetText
	c.mu.RUnlock()
	if text != "" {
		c.notify.SetItemGet(text)
	}
}

func (c *Core) onItemGetRender() {
	c.onItemGetOpen()
}

func (c *Core) onItemGetClose() {
	c.mu.Lock()
	c.itemGetText = ""
	c.mu.Unlock()
	c.notify.ClearItemGet()
	if err := gamemem.WriteU8(c.mem, c.base+config.OffItemGetBanner, 0); err != nil {
		c.log.Debug("banner flag not restored", "err", err)
	}
}

// onInventoryOpen deposits banked consumables into the inventory so
// the status screen shows them and the player can spend them.
func (c *Core) onInventoryOpen() {
	if err := c.bank.Inject(c.sess); err != nil {
		c.log.Warn("bank not injected", "err", err)
	}
	c.record("inventory_open", nil)
}

// onInventoryClose settles banked consumables against the inventory
// the player just looked at.
func (c *Core) onInventoryClose() {
	if err := c.bank.Settle(c.sess); err != nil {
		c.log.Warn("bank not settled", "err", err)
	}
}

// onUseItem keeps the bank mirror in step when the player consumes an
// item that was granted into the bank.
func (c *Core) onUseItem(rec hook.Record) {
	id := uint8(rec.Arg(0))
	if !items.IsConsumable(id) {
		return
	}
	if c.bank.Count(id) > 0 {
		c.bank.Add(id, -1)
	}
	c.record("use_item", map[string]any{"item": items.Name(id)})
}

package rando

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/items"
	"dmc3rando/locations"
)

const mediatorInterval = 50 * time.Millisecond

// Run is the mediator loop. It owns every interaction between the
// network client, the pickup observations and game memory; hook
// handlers only enqueue.
func (c *Core) Run(ctx context.Context) {
	ticker := time.NewTicker(mediatorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			return
		case <-ticker.C:
			c.step()
		}
	}
}

func (c *Core) step() {
	for _, ev := range c.client.Update() {
		c.handleEvent(ev)
	}
	c.drainPickups()
	c.drainDeaths()
	c.pollOwnDeath()
}

func (c *Core) handleEvent(ev archipelago.Event) {
	switch ev.Kind {
	case archipelago.EventConnected:
		c.onConnected(ev)
	case archipelago.EventReceivedItems:
		c.applyReceived(ev.StartIndex, ev.Items)
	case archipelago.EventDeathLink:
		c.onDeathLink(ev)
	case archipelago.EventPrint:
		c.log.Info("server", "text", ev.Text)
	case archipelago.EventError:
		c.log.Error("server error", "text", ev.Text)
	case archipelago.EventUpdated:
		// Another slot checked something of ours; tables may need to
		// drop an end trigger.
		c.reapplyTables("room update")
	case archipelago.EventKeyChanged:
		c.log.Debug("data storage changed", "key", ev.Key)
	case archipelago.EventBounce:
		c.log.Debug("bounce")
	case archipelago.EventDisconnected:
		c.onDisconnected(ev)
	}
}

// onConnected is the once-per-connection setup: adopt the mapping,
// enable the detours, stamp the tables, grant the starter items.
func (c *Core) onConnected(ev archipelago.Event) {
	mapping, ok := c.client.Mapping()
	if !ok {
		c.log.Error("connected without a mapping")
		return
	}
	c.setMapping(mapping)
	c.bank.SetSlot(mapping.Slot)
	restoreCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := c.bank.Restore(restoreCtx); err != nil {
		c.log.Warn("bank not restored from data storage", "err", err)
	}
	cancel()
	c.goalSent.Store(false)

	c.hooks.EnableAll()
	if err := c.InstallMapping(); err != nil {
		c.log.Error("mapping not installed", "err", err)
	}
	for _, name := range mapping.StarterItems {
		id, ok := items.IDByName(name)
		if !ok {
			c.log.Warn("unknown starter item", "name", name)
			continue
		}
		if err := c.applyItem(id); err != nil && !errors.Is(err, gamemem.ErrBadAddress) {
			c.log.Warn("starter item not applied", "name", name, "err", err)
		}
	}
	c.notify.SetConnection(fmt.Sprintf("Connected: %s @ %s", mapping.Slot, mapping.Seed))
	c.record("connected", map[string]any{"seed": mapping.Seed, "slot": mapping.Slot})
	c.log.Info("session up", "seed", mapping.Seed, "slot", mapping.Slot, "locations", len(mapping.Items))
}

// onDisconnected drops every piece of session state and puts the game
// binary back the way it was found.
func (c *Core) onDisconnected(ev archipelago.Event) {
	c.log.Warn("disconnected", "reason", ev.Text)
	c.hooks.DisableAll()
	if err := c.RevertAll(); err != nil {
		c.log.Error("patches not fully reverted", "err", err)
	}
	c.clearMapping()
	c.mu.Lock()
	c.data.Reset()
	c.baseVitals = false
	c.baseHP, c.baseMagic = 0, 0
	c.itemGetText = ""
	c.mu.Unlock()
	c.bank.Reset()
	c.curIndex.Store(0)
	c.goalSent.Store(false)
	c.checkedMu.Lock()
	c.checkedKeys = map[string]struct{}{}
	c.checkedMu.Unlock()
	c.notify.SetConnection("Disconnected")
	c.record("disconnected", map[string]any{"reason": ev.Text})
}

func (c *Core) onDeathLink(ev archipelago.Event) {
	mapping, ok := c.Mapping()
	if !ok {
		return
	}
	c.notify.Notify(fmt.Sprintf("%s: %s", ev.Source, ev.Cause))
	switch mapping.DeathLink {
	case archipelago.DeathLinkDeath:
		c.ownDeath = true
		if err := c.sess.Kill(); err != nil {
			c.log.Warn("death link kill failed", "err", err)
		}
	case archipelago.DeathLinkHurt:
		if err := c.sess.Hurt(); err != nil {
			c.log.Warn("death link hurt failed", "err", err)
		}
	}
	c.record("death_link", map[string]any{"source": ev.Source, "cause": ev.Cause})
}

func (c *Core) drainPickups() {
	for {
		select {
		case loc := <-c.pickupCh:
			c.handlePickup(loc)
		default:
			return
		}
	}
}

// classify resolves a pickup to its catalogue key. A standard pickup
// shows the item the installer stamped, which for a mapped local item
// differs from the catalogue default; those match through the mapping.
func (c *Core) classify(loc locations.Location) (string, error) {
	key, err := c.catalog.Classify(loc, c.nextBlue+1, c.nextPurple+1)
	if err == nil || loc.Type != locations.Standard || !errors.Is(err, locations.ErrNotFound) {
		return key, err
	}
	for _, e := range c.catalog.Candidates(loc) {
		if c.resolvedID(e.Key) == loc.ItemID {
			return e.Key, nil
		}
	}
	return "", err
}

// handlePickup turns one observed pickup into a network check.
func (c *Core) handlePickup(loc locations.Location) {
	if _, ok := c.Mapping(); !ok {
		return
	}
	key, err := c.classify(loc)
	if err != nil {
		c.log.Warn("pickup not classified", "room", loc.Room, "item", loc.ItemID, "err", err)
		return
	}
	if loc.Type == locations.PurchaseItem {
		switch loc.ItemID {
		case items.BlueOrbFragment:
			c.nextBlue++
		case items.PurpleOrb:
			c.nextPurple++
		}
	}
	if !c.markLocally(key) {
		return
	}

	// The displayed item was a placeholder; the real grant arrives
	// over the network. Rank and purchase checks never touched the
	// inventory in the first place.
	if loc.Type == locations.Standard && loc.ItemID <= items.SpiralCoil {
		c.revertPlaceholder(loc.ItemID)
	}

	netID, ok := c.client.LocationID(key)
	if !ok {
		c.log.Error("location missing from data package", "key", key)
		return
	}
	if err := c.client.MarkChecked([]int64{netID}); err != nil {
		c.log.Error("check not reported", "key", key, "err", err)
	}

	c.neutralizeEndEvent(key)
	c.stashItemGet(key)
	c.record("checked", map[string]any{"key": key, "room": loc.Room})
	c.goalCheck()
}

func (c *Core) revertPlaceholder(id uint8) {
	switch {
	case items.IsConsumable(id):
		n, err := c.sess.ItemCount(id)
		if err == nil && n > 0 {
			err = c.sess.SetItemCount(id, n-1)
		}
		if err != nil {
			c.log.Warn("placeholder count not reverted", "item", items.Name(id), "err", err)
		}
	case id >= items.Cerberus && id <= items.SpiralCoil:
		if err := c.sess.SetItemFlag(id, false, false); err != nil {
			c.log.Warn("placeholder flag not reverted", "item", items.Name(id), "err", err)
		}
	}
}

// neutralizeEndEvent swaps the location's end trigger for a harmless
// red orb so re-entering the room cannot re-run the scripted finish.
func (c *Core) neutralizeEndEvent(key string) {
	e, ok := c.catalog.ByKey(key)
	if !ok {
		return
	}
	for _, ev := range e.EventOffsets {
		if ev.Kind != locations.EventEnd {
			continue
		}
		name := fmt.Sprintf("event:%s:%s", e.Key, ev.Kind)
		if err := c.writeStamped(name, c.eventTableAddr(ev.Offset), []byte{items.RedOrb}); err != nil {
			c.log.Warn("end event not neutralized", "key", key, "err", err)
		}
	}
}

// stashItemGet prepares the text the item-get screen shows instead of
// the placeholder's vanilla name.
func (c *Core) stashItemGet(key string) {
	mi, ok := c.mappedItem(key)
	if !ok {
		return
	}
	text := mi.ItemName
	if mi.Remote() {
		text = fmt.Sprintf("Sent %s to %s", mi.ItemName, mi.Receiver)
	}
	c.mu.Lock()
	c.itemGetText = text
	c.mu.Unlock()
	if err := gamemem.WriteU8(c.mem, c.base+config.OffItemGetBanner, 1); err != nil {
		c.log.Debug("banner flag not set", "err", err)
	}
}

// goalCheck tests the seed's completion condition against the checked
// set. Once the goal status is sent it is never sent again for this
// connection.
func (c *Core) goalCheck() {
	if c.goalSent.Load() {
		return
	}
	mapping, ok := c.Mapping()
	if !ok {
		return
	}
	if !c.goalMet(mapping) {
		return
	}
	if err := c.client.SetStatus(archipelago.StatusGoal); err != nil {
		c.log.Error("goal status not sent", "err", err)
		return
	}
	c.goalSent.Store(true)
	c.notify.Notify("Goal complete!")
	c.record("goal", nil)
}

func (c *Core) goalMet(mapping archipelago.Mapping) bool {
	switch mapping.Goal {
	case archipelago.GoalStandard:
		return c.keyChecked(locations.MissionCompleteKey(20))
	case archipelago.GoalRandomOrder:
		last := uint8(20)
		if len(mapping.MissionOrder) == 20 {
			last = mapping.MissionOrder[19]
		}
		return c.keyChecked(locations.MissionCompleteKey(last))
	case archipelago.GoalAll:
		for _, e := range c.catalog.All() {
			if !c.keyChecked(e.Key) {
				return false
			}
		}
		for m := uint8(1); m <= 20; m++ {
			if !c.keyChecked(locations.MissionCompleteKey(m)) {
				return false
			}
		}
		return true
	}
	return false
}

func (c *Core) drainDeaths() {
	for {
		select {
		case cause := <-c.deathCh:
			if err := c.client.SendDeathLink(cause); err != nil {
				c.log.Warn("death link not sent", "err", err)
			}
		default:
			return
		}
	}
}

// pollOwnDeath watches the HP word for a live-to-dead transition and
// broadcasts it when the mapping enables death link. Deaths the link
// itself caused are not echoed back.
func (c *Core) pollOwnDeath() {
	mapping, ok := c.Mapping()
	if !ok || mapping.DeathLink == archipelago.DeathLinkOff {
		return
	}
	hp, err := c.sess.CurrentHP()
	if err != nil {
		return
	}
	defer func() { c.lastHP = hp }()
	if hp > 0 {
		c.ownDeath = false
		return
	}
	if c.lastHP == 0 || c.ownDeath {
		return
	}
	select {
	case c.deathCh <- fmt.Sprintf("%s died", mapping.Slot):
	default:
	}
}

// Shutdown restores the game binary and tears the hooks down. Safe to
// call more than once.
func (c *Core) Shutdown() {
	c.hooks.DisableAll()
	if err := c.RevertAll(); err != nil {
		c.log.Error("shutdown revert incomplete", "err", err)
	}
	c.hooks.RemoveAll()
	c.client.Disconnect()
	c.log.Info("mediator stopped")
}

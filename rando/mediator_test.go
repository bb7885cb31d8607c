package rando

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/items"
	"dmc3rando/locations"
)

func connect(t *testing.T, r *testRig, m archipelago.Mapping) {
	t.Helper()
	r.net.mapping = m
	r.net.hasMap = true
	r.core.handleEvent(archipelago.Event{Kind: archipelago.EventConnected})
}

func TestOnConnectedAdoptsMappingAndStarters(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(map[string]archipelago.MappedItem{
		"Mission #1 - Vital Star S": localItem("Vital Star S"),
	})
	m.StarterItems = []string{"Cerberus", "Blue Orb Fragment"}
	connect(t, r, m)

	got, ok := r.core.Mapping()
	require.True(t, ok)
	assert.Equal(t, "seed1", got.Seed)
	assert.Equal(t, "Connected: Dante @ seed1", r.notify.conn)

	assert.Contains(t, r.core.data.Weapons, items.Cerberus)
	assert.Equal(t, 1, r.core.data.BlueOrbs)

	// The spawn table now carries the mapped id.
	addr := testBase + config.OffItemTable + config.ItemTableRandoBase + 16
	b, err := gamemem.ReadU8(r.mem, addr)
	require.NoError(t, err)
	assert.Equal(t, items.VitalStarS, b)
}

func TestHandlePickupReportsCheck(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(map[string]archipelago.MappedItem{
		"Mission #1 - Vital Star S": remoteItem("Piece of Eden", "Lady"),
	})
	connect(t, r, m)
	r.net.locIDs["Mission #1 - Vital Star S"] = 101

	// The placeholder put one star into the inventory before the hook
	// observed the pickup.
	require.NoError(t, r.sess.SetItemCount(items.VitalStarS, 1))

	loc := locations.Location{Type: locations.Standard, ItemID: items.VitalStarS, Room: 5, Mission: 1}
	r.core.handlePickup(loc)

	require.Len(t, r.net.marked, 1)
	assert.Equal(t, []int64{101}, r.net.marked[0])

	n, err := r.sess.ItemCount(items.VitalStarS)
	require.NoError(t, err)
	assert.Zero(t, n, "placeholder reverted")

	assert.Equal(t, "Sent Piece of Eden to Lady", r.core.itemGetText)
	banner, err := gamemem.ReadU8(r.mem, testBase+config.OffItemGetBanner)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), banner)

	// The same pickup observed again does not double-report.
	r.core.handlePickup(loc)
	assert.Len(t, r.net.marked, 1)
}

func TestHandlePickupMappedLocalItem(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(map[string]archipelago.MappedItem{
		"Mission #1 - Vital Star S": localItem("Holy Water"),
	})
	connect(t, r, m)
	r.net.locIDs["Mission #1 - Vital Star S"] = 102

	// The installer stamps the mapped id, so the pickup hook observes
	// holy water where the catalogue default is a vital star.
	addr := testBase + config.OffItemTable + config.ItemTableRandoBase + 16
	b, err := gamemem.ReadU8(r.mem, addr)
	require.NoError(t, err)
	require.Equal(t, items.HolyWater, b)

	require.NoError(t, r.sess.SetItemCount(items.HolyWater, 1))
	r.core.handlePickup(locations.Location{Type: locations.Standard, ItemID: items.HolyWater, Room: 5, Mission: 1})

	require.Len(t, r.net.marked, 1)
	assert.Equal(t, []int64{102}, r.net.marked[0])

	n, err := r.sess.ItemCount(items.HolyWater)
	require.NoError(t, err)
	assert.Zero(t, n, "the displayed item was a placeholder for the network grant")
}

func TestHandlePickupNeedsMapping(t *testing.T) {
	r := newTestRig(t)
	r.core.handlePickup(locations.Location{Type: locations.Standard, ItemID: items.VitalStarS, Room: 5})
	assert.Empty(t, r.net.marked)
}

func TestHandlePickupPurchaseCounters(t *testing.T) {
	r := newTestRig(t)
	connect(t, r, testMapping(nil))
	r.net.locIDs["Blue Orb #1"] = 201
	r.net.locIDs["Blue Orb #2"] = 202

	buy := locations.Location{Type: locations.PurchaseItem, ItemID: items.BlueOrbFragment}
	r.core.handlePickup(buy)
	r.core.handlePickup(buy)

	require.Len(t, r.net.marked, 2)
	assert.Equal(t, []int64{201}, r.net.marked[0])
	assert.Equal(t, []int64{202}, r.net.marked[1])
}

func TestDeathLinkHurtHalvesHP(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.DeathLink = archipelago.DeathLinkHurt
	connect(t, r, m)
	require.NoError(t, gamemem.WriteU32(r.mem, testBase+config.OffCharRecord+config.RelCharHP, 1000))

	r.core.handleEvent(archipelago.Event{Kind: archipelago.EventDeathLink, Source: "peer", Cause: "test"})

	assert.Contains(t, r.notify.notes, "peer: test")
	hp, err := r.sess.CurrentHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(500), hp)
}

func TestDeathLinkDeathIsNotEchoed(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.DeathLink = archipelago.DeathLinkDeath
	connect(t, r, m)
	hpAddr := testBase + config.OffCharRecord + config.RelCharHP
	require.NoError(t, gamemem.WriteU32(r.mem, hpAddr, 1000))

	r.core.pollOwnDeath()
	r.core.handleEvent(archipelago.Event{Kind: archipelago.EventDeathLink, Source: "peer", Cause: "fell"})

	hp, err := r.sess.CurrentHP()
	require.NoError(t, err)
	assert.Zero(t, hp)

	r.core.pollOwnDeath()
	r.core.drainDeaths()
	assert.Empty(t, r.net.deaths, "a linked death must not bounce back")
}

func TestPollOwnDeathBroadcasts(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.DeathLink = archipelago.DeathLinkDeath
	connect(t, r, m)
	hpAddr := testBase + config.OffCharRecord + config.RelCharHP

	require.NoError(t, gamemem.WriteU32(r.mem, hpAddr, 1000))
	r.core.pollOwnDeath()

	require.NoError(t, gamemem.WriteU32(r.mem, hpAddr, 0))
	r.core.pollOwnDeath()
	r.core.drainDeaths()

	require.Len(t, r.net.deaths, 1)
	assert.Equal(t, "Dante died", r.net.deaths[0])

	// Staying dead across ticks is one death, not many.
	r.core.pollOwnDeath()
	r.core.drainDeaths()
	assert.Len(t, r.net.deaths, 1)
}

func TestGoalStandardSentOnce(t *testing.T) {
	r := newTestRig(t)
	connect(t, r, testMapping(nil))
	r.net.locIDs["Mission #20 Complete"] = 500

	r.core.handlePickup(locations.Location{Type: locations.MissionComplete, Mission: 20})

	require.Len(t, r.net.statuses, 1)
	assert.Equal(t, archipelago.StatusGoal, r.net.statuses[0])

	r.core.goalCheck()
	assert.Len(t, r.net.statuses, 1)
}

func TestGoalRandomOrderUsesLastMission(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.Goal = archipelago.GoalRandomOrder
	m.MissionOrder = []uint8{3, 1, 2, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 12}
	connect(t, r, m)
	r.net.locIDs["Mission #12 Complete"] = 501
	r.net.locIDs["Mission #20 Complete"] = 502

	r.core.handlePickup(locations.Location{Type: locations.MissionComplete, Mission: 20})
	assert.Empty(t, r.net.statuses, "mission 20 is not the seed's finale")

	r.core.handlePickup(locations.Location{Type: locations.MissionComplete, Mission: 12})
	require.Len(t, r.net.statuses, 1)
}

func TestDisconnectDropsSessionState(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.StarterItems = []string{"Blue Orb Fragment"}
	connect(t, r, m)
	r.core.markLocally("K")
	r.core.curIndex.Store(5)

	r.core.handleEvent(archipelago.Event{Kind: archipelago.EventDisconnected, Text: "socket closed"})

	_, ok := r.core.Mapping()
	assert.False(t, ok)
	assert.Equal(t, "Disconnected", r.notify.conn)
	assert.Zero(t, r.core.curIndex.Load())
	assert.False(t, r.core.markedLocally("K"))
	assert.Zero(t, r.core.data.BlueOrbs)

	// The mode table is back on the vanilla orb path.
	b, err := gamemem.ReadU8(r.mem, testBase+config.OffItemModeTable)
	require.NoError(t, err)
	assert.Equal(t, uint8(config.ItemModeVanilla), b)
	assert.Zero(t, r.eng.ActiveCount())
}

func TestShutdownDisconnectsClient(t *testing.T) {
	r := newTestRig(t)
	connect(t, r, testMapping(nil))
	r.core.Shutdown()
	assert.Equal(t, 1, r.net.disconnects)
	assert.Zero(t, r.eng.ActiveCount())
}

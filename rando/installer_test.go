package rando

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/items"
)

func spawnAddr(tableOffset uint32) uintptr {
	return testBase + config.OffItemTable + config.ItemTableRandoBase + uintptr(tableOffset)
}

func TestInstallMappingStampsAllTables(t *testing.T) {
	r := newTestRig(t)
	r.setMission(t, 3)
	r.core.setMapping(testMapping(map[string]archipelago.MappedItem{
		"Mission #1 - Vital Star S":      localItem("Holy Water"),
		"Mission #3 - Blue Orb Fragment": remoteItem("Piece of Eden", "Lady"),
		"Mission #3 - Cerberus":          localItem("Cerberus"),
	}))

	require.NoError(t, r.core.InstallMapping())

	// Spawn table: mapped local item, remote sentinel, dummy for the rest.
	b, _ := gamemem.ReadU8(r.mem, spawnAddr(16))
	assert.Equal(t, items.HolyWater, b)
	b, _ = gamemem.ReadU8(r.mem, spawnAddr(8))
	assert.Equal(t, items.Dummy, b, "unmapped location")

	// Event table: the give slot carries the resolved id, the end slot
	// stays inert.
	b, _ = gamemem.ReadU8(r.mem, testBase+config.OffEventTable+784)
	assert.Equal(t, items.Remote, b)
	b, _ = gamemem.ReadU8(r.mem, testBase+config.OffEventTable+800)
	assert.Equal(t, items.Dummy, b)

	// Mode table forces the item pickup path for every slot.
	mode, _ := r.mem.ReadBytes(testBase+config.OffItemModeTable, config.ItemModeTableLen)
	for _, v := range mode {
		assert.Equal(t, byte(config.ItemModeItem), v)
	}

	// Adjudicator drop immediates for the mission in progress.
	b, _ = gamemem.ReadU8(r.mem, testBase+config.OffAdjudicatorDropA+1)
	assert.Equal(t, items.Cerberus, b)
	b, _ = gamemem.ReadU8(r.mem, testBase+config.OffAdjudicatorDropB+1)
	assert.Equal(t, items.Cerberus, b)
}

func TestReapplyDoesNotGrowJournal(t *testing.T) {
	r := newTestRig(t)
	r.core.setMapping(testMapping(nil))

	require.NoError(t, r.core.InstallMapping())
	n := r.eng.ActiveCount()
	require.NotZero(t, n)

	r.core.reapplyTables("room transition")
	r.core.reapplyTables("room transition")
	assert.Equal(t, n, r.eng.ActiveCount())
}

func TestReapplyOnlyWhenMapped(t *testing.T) {
	r := newTestRig(t)
	r.core.setMapping(testMapping(nil))

	r.core.reapplyTables("too early")
	assert.Zero(t, r.eng.ActiveCount())
}

func TestCheckedEndEventLocationGoesDummy(t *testing.T) {
	r := newTestRig(t)
	r.core.setMapping(testMapping(map[string]archipelago.MappedItem{
		"Mission #3 - Blue Orb Fragment": localItem("Blue Orb Fragment"),
	}))
	require.NoError(t, r.core.InstallMapping())

	b, _ := gamemem.ReadU8(r.mem, testBase+config.OffEventTable+784)
	require.Equal(t, items.BlueOrbFragment, b)

	// Once collected, the give slot must not hand the item out again.
	r.core.markLocally("Mission #3 - Blue Orb Fragment")
	r.core.reapplyTables("after check")

	b, _ = gamemem.ReadU8(r.mem, testBase+config.OffEventTable+784)
	assert.Equal(t, items.Dummy, b)
}

func TestNeutralizeEndEvent(t *testing.T) {
	r := newTestRig(t)
	r.core.setMapping(testMapping(nil))
	require.NoError(t, r.core.InstallMapping())

	r.core.neutralizeEndEvent("Mission #3 - Blue Orb Fragment")
	b, _ := gamemem.ReadU8(r.mem, testBase+config.OffEventTable+800)
	assert.Equal(t, items.RedOrb, b)
}

func TestRevertAllRestoresVanillaBytes(t *testing.T) {
	r := newTestRig(t)
	// Pretend the binary shipped with a non-zero spawn byte.
	require.NoError(t, gamemem.WriteU8(r.mem, spawnAddr(16), 0x77))
	r.core.setMapping(testMapping(nil))
	require.NoError(t, r.core.InstallMapping())

	require.NoError(t, r.core.RevertAll())

	b, _ := gamemem.ReadU8(r.mem, spawnAddr(16))
	assert.Equal(t, uint8(0x77), b)
	mode, _ := r.mem.ReadBytes(testBase+config.OffItemModeTable, config.ItemModeTableLen)
	for _, v := range mode {
		assert.Equal(t, byte(config.ItemModeVanilla), v)
	}
	assert.Zero(t, r.eng.ActiveCount())
}

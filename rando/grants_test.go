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

func received(index int64, id uint8, sender string) archipelago.ReceivedItem {
	return archipelago.ReceivedItem{Index: index, ID: int64(id), Name: items.Name(id), Sender: sender}
}

func TestBlueOrbRaisesMaxHP(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, gamemem.WriteU32(r.mem, testBase+config.OffSession+config.RelMaxHP, 6000))

	require.NoError(t, r.core.applyItem(items.BlueOrbFragment))

	max, err := r.sess.MaxHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(7000), max)
	cur, err := r.sess.CurrentHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(7000), cur, "bar refills on grant")
	assert.Equal(t, 1, r.core.data.BlueOrbs)
}

func TestOrbReplayDoesNotStackVitals(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, gamemem.WriteU32(r.mem, testBase+config.OffSession+config.RelMaxHP, 6000))

	batch := []archipelago.ReceivedItem{
		received(0, items.BlueOrbFragment, "Lady"),
		received(1, items.AwakenedDT, "Lady"),
	}
	r.core.applyReceived(0, batch)
	max, err := r.sess.MaxHP()
	require.NoError(t, err)
	require.Equal(t, uint32(7000), max)

	// The server restarted the stream; replaying the same prefix from
	// index zero lands on the same maxima.
	r.core.applyReceived(0, batch)
	max, err = r.sess.MaxHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(7000), max)
	magic, err := r.sess.MaxMagic()
	require.NoError(t, err)
	assert.Equal(t, uint32(3*config.OneOrb), magic)

	// Rebuilding derived state on the next inventory setup holds too.
	require.NoError(t, r.core.reapplyDerived())
	max, err = r.sess.MaxHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(7000), max)
}

func TestDistinctOrbsAccumulate(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, gamemem.WriteU32(r.mem, testBase+config.OffSession+config.RelMaxHP, 6000))

	require.NoError(t, r.core.applyItem(items.BlueOrbFragment))
	require.NoError(t, r.core.applyItem(items.BlueOrbFragment))

	max, err := r.sess.MaxHP()
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), max, "each distinct orb still raises the maximum")
}

func TestAwakenedDTGivesThreeOrbsOfMagic(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, r.core.applyItem(items.AwakenedDT))

	max, err := r.sess.MaxMagic()
	require.NoError(t, err)
	assert.Equal(t, uint32(3*config.OneOrb), max)
	assert.Equal(t, 1, r.core.data.DTFragments)
}

func TestConsumableGoesToBank(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, r.core.applyItem(items.VitalStarS))

	assert.Equal(t, 1, r.core.bank.Count(items.VitalStarS))
	n, err := r.sess.ItemCount(items.VitalStarS)
	require.NoError(t, err)
	assert.Zero(t, n, "consumables never land in the inventory directly")
}

func TestKeyItemGatedByCurrentMission(t *testing.T) {
	r := newTestRig(t)
	r.setMission(t, 4)

	// The board belongs to mission 4: flag and dedup bit flip together.
	require.NoError(t, r.core.applyItem(items.AstronomicalBoard))
	n, err := r.sess.ItemCount(items.AstronomicalBoard)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), n)
	collected, err := r.sess.Collected(items.AstronomicalBoard)
	require.NoError(t, err)
	assert.True(t, collected)

	// A mission 6 key item is remembered but not flagged yet.
	require.NoError(t, r.core.applyItem(items.OrihalconFragment))
	n, err = r.sess.ItemCount(items.OrihalconFragment)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, r.core.data.KeyItems, items.OrihalconFragment)

	// Entering mission 6 brings the deferred flag in.
	r.setMission(t, 6)
	require.NoError(t, r.core.reapplyDerived())
	n, err = r.sess.ItemCount(items.OrihalconFragment)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), n)
}

func TestProgressiveSkillLines(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.RandomizeSkills = true
	r.core.setMapping(m)

	// Two Stinger tokens light both ranks; one off-line skill on top.
	require.NoError(t, r.core.applyItem(items.SkillStinger1))
	require.NoError(t, r.core.applyItem(items.SkillStinger1))
	require.NoError(t, r.core.applyItem(items.SkillAirHike))

	word0, err := gamemem.ReadU32(r.mem, testBase+config.OffSession+config.RelExpertise)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x08|1|2|0x10), word0)
}

func TestProgressiveTokenAtHigherRank(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.RandomizeSkills = true
	r.core.setMapping(m)

	// A line token carrying the second rank's id starts there; the next
	// identical token spills over to the third rank.
	require.NoError(t, r.core.applyItem(items.SkillJetStream2))
	require.NoError(t, r.core.applyItem(items.SkillJetStream2))

	word2, err := gamemem.ReadU32(r.mem, testBase+config.OffSession+config.RelExpertise+8)
	require.NoError(t, err)
	assert.Equal(t, uint32(2|4), word2)
	assert.Zero(t, word2&1, "the first rank stays unlit")
}

func TestSkillsIgnoredWhenNotRandomized(t *testing.T) {
	r := newTestRig(t)
	r.core.setMapping(testMapping(nil))

	require.NoError(t, r.core.applyItem(items.SkillAirHike))
	word0, err := gamemem.ReadU32(r.mem, testBase+config.OffSession+config.RelExpertise)
	require.NoError(t, err)
	assert.Zero(t, word0, "expertise untouched")
}

func TestGunLevelCapsAtThree(t *testing.T) {
	r := newTestRig(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.core.applyItem(items.GunLevelShotgun))
	}
	levels, err := r.sess.GunLevels()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), levels[1])
	assert.Equal(t, 5, r.core.data.GunTokens[1], "tokens beyond the cap are still counted")
}

func TestStyleLevelCapsAtThree(t *testing.T) {
	r := newTestRig(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, r.core.applyItem(items.StyleLevelTrickster))
	}
	b, err := gamemem.ReadU8(r.mem, testBase+config.OffSession+config.RelStyleLvls)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), b)
}

func TestWeaponPlacement(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, r.core.applyItem(items.Cerberus))
	require.NoError(t, r.core.applyItem(items.Shotgun))

	// Slots fill on the next inventory setup pass, not at grant time.
	weapons, err := r.sess.Weapons()
	require.NoError(t, err)
	assert.Equal(t, uint8(config.WeaponEmpty), weapons[0])

	require.NoError(t, r.core.reapplyDerived())
	weapons, err = r.sess.Weapons()
	require.NoError(t, err)
	assert.Equal(t, items.Cerberus, weapons[0], "melee goes to the melee slots")
	assert.Equal(t, items.Shotgun, weapons[4], "guns go to the gun slots")

	// Replaying placement never duplicates a weapon.
	require.NoError(t, r.core.reapplyDerived())
	weapons, err = r.sess.Weapons()
	require.NoError(t, err)
	assert.Equal(t, uint8(config.WeaponEmpty), weapons[1])
	assert.Equal(t, uint8(config.WeaponEmpty), weapons[5])
}

func TestApplyReceivedSkipsIndexesAlreadySeen(t *testing.T) {
	r := newTestRig(t)
	batch := []archipelago.ReceivedItem{
		received(0, items.GunLevelShotgun, "Lady"),
		received(1, items.GunLevelShotgun, "Lady"),
	}
	r.core.applyReceived(0, batch)
	assert.Equal(t, 2, r.core.data.GunTokens[1])
	assert.Equal(t, int64(2), r.core.curIndex.Load())

	// A non-zero start re-delivering old indexes changes nothing.
	r.core.applyReceived(1, batch[1:])
	assert.Equal(t, 2, r.core.data.GunTokens[1])
}

func TestApplyReceivedResyncRebuildsDerivedState(t *testing.T) {
	r := newTestRig(t)
	m := testMapping(nil)
	m.RandomizeSkills = true
	r.core.setMapping(m)

	batch := []archipelago.ReceivedItem{
		received(0, items.SkillStinger1, "Lady"),
		received(1, items.GunLevelShotgun, "Lady"),
		received(2, items.GunLevelShotgun, "Lady"),
		received(3, items.StyleLevelTrickster, "Lady"),
		received(4, items.Cerberus, "Lady"),
	}
	r.core.applyReceived(0, batch)
	firstData := r.core.data
	firstBits := computeExpertise(&r.core.data)

	// The server restarted the stream; index zero replays the prefix.
	r.core.applyReceived(0, batch)
	assert.Equal(t, firstData.GunTokens, r.core.data.GunTokens)
	assert.Equal(t, firstData.StyleTokens, r.core.data.StyleTokens)
	assert.Equal(t, firstData.Lines, r.core.data.Lines)
	assert.Equal(t, firstData.Weapons, r.core.data.Weapons)
	assert.Equal(t, firstBits, computeExpertise(&r.core.data))

	levels, err := r.sess.GunLevels()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), levels[1], "replay does not over-level")
}

func TestGrantNotifiesWithSenderName(t *testing.T) {
	r := newTestRig(t)
	r.core.grant(received(0, items.BlueOrbFragment, "Lady"))
	require.Len(t, r.notify.notes, 1)
	assert.Equal(t, "Received Blue Orb Fragment from Lady", r.notify.notes[0])
}

func TestGrantSilentOnTitleScreen(t *testing.T) {
	r := newTestRig(t)
	require.NoError(t, gamemem.WriteU8(r.mem, testBase+config.OffInGame, 0))

	r.core.grant(received(0, items.BlueOrbFragment, "Lady"))
	assert.Empty(t, r.notify.notes)
	assert.Equal(t, 1, r.core.data.BlueOrbs, "the aggregate still advances")
}

package rando

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dmc3rando/items"
)

func TestComputeExpertiseEmptyIsDefault(t *testing.T) {
	d := newData()
	assert.Equal(t, defaultExpertise, computeExpertise(&d))
}

func TestComputeExpertiseLineMaskBounds(t *testing.T) {
	d := newData()
	d.Lines[items.SkillJetStream1] = 0xFF

	bits := computeExpertise(&d)
	assert.Equal(t, defaultExpertise[2]|1|2|4, bits[2], "all three ranks, nothing past them")
}

func TestLineRank(t *testing.T) {
	base, rank, ok := lineRank(items.SkillJetStream2)
	assert.True(t, ok)
	assert.Equal(t, items.SkillJetStream1, base)
	assert.Equal(t, 1, rank)

	_, _, ok = lineRank(items.SkillAirHike)
	assert.False(t, ok)
}

func TestLightRankSkipsLitRanks(t *testing.T) {
	mask := lightRank(0, 1, 3)
	assert.Equal(t, uint8(0b010), mask)

	mask = lightRank(mask, 1, 3)
	assert.Equal(t, uint8(0b110), mask, "the second token spills to the next rank")

	assert.Equal(t, uint8(0b110), lightRank(0b110, 2, 3), "a fully lit tail absorbs the token")

	assert.Equal(t, uint8(0b111), lightRank(0b110, 0, 3), "a lower rank still has room")
}

func TestComputeExpertisePure(t *testing.T) {
	d := newData()
	d.Skills[items.SkillAirRaid] = struct{}{}
	d.Lines[items.SkillReverb1] = 1

	first := computeExpertise(&d)
	assert.Equal(t, first, computeExpertise(&d))
	assert.NotZero(t, first[3]&(1<<0))
	assert.NotZero(t, first[3]&(1<<2))
	assert.Zero(t, first[3]&(1<<3), "second reverb rank not granted")
}

func TestGunLevelIndex(t *testing.T) {
	idx, ok := GunLevelIndex(items.GunLevelEbonyIvory)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = GunLevelIndex(items.GunLevelKalinaAnn)
	assert.True(t, ok)
	assert.Equal(t, 4, idx)

	_, ok = GunLevelIndex(items.Cerberus)
	assert.False(t, ok)
}

func TestStyleIndex(t *testing.T) {
	idx, ok := StyleIndex(items.StyleLevelRoyalguard)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = StyleIndex(items.VitalStarS)
	assert.False(t, ok)
}

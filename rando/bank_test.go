package rando

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmc3rando/config"
	"dmc3rando/items"
)

func TestBankAddMirrorsToDataStorage(t *testing.T) {
	net := newFakeNet()
	b := NewBank(net, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.SetSlot("Dante")

	b.Add(items.VitalStarS, 1)
	b.Add(items.VitalStarS, 2)

	assert.Equal(t, 3, b.Count(items.VitalStarS))
	require.Len(t, net.changes, 2)
	assert.Equal(t, "dmc3_bank_Dante_Vital Star S", net.changes[0])
}

func TestBankIgnoresNonConsumables(t *testing.T) {
	net := newFakeNet()
	b := NewBank(net, nil)

	b.Add(items.Cerberus, 1)
	b.Add(items.VitalStarS, 0)

	assert.Zero(t, b.Count(items.Cerberus))
	assert.Empty(t, net.changes)
}

func TestBankCountNeverNegative(t *testing.T) {
	net := newFakeNet()
	b := NewBank(net, nil)

	b.Add(items.HolyWater, 1)
	b.Add(items.HolyWater, -5)
	assert.Zero(t, b.Count(items.HolyWater))
}

func TestBankSettle(t *testing.T) {
	r := newTestRig(t)
	b := r.core.bank

	require.NoError(t, r.sess.SetItemCount(items.VitalStarS, 5))
	require.NoError(t, r.sess.SetItemCount(items.HolyWater, 1))
	b.Add(items.VitalStarS, 2)
	b.Add(items.HolyWater, 3)

	require.NoError(t, b.Settle(r.sess))

	n, err := r.sess.ItemCount(items.VitalStarS)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), n)

	n, err = r.sess.ItemCount(items.HolyWater)
	require.NoError(t, err)
	assert.Zero(t, n, "settle clamps at empty")
}

func TestBankInjectCapsAndMirrors(t *testing.T) {
	r := newTestRig(t)
	b := r.core.bank

	require.NoError(t, r.sess.SetItemCount(items.VitalStarS, 97))
	b.Add(items.VitalStarS, 5)
	before := len(r.net.changes)

	require.NoError(t, b.Inject(r.sess))

	n, err := r.sess.ItemCount(items.VitalStarS)
	require.NoError(t, err)
	assert.Equal(t, uint8(config.ConsumableMax), n)
	assert.Equal(t, 3, b.Count(items.VitalStarS), "overflow stays banked")
	assert.Len(t, r.net.changes, before+1, "the withdrawal reaches the mirror")
}

func TestBankRestoreFromMirror(t *testing.T) {
	net := newFakeNet()
	net.stored["dmc3_bank_Dante_Vital Star S"] = []byte("3")
	net.stored["dmc3_bank_Dante_Holy Water"] = []byte("0")

	b := NewBank(net, nil)
	b.SetSlot("Dante")
	require.NoError(t, b.Restore(context.Background()))

	assert.Equal(t, 3, b.Count(items.VitalStarS))
	assert.Zero(t, b.Count(items.HolyWater))
}

func TestBankReset(t *testing.T) {
	net := newFakeNet()
	b := NewBank(net, nil)
	b.Add(items.VitalStarS, 4)

	b.Reset()
	assert.Zero(t, b.Count(items.VitalStarS))
}

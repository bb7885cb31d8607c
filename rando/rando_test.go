package rando

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/hook"
	"dmc3rando/items"
	"dmc3rando/locations"
	"dmc3rando/patch"
	"dmc3rando/session"
)

const testBase = 0x140000000

type fakeNet struct {
	events  []archipelago.Event
	state   archipelago.ConnState
	mapping archipelago.Mapping
	hasMap  bool

	locIDs  map[string]int64
	checked map[int64]bool
	stored  map[string]json.RawMessage

	marked      [][]int64
	changes     []string
	statuses    []archipelago.ClientStatus
	deaths      []string
	disconnects int
}

func newFakeNet() *fakeNet {
	return &fakeNet{
		locIDs:  map[string]int64{},
		checked: map[int64]bool{},
		stored:  map[string]json.RawMessage{},
	}
}

func (f *fakeNet) Update() []archipelago.Event {
	out := f.events
	f.events = nil
	return out
}

func (f *fakeNet) State() archipelago.ConnState { return f.state }

func (f *fakeNet) Mapping() (archipelago.Mapping, bool) { return f.mapping, f.hasMap }

func (f *fakeNet) LocationID(key string) (int64, bool) {
	id, ok := f.locIDs[key]
	return id, ok
}

func (f *fakeNet) MarkChecked(ids []int64) error {
	f.marked = append(f.marked, ids)
	for _, id := range ids {
		f.checked[id] = true
	}
	return nil
}

func (f *fakeNet) IsChecked(id int64) bool { return f.checked[id] }

func (f *fakeNet) CheckedCount() int { return len(f.checked) }

func (f *fakeNet) Change(key string, def any, ops []archipelago.DataOp, wantReply bool) error {
	f.changes = append(f.changes, key)
	return nil
}

func (f *fakeNet) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for _, k := range keys {
		if v, ok := f.stored[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeNet) SetStatus(status archipelago.ClientStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeNet) SendDeathLink(cause string) error {
	f.deaths = append(f.deaths, cause)
	return nil
}

func (f *fakeNet) Disconnect() { f.disconnects++ }

type fakeNotify struct {
	notes   []string
	conn    string
	itemGet string
	cleared int
}

func (f *fakeNotify) Notify(text string)        { f.notes = append(f.notes, text) }
func (f *fakeNotify) SetConnection(text string) { f.conn = text }
func (f *fakeNotify) SetItemGet(text string)    { f.itemGet = text }
func (f *fakeNotify) ClearItemGet()             { f.cleared++ }

type testRig struct {
	core   *Core
	net    *fakeNet
	notify *fakeNotify
	mem    *gamemem.FakeMemory
	sess   *session.Accessor
	eng    *patch.Engine
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	mem := gamemem.NewFakeMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, gamemem.WriteU8(mem, testBase+config.OffInGame, 1))
	empty := make([]byte, config.WeaponSlots)
	for i := range empty {
		empty[i] = config.WeaponEmpty
	}
	require.NoError(t, mem.WriteBytes(testBase+config.OffSession+config.RelWeapons, empty))

	sess := session.New(mem, testBase, log)
	eng := patch.NewEngine(mem, log)
	hooks := hook.NewRegistry(mem, nil, eng, testBase, log)
	cat, err := locations.Load()
	require.NoError(t, err)

	net := newFakeNet()
	notify := &fakeNotify{}
	core := NewCore(CoreOptions{
		Mem:     mem,
		Base:    testBase,
		Session: sess,
		Engine:  eng,
		Hooks:   hooks,
		Client:  net,
		Catalog: cat,
		Notify:  notify,
		Log:     log,
	})
	return &testRig{core: core, net: net, notify: notify, mem: mem, sess: sess, eng: eng}
}

func (r *testRig) setMission(t *testing.T, mission uint32) {
	t.Helper()
	require.NoError(t, gamemem.WriteU32(r.mem, testBase+config.OffSession+config.RelMission, mission))
}

func localItem(name string) archipelago.MappedItem {
	return archipelago.MappedItem{ItemName: name, Sender: "Dante", Receiver: "Dante"}
}

func remoteItem(name, receiver string) archipelago.MappedItem {
	return archipelago.MappedItem{ItemName: name, Sender: "Dante", Receiver: receiver, ForeignID: 7777}
}

func testMapping(items map[string]archipelago.MappedItem) archipelago.Mapping {
	return archipelago.Mapping{
		Seed:  "seed1",
		Slot:  "Dante",
		Items: items,
	}
}

func TestResolvedID(t *testing.T) {
	r := newTestRig(t)

	assert.Equal(t, items.Dummy, r.core.resolvedID("anything"), "no mapping yet")

	r.core.setMapping(testMapping(map[string]archipelago.MappedItem{
		"local":   localItem("Vital Star S"),
		"foreign": remoteItem("Piece of Eden", "Lady"),
		"unknown": localItem("No Such Item"),
	}))

	assert.Equal(t, items.VitalStarS, r.core.resolvedID("local"))
	assert.Equal(t, items.Remote, r.core.resolvedID("foreign"))
	assert.Equal(t, items.Remote, r.core.resolvedID("unknown"))
	assert.Equal(t, items.Dummy, r.core.resolvedID("unmapped key"))
}

func TestMarkLocallyDedups(t *testing.T) {
	r := newTestRig(t)
	assert.True(t, r.core.markLocally("K"))
	assert.False(t, r.core.markLocally("K"))
	assert.True(t, r.core.markedLocally("K"))
	assert.False(t, r.core.markedLocally("other"))
}

func TestKeyCheckedConsultsServer(t *testing.T) {
	r := newTestRig(t)
	r.net.locIDs["K"] = 42

	assert.False(t, r.core.keyChecked("K"))
	r.net.checked[42] = true
	assert.True(t, r.core.keyChecked("K"), "checked by another client of this slot")
}

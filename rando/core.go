package rando

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/hook"
	"dmc3rando/items"
	"dmc3rando/locations"
	"dmc3rando/patch"
	"dmc3rando/session"
)

// NetClient is the slice of the network client the core drives. The
// concrete implementation lives in the archipelago package.
type NetClient interface {
	Update() []archipelago.Event
	State() archipelago.ConnState
	Mapping() (archipelago.Mapping, bool)
	LocationID(key string) (int64, bool)
	MarkChecked(ids []int64) error
	IsChecked(id int64) bool
	CheckedCount() int
	Change(key string, def any, ops []archipelago.DataOp, wantReply bool) error
	Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
	SetStatus(status archipelago.ClientStatus) error
	SendDeathLink(cause string) error
	Disconnect()
}

// Notifier is the on-screen surface the core talks to. The overlay
// window implements it; tests plug in a recorder.
type Notifier interface {
	Notify(text string)
	SetConnection(text string)
	SetItemGet(text string)
	ClearItemGet()
}

// Journal records session events for post-mortem inspection.
type Journal interface {
	Record(kind string, attrs map[string]any)
}

type bankDelta struct {
	id uint8
	n  int
}

// Core wires the pipelines together: hooks feed the pickup channel,
// the mediator drains it and the network client, grants mutate the
// game through the session accessor, and the installer keeps the
// item and event tables matching the mapping.
type Core struct {
	mem     gamemem.Memory
	base    uintptr
	sess    *session.Accessor
	eng     *patch.Engine
	hooks   *hook.Registry
	client  NetClient
	catalog *locations.Catalog
	notify  Notifier
	journal Journal
	log     *slog.Logger

	mu      sync.RWMutex
	mapping archipelago.Mapping
	hasMap  bool
	data    Data

	// Vanilla maxima captured before the first orb grant. Max HP and
	// magic are derived from these plus the aggregate counts, never by
	// stacking deltas, so a resync replay lands on the same values.
	baseHP     uint32
	baseMagic  uint32
	baseVitals bool

	checkedMu   sync.Mutex
	checkedKeys map[string]struct{}

	curIndex  atomic.Int64
	goalSent  atomic.Bool
	installSt atomic.Int32

	pickupCh chan locations.Location
	deathCh  chan string
	bankCh   chan bankDelta

	bank *Bank

	// Counters for synthesized blue/purple orb location keys.
	nextBlue   int
	nextPurple int

	itemGetText string
	lastHP      uint32
	ownDeath    bool
}

// CoreOptions carries the collaborators New needs.
type CoreOptions struct {
	Mem     gamemem.Memory
	Base    uintptr
	Session *session.Accessor
	Engine  *patch.Engine
	Hooks   *hook.Registry
	Client  NetClient
	Catalog *locations.Catalog
	Notify  Notifier
	Journal Journal
	Log     *slog.Logger
}

func NewCore(o CoreOptions) *Core {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	c := &Core{
		mem:         o.Mem,
		base:        o.Base,
		sess:        o.Session,
		eng:         o.Engine,
		hooks:       o.Hooks,
		client:      o.Client,
		catalog:     o.Catalog,
		notify:      o.Notify,
		journal:     o.Journal,
		log:         o.Log.With("component", "rando"),
		checkedKeys: map[string]struct{}{},
		pickupCh:    make(chan locations.Location, 64),
		deathCh:     make(chan string, 8),
		bankCh:      make(chan bankDelta, 64),
	}
	c.data = newData()
	c.bank = NewBank(o.Client, o.Log)
	return c
}

// Mapping returns the active session mapping.
func (c *Core) Mapping() (archipelago.Mapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping, c.hasMap
}

func (c *Core) setMapping(m archipelago.Mapping) {
	c.mu.Lock()
	c.mapping = m
	c.hasMap = true
	c.mu.Unlock()
}

func (c *Core) clearMapping() {
	c.mu.Lock()
	c.mapping = archipelago.Mapping{}
	c.hasMap = false
	c.mu.Unlock()
}

// resolvedID returns the in-game item id a catalogued location shows
// in the world. Items owned by another slot show the remote sentinel.
func (c *Core) resolvedID(key string) uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasMap {
		return items.Dummy
	}
	mi, ok := c.mapping.Items[key]
	if !ok {
		return items.Dummy
	}
	if mi.Remote() {
		return items.Remote
	}
	id, ok := items.IDByName(mi.ItemName)
	if !ok {
		return items.Remote
	}
	return id
}

// mappedItem returns the mapping entry for a catalogue key.
func (c *Core) mappedItem(key string) (archipelago.MappedItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasMap {
		return archipelago.MappedItem{}, false
	}
	mi, ok := c.mapping.Items[key]
	return mi, ok
}

func (c *Core) markedLocally(key string) bool {
	c.checkedMu.Lock()
	defer c.checkedMu.Unlock()
	_, ok := c.checkedKeys[key]
	return ok
}

func (c *Core) markLocally(key string) bool {
	c.checkedMu.Lock()
	defer c.checkedMu.Unlock()
	if _, ok := c.checkedKeys[key]; ok {
		return false
	}
	c.checkedKeys[key] = struct{}{}
	return true
}

// keyChecked reports whether a catalogue key is collected, either in
// this process or anywhere in the multiworld.
func (c *Core) keyChecked(key string) bool {
	if c.markedLocally(key) {
		return true
	}
	if id, ok := c.client.LocationID(key); ok {
		return c.client.IsChecked(id)
	}
	return false
}

func (c *Core) record(kind string, attrs map[string]any) {
	if c.journal != nil {
		c.journal.Record(kind, attrs)
	}
}

// eventTableAddr maps a catalogued event offset to its absolute
// address in the live event table.
func (c *Core) eventTableAddr(off uint32) uintptr {
	return c.base + config.OffEventTable + uintptr(off)
}

package archipelago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrDisconnected reports a send attempted while the socket is down.
var ErrDisconnected = errors.New("archipelago: not connected")

// Network item ids for this game are the in-game byte id plus this base.
const itemIDBase int64 = 0x6F3000

const (
	writeTimeout  = 5 * time.Second
	handshakeWait = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	Address   string
	Port      uint16
	SlotName  string
	Password  string
	CachePath string
	Log       *slog.Logger
}

// Client speaks the multiworld randomizer protocol over a websocket.
// All packet reading happens on one goroutine; consumers drain the
// translated events with Update from whatever loop they run.
type Client struct {
	opts Options
	log  *slog.Logger

	state atomic.Int32

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	seed    string
	team    int
	slot    int
	players map[int]string
	mapping Mapping
	hasMap  bool

	itemNames   map[int64]string
	locationIDs map[string]int64

	checkedMu sync.Mutex
	checked   map[int64]struct{}

	evMu   sync.Mutex
	events []Event

	getMu      sync.Mutex
	pendingGet chan map[string]json.RawMessage
}

func NewClient(opts Options) *Client {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Client{
		opts:        opts,
		log:         opts.Log.With("component", "archipelago"),
		players:     map[int]string{},
		itemNames:   map[int64]string{},
		locationIDs: map[string]int64{},
		checked:     map[int64]struct{}{},
	}
}

// State returns the connection lifecycle state.
func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

// Mapping returns the session mapping decoded on connect.
func (c *Client) Mapping() (Mapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping, c.hasMap
}

// Connect dials the server, completes the handshake and starts the read
// loop. It returns once the slot is accepted or with the refusal error.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}
	if err := c.handshake(ctx, conn); err != nil {
		_ = conn.Close()
		c.state.Store(int32(StateDisconnected))
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.state.Store(int32(StateConnected))
	go c.readLoop(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	host := fmt.Sprintf("%s:%d", c.opts.Address, c.opts.Port)
	var lastErr error
	for _, scheme := range []string{"wss", "ws"} {
		url := scheme + "://" + host
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			c.log.Info("connected", "url", url)
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dial %s: %w", host, lastErr)
}

// handshake performs RoomInfo -> DataPackage -> Connect -> Connected on
// the caller's goroutine, before the read loop takes over the socket.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) error {
	room, err := c.awaitPacket(conn, cmdRoomInfo)
	if err != nil {
		return fmt.Errorf("room info: %w", err)
	}
	var ri roomInfoPacket
	if err := json.Unmarshal(room, &ri); err != nil {
		return fmt.Errorf("room info: %w", err)
	}
	c.mu.Lock()
	c.seed = ri.SeedName
	c.mu.Unlock()

	cache := loadDataCache(c.opts.CachePath)
	if stale := cache.stale(ri.DataPackageSums); len(stale) > 0 {
		c.log.Info("fetching data package", "games", stale)
		if err := writePackets(conn, getDataPackagePacket{Cmd: cmdGetDataPackage, Games: stale}); err != nil {
			return err
		}
		raw, err := c.awaitPacket(conn, cmdDataPackage)
		if err != nil {
			return fmt.Errorf("data package: %w", err)
		}
		var dp dataPackagePacket
		if err := json.Unmarshal(raw, &dp); err != nil {
			return fmt.Errorf("data package: %w", err)
		}
		cache.merge(dp.Data.Games)
		if err := cache.save(c.opts.CachePath); err != nil {
			c.log.Warn("data package cache not saved", "err", err)
		}
	}
	c.adoptDataPackage(cache)

	connect := connectPacket{
		Cmd:           cmdConnect,
		Game:          GameName,
		Name:          c.opts.SlotName,
		Password:      c.opts.Password,
		Version:       versionWire{Major: 0, Minor: 5, Build: 0, Class: "Version"},
		ItemsHandling: 0b111,
		Tags:          []string{"DeathLink"},
		SlotData:      true,
	}
	if err := writePackets(conn, connect); err != nil {
		return err
	}

	reply, err := c.awaitAnyPacket(conn, cmdConnected, cmdConnectionRefused)
	if err != nil {
		return err
	}
	var probe cmdProbe
	_ = json.Unmarshal(reply, &probe)
	if probe.Cmd == cmdConnectionRefused {
		var ref connectionRefusedPacket
		_ = json.Unmarshal(reply, &ref)
		return fmt.Errorf("connection refused: %s", strings.Join(ref.Errors, "; "))
	}

	var cp connectedPacket
	if err := json.Unmarshal(reply, &cp); err != nil {
		return fmt.Errorf("connected: %w", err)
	}
	players := make(map[int]string, len(cp.Players))
	for _, p := range cp.Players {
		name := p.Alias
		if name == "" {
			name = p.Name
		}
		players[p.Slot] = name
	}
	mapping, err := decodeSlotData(c.seedName(), c.opts.SlotName, cp.SlotData, players)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.team = cp.Team
	c.slot = cp.Slot
	c.players = players
	c.mapping = mapping
	c.hasMap = true
	c.mu.Unlock()

	c.checkedMu.Lock()
	c.checked = make(map[int64]struct{}, len(cp.CheckedLocations))
	for _, id := range cp.CheckedLocations {
		c.checked[id] = struct{}{}
	}
	c.checkedMu.Unlock()

	c.push(Event{Kind: EventConnected, Seed: mapping.Seed, SlotName: mapping.Slot})
	return nil
}

func (c *Client) seedName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seed
}

func (c *Client) adoptDataPackage(cache dataCache) {
	gd, ok := cache.DataPackage[GameName]
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemNames = make(map[int64]string, len(gd.ItemNameToID))
	for name, id := range gd.ItemNameToID {
		c.itemNames[id] = name
	}
	c.locationIDs = make(map[string]int64, len(gd.LocationNameToID))
	for name, id := range gd.LocationNameToID {
		c.locationIDs[name] = id
	}
}

// awaitPacket reads until a packet with the wanted cmd arrives. Packets
// of other kinds seen during a handshake are dropped.
func (c *Client) awaitPacket(conn *websocket.Conn, want string) (json.RawMessage, error) {
	return c.awaitAnyPacket(conn, want)
}

func (c *Client) awaitAnyPacket(conn *websocket.Conn, want ...string) (json.RawMessage, error) {
	deadline := time.Now().Add(handshakeWait)
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for %s", strings.Join(want, "/"))
		}
		_ = conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var batch []json.RawMessage
		if err := json.Unmarshal(raw, &batch); err != nil {
			continue
		}
		for _, pkt := range batch {
			var probe cmdProbe
			if err := json.Unmarshal(pkt, &probe); err != nil {
				continue
			}
			for _, w := range want {
				if probe.Cmd == w {
					return pkt, nil
				}
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Time{})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.onSocketDown(err)
			return
		}
		var batch []json.RawMessage
		if err := json.Unmarshal(raw, &batch); err != nil {
			c.log.Warn("unparseable frame", "err", err)
			continue
		}
		for _, pkt := range batch {
			c.dispatch(pkt)
		}
	}
}

func (c *Client) dispatch(pkt json.RawMessage) {
	var probe cmdProbe
	if err := json.Unmarshal(pkt, &probe); err != nil {
		return
	}
	switch probe.Cmd {
	case cmdReceivedItems:
		var p receivedItemsPacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			c.push(Event{Kind: EventError, Text: err.Error()})
			return
		}
		c.push(Event{Kind: EventReceivedItems, StartIndex: p.Index, Items: c.resolveItems(p.Index, p.Items)})
	case cmdRoomUpdate:
		var p roomUpdatePacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			return
		}
		c.checkedMu.Lock()
		for _, id := range p.CheckedLocations {
			c.checked[id] = struct{}{}
		}
		c.checkedMu.Unlock()
		c.push(Event{Kind: EventUpdated})
	case cmdPrintJSON:
		var p printJSONPacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			return
		}
		var b strings.Builder
		for _, part := range p.Data {
			b.WriteString(part.Text)
		}
		c.push(Event{Kind: EventPrint, Text: b.String()})
	case cmdBounced:
		var p bouncedPacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			return
		}
		for _, tag := range p.Tags {
			if tag == "DeathLink" {
				var dl deathLinkData
				if err := json.Unmarshal(p.Data, &dl); err != nil {
					return
				}
				if dl.Source == c.opts.SlotName {
					return
				}
				c.push(Event{Kind: EventDeathLink, Cause: dl.Cause, Source: dl.Source})
				return
			}
		}
		c.push(Event{Kind: EventBounce})
	case cmdSetReply:
		var p setReplyPacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			return
		}
		c.push(Event{Kind: EventKeyChanged, Key: p.Key})
	case cmdRetrieved:
		var p retrievedPacket
		if err := json.Unmarshal(pkt, &p); err != nil {
			return
		}
		c.getMu.Lock()
		pending := c.pendingGet
		c.pendingGet = nil
		c.getMu.Unlock()
		if pending != nil {
			pending <- p.Keys
		}
	case cmdInvalidPacket:
		c.push(Event{Kind: EventError, Text: string(pkt)})
	}
}

func (c *Client) resolveItems(start int64, items []NetworkItem) []ReceivedItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ReceivedItem, 0, len(items))
	for i, it := range items {
		sender := playerName(c.players, it.Player)
		out = append(out, ReceivedItem{
			Index:    start + int64(i),
			ID:       it.Item - itemIDBase,
			Name:     c.itemNames[it.Item],
			Sender:   sender,
			Receiver: playerName(c.players, c.slot),
			Remote:   it.Player != c.slot,
		})
	}
	return out
}

func (c *Client) push(ev Event) {
	c.evMu.Lock()
	c.events = append(c.events, ev)
	c.evMu.Unlock()
}

// Update drains every event translated since the previous call. It
// never blocks; an empty slice means nothing happened.
func (c *Client) Update() []Event {
	c.evMu.Lock()
	out := c.events
	c.events = nil
	c.evMu.Unlock()
	return out
}

func (c *Client) onSocketDown(err error) {
	if c.state.Swap(int32(StateDisconnected)) == int32(StateDisconnected) {
		return
	}
	c.log.Warn("socket closed", "err", err)
	c.mu.Lock()
	c.conn = nil
	c.hasMap = false
	c.mapping = Mapping{}
	c.mu.Unlock()
	c.push(Event{Kind: EventDisconnected, Text: err.Error()})
}

// Disconnect tears the socket down. The read loop delivers the
// resulting disconnected event.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) send(pkts ...any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || c.State() != StateConnected {
		return ErrDisconnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writePackets(conn, pkts...)
}

func writePackets(conn *websocket.Conn, pkts ...any) error {
	raw, err := json.Marshal(pkts)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// LocationID resolves a catalogue key to the server's location id.
func (c *Client) LocationID(key string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.locationIDs[key]
	return id, ok
}

// MarkChecked reports completed location checks to the server and
// records them locally so goal evaluation does not wait on the echo.
func (c *Client) MarkChecked(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.send(locationChecksPacket{Cmd: cmdLocationChecks, Locations: ids}); err != nil {
		return err
	}
	c.checkedMu.Lock()
	for _, id := range ids {
		c.checked[id] = struct{}{}
	}
	c.checkedMu.Unlock()
	return nil
}

// IsChecked reports whether the server location id has been collected,
// by anyone, this session.
func (c *Client) IsChecked(id int64) bool {
	c.checkedMu.Lock()
	defer c.checkedMu.Unlock()
	_, ok := c.checked[id]
	return ok
}

// CheckedCount returns how many locations are known collected.
func (c *Client) CheckedCount() int {
	c.checkedMu.Lock()
	defer c.checkedMu.Unlock()
	return len(c.checked)
}

// Change writes a data-storage key with the given operations.
func (c *Client) Change(key string, def any, ops []DataOp, wantReply bool) error {
	return c.send(setPacket{Cmd: cmdSet, Key: key, Default: def, WantReply: wantReply, Ops: ops})
}

// Get fetches data-storage keys. One fetch may be in flight at a time.
func (c *Client) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	reply := make(chan map[string]json.RawMessage, 1)
	c.getMu.Lock()
	if c.pendingGet != nil {
		c.getMu.Unlock()
		return nil, errors.New("archipelago: get already in flight")
	}
	c.pendingGet = reply
	c.getMu.Unlock()

	if err := c.send(getPacket{Cmd: cmdGet, Keys: keys}); err != nil {
		c.getMu.Lock()
		c.pendingGet = nil
		c.getMu.Unlock()
		return nil, err
	}
	select {
	case <-ctx.Done():
		c.getMu.Lock()
		c.pendingGet = nil
		c.getMu.Unlock()
		return nil, ctx.Err()
	case m := <-reply:
		return m, nil
	}
}

// SetStatus reports the client status, including the goal completion.
func (c *Client) SetStatus(status ClientStatus) error {
	return c.send(statusUpdatePacket{Cmd: cmdStatusUpdate, Status: status})
}

// SendDeathLink broadcasts a death to every peer with the tag enabled.
func (c *Client) SendDeathLink(cause string) error {
	return c.send(bouncePacket{
		Cmd:  cmdBounce,
		Tags: []string{"DeathLink"},
		Data: map[string]any{
			"time":   float64(time.Now().UnixMilli()) / 1000.0,
			"cause":  cause,
			"source": c.opts.SlotName,
		},
	})
}

package hook

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"dmc3rando/gamemem"
)

// Pump drains every enabled hook's ring buffer and invokes handlers.
// One goroutine, short reads only; a panicking handler is contained
// here and never reaches the caller.
type Pump struct {
	reg      *Registry
	interval time.Duration

	lastTick atomic.Int64
}

func NewPump(reg *Registry, interval time.Duration) *Pump {
	return &Pump{reg: reg, interval: interval}
}

// LastTick is the unix-nano time of the latest drain, for watchdogs.
func (p *Pump) LastTick() time.Time {
	return time.Unix(0, p.lastTick.Load())
}

func (p *Pump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.lastTick.Store(time.Now().UnixNano())
			p.drainAll()
		}
	}
}

func (p *Pump) drainAll() {
	for _, name := range p.reg.names() {
		p.drain(name)
	}
}

func (p *Pump) drain(name string) {
	p.reg.mu.Lock()
	in, ok := p.reg.hooks[name]
	if !ok || !in.enabled {
		p.reg.mu.Unlock()
		return
	}
	cave := in.cave
	last := in.lastIdx
	capN := len(in.def.Capture)
	handler := in.def.Handler
	p.reg.mu.Unlock()

	idx, err := gamemem.ReadU64(p.reg.mem, cave+ringIdxOff)
	if err != nil || idx == last {
		return
	}
	if idx-last > ringSlots {
		// The game outran us; the oldest records were overwritten.
		p.reg.log.Warn("hook ring overrun", "name", name, "dropped", idx-last-ringSlots)
		last = idx - ringSlots
	}

	for ; last != idx; last++ {
		rec := Record{}
		if capN > 0 {
			slot := cave + ringSlotsOff + uintptr(last&(ringSlots-1))*slotSize
			raw, err := p.reg.mem.ReadBytes(slot, 8*capN)
			if err != nil {
				break
			}
			rec.Args = make([]uint64, capN)
			for i := 0; i < capN; i++ {
				rec.Args[i] = binary.LittleEndian.Uint64(raw[8*i:])
			}
		}
		p.deliver(name, handler, rec)
	}

	p.reg.mu.Lock()
	if cur, ok := p.reg.hooks[name]; ok {
		cur.lastIdx = last
	}
	p.reg.mu.Unlock()
}

func (p *Pump) deliver(name string, handler func(Record), rec Record) {
	if handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.reg.log.Error("hook handler panic", "name", name, "panic", r)
		}
	}()
	handler(rec)
}

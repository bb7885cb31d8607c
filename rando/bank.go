package rando

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/items"
	"dmc3rando/session"
)

// Bank holds network-granted consumables until the status screen can
// take them. Each count is mirrored to a server data-storage key so a
// client restart recovers undelivered grants. Opening the screen
// injects the banked counts into the inventory; closing it settles the
// inventory against whatever is still pending.
type Bank struct {
	client NetClient
	log    *slog.Logger

	mu     sync.Mutex
	counts map[uint8]int
	slot   string
}

func NewBank(client NetClient, log *slog.Logger) *Bank {
	if log == nil {
		log = slog.Default()
	}
	return &Bank{
		client: client,
		log:    log.With("component", "bank"),
		counts: map[uint8]int{},
	}
}

// SetSlot names the slot the mirror keys belong to.
func (b *Bank) SetSlot(slot string) {
	b.mu.Lock()
	b.slot = slot
	b.mu.Unlock()
}

func (b *Bank) key(id uint8) string {
	return fmt.Sprintf("dmc3_bank_%s_%s", b.slot, items.Name(id))
}

// Add deposits n of a consumable and pushes the delta to the mirror.
func (b *Bank) Add(id uint8, n int) {
	if !items.IsConsumable(id) || n == 0 {
		return
	}
	b.mu.Lock()
	b.counts[id] += n
	if b.counts[id] < 0 {
		b.counts[id] = 0
	}
	key := b.key(id)
	b.mu.Unlock()

	err := b.client.Change(key, 0, []archipelago.DataOp{{Operation: "add", Value: n}}, false)
	if err != nil {
		b.log.Warn("bank mirror not updated", "item", items.Name(id), "err", err)
	}
}

// Restore pulls the mirror keys back from server data storage after a
// connect, so banked consumables survive a client restart.
func (b *Bank) Restore(ctx context.Context) error {
	b.mu.Lock()
	keys := make([]string, 0, int(items.Untouchable-items.VitalStarS)+1)
	for id := items.VitalStarS; id <= items.Untouchable; id++ {
		keys = append(keys, b.key(id))
	}
	b.mu.Unlock()

	vals, err := b.client.Get(ctx, keys)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id := items.VitalStarS; id <= items.Untouchable; id++ {
		raw, ok := vals[b.key(id)]
		if !ok || len(raw) == 0 {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			b.log.Warn("bank mirror value unreadable", "item", items.Name(id), "err", err)
			continue
		}
		if n > 0 {
			b.counts[id] = n
		}
	}
	return nil
}

// Inject folds the banked consumables into the inventory when the
// status screen opens, making granted items visible and usable. The
// injected amounts leave the bank and its mirror; Settle on close only
// sees deltas that raced in while the screen was open.
func (b *Bank) Inject(sess *session.Accessor) error {
	for id := items.VitalStarS; id <= items.Untouchable; id++ {
		n := b.Count(id)
		if n == 0 {
			continue
		}
		have, err := sess.ItemCount(id)
		if err != nil {
			return err
		}
		want := int(have) + n
		if want > config.ConsumableMax {
			want = config.ConsumableMax
		}
		if want == int(have) {
			continue
		}
		if err := sess.SetItemCount(id, uint8(want)); err != nil {
			return err
		}
		// Only what landed leaves the bank; overflow past the screen
		// cap stays deposited for a later open.
		b.Add(id, -(want - int(have)))
	}
	return nil
}

// Count returns the banked amount of one consumable.
func (b *Bank) Count(id uint8) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[id]
}

// Settle reconciles the inventory against the bank after the status
// screen closes. Deltas that raced in while the screen was open are
// folded into the next settle rather than locked out.
func (b *Bank) Settle(sess *session.Accessor) error {
	for id := items.VitalStarS; id <= items.Untouchable; id++ {
		n := b.Count(id)
		if n == 0 {
			continue
		}
		have, err := sess.ItemCount(id)
		if err != nil {
			return err
		}
		want := int(have) - n
		if want < 0 {
			want = 0
		}
		if int(have) == want {
			continue
		}
		if err := sess.SetItemCount(id, uint8(want)); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the local counts. The mirror keys persist server-side.
func (b *Bank) Reset() {
	b.mu.Lock()
	b.counts = map[uint8]int{}
	b.mu.Unlock()
}

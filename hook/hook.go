// Package hook owns the fixed set of game-function hooks. A hook is a
// code cave written into the game process: it spills the argument
// registers into a ring buffer, runs the stolen prologue bytes, and
// jumps back, so the hooked function always completes. A pump
// goroutine drains the rings and invokes the Go handlers; handlers run
// on our side of the process boundary and therefore can never block or
// crash a game thread.
package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dmc3rando/gamemem"
	"dmc3rando/patch"
)

var (
	// ErrDuplicateTarget means a hook is already installed at the site.
	ErrDuplicateTarget = errors.New("duplicate hook target")

	// ErrStolenTooShort means the site cannot absorb the jump patch.
	ErrStolenTooShort = errors.New("stolen bytes shorter than jump patch")
)

// Reg names an x64 register a hook captures into each record.
type Reg uint8

const (
	RCX Reg = iota
	RDX
	R8
	R9
	RSI
	RDI
	RBP
)

// Record is one drained ring-buffer entry: the captured registers in
// the order the hook declared them.
type Record struct {
	Args []uint64
}

func (r Record) Arg(i int) uint64 {
	if i < 0 || i >= len(r.Args) {
		return 0
	}
	return r.Args[i]
}

// Hook describes one hooked game function.
type Hook struct {
	Name      string
	Offset    uintptr // relative to the game module base
	StolenLen int     // relocatable prologue bytes at the site, >= JumpLen
	Capture   []Reg
	Handler   func(Record)
}

// Allocator hands out executable memory inside the game process.
type Allocator interface {
	Alloc(size int) (uintptr, error)
	Free(addr uintptr) error
}

type installed struct {
	def     Hook
	site    uintptr // absolute
	cave    uintptr
	stolen  []byte
	enabled bool
	lastIdx uint64
}

// Registry installs, enables, disables and removes hooks. Site patches
// ride the patch engine's journal, so the process-restore invariant
// covers hooks for free.
type Registry struct {
	mem   gamemem.Memory
	alloc Allocator
	eng   *patch.Engine
	base  uintptr
	log   *slog.Logger

	mu    sync.Mutex
	hooks map[string]*installed
	sites map[uintptr]string
}

func NewRegistry(mem gamemem.Memory, alloc Allocator, eng *patch.Engine, base uintptr, log *slog.Logger) *Registry {
	return &Registry{
		mem:   mem,
		alloc: alloc,
		eng:   eng,
		base:  base,
		log:   log,
		hooks: make(map[string]*installed),
		sites: make(map[uintptr]string),
	}
}

func sitePatchName(name string) string { return "hook:" + name }

// Install allocates the cave and writes the shim but does not touch
// the hook site. Installing the same name or site twice fails with
// ErrDuplicateTarget.
func (r *Registry) Install(h Hook) error {
	if h.StolenLen < JumpLen {
		return fmt.Errorf("hook %s: %w", h.Name, ErrStolenTooShort)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	site := r.base + h.Offset
	if _, dup := r.hooks[h.Name]; dup {
		return fmt.Errorf("hook %s: %w", h.Name, ErrDuplicateTarget)
	}
	if owner, dup := r.sites[site]; dup {
		return fmt.Errorf("hook %s @ 0x%X (held by %s): %w", h.Name, site, owner, ErrDuplicateTarget)
	}

	stolen, err := r.mem.ReadBytes(site, h.StolenLen)
	if err != nil {
		return fmt.Errorf("hook %s: read stolen bytes: %w", h.Name, err)
	}

	cave, err := r.alloc.Alloc(caveSize)
	if err != nil {
		return fmt.Errorf("hook %s: alloc cave: %w", h.Name, err)
	}

	shim := buildShim(cave, site, stolen, h.Capture)
	if err := r.mem.WriteBytes(cave, shim); err != nil {
		r.alloc.Free(cave)
		return fmt.Errorf("hook %s: write shim: %w", h.Name, err)
	}
	// Zero the write index before the site ever jumps here.
	if err := gamemem.WriteU64(r.mem, cave+ringIdxOff, 0); err != nil {
		r.alloc.Free(cave)
		return fmt.Errorf("hook %s: init ring: %w", h.Name, err)
	}

	r.hooks[h.Name] = &installed{def: h, site: site, cave: cave, stolen: stolen}
	r.sites[site] = h.Name
	r.log.Info("hook installed", "name", h.Name, "site", fmt.Sprintf("0x%X", site), "cave", fmt.Sprintf("0x%X", cave))
	return nil
}

// Enable patches the hook site with a jump to the cave. Enabling an
// enabled hook is a no-op.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.hooks[name]
	if !ok {
		return fmt.Errorf("hook %s: not installed", name)
	}
	if in.enabled {
		return nil
	}
	jmp := siteJump(in.cave, in.def.StolenLen)
	if err := r.eng.WriteBytes(sitePatchName(name), in.site, jmp); err != nil {
		return err
	}
	in.enabled = true
	return nil
}

// Disable restores the stolen bytes. Disabling an uninstalled or
// already-disabled hook is a no-op.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.hooks[name]
	if !ok || !in.enabled {
		return nil
	}
	if err := r.eng.Restore(sitePatchName(name)); err != nil {
		return err
	}
	in.enabled = false
	return nil
}

// EnableAll enables every installed hook. A failure on one target is
// logged and does not stop the rest.
func (r *Registry) EnableAll() {
	for _, name := range r.names() {
		if err := r.Enable(name); err != nil {
			r.log.Warn("hook enable failed", "name", name, "err", err)
		}
	}
}

// DisableAll disables every installed hook.
func (r *Registry) DisableAll() {
	for _, name := range r.names() {
		if err := r.Disable(name); err != nil {
			r.log.Warn("hook disable failed", "name", name, "err", err)
		}
	}
}

// RemoveAll disables everything and frees the caves.
func (r *Registry) RemoveAll() {
	r.DisableAll()
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, in := range r.hooks {
		if err := r.alloc.Free(in.cave); err != nil {
			r.log.Warn("cave free failed", "name", name, "err", err)
		}
		delete(r.sites, in.site)
		delete(r.hooks, name)
	}
}

// Enabled reports whether the named hook is live.
func (r *Registry) Enabled(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.hooks[name]
	return ok && in.enabled
}

func (r *Registry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		out = append(out, name)
	}
	return out
}

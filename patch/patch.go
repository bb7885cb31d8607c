// Package patch is the journaled code/data patch engine. Every write
// to game memory that changes code or hard-coded tables goes through
// here so that one RestoreAll puts the process back byte-for-byte.
package patch

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dmc3rando/gamemem"
)

var (
	// ErrOpcodeMismatch means the byte at a rewrite site is not the
	// instruction the offsets promise. The binary is not the supported
	// build and further patching is unsafe.
	ErrOpcodeMismatch = errors.New("opcode mismatch")

	// ErrUnknownPatch is returned by Restore for a name never applied.
	ErrUnknownPatch = errors.New("unknown patch")
)

// Entry is one journaled patch.
type Entry struct {
	Name     string
	Addr     uintptr
	Bytes    []byte
	Original []byte
	Active   bool
}

// Engine applies and journals patches against a Memory.
type Engine struct {
	mem gamemem.Memory
	log *slog.Logger

	mu      sync.Mutex
	journal []Entry
}

func NewEngine(mem gamemem.Memory, log *slog.Logger) *Engine {
	return &Engine{mem: mem, log: log}
}

func (e *Engine) apply(name string, addr uintptr, data []byte) error {
	original, err := e.mem.ReadBytes(addr, len(data))
	if err != nil {
		return fmt.Errorf("patch %s: %w", name, err)
	}
	if err := e.mem.WriteBytesProtected(addr, data); err != nil {
		return fmt.Errorf("patch %s: %w", name, err)
	}
	e.mu.Lock()
	e.journal = append(e.journal, Entry{
		Name:     name,
		Addr:     addr,
		Bytes:    data,
		Original: original,
		Active:   true,
	})
	e.mu.Unlock()
	e.log.Debug("patch applied", "name", name, "addr", fmt.Sprintf("0x%X", addr), "len", len(data))
	return nil
}

// WriteBytes journals and applies an arbitrary byte patch.
func (e *Engine) WriteBytes(name string, addr uintptr, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	return e.apply(name, addr, cp)
}

// PokeByte journals and writes a single byte.
func (e *Engine) PokeByte(name string, addr uintptr, b byte) error {
	return e.apply(name, addr, []byte{b})
}

// Fill journals and writes n copies of b.
func (e *Engine) Fill(name string, addr uintptr, n int, b byte) error {
	data := make([]byte, n)
	for i := range data {
		data[i] = b
	}
	return e.apply(name, addr, data)
}

// RewriteRelativeCall adjusts the displacement of the E8 call at addr
// by -delta. The opcode is checked first; a mismatch aborts.
func (e *Engine) RewriteRelativeCall(name string, addr uintptr, delta int32) error {
	return e.rewriteRel(name, addr, 0xE8, delta)
}

// RewriteRelativeJmp is RewriteRelativeCall for an E9 jump.
func (e *Engine) RewriteRelativeJmp(name string, addr uintptr, delta int32) error {
	return e.rewriteRel(name, addr, 0xE9, delta)
}

func (e *Engine) rewriteRel(name string, addr uintptr, opcode byte, delta int32) error {
	cur, err := e.mem.ReadBytes(addr, 5)
	if err != nil {
		return fmt.Errorf("patch %s: %w", name, err)
	}
	if cur[0] != opcode {
		return fmt.Errorf("patch %s @ 0x%X: found %02X, want %02X: %w",
			name, addr, cur[0], opcode, ErrOpcodeMismatch)
	}
	disp := int32(uint32(cur[1]) | uint32(cur[2])<<8 | uint32(cur[3])<<16 | uint32(cur[4])<<24)
	disp -= delta
	out := []byte{opcode, byte(disp), byte(disp >> 8), byte(disp >> 16), byte(disp >> 24)}
	return e.apply(name, addr, out)
}

// AbsThunkLen is the unpadded length of an absolute thunk.
const AbsThunkLen = 14

// AbsThunk assembles push rax / mov rax, imm64 / call rax / pop rax,
// NOP-padded to minLen.
func AbsThunk(target uintptr, minLen int) []byte {
	t := []byte{
		0x50,                         // push rax
		0x48, 0xB8, 0, 0, 0, 0, 0, 0, 0, 0, // mov rax, imm64
		0xFF, 0xD0, // call rax
		0x58, // pop rax
	}
	for i := 0; i < 8; i++ {
		t[3+i] = byte(target >> (8 * i))
	}
	for len(t) < minLen {
		t = append(t, 0x90)
	}
	return t
}

// InstallAbsThunk writes an absolute far-call thunk at addr, padded
// with NOPs to minLen. The caller guarantees the clobbered
// instructions are safe to lose.
func (e *Engine) InstallAbsThunk(name string, addr, target uintptr, minLen int) error {
	if minLen < AbsThunkLen {
		minLen = AbsThunkLen
	}
	return e.apply(name, addr, AbsThunk(target, minLen))
}

// Restore reverts the newest active entry with the given name.
func (e *Engine) Restore(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.journal) - 1; i >= 0; i-- {
		p := &e.journal[i]
		if p.Name != name || !p.Active {
			continue
		}
		if err := e.mem.WriteBytesProtected(p.Addr, p.Original); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		p.Active = false
		e.log.Debug("patch restored", "name", name, "addr", fmt.Sprintf("0x%X", p.Addr))
		return nil
	}
	return fmt.Errorf("restore %s: %w", name, ErrUnknownPatch)
}

// RestoreAll replays the journal in reverse, reverting every active
// entry. The journal is emptied; errors are collected, not fatal per
// entry, so one bad page does not leave the rest applied.
func (e *Engine) RestoreAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for i := len(e.journal) - 1; i >= 0; i-- {
		p := &e.journal[i]
		if !p.Active {
			continue
		}
		if err := e.mem.WriteBytesProtected(p.Addr, p.Original); err != nil {
			e.log.Warn("patch restore failed", "name", p.Name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.Active = false
	}
	e.journal = e.journal[:0]
	return firstErr
}

// ActiveCount reports how many journal entries are still applied.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, p := range e.journal {
		if p.Active {
			n++
		}
	}
	return n
}

// IsActive reports whether a named patch is currently applied.
func (e *Engine) IsActive(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.journal) - 1; i >= 0; i-- {
		if e.journal[i].Name == name {
			return e.journal[i].Active
		}
	}
	return false
}

package gamemem

import (
	"fmt"
	"sync"
)

const fakePageSize = 0x1000

// FakeMemory is a sparse in-memory Memory used by tests and by the
// offline debug tools. Pages materialize zero-filled on first touch.
type FakeMemory struct {
	mu    sync.Mutex
	pages map[uintptr][]byte
}

func NewFakeMemory() *FakeMemory {
	return &FakeMemory{pages: make(map[uintptr][]byte)}
}

func (m *FakeMemory) page(base uintptr) []byte {
	p, ok := m.pages[base]
	if !ok {
		p = make([]byte, fakePageSize)
		m.pages[base] = p
	}
	return p
}

func (m *FakeMemory) ReadBytes(addr uintptr, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("read %d bytes: %w", n, ErrBadAddress)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		a := addr + uintptr(i)
		out[i] = m.page(a&^uintptr(fakePageSize-1))[a&(fakePageSize-1)]
	}
	return out, nil
}

func (m *FakeMemory) WriteBytes(addr uintptr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range data {
		a := addr + uintptr(i)
		m.page(a&^uintptr(fakePageSize-1))[a&(fakePageSize-1)] = b
	}
	return nil
}

func (m *FakeMemory) WriteBytesProtected(addr uintptr, data []byte) error {
	return m.WriteBytes(addr, data)
}

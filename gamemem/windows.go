//go:build windows

package gamemem

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const PAGE_EXECUTE_READWRITE = 0x40

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procReadProcessMemory     = kernel32.NewProc("ReadProcessMemory")
	procWriteProcessMemory    = kernel32.NewProc("WriteProcessMemory")
	procVirtualProtectEx      = kernel32.NewProc("VirtualProtectEx")
	procFlushInstructionCache = kernel32.NewProc("FlushInstructionCache")
)

// WinMemory implements Memory over an open process handle. All
// protected writes in the process share one mutex so no game thread
// can ever observe mismatched page protection from two racing patches.
type WinMemory struct {
	handle windows.Handle

	patchMu sync.Mutex
}

func NewWinMemory(handle windows.Handle) *WinMemory {
	return &WinMemory{handle: handle}
}

func (m *WinMemory) ReadBytes(addr uintptr, n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	var read uintptr
	ret, _, _ := procReadProcessMemory.Call(
		uintptr(m.handle), addr,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(n),
		uintptr(unsafe.Pointer(&read)),
	)
	if ret == 0 || read != uintptr(n) {
		return nil, fmt.Errorf("read %d bytes @ 0x%X: %w", n, addr, ErrBadAddress)
	}
	return buf, nil
}

func (m *WinMemory) WriteBytes(addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var written uintptr
	ret, _, _ := procWriteProcessMemory.Call(
		uintptr(m.handle), addr,
		uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)),
		uintptr(unsafe.Pointer(&written)),
	)
	if ret == 0 || written != uintptr(len(data)) {
		return fmt.Errorf("write %d bytes @ 0x%X: %w", len(data), addr, ErrBadAddress)
	}
	return nil
}

// WriteBytesProtected writes into a code page: RWX the covering pages,
// write, restore protection, flush the instruction cache.
func (m *WinMemory) WriteBytesProtected(addr uintptr, data []byte) error {
	var err error
	werr := m.WithWritable(addr, len(data), func() {
		err = m.WriteBytes(addr, data)
	})
	if werr != nil {
		return werr
	}
	return err
}

// WithWritable runs f with [addr, addr+n) writable. Protection is
// restored on every exit path, including a panic inside f.
func (m *WinMemory) WithWritable(addr uintptr, n int, f func()) error {
	m.patchMu.Lock()
	defer m.patchMu.Unlock()

	var oldProtect uint32
	ret, _, callErr := procVirtualProtectEx.Call(
		uintptr(m.handle), addr, uintptr(n),
		PAGE_EXECUTE_READWRITE,
		uintptr(unsafe.Pointer(&oldProtect)),
	)
	if ret == 0 {
		return fmt.Errorf("VirtualProtectEx @ 0x%X: %v", addr, callErr)
	}
	defer func() {
		procVirtualProtectEx.Call(
			uintptr(m.handle), addr, uintptr(n),
			uintptr(oldProtect),
			uintptr(unsafe.Pointer(&oldProtect)),
		)
		procFlushInstructionCache.Call(uintptr(m.handle), addr, uintptr(n))
	}()

	f()
	return nil
}

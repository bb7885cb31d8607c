//go:build windows

package hook

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	MEM_COMMIT             = 0x1000
	MEM_RESERVE            = 0x2000
	MEM_RELEASE            = 0x8000
	PAGE_EXECUTE_READWRITE = 0x40
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAllocEx = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx  = kernel32.NewProc("VirtualFreeEx")
)

// CaveAllocator hands out RWX pages in the game process.
type CaveAllocator struct {
	handle windows.Handle
}

func NewCaveAllocator(handle windows.Handle) *CaveAllocator {
	return &CaveAllocator{handle: handle}
}

func (a *CaveAllocator) Alloc(size int) (uintptr, error) {
	addr, _, err := procVirtualAllocEx.Call(
		uintptr(a.handle), 0, uintptr(size),
		MEM_COMMIT|MEM_RESERVE, PAGE_EXECUTE_READWRITE,
	)
	if addr == 0 {
		return 0, fmt.Errorf("VirtualAllocEx: %v", err)
	}
	return addr, nil
}

func (a *CaveAllocator) Free(addr uintptr) error {
	ret, _, err := procVirtualFreeEx.Call(uintptr(a.handle), addr, 0, MEM_RELEASE)
	if ret == 0 {
		return fmt.Errorf("VirtualFreeEx @ 0x%X: %v", addr, err)
	}
	return nil
}

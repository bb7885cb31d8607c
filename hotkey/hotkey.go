//go:build windows

// Package hotkey registers global hotkeys and dispatches their
// callbacks from a dedicated message loop.
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazyDLL("user32.dll")
	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
	procPeekMessage      = user32.NewProc("PeekMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessage  = user32.NewProc("DispatchMessageW")
)

const (
	wmHotkey = 0x0312
	pmRemove = 0x0001

	MOD_ALT      = 0x0001
	MOD_CONTROL  = 0x0002
	MOD_SHIFT    = 0x0004
	MOD_NOREPEAT = 0x4000
)

// Virtual key codes for the keys the randomizer binds.
const (
	VK_END = 0x23
	VK_F5  = 0x74
	VK_F8  = 0x77
)

type Callback func()

// Manager owns the hotkey registrations. Register before Start; the
// message loop and RegisterHotKey must share a thread, so Start locks
// its goroutine to one.
type Manager struct {
	log *slog.Logger

	mu        sync.Mutex
	pending   []registration
	callbacks map[int]Callback
}

type registration struct {
	id        int
	modifiers uint32
	vk        uint32
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:       log.With("component", "hotkey"),
		callbacks: make(map[int]Callback),
	}
}

// Register queues a hotkey. The id must be unique per manager.
func (m *Manager) Register(id int, modifiers, vk uint32, cb Callback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.callbacks[id]; ok {
		return fmt.Errorf("hotkey id %d already registered", id)
	}
	m.callbacks[id] = cb
	m.pending = append(m.pending, registration{id: id, modifiers: modifiers | MOD_NOREPEAT, vk: vk})
	return nil
}

// Start runs the message loop until the context ends.
func (m *Manager) Start(ctx context.Context) {
	go m.loop(ctx)
}

type message struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

func (m *Manager) loop(ctx context.Context) {
	// Thread-scoped hotkeys: the registering thread receives the
	// WM_HOTKEY messages.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	m.mu.Lock()
	regs := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, r := range regs {
		ret, _, err := procRegisterHotKey.Call(0, uintptr(r.id), uintptr(r.modifiers), uintptr(r.vk))
		if ret == 0 {
			m.log.Warn("hotkey not registered", "id", r.id, "vk", fmt.Sprintf("0x%X", r.vk), "err", err)
			continue
		}
		m.log.Debug("hotkey registered", "id", r.id, "vk", fmt.Sprintf("0x%X", r.vk))
	}
	defer func() {
		m.mu.Lock()
		for id := range m.callbacks {
			procUnregisterHotKey.Call(0, uintptr(id))
		}
		m.mu.Unlock()
	}()

	var msg message
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ret, _, _ := procPeekMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, pmRemove)
		if ret == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if msg.message == wmHotkey {
			m.mu.Lock()
			cb := m.callbacks[int(msg.wParam)]
			m.mu.Unlock()
			if cb != nil {
				go cb()
			}
			continue
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

//go:build windows

package overlay

import (
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazyDLL("user32.dll")
	gdi32    = windows.NewLazyDLL("gdi32.dll")
	kernel32 = windows.NewLazyDLL("kernel32.dll")

	procCreateWindowExW            = user32.NewProc("CreateWindowExW")
	procDefWindowProc              = user32.NewProc("DefWindowProcW")
	procRegisterClassEx            = user32.NewProc("RegisterClassExW")
	procPeekMessage                = user32.NewProc("PeekMessageW")
	procTranslateMessage           = user32.NewProc("TranslateMessage")
	procDispatchMessage            = user32.NewProc("DispatchMessageW")
	procPostQuitMessage            = user32.NewProc("PostQuitMessage")
	procFindWindowW                = user32.NewProc("FindWindowW")
	procGetWindowRect              = user32.NewProc("GetWindowRect")
	procGetForegroundWindow        = user32.NewProc("GetForegroundWindow")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procShowWindow                 = user32.NewProc("ShowWindow")
	procUpdateWindow               = user32.NewProc("UpdateWindow")
	procGetDC                      = user32.NewProc("GetDC")
	procReleaseDC                  = user32.NewProc("ReleaseDC")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
	procDestroyWindow              = user32.NewProc("DestroyWindow")
	procFillRect                   = user32.NewProc("FillRect")

	procCreateFontIndirect     = gdi32.NewProc("CreateFontIndirectW")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procSetTextColor           = gdi32.NewProc("SetTextColor")
	procSetBkMode              = gdi32.NewProc("SetBkMode")
	procTextOut                = gdi32.NewProc("TextOutW")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procCreateSolidBrush       = gdi32.NewProc("CreateSolidBrush")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procBitBlt                 = gdi32.NewProc("BitBlt")

	procGetModuleHandle = kernel32.NewProc("GetModuleHandleW")
)

const (
	wsPopup        = 0x80000000
	wsExLayered    = 0x00080000
	wsExTopmost    = 0x00000008
	wsExToolWindow = 0x00000080
	wsExTransparent = 0x00000020

	lwaAlpha      = 0x00000002
	swpNoActivate = 0x0010
	swShow        = 5
	swHide        = 0

	wmDestroy = 0x0002
	wmQuit    = 0x0012
	pmRemove  = 0x0001

	bkTransparent = 1
	srcCopy       = 0x00CC0020
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

type rect struct {
	Left, Top, Right, Bottom int32
}

type logFont struct {
	Height         int32
	Width          int32
	Escapement     int32
	Orientation    int32
	Weight         int32
	Italic         byte
	Underline      byte
	StrikeOut      byte
	CharSet        byte
	OutPrecision   byte
	ClipPrecision  byte
	Quality        byte
	PitchAndFamily byte
	FaceName       [32]uint16
}

// gameWindowTitles in the order worth probing. The Steam HD release
// and the modded window both match one of these.
var gameWindowTitles = []string{
	"Devil May Cry 3",
	"Devil May Cry HD Collection",
	"DMC3",
}

// Window is a layered click-through window pinned to the game's
// client area that draws the State text every frame.
type Window struct {
	hwnd     windows.Handle
	gameHwnd uintptr
	state    *State

	mu      sync.Mutex
	visible bool
	alpha   byte
	width   int
	height  int
}

func NewWindow(state *State) (*Window, error) {
	w := &Window{
		state:   state,
		visible: true,
		alpha:   210,
		width:   420,
		height:  160,
	}

	className, _ := syscall.UTF16PtrFromString("DMC3RandoOverlay")
	hInstance, _, _ := procGetModuleHandle.Call(0)

	wc := wndClassEx{
		Size:      uint32(unsafe.Sizeof(wndClassEx{})),
		WndProc:   syscall.NewCallback(w.wndProc),
		Instance:  windows.Handle(hInstance),
		ClassName: className,
	}
	if ret, _, _ := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
		return nil, fmt.Errorf("overlay: register class failed")
	}

	title, _ := syscall.UTF16PtrFromString("DMC3 Randomizer")
	hwnd, _, _ := procCreateWindowExW.Call(
		wsExLayered|wsExTopmost|wsExToolWindow|wsExTransparent,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		wsPopup,
		10, 10,
		uintptr(w.width), uintptr(w.height),
		0, 0,
		hInstance,
		0,
	)
	if hwnd == 0 {
		return nil, fmt.Errorf("overlay: create window failed")
	}
	w.hwnd = windows.Handle(hwnd)

	procSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(w.alpha), lwaAlpha)
	procShowWindow.Call(hwnd, swShow)
	procUpdateWindow.Call(hwnd)
	return w, nil
}

func (w *Window) wndProc(hwnd windows.Handle, message uint32, wParam, lParam uintptr) uintptr {
	switch message {
	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}
	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(message), wParam, lParam)
	return ret
}

// Run drives position tracking, message pumping and drawing until the
// stop channel closes. Meant for its own goroutine.
func (w *Window) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			procDestroyWindow.Call(uintptr(w.hwnd))
			return
		case <-ticker.C:
			w.processMessages()
			w.updatePosition()
			w.draw()
		}
	}
}

func (w *Window) processMessages() {
	var m msg
	for i := 0; i < 10; i++ {
		ret, _, _ := procPeekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if ret == 0 {
			return
		}
		if m.Message == wmQuit {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (w *Window) findGameWindow() {
	for _, title := range gameWindowTitles {
		p, _ := syscall.UTF16PtrFromString(title)
		hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
		if hwnd != 0 {
			w.gameHwnd = hwnd
			return
		}
	}
}

// updatePosition pins the overlay to the game window's top-left and
// hides it while the game is not in the foreground.
func (w *Window) updatePosition() {
	if w.gameHwnd == 0 {
		w.findGameWindow()
		if w.gameHwnd == 0 {
			return
		}
	}

	var r rect
	if ret, _, _ := procGetWindowRect.Call(w.gameHwnd, uintptr(unsafe.Pointer(&r))); ret == 0 {
		w.gameHwnd = 0
		return
	}

	fg, _, _ := procGetForegroundWindow.Call()
	if fg != w.gameHwnd {
		procShowWindow.Call(uintptr(w.hwnd), swHide)
		return
	}

	w.mu.Lock()
	visible := w.visible
	w.mu.Unlock()
	if visible {
		procShowWindow.Call(uintptr(w.hwnd), swShow)
	}

	procSetWindowPos.Call(
		uintptr(w.hwnd),
		w.gameHwnd,
		uintptr(r.Left+10),
		uintptr(r.Top+34),
		uintptr(w.width),
		uintptr(w.height),
		swpNoActivate,
	)
}

// Toggle flips overlay visibility.
func (w *Window) Toggle() {
	w.mu.Lock()
	w.visible = !w.visible
	visible := w.visible
	alpha := w.alpha
	w.mu.Unlock()
	if visible {
		procSetLayeredWindowAttributes.Call(uintptr(w.hwnd), 0, uintptr(alpha), lwaAlpha)
		procShowWindow.Call(uintptr(w.hwnd), swShow)
	} else {
		procSetLayeredWindowAttributes.Call(uintptr(w.hwnd), 0, 0, lwaAlpha)
	}
}

// HWND exposes the native handle for hotkey registration.
func (w *Window) HWND() uintptr { return uintptr(w.hwnd) }

// draw renders the state lines double-buffered.
func (w *Window) draw() {
	hdc, _, _ := procGetDC.Call(uintptr(w.hwnd))
	if hdc == 0 {
		return
	}
	defer procReleaseDC.Call(uintptr(w.hwnd), hdc)

	memDC, _, _ := procCreateCompatibleDC.Call(hdc)
	if memDC == 0 {
		return
	}
	defer procDeleteDC.Call(memDC)

	memBitmap, _, _ := procCreateCompatibleBitmap.Call(hdc, uintptr(w.width), uintptr(w.height))
	if memBitmap == 0 {
		return
	}
	defer procDeleteObject.Call(memBitmap)

	oldBitmap, _, _ := procSelectObject.Call(memDC, memBitmap)
	defer procSelectObject.Call(memDC, oldBitmap)

	r := rect{0, 0, int32(w.width), int32(w.height)}
	brush, _, _ := procCreateSolidBrush.Call(0x00000000)
	procFillRect.Call(memDC, uintptr(unsafe.Pointer(&r)), brush)
	procDeleteObject.Call(brush)

	lf := logFont{Height: 16, Weight: 400}
	copy(lf.FaceName[:], syscall.StringToUTF16("Consolas"))
	font, _, _ := procCreateFontIndirect.Call(uintptr(unsafe.Pointer(&lf)))
	oldFont, _, _ := procSelectObject.Call(memDC, font)

	procSetBkMode.Call(memDC, bkTransparent)
	procSetTextColor.Call(memDC, 0x00FFFFFF)

	y := int32(10)
	for _, line := range w.state.Lines() {
		text := syscall.StringToUTF16(line)
		n := len(text) - 1
		if n > 0 {
			procTextOut.Call(memDC, 10, uintptr(y), uintptr(unsafe.Pointer(&text[0])), uintptr(n))
		}
		y += 18
	}

	procSelectObject.Call(memDC, oldFont)
	procDeleteObject.Call(font)

	procBitBlt.Call(hdc, 0, 0, uintptr(w.width), uintptr(w.height), memDC, 0, 0, srcCopy)
}

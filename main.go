//go:build windows

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/windows"

	"dmc3rando/applog"
	"dmc3rando/archipelago"
	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/hook"
	"dmc3rando/hotkey"
	"dmc3rando/journal"
	"dmc3rando/locations"
	"dmc3rando/overlay"
	"dmc3rando/patch"
	"dmc3rando/process"
	"dmc3rando/rando"
	"dmc3rando/session"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	handle windows.Handle

	client  *archipelago.Client
	core    *rando.Core
	pump    *hook.Pump
	window  *overlay.Window
	journal *journal.Writer
	hotkeys *hotkey.Manager

	stop   context.CancelFunc
	closed chan struct{}
}

func NewApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log, closed: make(chan struct{})}

	log.Info("waiting for game process", "exe", config.GameExeName)
	pid, err := process.WaitFor(ctx, config.GameExeName, time.Second)
	if err != nil {
		return nil, err
	}
	base, exePath, err := process.ModuleBase(pid, config.GameExeName)
	if err != nil {
		return nil, err
	}
	if err := app.verifyImages(pid, exePath); err != nil {
		return nil, err
	}

	handle, err := process.Open(pid)
	if err != nil {
		return nil, err
	}
	app.handle = handle

	mem := gamemem.NewWinMemory(handle)
	eng := patch.NewEngine(mem, log)
	alloc := hook.NewCaveAllocator(handle)
	registry := hook.NewRegistry(mem, alloc, eng, base, log)
	sess := session.New(mem, base, log)

	catalog, err := locations.Load()
	if err != nil {
		return nil, fmt.Errorf("location catalogue: %w", err)
	}

	app.client = archipelago.NewClient(archipelago.Options{
		Address:   cfg.Connections.Address,
		Port:      cfg.Connections.Port,
		SlotName:  cfg.Connections.SlotName,
		Password:  cfg.Connections.Password,
		CachePath: "cache.json",
		Log:       log,
	})

	app.journal = journal.NewWriter("journal", log)

	state := overlay.NewState()
	window, err := overlay.NewWindow(state)
	if err != nil {
		return nil, err
	}
	app.window = window

	app.core = rando.NewCore(rando.CoreOptions{
		Mem:     mem,
		Base:    base,
		Session: sess,
		Engine:  eng,
		Hooks:   registry,
		Client:  app.client,
		Catalog: catalog,
		Notify:  state,
		Journal: app.journal,
		Log:     log,
	})
	if err := app.core.InstallHooks(cfg.Mods); err != nil {
		return nil, fmt.Errorf("hooks: %w", err)
	}

	app.pump = hook.NewPump(registry, 10*time.Millisecond)
	app.log.Info("attached", "pid", pid, "base", fmt.Sprintf("0x%X", base))
	return app, nil
}

// verifyImages checks the version locks. The patch offsets only hold
// for the exact binaries they were lifted from.
func (app *App) verifyImages(pid uint32, exePath string) error {
	err := process.VerifyImage(exePath, config.GameImageHash)
	if err == nil {
		if _, dllPath, derr := process.ModuleBase(pid, config.MaryDllName); derr == nil {
			err = process.VerifyImage(dllPath, config.MaryImageHash)
		}
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, process.ErrHashMismatch) {
		if app.cfg.Mods.AllowHashMismatch {
			app.log.Warn("image hash mismatch, patching anyway", "err", err)
			return nil
		}
		return fmt.Errorf("%w (set mods.allow_hash_mismatch to override)", err)
	}
	return err
}

func (app *App) Run(ctx context.Context) {
	ctx, app.stop = context.WithCancel(ctx)
	stopCh := ctx.Done()

	go app.pump.Run(ctx)
	go app.core.Run(ctx)
	go app.window.Run(stopCh)
	go app.autoConnector(ctx)
	go app.watchdog(ctx)
	app.registerHotkeys(ctx)

	<-stopCh
	close(app.closed)
}

// autoConnector keeps poking the server while disconnected, unless the
// user turned it off and connects by hotkey.
func (app *App) autoConnector(ctx context.Context) {
	if app.cfg.Connections.DisableAutoConnect {
		return
	}
	interval := time.Duration(app.cfg.Connections.ReconnectIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if app.client.State() != archipelago.StateDisconnected {
				continue
			}
			if err := app.client.Connect(ctx); err != nil {
				app.log.Debug("connect attempt failed", "err", err)
			}
		}
	}
}

// watchdog exits when the game process goes away. Patches die with the
// process, so there is nothing left to revert.
func (app *App) watchdog(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := process.Find(config.GameExeName); err != nil {
				app.log.Info("game process exited")
				app.stop()
				return
			}
			if last := app.pump.LastTick(); last.Unix() > 0 && time.Since(last) > 3*time.Second {
				app.log.Warn("hook pump stalled", "last_tick", last)
			}
		}
	}
}

// Hotkeys: F5 connects on demand, END hides the overlay.
func (app *App) registerHotkeys(ctx context.Context) {
	hm := hotkey.NewManager(app.log)
	app.hotkeys = hm
	_ = hm.Register(1, 0, hotkey.VK_F5, func() {
		if err := app.client.Connect(ctx); err != nil {
			app.log.Warn("manual connect failed", "err", err)
		}
	})
	_ = hm.Register(2, 0, hotkey.VK_END, app.window.Toggle)
	hm.Start(ctx)
}

func (app *App) Close() {
	if app.stop != nil {
		app.stop()
		<-app.closed
	}
	app.core.Shutdown()
	if err := app.journal.Close(); err != nil {
		app.log.Warn("journal close", "err", err)
	}
	if app.handle != 0 {
		windows.CloseHandle(app.handle)
	}
}

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, closer := applog.Setup(cfg.Logging.Dir, cfg.Logging.Debug)
	defer closer.Close()

	log.Info("dmc3 randomizer starting",
		"server", fmt.Sprintf("%s:%d", cfg.Connections.Address, cfg.Connections.Port),
		"slot", cfg.Connections.SlotName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Run(ctx)
	log.Info("shut down")
}

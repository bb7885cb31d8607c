//go:build windows

// Session dump tool: attaches to a running game and prints the live
// session block once per second. Used to re-derive offsets after a
// game update.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/windows"

	"dmc3rando/config"
	"dmc3rando/gamemem"
	"dmc3rando/process"
	"dmc3rando/session"
)

func main() {
	pid, err := process.Find(config.GameExeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %s not running: %v\n", config.GameExeName, err)
		os.Exit(1)
	}
	fmt.Printf("[OK] pid %d\n", pid)

	base, path, err := process.ModuleBase(pid, config.GameExeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] module base: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[OK] base 0x%X (%s)\n", base, path)
	if err := process.VerifyImage(path, config.GameImageHash); err != nil {
		fmt.Printf("[WARN] %v\n", err)
	}

	handle, err := process.Open(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] open process: %v\n", err)
		os.Exit(1)
	}
	defer windows.CloseHandle(handle)

	sess := session.New(gamemem.NewWinMemory(handle), base, nil)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			dump(sess)
		}
	}
}

func dump(sess *session.Accessor) {
	if err := sess.Usable(); err != nil {
		fmt.Println("-- title screen / loading --")
		return
	}
	mission, _ := sess.Mission()
	room, _ := sess.Room()
	char, _ := sess.Character()
	hp, _ := sess.CurrentHP()
	maxHP, _ := sess.MaxHP()
	maxMagic, _ := sess.MaxMagic()
	weapons, _ := sess.Weapons()
	guns, _ := sess.GunLevels()

	fmt.Printf("mission=%d room=%d char=%d hp=%d/%d magic=%d weapons=%v guns=%v\n",
		mission, room, char, hp, maxHP, maxMagic, weapons, guns)
}

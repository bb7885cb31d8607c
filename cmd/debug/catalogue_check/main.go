// Catalogue sanity tool: validates the embedded location catalogue
// and dry-runs the pickup classifier against every entry.
package main

import (
	"fmt"
	"os"

	"dmc3rando/items"
	"dmc3rando/locations"
)

func main() {
	cat, err := locations.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] catalogue: %v\n", err)
		os.Exit(1)
	}
	entries := cat.All()
	fmt.Printf("[OK] %d entries loaded\n", len(entries))

	perMission := map[uint8]int{}
	failures := 0
	for _, e := range entries {
		perMission[e.Mission]++

		loc := locations.Location{
			Type:    locations.Standard,
			ItemID:  e.DefaultItemID,
			Room:    e.Room,
			Mission: e.Mission,
		}
		if e.Coordinates != nil {
			loc.Coord = *e.Coordinates
		}
		key, err := cat.Classify(loc, 1, 1)
		if err != nil {
			fmt.Printf("[FAIL] %-45s room %3d: %v\n", e.Key, e.Room, err)
			failures++
			continue
		}
		if key != e.Key {
			fmt.Printf("[AMBIG] %-45s classified as %q\n", e.Key, key)
		}
	}

	fmt.Println()
	for m := uint8(1); m <= 20; m++ {
		fmt.Printf("mission %2d: %d locations\n", m, perMission[m])
	}
	fmt.Println()
	for _, e := range entries {
		marker := " "
		if e.Adjudicator {
			marker = "A"
		}
		fmt.Printf("%s %-45s default=%s\n", marker, e.Key, items.Name(e.DefaultItemID))
	}

	if failures > 0 {
		fmt.Printf("\n%d entries failed round-trip classification\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall entries classify back to themselves")
}

// aobscan scans a region snapshot on disk for a byte pattern and prints the
// hits with surrounding context. Snapshots are raw dumps; the base flag maps
// the file back to the addresses it was taken from.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"hostbridge/bridge"
	"hostbridge/hexdump"
)

func main() {
	fileFlag := flag.String("file", "", "Region snapshot to scan")
	baseFlag := flag.Uint64("base", 0x140000000, "Address the snapshot was taken at")
	patternFlag := flag.String("pattern", "", "Byte pattern, e.g. '48 8B ?? ?? 00'")
	allFlag := flag.Bool("all", false, "Report every match instead of the first")
	contextFlag := flag.Uint("context", 16, "Context bytes shown around each hit")
	flag.Parse()

	if *fileFlag == "" || *patternFlag == "" {
		fmt.Println("Error: -file and -pattern are required")
		flag.Usage()
		os.Exit(1)
	}

	pattern, err := bridge.ParsePattern(*patternFlag)
	if err != nil {
		fmt.Printf("Error parsing pattern: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*fileFlag)
	if err != nil {
		fmt.Printf("Error reading snapshot: %v\n", err)
		os.Exit(1)
	}
	region := bridge.NewBufferRegion(bridge.Address(*baseFlag), data)
	scanner := bridge.NewScanner()

	fmt.Printf("Scanning %s (%d bytes at %s) for %s\n",
		*fileFlag, len(data), region.Base(), pattern.String())

	var matches []bridge.Address
	if *allFlag {
		matches, err = scanner.ScanAll(region, pattern)
	} else {
		var m bridge.Address
		m, err = scanner.Scan(region, pattern)
		matches = []bridge.Address{m}
	}
	if err != nil {
		if errors.Is(err, bridge.ErrPatternNotFound) {
			fmt.Println("No matches")
			os.Exit(2)
		}
		fmt.Printf("Error scanning: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d match(es)\n", len(matches))
	for _, match := range matches {
		fmt.Printf("\nMatch at %s (offset %#x):\n", match, uint64(match-region.Base()))
		printContext(region, match, pattern, *contextFlag)
	}
}

// printContext dumps the bytes around a hit, clamped to the region, with the
// matched fixed bytes highlighted.
func printContext(region *bridge.BufferRegion, match bridge.Address, pattern bridge.Pattern, context uint) {
	start := match.Add(-int64(context))
	if start < region.Base() {
		start = region.Base()
	}
	end := match.Add(int64(len(pattern.Bytes) + int(context)))
	if limit := region.Base().Add(int64(region.Size())); end > limit {
		end = limit
	}

	data, err := region.ReadMemory(start, bridge.Size(end-start))
	if err != nil {
		fmt.Printf("  (context unavailable: %v)\n", err)
		return
	}

	o := hexdump.DefaultOptions()
	o.StartOffset = uint64(start)
	o.OffsetWidth = 12
	o.Highlight = matchedBytes(region, match, pattern)
	fmt.Print(hexdump.Dump(data, o))
}

// matchedBytes reads the concrete bytes the pattern matched so wildcard
// positions highlight too.
func matchedBytes(region bridge.Region, match bridge.Address, pattern bridge.Pattern) []byte {
	b, err := region.ReadMemory(match, bridge.Size(len(pattern.Bytes)))
	if err != nil {
		return nil
	}
	return b
}

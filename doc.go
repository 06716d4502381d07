// Package aesdlogd provides a bounded, append-only log of newline-terminated
// records with two coordinated front-ends: a character-device-style local
// API (internal/device) and a networked append/replay service
// (internal/server). The log retains only the most recent RingCapacity
// completed records; new records evict the oldest once the ring is full.
//
// # Quick Start
//
// Wiring the bounded in-memory store directly:
//
//	store := aesdlogd.NewStore(10)
//	store.Write([]byte("hello\n"))
//	records, _ := store.Snapshot()
//
// # Backing-file mode
//
// For the server-only, unbounded-retention mode described in spec.md §6:
//
//	store, err := aesdlogd.NewFileStore("/var/tmp/aesdsocketdata")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
// # Configuration
//
// Config carries every tunable the reference implementation fixed at
// compile time — ring capacity, listen address, timer interval, buffer
// sizes — loadable from a YAML file via LoadConfig, or used as-is via
// DefaultConfig.
//
// See cmd/aesdsocketd for the command-line entry point that wires Config,
// Store, and internal/server together. The command does not use
// internal/device; it only logs Config.DevicePath.
package aesdlogd

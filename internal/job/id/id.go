// Package id provides unique identifier generation for runs and jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// PrefixRun tags batch run identifiers.
	PrefixRun = "run"
	// PrefixJob tags per-video job identifiers.
	PrefixJob = "job"
)

// Generate creates a new unique ID.
// Format: <prefix>-<timestamp>-<random>
// Example: run-1701432000-a1b2c3d4
func Generate(prefix string) string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("%s-%d", prefix, timestamp)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, timestamp, hex.EncodeToString(random))
}

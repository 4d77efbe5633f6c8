package types

import "fmt"

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// ToBytes converts a raw byte counter as reported by the OS.
func ToBytes(v uint64) Bytes { return Bytes(v) }

// Uint64 returns the raw byte count.
func (b Bytes) Uint64() uint64 { return uint64(b) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }

// GB returns the number of gigabytes (1024 base). RAM and swap "used" columns
// are reported in this unit.
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }

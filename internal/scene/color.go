package scene

import "github.com/zeebo/xxh3"

// AccentColor derives a stable 0xRRGGBB accent color from a player id, so
// every client renders the same player with the same color.
func AccentColor(id string) uint32 {
	return uint32(xxh3.HashString(id) & 0xFFFFFF)
}

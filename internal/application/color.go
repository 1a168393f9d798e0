package application

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// defaultPalette holds the display colors assigned to slots created without
// an explicit color. Changing the order or length changes every derived
// default, so entries are append-only.
var defaultPalette = []string{
	"#7986CB",
	"#33B679",
	"#8E24AA",
	"#E67C73",
	"#F6BF26",
	"#F4511E",
	"#039BE5",
	"#616161",
	"#3F51B5",
	"#0B8043",
}

// DefaultColor deterministically derives a display color from a user id.
// The same user always receives the same color: the id is hashed into a
// stable integer and reduced modulo the palette size.
func DefaultColor(userID string) string {
	sum := blake2b.Sum256([]byte(userID))
	index := binary.BigEndian.Uint64(sum[:8]) % uint64(len(defaultPalette))
	return defaultPalette[index]
}

// PaletteSize reports the number of distinct default colors.
func PaletteSize() int {
	return len(defaultPalette)
}

package world

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
)

// Biomes and gather yields are pure functions of the world seed and the tile.
// Hashing the coordinates against the seed gives every server the same answer
// with no terrain storage at all.

var biomeRing = []string{"plains", "forest", "mountains", "desert", "tundra", "wetlands"}

func tileHash(seed int64, parts ...any) [32]byte {
	input := fmt.Sprint(seed)
	for _, p := range parts {
		input += fmt.Sprintf("-%v", p)
	}
	return blake3.Sum256([]byte(input))
}

// BiomeAt returns the biome of a tile. Plains are weighted double so open
// ground dominates the map.
func BiomeAt(seed int64, x, y int) string {
	h := tileHash(seed, x, y)
	idx := int(h[0]) % (len(biomeRing) + 2)
	if idx >= len(biomeRing) {
		return "plains"
	}
	return biomeRing[idx]
}

// RollLoot produces the gather yield for a group finishing on a tile. The
// roll is deterministic in (seed, x, y, tick) so a retried tick yields the
// same items. Yield scales mildly with the gathering group's size.
func RollLoot(seed int64, x, y int, tick int64, biome string, unitCount int) types.ItemBag {
	entries, ok := types.BiomeLoot[biome]
	if !ok {
		entries = types.BiomeLoot["plains"]
	}
	scale := 1 + unitCount/4

	h := tileHash(seed, x, y, tick)
	loot := make(types.ItemBag)
	for i, entry := range entries {
		span := entry.Max - entry.Min + 1
		roll := int(binary.BigEndian.Uint16(h[2*i:2*i+2])) % span
		qty := (entry.Min + roll) * scale
		if qty > 0 {
			loot[entry.Item] += qty
		}
	}
	return loot
}

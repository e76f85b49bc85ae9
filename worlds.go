package main

import (
	"time"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// ensureWorld bootstraps the default world on first boot: an info record and
// a public spawn structure at the origin.
func ensureWorld(worldID string) error {
	info, err := world.ReadInfo(gameStore, worldID)
	if err != nil {
		return err
	}
	if info != nil {
		return nil
	}

	now := time.Now().UnixMilli()
	updates := map[string]any{
		world.InfoPath(worldID): types.WorldInfo{
			Name:         worldID,
			Seed:         now,
			Speed:        1,
			TickInterval: Config.TickMs,
			LastTick:     now,
		},
		world.TilePath(worldID, 0, 0): types.Tile{
			Structure: &types.Structure{
				ID:     "spawn-origin",
				Type:   "spawn",
				Name:   "Origin Spawn",
				Level:  1,
				Status: types.StructureIdle,
			},
		},
	}
	if err := gameStore.Commit(updates); err != nil {
		return err
	}
	InfoLog.Printf("world %s created (tick %dms)", worldID, Config.TickMs)
	return nil
}

// Package world maps the entity model onto store paths and carries the staged
// update discipline shared by commands and the tick.
package world

import (
	"encoding/json"
	"fmt"

	"github.com/lmf-git/gisaima-sub005/pkg/grid"
	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
)

func WorldPath(worldID string) string { return "worlds/" + worldID }

func InfoPath(worldID string) string { return WorldPath(worldID) + "/info" }

func TilePath(worldID string, x, y int) string {
	return fmt.Sprintf("%s/chunks/%s/%s", WorldPath(worldID), grid.ChunkKey(x, y), grid.TileKey(x, y))
}

func GroupPath(worldID string, x, y int, groupID string) string {
	return TilePath(worldID, x, y) + "/groups/" + groupID
}

func GroupField(worldID string, x, y int, groupID, field string) string {
	return GroupPath(worldID, x, y, groupID) + "/" + field
}

func StructurePath(worldID string, x, y int) string {
	return TilePath(worldID, x, y) + "/structure"
}

func BattlePath(worldID string, x, y int, battleID string) string {
	return TilePath(worldID, x, y) + "/battles/" + battleID
}

func TilePlayerPath(worldID string, x, y int, uid string) string {
	return TilePath(worldID, x, y) + "/players/" + uid
}

func UpgradePath(worldID, upgradeID string) string {
	return WorldPath(worldID) + "/upgrades/" + upgradeID
}

func CraftPath(worldID, craftID string) string {
	return WorldPath(worldID) + "/crafting/" + craftID
}

func ChatPath(worldID, msgID string) string {
	return WorldPath(worldID) + "/chat/" + msgID
}

func PlayerWorldPath(uid, worldID string) string {
	return "players/" + uid + "/worlds/" + worldID
}

// Decode re-shapes a store snapshot into a typed record.
func Decode(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ReadTile returns the tile at (x,y), or nil if it was never written.
func ReadTile(s store.Store, worldID string, x, y int) (*types.Tile, error) {
	v, err := s.Read(TilePath(worldID, x, y))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var tile types.Tile
	if err := Decode(v, &tile); err != nil {
		return nil, err
	}
	return &tile, nil
}

// ReadInfo returns the world info record, or nil for an unknown world.
func ReadInfo(s store.Store, worldID string) (*types.WorldInfo, error) {
	v, err := s.Read(InfoPath(worldID))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var info types.WorldInfo
	if err := Decode(v, &info); err != nil {
		return nil, err
	}
	if info.Speed <= 0 {
		info.Speed = 1
	}
	if info.TickInterval <= 0 {
		info.TickInterval = 60000
	}
	return &info, nil
}

// ReadWorld loads a whole world subtree. The tick reads once per world and
// works from this snapshot.
func ReadWorld(s store.Store, worldID string) (*types.World, error) {
	v, err := s.Read(WorldPath(worldID))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var w types.World
	if err := Decode(v, &w); err != nil {
		return nil, err
	}
	if w.Info.Speed <= 0 {
		w.Info.Speed = 1
	}
	if w.Info.TickInterval <= 0 {
		w.Info.TickInterval = 60000
	}
	return &w, nil
}

// ReadPlayer returns the caller's per-world record, or nil if never joined.
func ReadPlayer(s store.Store, uid, worldID string) (*types.PlayerRecord, error) {
	v, err := s.Read(PlayerWorldPath(uid, worldID))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var rec types.PlayerRecord
	if err := Decode(v, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TileAt indexes a decoded world snapshot; nil if the tile is absent.
func TileAt(w *types.World, x, y int) *types.Tile {
	chunk, ok := w.Chunks[grid.ChunkKey(x, y)]
	if !ok {
		return nil
	}
	return chunk[grid.TileKey(x, y)]
}

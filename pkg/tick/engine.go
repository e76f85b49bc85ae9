// Package tick drives the per-world simulation step: battles, structures,
// group state machines, completion passes, monster AI, conflict sanitation,
// one commit.
package tick

import (
	"sort"

	"github.com/google/uuid"

	"github.com/lmf-git/gisaima-sub005/pkg/battle"
	"github.com/lmf-git/gisaima-sub005/pkg/grid"
	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// gatherTicks is how many ticks a gather takes from start to yield.
const gatherTicks = 2

// MonsterAI is the pluggable world-controlled faction. Implementations stage
// writes on the shared update set and never commit.
type MonsterAI interface {
	Spawn(u *world.UpdateSet, worldID string, w *types.World, now int64)
	Strategy(u *world.UpdateSet, worldID string, w *types.World, now int64)
	Merge(u *world.UpdateSet, worldID string, w *types.World, now int64)
}

type Engine struct {
	Store    store.Store
	Monsters MonsterAI    // optional
	Ledger   *Snapshotter // optional
}

// TickWorld advances one world by one tick. Re-invoking with a now the world
// has already seen is a no-op, so a skewed scheduler cannot double-step.
func (e *Engine) TickWorld(worldID string, now int64) error {
	w, err := world.ReadWorld(e.Store, worldID)
	if err != nil {
		return err
	}
	if w == nil || w.Info.LastTick >= now {
		return nil
	}

	u := world.NewUpdateSet()
	u.Set(world.InfoPath(worldID)+"/lastTick", now)
	world.PruneChat(u, worldID, w.Chat)

	processed := map[string]bool{}
	e.battlePhase(u, worldID, w, now, processed)
	e.structurePhase(u, worldID, w, now)
	e.groupPhase(u, worldID, w, now, processed)
	e.upgradePhase(u, worldID, w, now)
	e.craftingPhase(u, worldID, w, now)

	if e.Monsters != nil {
		e.Monsters.Spawn(u, worldID, w, now)
		e.Monsters.Strategy(u, worldID, w, now)
		e.Monsters.Merge(u, worldID, w, now)
	}

	Sanitise(u)
	if err := e.Store.Commit(u.Map()); err != nil {
		return err
	}
	if e.Ledger != nil {
		return e.Ledger.Record(worldID, e.Store)
	}
	return nil
}

// battlePhase resolves every battle one round. Participants go into
// processed so the group phase cannot advance them again this tick.
func (e *Engine) battlePhase(u *world.UpdateSet, worldID string, w *types.World, now int64, processed map[string]bool) {
	forEachTile(w, func(x, y int, tile *types.Tile) {
		for _, bid := range sortedKeys(tile.Battles) {
			ids := battle.Resolve(u, worldID, x, y, tile, tile.Battles[bid], now)
			for _, gid := range ids {
				processed[gid] = true
			}
		}
	})
}

// structurePhase advances construction and recruitment queues.
func (e *Engine) structurePhase(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	forEachTile(w, func(x, y int, tile *types.Tile) {
		st := tile.Structure
		if st == nil {
			return
		}
		sp := world.StructurePath(worldID, x, y)

		if st.Status == types.StructureBuilding {
			st.BuildProgress++
			if st.BuildProgress >= st.BuildTotalTime {
				u.Set(sp+"/status", types.StructureIdle)
				u.Delete(sp + "/buildProgress")
				u.Delete(sp + "/buildTotalTime")
				u.Delete(sp + "/builder")
				if g := tile.Groups[st.Builder]; g != nil && g.Status == types.StatusBuilding {
					u.Set(world.GroupField(worldID, x, y, st.Builder, "status"), types.StatusIdle)
				}
				world.EmitEvent(u, worldID, types.ChatMessage{
					ID: st.ID, Kind: "build_complete", Text: st.Name + " completed", Ts: now,
					X: world.At(x), Y: world.At(y),
				})
			} else {
				u.Set(sp+"/buildProgress", st.BuildProgress)
			}
		}

		for _, rid := range sortedKeys(st.RecruitmentQueue) {
			rec := st.RecruitmentQueue[rid]
			rec.TicksElapsed++
			rp := sp + "/recruitmentQueue/" + rid
			if rec.TicksElapsed < rec.TicksRequired {
				u.Set(rp+"/ticksElapsed", rec.TicksElapsed)
				continue
			}
			// Trained units join the structure garrison.
			def := types.UnitTypes[rec.UnitType]
			for i := 0; i < rec.Quantity; i++ {
				u.Set(sp+"/units/"+uuid.NewString(), types.Unit{
					Type:     rec.UnitType,
					Strength: def.Strength,
					Motion:   def.Motion,
					Capacity: def.Capacity,
					Race:     def.Race,
				})
			}
			u.Delete(rp)
			world.EmitEvent(u, worldID, types.ChatMessage{
				ID: rid, Kind: "recruit_complete", Text: rec.UnitType + " training finished", Ts: now,
				X: world.At(x), Y: world.At(y),
			})
		}
	})
}

// groupPhase dispatches every unprocessed group on its status.
func (e *Engine) groupPhase(u *world.UpdateSet, worldID string, w *types.World, now int64, processed map[string]bool) {
	forEachTile(w, func(x, y int, tile *types.Tile) {
		for _, gid := range sortedKeys(tile.Groups) {
			if processed[gid] {
				continue
			}
			g := tile.Groups[gid]
			switch g.Status {
			case types.StatusMobilizing:
				u.Set(world.GroupField(worldID, x, y, gid, "status"), types.StatusIdle)
			case types.StatusDemobilising:
				e.demobilise(u, worldID, x, y, tile, g)
			case types.StatusMoving:
				e.advanceMove(u, worldID, x, y, w.Info, g, now)
			case types.StatusGathering:
				e.advanceGather(u, worldID, x, y, w.Info, g, now)
			}
			// cancelling, cancellingGather and fleeing are in flight; their
			// second write or the battle resolver owns them.
		}
	})
}

// demobilise folds a standing-down group into the tile's structure.
func (e *Engine) demobilise(u *world.UpdateSet, worldID string, x, y int, tile *types.Tile, g *types.Group) {
	st := tile.Structure
	if st == nil || st.ID != g.TargetStructureID {
		// Structure vanished between command and tick; the group stands by.
		u.Set(world.GroupField(worldID, x, y, g.ID, "status"), types.StatusIdle)
		u.Delete(world.GroupField(worldID, x, y, g.ID, "targetStructureId"))
		u.Delete(world.GroupField(worldID, x, y, g.ID, "storageDestination"))
		return
	}
	sp := world.StructurePath(worldID, x, y)

	for _, uid := range sortedKeys(g.Units) {
		unit := g.Units[uid]
		if unit.IsPlayer() {
			name := g.Name
			if rec, err := world.ReadPlayer(e.Store, uid, worldID); err == nil && rec != nil && rec.DisplayName != "" {
				name = rec.DisplayName
			}
			u.Set(world.TilePlayerPath(worldID, x, y, uid), types.PlayerPresence{
				DisplayName: name, Race: unit.Race, Alive: true,
			})
			pp := world.PlayerWorldPath(uid, worldID)
			u.Set(pp+"/lastLocation", grid.Coord{X: x, Y: y})
			u.Delete(pp + "/inGroup")
			continue
		}
		u.Set(sp+"/units/"+uid, unit)
	}

	if len(g.Items) > 0 {
		if g.StorageDestination == types.StoragePersonal && g.Owner != types.MonsterOwner {
			bank := st.Banks[g.Owner].Clone()
			bank.Add(g.Items)
			u.Set(sp+"/banks/"+g.Owner, bank)
		} else {
			shared := st.Items.Clone()
			shared.Add(g.Items)
			u.Set(sp+"/items", shared)
		}
	}
	u.Delete(world.GroupPath(worldID, x, y, g.ID))
}

// advanceMove steps a moving group along its path, possibly across chunks.
func (e *Engine) advanceMove(u *world.UpdateSet, worldID string, x, y int, info types.WorldInfo, g *types.Group, now int64) {
	if now < g.NextMoveTime || len(g.MovementPath) == 0 {
		return
	}
	next := g.PathIndex + 1
	if next >= len(g.MovementPath) {
		// Degenerate path; just stop.
		u.Set(world.GroupField(worldID, x, y, g.ID, "status"), types.StatusIdle)
		clearMovement(u, worldID, x, y, g.ID)
		return
	}
	dest := g.MovementPath[next]
	arrived := next == len(g.MovementPath)-1

	u.Delete(world.GroupPath(worldID, x, y, g.ID))

	moved := *g
	moved.X, moved.Y = dest.X, dest.Y
	moved.PathIndex = next
	if arrived {
		moved.Status = types.StatusIdle
		moved.MovementPath = nil
		moved.PathIndex = 0
		moved.NextMoveTime = 0
		moved.MoveStarted = 0
		moved.MoveSpeed = 0
		moved.TargetX, moved.TargetY = nil, nil
	} else {
		speed := moved.MoveSpeed
		if speed <= 0 {
			speed = info.Speed
		}
		moved.NextMoveTime = now + int64(float64(info.TickInterval)/speed)
	}
	u.Set(world.GroupPath(worldID, dest.X, dest.Y, g.ID), &moved)
}

func clearMovement(u *world.UpdateSet, worldID string, x, y int, gid string) {
	for _, f := range []string{"movementPath", "pathIndex", "nextMoveTime", "moveStarted", "moveSpeed", "targetX", "targetY"} {
		u.Delete(world.GroupField(worldID, x, y, gid, f))
	}
}

// advanceGather counts a gather down and rolls the yield on the final tick.
func (e *Engine) advanceGather(u *world.UpdateSet, worldID string, x, y int, info types.WorldInfo, g *types.Group, now int64) {
	remaining := g.GatheringTicksRemaining - 1
	field := func(name string) string {
		return world.GroupField(worldID, x, y, g.ID, name)
	}
	if remaining > 0 {
		u.Set(field("gatheringTicksRemaining"), remaining)
		return
	}
	biome := g.GatheringBiome
	if biome == "" {
		biome = world.BiomeAt(info.Seed, x, y)
	}
	loot := world.RollLoot(info.Seed, x, y, now, biome, g.UnitCount)
	items := g.Items.Clone()
	items.Add(loot)

	u.Set(field("items"), items)
	u.Set(field("status"), types.StatusIdle)
	u.Delete(field("gatheringBiome"))
	u.Delete(field("gatheringTicksRemaining"))
	world.EmitEvent(u, worldID, types.ChatMessage{
		ID: g.ID, Kind: "gather_complete", Text: g.Name + " finished gathering", Ts: now,
		X: world.At(x), Y: world.At(y),
	})
}

// upgradePhase finalises due structure and building upgrades.
func (e *Engine) upgradePhase(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	for _, uid := range sortedKeys(w.Upgrades) {
		up := w.Upgrades[uid]
		if up.Status != types.UpgradePending || up.CompletesAt > now {
			continue
		}
		tile := world.TileAt(w, up.X, up.Y)
		if tile == nil || tile.Structure == nil || tile.Structure.ID != up.StructureID {
			u.Delete(world.UpgradePath(worldID, uid))
			continue
		}
		sp := world.StructurePath(worldID, up.X, up.Y)
		if up.BuildingID != "" {
			b := tile.Structure.Buildings[up.BuildingID]
			if b != nil {
				bp := sp + "/buildings/" + up.BuildingID
				u.Set(bp+"/level", up.ToLevel)
				u.Delete(bp + "/upgradeInProgress")
				u.Delete(bp + "/upgradeId")
				u.Delete(bp + "/upgradeCompletesAt")
			}
		} else {
			u.Set(sp+"/level", up.ToLevel)
			u.Set(sp+"/status", types.StructureIdle)
			u.Delete(sp + "/upgradeInProgress")
			u.Delete(sp + "/upgradeId")
			u.Delete(sp + "/upgradeCompletesAt")
		}
		u.Delete(world.UpgradePath(worldID, uid))
		world.EmitEvent(u, worldID, types.ChatMessage{
			ID: uid, Kind: "upgrade_complete", Text: "upgrade finished", Ts: now,
			X: world.At(up.X), Y: world.At(up.Y),
		})
	}
}

// craftingPhase delivers finished crafts to their owners.
func (e *Engine) craftingPhase(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	for _, cid := range sortedKeys(w.Crafting) {
		craft := w.Crafting[cid]
		if craft.Status != types.CraftPending || craft.CompletesAt > now {
			continue
		}
		recipe, ok := types.Recipes[craft.RecipeID]
		if !ok {
			u.Delete(world.CraftPath(worldID, cid))
			continue
		}
		player, err := world.ReadPlayer(e.Store, craft.Owner, worldID)
		if err != nil || player == nil {
			u.Delete(world.CraftPath(worldID, cid))
			continue
		}
		items := player.Items.Clone()
		qty := recipe.OutputQty
		if qty < 1 {
			qty = 1
		}
		items[recipe.Output] += qty

		skills := player.Skills
		skills.Crafting.XP += recipe.XP
		for skills.Crafting.XP >= (skills.Crafting.Level+1)*100 {
			skills.Crafting.Level++
		}

		pp := world.PlayerWorldPath(craft.Owner, worldID)
		u.Set(pp+"/items", items)
		u.Set(pp+"/skills", skills)
		u.Delete(pp + "/crafting/current")
		u.Delete(world.CraftPath(worldID, cid))
	}
}

// forEachTile walks the world's chunks in key order.
func forEachTile(w *types.World, fn func(x, y int, tile *types.Tile)) {
	for _, ck := range sortedKeys(w.Chunks) {
		chunk := w.Chunks[ck]
		for _, tk := range sortedKeys(chunk) {
			x, y, err := grid.ParseTileKey(tk)
			if err != nil {
				continue
			}
			fn(x, y, chunk[tk])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package monsters

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"github.com/lmf-git/gisaima-sub005/pkg/grid"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// spawnChancePct gates the per-tick spawn roll.
const spawnChancePct = 15

// maxPackSize bounds a freshly spawned pack.
const maxPackSize = 4

// Controller implements the tick engine's monster hooks. All decisions are
// deterministic in (world seed, tick time), so a replayed tick reproduces the
// same monsters.
type Controller struct {
	Doctrine *Doctrine
}

func NewController() (*Controller, error) {
	d, err := DefaultDoctrine()
	if err != nil {
		return nil, err
	}
	return &Controller{Doctrine: d}, nil
}

type strategyCtx struct {
	u       *world.UpdateSet
	worldID string
	seed    int64
	now     int64
	info    types.WorldInfo
}

func roll(seed, now int64, parts ...any) [32]byte {
	input := fmt.Sprint(seed, "-", now)
	for _, p := range parts {
		input += fmt.Sprintf("-%v", p)
	}
	return blake3.Sum256([]byte(input))
}

// Spawn occasionally drops a fresh pack on a populated chunk.
func (c *Controller) Spawn(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	h := roll(w.Info.Seed, now, "spawn")
	if int(h[0])%100 >= spawnChancePct {
		return
	}
	chunkKeys := sortedKeys(w.Chunks)
	if len(chunkKeys) == 0 {
		return
	}
	ck := chunkKeys[int(binary.BigEndian.Uint16(h[1:3]))%len(chunkKeys)]
	cx, cy, err := grid.ParseChunkKey(ck)
	if err != nil {
		return
	}
	x := cx*grid.ChunkSize + int(h[3])%grid.ChunkSize
	y := cy*grid.ChunkSize + int(h[4])%grid.ChunkSize

	// Never spawn on top of a structure.
	if tile := world.TileAt(w, x, y); tile != nil && tile.Structure != nil {
		return
	}

	kind := "wolf"
	if int(h[5])%4 == 0 {
		kind = "ogre"
	}
	def := types.UnitTypes[kind]
	count := 1 + int(h[6])%maxPackSize
	units := make(map[string]types.Unit, count)
	for i := 0; i < count; i++ {
		units[uuid.NewString()] = types.Unit{Type: kind, Strength: def.Strength, Motion: def.Motion, Race: def.Race}
	}
	g := &types.Group{
		ID:     uuid.NewString(),
		Owner:  types.MonsterOwner,
		Name:   kind + " pack",
		Race:   "monster",
		X:      x,
		Y:      y,
		Status: types.StatusIdle,
		Units:  units,
		Motion: []string{"ground"},
		Items:  types.ItemBag{},
	}
	g.Recount()
	u.Set(world.GroupPath(worldID, x, y, g.ID), g)
	world.EmitEvent(u, worldID, types.ChatMessage{
		ID: g.ID, Kind: "monster_spawn", Text: g.Name + " appeared", Ts: now,
		X: world.At(x), Y: world.At(y),
	})
}

// Strategy runs the doctrine over every monster group.
func (c *Controller) Strategy(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	if c.Doctrine == nil {
		return
	}
	ctx := &strategyCtx{u: u, worldID: worldID, seed: w.Info.Seed, now: now, info: w.Info}
	forEachMonsterGroup(w, func(x, y int, tile *types.Tile, g *types.Group) {
		sit := SituationOf(tile, g, w.Info.Seed, x, y)
		c.Doctrine.Apply(ctx, x, y, tile, g, sit)
	})
}

// Merge coalesces co-located idle monster packs into the lexically first
// group on each tile.
func (c *Controller) Merge(u *world.UpdateSet, worldID string, w *types.World, now int64) {
	forEachTileSorted(w, func(x, y int, tile *types.Tile) {
		var pack []*types.Group
		for _, gid := range sortedKeys(tile.Groups) {
			g := tile.Groups[gid]
			if g.Owner == types.MonsterOwner && g.Status == types.StatusIdle {
				pack = append(pack, g)
			}
		}
		if len(pack) < 2 {
			return
		}
		host := pack[0]
		units := map[string]types.Unit{}
		for uid, unit := range host.Units {
			units[uid] = unit
		}
		items := host.Items.Clone()
		for _, g := range pack[1:] {
			for uid, unit := range g.Units {
				units[uid] = unit
			}
			items.Add(g.Items)
			u.Delete(world.GroupPath(worldID, x, y, g.ID))
		}
		u.Set(world.GroupField(worldID, x, y, host.ID, "units"), units)
		u.Set(world.GroupField(worldID, x, y, host.ID, "unitCount"), len(units))
		u.Set(world.GroupField(worldID, x, y, host.ID, "items"), items)
	})
}

// --- Actions ---

func actJoinBattle(ctx *strategyCtx, x, y int, tile *types.Tile, g *types.Group, _ Situation) {
	for _, bid := range sortedKeys(tile.Battles) {
		b := tile.Battles[bid]
		if b.Status != types.BattleActive {
			continue
		}
		field := func(name string) string {
			return world.GroupField(ctx.worldID, x, y, g.ID, name)
		}
		bp := world.BattlePath(ctx.worldID, x, y, bid)
		// Monsters side with whoever is attacking the structure's defenders;
		// by convention they pile onto side 1.
		b.Side1.Groups[g.ID] = types.BattleRoleSupporter
		ctx.u.Set(bp+"/side1/groups/"+g.ID, types.BattleRoleSupporter)
		ctx.u.Set(field("status"), types.StatusFighting)
		ctx.u.Set(field("inBattle"), true)
		ctx.u.Set(field("battleId"), bid)
		ctx.u.Set(field("battleSide"), 1)
		ctx.u.Set(field("battleRole"), types.BattleRoleSupporter)
		return
	}
}

func actAttack(ctx *strategyCtx, x, y int, tile *types.Tile, g *types.Group, _ Situation) {
	// Open a battle against every non-monster group on the tile.
	side1 := types.BattleSide{Groups: map[string]string{g.ID: types.BattleRoleAttacker}}
	side2 := types.BattleSide{Groups: map[string]string{}}
	defenderPower := 0
	for _, gid := range sortedKeys(tile.Groups) {
		other := tile.Groups[gid]
		if other.Owner == types.MonsterOwner || other.InBattle {
			continue
		}
		side2.Groups[gid] = types.BattleRoleDefender
		defenderPower += other.Power()
	}
	if len(side2.Groups) == 0 {
		return
	}
	battleID := uuid.NewString()
	b := &types.Battle{
		ID:                 battleID,
		Side1Power:         g.Power(),
		Side2Power:         defenderPower,
		DefenderGroupPower: defenderPower,
		TargetTypes:        []string{types.TargetGroup},
		Side1:              side1,
		Side2:              side2,
		Status:             types.BattleActive,
		StartedAt:          ctx.now,
	}
	ctx.u.Set(world.BattlePath(ctx.worldID, x, y, battleID), b)
	stage := func(gid string, side int, role string) {
		field := func(name string) string {
			return world.GroupField(ctx.worldID, x, y, gid, name)
		}
		ctx.u.Set(field("status"), types.StatusFighting)
		ctx.u.Set(field("inBattle"), true)
		ctx.u.Set(field("battleId"), battleID)
		ctx.u.Set(field("battleSide"), side)
		ctx.u.Set(field("battleRole"), role)
	}
	stage(g.ID, 1, types.BattleRoleAttacker)
	for gid := range side2.Groups {
		stage(gid, 2, types.BattleRoleDefender)
	}
	world.EmitEvent(ctx.u, ctx.worldID, types.ChatMessage{
		ID: battleID, Kind: "battle_start", Text: g.Name + " attacks", Ts: ctx.now,
		X: world.At(x), Y: world.At(y),
	})
}

func actGather(ctx *strategyCtx, x, y int, _ *types.Tile, g *types.Group, sit Situation) {
	field := func(name string) string {
		return world.GroupField(ctx.worldID, x, y, g.ID, name)
	}
	ctx.u.Set(field("status"), types.StatusGathering)
	ctx.u.Set(field("gatheringBiome"), sit.Biome)
	ctx.u.Set(field("gatheringTicksRemaining"), 2)
}

func actRoam(ctx *strategyCtx, x, y int, _ *types.Tile, g *types.Group, _ Situation) {
	h := roll(ctx.seed, ctx.now, "roam", g.ID)
	dx := int(h[0])%5 - 2
	dy := int(h[1])%5 - 2
	if dx == 0 && dy == 0 {
		return
	}
	path := grid.Line(x, y, x+dx, y+dy)
	field := func(name string) string {
		return world.GroupField(ctx.worldID, x, y, g.ID, name)
	}
	speed := ctx.info.Speed
	if speed <= 0 {
		speed = 1
	}
	ctx.u.Set(field("status"), types.StatusMoving)
	ctx.u.Set(field("movementPath"), path)
	ctx.u.Set(field("pathIndex"), 0)
	ctx.u.Set(field("moveStarted"), ctx.now)
	ctx.u.Set(field("moveSpeed"), speed)
	ctx.u.Set(field("nextMoveTime"), ctx.now+int64(float64(ctx.info.TickInterval)/speed))
	ctx.u.Set(field("targetX"), x+dx)
	ctx.u.Set(field("targetY"), y+dy)
}

// --- Iteration helpers ---

func forEachMonsterGroup(w *types.World, fn func(x, y int, tile *types.Tile, g *types.Group)) {
	forEachTileSorted(w, func(x, y int, tile *types.Tile) {
		for _, gid := range sortedKeys(tile.Groups) {
			g := tile.Groups[gid]
			if g.Owner == types.MonsterOwner {
				fn(x, y, tile, g)
			}
		}
	})
}

func forEachTileSorted(w *types.World, fn func(x, y int, tile *types.Tile)) {
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

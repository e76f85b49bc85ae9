// Package battle advances tile-local battles one round at a time. The
// resolver consumes a decoded tile snapshot and stages every effect on the
// shared update set; it never commits.
package battle

import (
	"sort"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// fleeCasualtyRate is the share of non-player units lost when running from a
// battle.
const fleeCasualtyRate = 0.2

// damageDivisor converts opposing power into strength lost per round.
const damageDivisor = 5

// Resolve runs one battle round and stages its effects. It returns the ids
// of every group it touched so later tick phases skip them.
func Resolve(u *world.UpdateSet, worldID string, x, y int, tile *types.Tile, b *types.Battle, now int64) []string {
	b.TickCount++

	processed := make([]string, 0, len(b.Side1.Groups)+len(b.Side2.Groups))
	for _, gid := range sortedKeys(b.Side1.Groups) {
		processed = append(processed, gid)
	}
	for _, gid := range sortedKeys(b.Side2.Groups) {
		processed = append(processed, gid)
	}

	field := func(gid, name string) string {
		return world.GroupField(worldID, x, y, gid, name)
	}

	// Fleeing groups leave before the round is fought.
	for _, gid := range append(sortedKeys(b.Side1.Groups), sortedKeys(b.Side2.Groups)...) {
		g := tile.Groups[gid]
		if g == nil || g.Status != types.StatusFleeing || g.FleeTickRequested == nil {
			continue
		}
		nonPlayers := nonPlayerUnitIDs(g)
		losses := int(float64(len(nonPlayers)) * fleeCasualtyRate)
		for _, uid := range nonPlayers[:losses] {
			delete(g.Units, uid)
		}
		g.Recount()
		delete(b.Side1.Groups, gid)
		delete(b.Side2.Groups, gid)
		b.Events = append(b.Events, types.BattleEvent{Type: "flee", GroupID: gid, Ts: now})

		u.Set(field(gid, "units"), g.Units)
		u.Set(field(gid, "unitCount"), g.UnitCount)
		u.Set(field(gid, "status"), types.StatusIdle)
		u.Delete(field(gid, "inBattle"))
		u.Delete(field(gid, "battleId"))
		u.Delete(field(gid, "battleSide"))
		u.Delete(field(gid, "battleRole"))
		u.Delete(field(gid, "fleeTickRequested"))
		world.EmitEvent(u, worldID, types.ChatMessage{
			ID: gid, Kind: "flee", Text: g.Name + " fled the battle", Ts: now,
			X: world.At(x), Y: world.At(y),
		})
	}

	side1Power := sidePower(tile, b.Side1)
	side2Power := sidePower(tile, b.Side2) + b.StructurePower

	// Both sides bleed simultaneously from the powers at round start.
	if side1Power > 0 && side2Power > 0 {
		applyDamage(u, worldID, x, y, tile, &b.Side1, damage(side2Power))
		overflow := applyDamage(u, worldID, x, y, tile, &b.Side2, damage(side1Power))
		// Siege damage spills onto the structure once defenders are gone.
		if overflow > 0 && b.StructurePower > 0 {
			b.StructurePower -= overflow
			if b.StructurePower < 0 {
				b.StructurePower = 0
			}
		}
	}

	b.Side1Power = sidePower(tile, b.Side1)
	b.DefenderGroupPower = sidePower(tile, b.Side2)
	b.Side2Power = b.DefenderGroupPower + b.StructurePower

	if b.Side1Power > 0 && b.Side2Power > 0 {
		u.Set(world.BattlePath(worldID, x, y, b.ID), b)
		return processed
	}

	// Termination. A side at zero power loses; if both collapsed in the same
	// round the attackers are counted as repelled.
	loser, winner := &b.Side2, &b.Side1
	if b.Side1Power <= 0 {
		loser, winner = &b.Side1, &b.Side2
	}

	for _, gid := range sortedKeys(winner.Groups) {
		g := tile.Groups[gid]
		if g == nil {
			continue
		}
		u.Set(field(gid, "status"), types.StatusIdle)
		u.Delete(field(gid, "inBattle"))
		u.Delete(field(gid, "battleId"))
		u.Delete(field(gid, "battleSide"))
		u.Delete(field(gid, "battleRole"))
	}
	for _, gid := range sortedKeys(loser.Groups) {
		g := tile.Groups[gid]
		if g == nil {
			continue
		}
		wipeGroup(u, worldID, x, y, g)
	}

	if tile.Structure != nil && hasTarget(b, types.TargetStructure) {
		sp := world.StructurePath(worldID, x, y)
		u.Delete(sp + "/inBattle")
		if loser == &b.Side2 && !tile.Structure.IsSpawn() {
			if owner := dominantOwner(tile, *winner); owner != "" {
				u.Set(sp+"/owner", owner)
			}
		}
	}

	u.Delete(world.BattlePath(worldID, x, y, b.ID))
	world.EmitEvent(u, worldID, types.ChatMessage{
		ID: b.ID, Kind: "battle_end", Text: "the battle is over", Ts: now,
		X: world.At(x), Y: world.At(y),
	})
	return processed
}

// damage is the strength a side loses per round against opposing power.
func damage(opposingPower int) int {
	d := opposingPower / damageDivisor
	if d < 1 {
		d = 1
	}
	return d
}

// applyDamage removes units worth up to dmg strength from the side's groups
// and returns the strength it could not absorb. Player units soak damage with
// their own strength but are never picked off; leftover damage past them
// wipes the whole group.
func applyDamage(u *world.UpdateSet, worldID string, x, y int, tile *types.Tile, side *types.BattleSide, dmg int) int {
	for _, gid := range sortedKeys(side.Groups) {
		if dmg <= 0 {
			break
		}
		g := tile.Groups[gid]
		if g == nil || g.Status != types.StatusFighting {
			continue
		}
		changed := false
		for _, uid := range nonPlayerUnitIDs(g) {
			if dmg <= 0 {
				break
			}
			dmg -= g.Units[uid].EffectiveStrength()
			delete(g.Units, uid)
			changed = true
		}
		if dmg > 0 {
			// Only player units remain. The group holds while the leftover
			// damage is below their strength, otherwise it is overrun.
			if remaining := playerStrength(g); dmg >= remaining {
				dmg -= remaining
				wipeGroup(u, worldID, x, y, g)
				delete(side.Groups, gid)
				delete(tile.Groups, gid)
				continue
			}
		}
		if changed {
			g.Recount()
			u.Set(world.GroupField(worldID, x, y, gid, "units"), g.Units)
			u.Set(world.GroupField(worldID, x, y, gid, "unitCount"), g.UnitCount)
		}
	}
	if dmg < 0 {
		dmg = 0
	}
	return dmg
}

// wipeGroup deletes a destroyed group. Its player unit survives as a downed
// tile entity.
func wipeGroup(u *world.UpdateSet, worldID string, x, y int, g *types.Group) {
	if uid, ok := g.PlayerUnitID(); ok {
		u.Set(world.TilePlayerPath(worldID, x, y, uid), types.PlayerPresence{
			DisplayName: g.Name, Race: g.Race, Alive: false,
		})
		u.Set(world.PlayerWorldPath(uid, worldID)+"/alive", false)
		u.Delete(world.PlayerWorldPath(uid, worldID) + "/inGroup")
	}
	u.Delete(world.GroupPath(worldID, x, y, g.ID))
}

// playerStrength is the combined strength of a group's player units.
func playerStrength(g *types.Group) int {
	total := 0
	for _, unit := range g.Units {
		if unit.IsPlayer() {
			total += unit.EffectiveStrength()
		}
	}
	return total
}

// sidePower sums the power of a side's surviving fighting groups with the
// same formula the attack command uses: player strength counts and a group
// that still has units is worth at least 1.
func sidePower(tile *types.Tile, side types.BattleSide) int {
	total := 0
	for gid := range side.Groups {
		g := tile.Groups[gid]
		if g == nil || g.Status != types.StatusFighting || len(g.Units) == 0 {
			continue
		}
		total += g.Power()
	}
	return total
}

// dominantOwner is the winning owner with the most power on the side.
func dominantOwner(tile *types.Tile, side types.BattleSide) string {
	powers := map[string]int{}
	for gid := range side.Groups {
		g := tile.Groups[gid]
		if g == nil {
			continue
		}
		powers[g.Owner] += g.Power()
	}
	best, bestPower := "", 0
	for _, owner := range sortedKeys(powers) {
		if powers[owner] > bestPower {
			best, bestPower = owner, powers[owner]
		}
	}
	return best
}

func hasTarget(b *types.Battle, target string) bool {
	for _, t := range b.TargetTypes {
		if t == target {
			return true
		}
	}
	return false
}

func nonPlayerUnitIDs(g *types.Group) []string {
	ids := make([]string, 0, len(g.Units))
	for uid, unit := range g.Units {
		if !unit.IsPlayer() {
			ids = append(ids, uid)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

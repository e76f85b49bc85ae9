package battle

import (
	"testing"

	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

const testWorld = "w1"

func fightingGroup(id, owner string, n int) *types.Group {
	units := make(map[string]types.Unit, n)
	for i := 0; i < n; i++ {
		units[string(rune('a'+i))+"-"+id] = types.Unit{Type: "warrior", Strength: 1}
	}
	g := &types.Group{
		ID: id, Owner: owner, Name: id, X: 5, Y: 5,
		Status: types.StatusFighting, InBattle: true, Units: units,
	}
	g.Recount()
	return g
}

func activeBattle(tile *types.Tile, structurePower int) *types.Battle {
	b := &types.Battle{
		ID:             "b1",
		Side1:          types.BattleSide{Groups: map[string]string{"atk": types.BattleRoleAttacker}},
		Side2:          types.BattleSide{Groups: map[string]string{"def": types.BattleRoleDefender}},
		StructurePower: structurePower,
		Status:         types.BattleActive,
	}
	if structurePower > 0 {
		b.TargetTypes = []string{types.TargetGroup, types.TargetStructure}
	} else {
		b.TargetTypes = []string{types.TargetGroup}
	}
	return b
}

// commitRound is the tick's pattern in miniature: resolve against a snapshot,
// commit the staged writes, decode the result.
func commitRound(t *testing.T, s store.Store, tile *types.Tile, b *types.Battle) *types.Tile {
	t.Helper()
	u := world.NewUpdateSet()
	Resolve(u, testWorld, 5, 5, tile, b, 1_000_000)
	if err := s.Commit(u.Map()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	after, err := world.ReadTile(s, testWorld, 5, 5)
	if err != nil {
		t.Fatalf("read tile: %v", err)
	}
	return after
}

func seed(t *testing.T, s store.Store, tile *types.Tile, b *types.Battle) {
	t.Helper()
	tile.Battles = map[string]*types.Battle{b.ID: b}
	if err := s.Commit(map[string]any{world.TilePath(testWorld, 5, 5): tile}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestFleePenaltyTwentyPercent(t *testing.T) {
	s := store.NewMemoryStore()
	tile := &types.Tile{Groups: map[string]*types.Group{
		"atk": fightingGroup("atk", "alice", 10),
		"def": fightingGroup("def", "bob", 5),
	}}
	b := activeBattle(tile, 0)
	fleeing := tile.Groups["atk"]
	fleeing.Status = types.StatusFleeing
	tick := 0
	fleeing.FleeTickRequested = &tick
	seed(t, s, tile, b)

	after := commitRound(t, s, tile, b)
	g := after.Groups["atk"]
	if g == nil {
		t.Fatal("fled group should survive")
	}
	if g.Status != types.StatusIdle {
		t.Fatalf("status = %s, want idle", g.Status)
	}
	if len(g.Units) != 8 {
		t.Fatalf("units after flee = %d, want 8", len(g.Units))
	}
	if g.InBattle || g.BattleID != "" || g.FleeTickRequested != nil {
		t.Fatalf("battle fields not cleared: %+v", g)
	}
	if b.Side1.Groups["atk"] != "" {
		t.Fatal("fled group still on side 1")
	}
	found := false
	for _, ev := range b.Events {
		if ev.Type == "flee" && ev.GroupID == "atk" {
			found = true
		}
	}
	if !found {
		t.Fatalf("flee event missing: %+v", b.Events)
	}
}

func TestPlayerUnitsSurviveCasualties(t *testing.T) {
	s := store.NewMemoryStore()
	atk := fightingGroup("atk", "alice", 1)
	atk.Units["alice"] = types.Unit{Type: types.UnitTypePlayer}
	atk.Recount()
	tile := &types.Tile{Groups: map[string]*types.Group{
		"atk": atk,
		"def": fightingGroup("def", "bob", 30),
	}}
	b := activeBattle(tile, 0)
	seed(t, s, tile, b)

	after := commitRound(t, s, tile, b)
	// Side 1 is wiped: its only warrior dies, the player survives as a
	// downed tile entity and the group is deleted.
	if _, alive := after.Groups["atk"]; alive {
		t.Fatal("losing group should be deleted")
	}
	p, ok := after.Players["alice"]
	if !ok {
		t.Fatal("player entity missing after wipe")
	}
	if p.Alive {
		t.Fatal("downed player should not be alive")
	}
	if _, gone := after.Battles["b1"]; gone {
		t.Fatal("battle record should be deleted")
	}
	winner := after.Groups["def"]
	if winner.Status != types.StatusIdle || winner.InBattle {
		t.Fatalf("winner not reset: %+v", winner)
	}
}

func TestPlayerOnlyGroupFightsOn(t *testing.T) {
	s := store.NewMemoryStore()
	atk := &types.Group{
		ID: "atk", Owner: "alice", Name: "atk", X: 5, Y: 5,
		Status: types.StatusFighting, InBattle: true,
		Units: map[string]types.Unit{"alice": {Type: types.UnitTypePlayer, Strength: 5}},
	}
	atk.Recount()
	tile := &types.Tile{Groups: map[string]*types.Group{
		"atk": atk,
		"def": fightingGroup("def", "bob", 4),
	}}
	b := activeBattle(tile, 0)
	seed(t, s, tile, b)

	after := commitRound(t, s, tile, b)
	// A lone player fights at their own strength; the first round must not
	// annihilate them just because no other unit is in the group.
	if _, alive := after.Groups["atk"]; !alive {
		t.Fatal("player-only group wiped on first round")
	}

	for round := 0; round < 10; round++ {
		tile, _ = world.ReadTile(s, testWorld, 5, 5)
		cur, ok := tile.Battles["b1"]
		if !ok {
			break
		}
		commitRound(t, s, tile, cur)
	}
	final, _ := world.ReadTile(s, testWorld, 5, 5)
	if _, still := final.Battles["b1"]; still {
		t.Fatal("battle never terminated")
	}
	if g := final.Groups["atk"]; g == nil || g.Status != types.StatusIdle {
		t.Fatalf("player-only group should win and stand down: %+v", final.Groups["atk"])
	}
	if _, alive := final.Groups["def"]; alive {
		t.Fatal("outfought defender should be deleted")
	}
}

func TestAttackOnStructureGrindsDown(t *testing.T) {
	s := store.NewMemoryStore()
	tile := &types.Tile{
		Groups: map[string]*types.Group{
			"atk": fightingGroup("atk", "alice", 10),
			"def": fightingGroup("def", "bob", 4),
		},
		Structure: &types.Structure{ID: "fort", Owner: "bob", Type: "fortress", Level: 1, Status: types.StructureIdle, InBattle: true},
	}
	b := activeBattle(tile, 30)
	b.Side1Power = 10
	b.Side2Power = 34
	seed(t, s, tile, b)

	for round := 0; round < 20; round++ {
		tile, _ = world.ReadTile(s, testWorld, 5, 5)
		cur, ok := tile.Battles["b1"]
		if !ok {
			break
		}
		commitRound(t, s, tile, cur)
	}
	final, _ := world.ReadTile(s, testWorld, 5, 5)
	if _, still := final.Battles["b1"]; still {
		t.Fatal("battle never terminated")
	}
	if _, alive := final.Groups["atk"]; alive {
		t.Fatal("outnumbered attacker should be deleted")
	}
	if final.Structure == nil {
		t.Fatal("structure should be retained")
	}
	if final.Structure.InBattle {
		t.Fatal("structure should leave battle state")
	}
	if final.Structure.Owner != "bob" {
		t.Fatalf("structure owner = %q, want bob", final.Structure.Owner)
	}
}

func TestVictorTakesStructure(t *testing.T) {
	s := store.NewMemoryStore()
	tile := &types.Tile{
		Groups: map[string]*types.Group{
			"atk": fightingGroup("atk", "alice", 40),
			"def": fightingGroup("def", "bob", 2),
		},
		Structure: &types.Structure{ID: "out", Owner: "bob", Type: "outpost", Level: 1, Status: types.StructureIdle, InBattle: true},
	}
	b := activeBattle(tile, 5)
	seed(t, s, tile, b)

	for round := 0; round < 20; round++ {
		tile, _ = world.ReadTile(s, testWorld, 5, 5)
		cur, ok := tile.Battles["b1"]
		if !ok {
			break
		}
		commitRound(t, s, tile, cur)
	}
	final, _ := world.ReadTile(s, testWorld, 5, 5)
	if final.Structure.Owner != "alice" {
		t.Fatalf("structure owner = %q, want alice", final.Structure.Owner)
	}
	if _, alive := final.Groups["def"]; alive {
		t.Fatal("defender should be deleted")
	}
	if g := final.Groups["atk"]; g == nil || g.Status != types.StatusIdle {
		t.Fatalf("winner should stand down: %+v", final.Groups["atk"])
	}
}

func TestBattleEndEmitsChatEvent(t *testing.T) {
	s := store.NewMemoryStore()
	tile := &types.Tile{Groups: map[string]*types.Group{
		"atk": fightingGroup("atk", "alice", 20),
		"def": fightingGroup("def", "bob", 1),
	}}
	b := activeBattle(tile, 0)
	seed(t, s, tile, b)

	for round := 0; round < 10; round++ {
		tile, _ = world.ReadTile(s, testWorld, 5, 5)
		cur, ok := tile.Battles["b1"]
		if !ok {
			break
		}
		commitRound(t, s, tile, cur)
	}
	w, err := world.ReadWorld(s, testWorld)
	if err != nil {
		t.Fatalf("read world: %v", err)
	}
	found := false
	for _, msg := range w.Chat {
		if msg.Kind == "battle_end" {
			found = true
		}
	}
	if !found {
		t.Fatal("battle_end chat event missing")
	}
}

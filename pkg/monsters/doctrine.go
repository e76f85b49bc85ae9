// Package monsters is the world-controlled faction. Behaviour is a rule
// doctrine: each rule has a compiled condition over a group's situation and
// an action that stages writes. Rules run in priority order; an exclusive
// category fires at most one rule per group per tick.
package monsters

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// Situation is the expression environment for one monster group.
type Situation struct {
	UnitCount    int    `expr:"unitCount"`
	Power        int    `expr:"power"`
	EnemyPower   int    `expr:"enemyPower"`
	EnemyGroups  int    `expr:"enemyGroups"`
	BattleOnTile bool   `expr:"battleOnTile"`
	HasStructure bool   `expr:"hasStructure"`
	ItemsCarried int    `expr:"itemsCarried"`
	Biome        string `expr:"biome"`
	Idle         bool   `expr:"idle"`
}

// Action stages the rule's effect for one group.
type Action func(ctx *strategyCtx, x, y int, tile *types.Tile, g *types.Group, sit Situation)

type Rule struct {
	Name         string
	Priority     int
	Category     string
	Exclusive    bool
	ConditionSrc string
	Action       Action

	cond *vm.Program
}

func (r *Rule) compile() error {
	p, err := expr.Compile(r.ConditionSrc, expr.Env(Situation{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("monsters: rule %s: %w", r.Name, err)
	}
	r.cond = p
	return nil
}

func (r *Rule) matches(sit Situation) bool {
	out, err := expr.Run(r.cond, sit)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Doctrine is a compiled, priority-ordered rule set.
type Doctrine struct {
	rules []*Rule
}

func NewDoctrine(rules []*Rule) (*Doctrine, error) {
	for _, r := range rules {
		if err := r.compile(); err != nil {
			return nil, err
		}
	}
	ordered := append([]*Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })
	return &Doctrine{rules: ordered}, nil
}

// Apply runs the doctrine for one group. Exclusive categories short-circuit:
// the first firing rule in such a category blocks the rest of it.
func (d *Doctrine) Apply(ctx *strategyCtx, x, y int, tile *types.Tile, g *types.Group, sit Situation) {
	firedExclusive := map[string]bool{}
	for _, r := range d.rules {
		if r.Exclusive && firedExclusive[r.Category] {
			continue
		}
		if !r.matches(sit) {
			continue
		}
		r.Action(ctx, x, y, tile, g, sit)
		if r.Exclusive {
			firedExclusive[r.Category] = true
		}
	}
}

// DefaultDoctrine is the stock monster behaviour set.
func DefaultDoctrine() (*Doctrine, error) {
	return NewDoctrine([]*Rule{
		{
			Name:         "pile-into-battle",
			Priority:     100,
			Category:     "order",
			Exclusive:    true,
			ConditionSrc: `idle && battleOnTile`,
			Action:       actJoinBattle,
		},
		{
			Name:         "hunt-weaker-prey",
			Priority:     80,
			Category:     "order",
			Exclusive:    true,
			ConditionSrc: `idle && enemyGroups > 0 && power > enemyPower * 2`,
			Action:       actAttack,
		},
		{
			Name:         "forage",
			Priority:     50,
			Category:     "order",
			Exclusive:    true,
			ConditionSrc: `idle && itemsCarried < 10 && unitCount >= 2`,
			Action:       actGather,
		},
		{
			Name:         "roam",
			Priority:     10,
			Category:     "order",
			Exclusive:    true,
			ConditionSrc: `idle`,
			Action:       actRoam,
		},
	})
}

// SituationOf summarises a monster group's tile.
func SituationOf(tile *types.Tile, g *types.Group, seed int64, x, y int) Situation {
	sit := Situation{
		UnitCount:    len(g.Units),
		Power:        g.Power(),
		Biome:        world.BiomeAt(seed, x, y),
		Idle:         g.Status == types.StatusIdle,
		ItemsCarried: g.Items.Total(),
		HasStructure: tile.Structure != nil,
		BattleOnTile: len(tile.Battles) > 0,
	}
	for _, other := range tile.Groups {
		if other.Owner == types.MonsterOwner || other.ID == g.ID {
			continue
		}
		sit.EnemyGroups++
		sit.EnemyPower += other.Power()
	}
	return sit
}

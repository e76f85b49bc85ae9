package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type AttackReq struct {
	WorldID          string   `json:"worldId"`
	AttackerGroupIDs []string `json:"attackerGroupIds"`
	X                int      `json:"x"`
	Y                int      `json:"y"`
	DefenderGroupIDs []string `json:"defenderGroupIds,omitempty"`
	StructureID      string   `json:"structureId,omitempty"`
}

type AttackRes struct {
	BattleID string `json:"battleId"`
}

// Attack opens a battle on the tile. The caller's groups form side 1, the
// named defenders and structure form side 2. Side powers are fixed at the
// start and worn down by the battle tick.
func Attack(c *Ctx, req AttackReq) (*AttackRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	if len(req.AttackerGroupIDs) == 0 {
		return nil, Errf(InvalidArgument, "no attackers")
	}
	if len(req.DefenderGroupIDs) == 0 && req.StructureID == "" {
		return nil, Errf(InvalidArgument, "no targets")
	}
	tile, err := c.loadTile(req.WorldID, req.X, req.Y)
	if err != nil {
		return nil, err
	}

	attackers := make([]*types.Group, 0, len(req.AttackerGroupIDs))
	for _, gid := range req.AttackerGroupIDs {
		g, ok := tile.Groups[gid]
		if !ok {
			return nil, Errf(NotFound, "group %s", gid)
		}
		if g.Owner != c.UID {
			return nil, Errf(PermissionDenied, "group %s is not yours", gid)
		}
		if g.InBattle {
			return nil, Errf(FailedPrecondition, "group %s is already in battle", gid)
		}
		if g.Status != types.StatusIdle {
			return nil, Errf(FailedPrecondition, "group %s is %s, not idle", gid, g.Status)
		}
		attackers = append(attackers, g)
	}

	defenders := make([]*types.Group, 0, len(req.DefenderGroupIDs))
	for _, gid := range req.DefenderGroupIDs {
		g, ok := tile.Groups[gid]
		if !ok {
			return nil, Errf(NotFound, "group %s", gid)
		}
		if g.Owner == c.UID {
			return nil, Errf(PermissionDenied, "cannot attack your own group %s", gid)
		}
		if g.InBattle {
			return nil, Errf(FailedPrecondition, "group %s is already in battle", gid)
		}
		defenders = append(defenders, g)
	}

	var st *types.Structure
	var targetTypes []string
	if len(defenders) > 0 {
		targetTypes = append(targetTypes, types.TargetGroup)
	}
	if req.StructureID != "" {
		st = tile.Structure
		if st == nil || st.ID != req.StructureID {
			return nil, Errf(NotFound, "structure %s", req.StructureID)
		}
		if st.Owner == c.UID {
			return nil, Errf(PermissionDenied, "cannot attack your own structure")
		}
		if st.IsSpawn() {
			return nil, Errf(PermissionDenied, "spawn structures cannot be attacked")
		}
		if st.InBattle {
			return nil, Errf(FailedPrecondition, "structure is already in battle")
		}
		targetTypes = append(targetTypes, types.TargetStructure)
	}

	side1Power, defenderGroupPower, structurePower := 0, 0, 0
	side1 := types.BattleSide{Groups: make(map[string]string)}
	side2 := types.BattleSide{Groups: make(map[string]string)}
	for _, g := range attackers {
		side1Power += g.Power()
		side1.Groups[g.ID] = types.BattleRoleAttacker
	}
	for _, g := range defenders {
		defenderGroupPower += g.Power()
		side2.Groups[g.ID] = types.BattleRoleDefender
	}
	if st != nil {
		structurePower = st.DefensivePower()
	}

	battleID := newID()
	battle := &types.Battle{
		ID:                 battleID,
		Side1Power:         side1Power,
		Side2Power:         defenderGroupPower + structurePower,
		DefenderGroupPower: defenderGroupPower,
		StructurePower:     structurePower,
		TargetTypes:        targetTypes,
		Side1:              side1,
		Side2:              side2,
		TickCount:          0,
		Status:             types.BattleActive,
		StartedAt:          c.Now,
	}

	u := world.NewUpdateSet()
	u.Set(world.BattlePath(req.WorldID, req.X, req.Y, battleID), battle)
	stageCombatant := func(g *types.Group, side int, role string) {
		field := func(name string) string {
			return world.GroupField(req.WorldID, req.X, req.Y, g.ID, name)
		}
		u.Set(field("status"), types.StatusFighting)
		u.Set(field("inBattle"), true)
		u.Set(field("battleId"), battleID)
		u.Set(field("battleSide"), side)
		u.Set(field("battleRole"), role)
	}
	for _, g := range attackers {
		stageCombatant(g, 1, types.BattleRoleAttacker)
	}
	for _, g := range defenders {
		stageCombatant(g, 2, types.BattleRoleDefender)
	}
	if st != nil {
		u.Set(world.StructurePath(req.WorldID, req.X, req.Y)+"/inBattle", true)
	}
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   battleID,
		Kind: "battle_start",
		Text: "battle started",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &AttackRes{BattleID: battleID}, nil
}

package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type JoinBattleReq struct {
	WorldID  string `json:"worldId"`
	GroupID  string `json:"groupId"`
	BattleID string `json:"battleId"`
	Side     int    `json:"side"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// JoinBattle commits an idle group to one side of an active battle on its
// tile as a supporter.
func JoinBattle(c *Ctx, req JoinBattleReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	if req.Side != 1 && req.Side != 2 {
		return Errf(InvalidArgument, "side must be 1 or 2")
	}
	tile, g, err := c.loadOwnedGroup(req.WorldID, req.X, req.Y, req.GroupID)
	if err != nil {
		return err
	}
	if g.InBattle {
		return Errf(FailedPrecondition, "group is already in battle")
	}
	if g.Status != types.StatusIdle {
		return Errf(FailedPrecondition, "group is %s, not idle", g.Status)
	}
	b, ok := tile.Battles[req.BattleID]
	if !ok {
		return Errf(NotFound, "battle %s", req.BattleID)
	}
	if b.Status != types.BattleActive {
		return Errf(FailedPrecondition, "battle is %s", b.Status)
	}

	u := world.NewUpdateSet()
	battleField := func(name string) string {
		return world.BattlePath(req.WorldID, req.X, req.Y, req.BattleID) + "/" + name
	}
	sideName := "side1"
	if req.Side == 2 {
		sideName = "side2"
	}
	u.Set(battleField(sideName+"/groups/"+req.GroupID), types.BattleRoleSupporter)
	power := g.Power()
	if req.Side == 1 {
		u.Set(battleField("side1Power"), b.Side1Power+power)
	} else {
		u.Set(battleField("side2Power"), b.Side2Power+power)
	}
	event := types.BattleEvent{Type: "join", GroupID: req.GroupID, Ts: c.Now}
	u.Set(battleField("events"), append(append([]types.BattleEvent{}, b.Events...), event))

	field := func(name string) string {
		return world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, name)
	}
	u.Set(field("status"), types.StatusFighting)
	u.Set(field("inBattle"), true)
	u.Set(field("battleId"), req.BattleID)
	u.Set(field("battleSide"), req.Side)
	u.Set(field("battleRole"), types.BattleRoleSupporter)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "join",
		Text: g.Name + " joined the battle",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	return c.commit(u)
}

type FleeBattleReq struct {
	WorldID string `json:"worldId"`
	GroupID string `json:"groupId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// FleeBattle asks to leave a battle. The exit itself happens on the next
// battle tick, which charges the flee casualties and clears the battle
// fields.
func FleeBattle(c *Ctx, req FleeBattleReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	tile, g, err := c.loadOwnedGroup(req.WorldID, req.X, req.Y, req.GroupID)
	if err != nil {
		return err
	}
	if !g.InBattle || g.BattleID == "" {
		return Errf(FailedPrecondition, "group is not in battle")
	}
	if g.Status == types.StatusFleeing {
		return Errf(FailedPrecondition, "group is already fleeing")
	}
	b, ok := tile.Battles[g.BattleID]
	if !ok {
		return Errf(NotFound, "battle %s", g.BattleID)
	}

	u := world.NewUpdateSet()
	field := func(name string) string {
		return world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, name)
	}
	u.Set(field("status"), types.StatusFleeing)
	u.Set(field("fleeTickRequested"), b.TickCount)
	battlePath := world.BattlePath(req.WorldID, req.X, req.Y, g.BattleID)
	event := types.BattleEvent{Type: "flee_attempt", GroupID: req.GroupID, Ts: c.Now}
	u.Set(battlePath+"/events", append(append([]types.BattleEvent{}, b.Events...), event))
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "flee_attempt",
		Text: g.Name + " is trying to flee",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	return c.commit(u)
}

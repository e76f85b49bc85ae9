package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type GatherReq struct {
	WorldID string `json:"worldId"`
	GroupID string `json:"groupId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// Gather sets an idle group collecting from its tile. Yield lands after two
// ticks, rolled from the tile's biome.
func Gather(c *Ctx, req GatherReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	_, g, err := c.loadOwnedGroup(req.WorldID, req.X, req.Y, req.GroupID)
	if err != nil {
		return err
	}
	if g.Status != types.StatusIdle {
		return Errf(FailedPrecondition, "group is %s, not idle", g.Status)
	}

	info, err := c.loadInfo(req.WorldID)
	if err != nil {
		return err
	}
	biome := world.BiomeAt(info.Seed, req.X, req.Y)

	u := world.NewUpdateSet()
	field := func(name string) string {
		return world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, name)
	}
	u.Set(field("status"), types.StatusGathering)
	u.Set(field("gatheringBiome"), biome)
	u.Set(field("gatheringTicksRemaining"), 2)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "gather",
		Text: g.Name + " is gathering",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	return c.commit(u)
}

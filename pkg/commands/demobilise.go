package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type DemobiliseReq struct {
	WorldID            string `json:"worldId"`
	GroupID            string `json:"groupId"`
	X                  int    `json:"x"`
	Y                  int    `json:"y"`
	StorageDestination string `json:"storageDestination"`
}

// Demobilise marks a group for absorption into the structure on its tile.
// The actual unit merge and item transfer happen on the next tick.
func Demobilise(c *Ctx, req DemobiliseReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	dest := req.StorageDestination
	switch dest {
	case "":
		dest = types.StorageShared
	case types.StorageShared, types.StoragePersonal:
	default:
		return Errf(InvalidArgument, "bad storage destination %q", dest)
	}

	tile, g, err := c.loadOwnedGroup(req.WorldID, req.X, req.Y, req.GroupID)
	if err != nil {
		return err
	}
	if g.Status == types.StatusDemobilising {
		return Errf(FailedPrecondition, "group is already demobilising")
	}
	if g.InBattle || g.Status == types.StatusFighting {
		return Errf(FailedPrecondition, "group is in battle")
	}
	if tile.Structure == nil {
		return Errf(FailedPrecondition, "no structure on tile %d,%d", req.X, req.Y)
	}

	u := world.NewUpdateSet()
	u.Set(world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, "status"), types.StatusDemobilising)
	u.Set(world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, "targetStructureId"), tile.Structure.ID)
	u.Set(world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, "storageDestination"), dest)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "demobilize",
		Text: g.Name + " is standing down",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	return c.commit(u)
}

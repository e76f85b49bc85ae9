package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type BuildReq struct {
	WorldID       string `json:"worldId"`
	GroupID       string `json:"groupId"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	StructureType string `json:"structureType"`
	StructureName string `json:"structureName"`
}

type BuildRes struct {
	StructureID string `json:"structureId"`
}

// Build starts construction on the group's tile. Creation, resource
// deduction and the builder's status flip happen in one transaction so a
// racing build on the same tile cannot double-found.
func Build(c *Ctx, req BuildReq) (*BuildRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	def, ok := types.StructureTypes[req.StructureType]
	if !ok || req.StructureType == "spawn" {
		return nil, Errf(InvalidArgument, "unknown structure type %q", req.StructureType)
	}

	structureID := newID()
	var cmdErr *Error
	err := c.Store.Transact(world.TilePath(req.WorldID, req.X, req.Y), func(current any) (any, error) {
		cmdErr = nil
		if current == nil {
			cmdErr = Errf(NotFound, "tile %d,%d", req.X, req.Y)
			return nil, cmdErr
		}
		var tile types.Tile
		if err := world.Decode(current, &tile); err != nil {
			return nil, err
		}
		g, ok := tile.Groups[req.GroupID]
		if !ok {
			cmdErr = Errf(NotFound, "group %s", req.GroupID)
			return nil, cmdErr
		}
		if g.Owner != c.UID {
			cmdErr = Errf(PermissionDenied, "group %s is not yours", req.GroupID)
			return nil, cmdErr
		}
		if g.Status != types.StatusIdle {
			cmdErr = Errf(FailedPrecondition, "group is %s, not idle", g.Status)
			return nil, cmdErr
		}
		if tile.Structure != nil {
			cmdErr = Errf(FailedPrecondition, "tile %d,%d already has a structure", req.X, req.Y)
			return nil, cmdErr
		}
		if !g.Items.Covers(def.Cost) {
			cmdErr = Errf(FailedPrecondition, "insufficient resources for %s", req.StructureType)
			return nil, cmdErr
		}

		g.Items.Deduct(def.Cost)
		g.Status = types.StatusBuilding
		g.BuildingUntil = 0
		tile.Structure = &types.Structure{
			ID:             structureID,
			Owner:          c.UID,
			Type:           req.StructureType,
			Name:           req.StructureName,
			Race:           g.Race,
			Level:          1,
			Status:         types.StructureBuilding,
			BuildProgress:  0,
			BuildTotalTime: def.BuildTime,
			Builder:        req.GroupID,
		}
		return &tile, nil
	})
	if err != nil {
		if cmdErr != nil {
			return nil, cmdErr
		}
		return nil, internalErr(err)
	}

	u := world.NewUpdateSet()
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   structureID,
		Kind: "build",
		Text: req.StructureName + " under construction",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &BuildRes{StructureID: structureID}, nil
}

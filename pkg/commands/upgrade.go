package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type StructureUpgradeReq struct {
	WorldID string `json:"worldId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type BuildingUpgradeReq struct {
	WorldID    string `json:"worldId"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	BuildingID string `json:"buildingId"`
}

type UpgradeRes struct {
	UpgradeID   string `json:"upgradeId"`
	CompletesAt int64  `json:"completesAt"`
}

// StartStructureUpgrade queues a level upgrade for the structure on the tile,
// paid with the two-stage bank policy. The tick finalises the level bump when
// completesAt passes.
func StartStructureUpgrade(c *Ctx, req StructureUpgradeReq) (*UpgradeRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	st, err := c.upgradeableStructure(req.WorldID, req.X, req.Y)
	if err != nil {
		return nil, err
	}
	if st.UpgradeInProgress {
		return nil, Errf(FailedPrecondition, "structure is already upgrading")
	}
	if st.Level >= types.MaxStructureLevel {
		return nil, Errf(FailedPrecondition, "structure is at max level")
	}

	cost := types.StructureUpgradeCost(st.Level)
	personal, shared, _, err := payTwoStage(st, c.UID, st.Owner == c.UID, cost)
	if err != nil {
		return nil, err
	}

	upgradeID := newID()
	completesAt := c.Now + types.UpgradeTimeMs(st.Type, st.Level)
	up := &types.Upgrade{
		ID:          upgradeID,
		Owner:       c.UID,
		X:           req.X,
		Y:           req.Y,
		StructureID: st.ID,
		FromLevel:   st.Level,
		ToLevel:     st.Level + 1,
		StartedAt:   c.Now,
		CompletesAt: completesAt,
		Resources:   cost,
		Status:      types.UpgradePending,
	}

	u := world.NewUpdateSet()
	sp := world.StructurePath(req.WorldID, req.X, req.Y)
	u.Set(world.UpgradePath(req.WorldID, upgradeID), up)
	u.Set(sp+"/upgradeInProgress", true)
	u.Set(sp+"/upgradeId", upgradeID)
	u.Set(sp+"/upgradeCompletesAt", completesAt)
	u.Set(sp+"/status", types.StructureUpgrading)
	u.Set(sp+"/banks/"+c.UID, personal)
	u.Set(sp+"/items", shared)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   upgradeID,
		Kind: "upgrade",
		Text: st.Name + " upgrade started",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &UpgradeRes{UpgradeID: upgradeID, CompletesAt: completesAt}, nil
}

// StartBuildingUpgrade queues a level upgrade for one interior building.
func StartBuildingUpgrade(c *Ctx, req BuildingUpgradeReq) (*UpgradeRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	st, err := c.upgradeableStructure(req.WorldID, req.X, req.Y)
	if err != nil {
		return nil, err
	}
	b, ok := st.Buildings[req.BuildingID]
	if !ok {
		return nil, Errf(NotFound, "building %s", req.BuildingID)
	}
	if b.UpgradeInProgress {
		return nil, Errf(FailedPrecondition, "building is already upgrading")
	}
	if b.Level >= types.MaxStructureLevel {
		return nil, Errf(FailedPrecondition, "building is at max level")
	}

	level := b.Level
	if level < 1 {
		level = 1
	}
	cost := types.BuildingUpgradeCost(b.Type, level)
	personal, shared, _, err := payTwoStage(st, c.UID, st.Owner == c.UID, cost)
	if err != nil {
		return nil, err
	}

	upgradeID := newID()
	completesAt := c.Now + types.UpgradeTimeMs(st.Type, level)
	up := &types.Upgrade{
		ID:          upgradeID,
		Owner:       c.UID,
		X:           req.X,
		Y:           req.Y,
		StructureID: st.ID,
		BuildingID:  req.BuildingID,
		FromLevel:   level,
		ToLevel:     level + 1,
		StartedAt:   c.Now,
		CompletesAt: completesAt,
		Resources:   cost,
		Status:      types.UpgradePending,
	}

	u := world.NewUpdateSet()
	sp := world.StructurePath(req.WorldID, req.X, req.Y)
	bp := sp + "/buildings/" + req.BuildingID
	u.Set(world.UpgradePath(req.WorldID, upgradeID), up)
	u.Set(bp+"/upgradeInProgress", true)
	u.Set(bp+"/upgradeId", upgradeID)
	u.Set(bp+"/upgradeCompletesAt", completesAt)
	u.Set(sp+"/banks/"+c.UID, personal)
	u.Set(sp+"/items", shared)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   upgradeID,
		Kind: "upgrade",
		Text: b.Type + " upgrade started",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &UpgradeRes{UpgradeID: upgradeID, CompletesAt: completesAt}, nil
}

type CancelUpgradeReq struct {
	WorldID   string `json:"worldId"`
	UpgradeID string `json:"upgradeId"`
}

// CancelUpgrade abandons a pending upgrade and refunds its full resource cost
// to the caller's personal bank.
func CancelUpgrade(c *Ctx, req CancelUpgradeReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	v, err := c.Store.Read(world.UpgradePath(req.WorldID, req.UpgradeID))
	if err != nil {
		return internalErr(err)
	}
	if v == nil {
		return Errf(NotFound, "upgrade %s", req.UpgradeID)
	}
	var up types.Upgrade
	if err := world.Decode(v, &up); err != nil {
		return internalErr(err)
	}
	if up.Owner != c.UID {
		return Errf(PermissionDenied, "upgrade %s is not yours", req.UpgradeID)
	}
	if up.Status != types.UpgradePending {
		return Errf(FailedPrecondition, "upgrade is %s", up.Status)
	}
	tile, err := c.loadTile(req.WorldID, up.X, up.Y)
	if err != nil {
		return err
	}
	st := tile.Structure
	if st == nil || st.ID != up.StructureID {
		return Errf(NotFound, "structure %s", up.StructureID)
	}

	bank := st.Banks[c.UID].Clone()
	bank.Add(types.ItemBag(up.Resources))

	u := world.NewUpdateSet()
	sp := world.StructurePath(req.WorldID, up.X, up.Y)
	u.Delete(world.UpgradePath(req.WorldID, req.UpgradeID))
	u.Set(sp+"/banks/"+c.UID, bank)
	if up.BuildingID != "" {
		bp := sp + "/buildings/" + up.BuildingID
		u.Delete(bp + "/upgradeInProgress")
		u.Delete(bp + "/upgradeId")
		u.Delete(bp + "/upgradeCompletesAt")
	} else {
		u.Delete(sp + "/upgradeInProgress")
		u.Delete(sp + "/upgradeId")
		u.Delete(sp + "/upgradeCompletesAt")
		u.Set(sp+"/status", types.StructureIdle)
	}
	return c.commit(u)
}

// upgradeableStructure loads a structure the caller may upgrade: their own,
// or a public spawn.
func (c *Ctx) upgradeableStructure(worldID string, x, y int) (*types.Structure, error) {
	tile, err := c.loadTile(worldID, x, y)
	if err != nil {
		return nil, err
	}
	st := tile.Structure
	if st == nil {
		return nil, Errf(NotFound, "no structure at %d,%d", x, y)
	}
	if st.Owner != c.UID && !st.IsSpawn() {
		return nil, Errf(PermissionDenied, "structure is not yours")
	}
	if st.Status == types.StructureBuilding {
		return nil, Errf(FailedPrecondition, "structure is still under construction")
	}
	return st, nil
}

package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type StartCraftingReq struct {
	WorldID     string `json:"worldId"`
	RecipeID    string `json:"recipeId"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	StructureID string `json:"structureId,omitempty"`
}

type StartCraftingRes struct {
	CraftID     string `json:"craftId"`
	CompletesAt int64  `json:"completesAt"`
}

// StartCrafting begins a recipe on the player's own inventory. One craft per
// player per world; skill level and a workshop or forge on the tile shorten
// the duration, floored at a tenth of the base time.
func StartCrafting(c *Ctx, req StartCraftingReq) (*StartCraftingRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	recipe, ok := types.Recipes[req.RecipeID]
	if !ok {
		return nil, Errf(InvalidArgument, "unknown recipe %q", req.RecipeID)
	}
	player, err := world.ReadPlayer(c.Store, c.UID, req.WorldID)
	if err != nil {
		return nil, internalErr(err)
	}
	if player == nil {
		return nil, Errf(NotFound, "not a member of world %s", req.WorldID)
	}
	if player.Crafting.Current != "" {
		return nil, Errf(FailedPrecondition, "already crafting")
	}
	if !player.Items.Covers(recipe.Materials) {
		return nil, Errf(FailedPrecondition, "insufficient materials for %s", req.RecipeID)
	}

	structureBonus := 0.0
	if req.StructureID != "" {
		tile, err := c.loadTile(req.WorldID, req.X, req.Y)
		if err != nil {
			return nil, err
		}
		if tile.Structure == nil || tile.Structure.ID != req.StructureID {
			return nil, Errf(NotFound, "structure %s", req.StructureID)
		}
		structureBonus = tile.Structure.CraftingBonusFor()
	}

	level := player.Skills.Crafting.Level
	skillBonus := 0.05 * float64(level-1)
	if skillBonus < 0 {
		skillBonus = 0
	}
	if skillBonus > 0.5 {
		skillBonus = 0.5
	}
	factor := 1 - skillBonus - structureBonus
	if factor < 0.1 {
		factor = 0.1
	}
	duration := int64(float64(recipe.BaseTimeMs) * factor)

	items := player.Items.Clone()
	items.Deduct(recipe.Materials)

	craftID := newID()
	craft := &types.Craft{
		ID:          craftID,
		Owner:       c.UID,
		RecipeID:    req.RecipeID,
		X:           req.X,
		Y:           req.Y,
		StructureID: req.StructureID,
		StartedAt:   c.Now,
		CompletesAt: c.Now + duration,
		Materials:   recipe.Materials,
		Status:      types.CraftPending,
	}

	u := world.NewUpdateSet()
	pp := world.PlayerWorldPath(c.UID, req.WorldID)
	u.Set(world.CraftPath(req.WorldID, craftID), craft)
	u.Set(pp+"/items", items)
	u.Set(pp+"/crafting/current", craftID)
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &StartCraftingRes{CraftID: craftID, CompletesAt: craft.CompletesAt}, nil
}

type CancelCraftingReq struct {
	WorldID string `json:"worldId"`
}

// CancelCrafting abandons the in-flight craft, returning half the materials
// rounded up.
func CancelCrafting(c *Ctx, req CancelCraftingReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	player, err := world.ReadPlayer(c.Store, c.UID, req.WorldID)
	if err != nil {
		return internalErr(err)
	}
	if player == nil || player.Crafting.Current == "" {
		return Errf(FailedPrecondition, "nothing is being crafted")
	}
	craftID := player.Crafting.Current

	v, err := c.Store.Read(world.CraftPath(req.WorldID, craftID))
	if err != nil {
		return internalErr(err)
	}
	if v == nil {
		return Errf(NotFound, "craft %s", craftID)
	}
	var craft types.Craft
	if err := world.Decode(v, &craft); err != nil {
		return internalErr(err)
	}
	if craft.Owner != c.UID {
		return Errf(PermissionDenied, "craft %s is not yours", craftID)
	}

	items := player.Items.Clone()
	for item, qty := range craft.Materials {
		items[item] += (qty + 1) / 2
	}

	u := world.NewUpdateSet()
	pp := world.PlayerWorldPath(c.UID, req.WorldID)
	u.Delete(world.CraftPath(req.WorldID, craftID))
	u.Set(pp+"/items", items)
	u.Delete(pp + "/crafting/current")
	return c.commit(u)
}

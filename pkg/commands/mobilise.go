package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type MobiliseReq struct {
	WorldID       string   `json:"worldId"`
	X             int      `json:"x"`
	Y             int      `json:"y"`
	UnitIDs       []string `json:"units"`
	IncludePlayer bool     `json:"includePlayer"`
	Name          string   `json:"name"`
	Race          string   `json:"race"`
}

type MobiliseRes struct {
	GroupID string `json:"groupId"`
}

// Mobilise forms a new group from units the caller owns on the tile,
// optionally folding the caller in as a player unit. The new group starts in
// "mobilizing" and becomes idle on the next tick.
func Mobilise(c *Ctx, req MobiliseReq) (*MobiliseRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	if len(req.UnitIDs) == 0 && !req.IncludePlayer {
		return nil, Errf(InvalidArgument, "nothing to mobilise")
	}
	tile, err := c.loadTile(req.WorldID, req.X, req.Y)
	if err != nil {
		return nil, err
	}

	// The caller must be on the tile, either as a standing player entity or
	// inside one of their groups.
	_, present := tile.Players[c.UID]
	var carrier *types.Group
	for _, g := range tile.Groups {
		if g.Owner != c.UID {
			continue
		}
		if _, ok := g.Units[c.UID]; ok {
			carrier = g
			break
		}
	}
	if !present && carrier == nil {
		return nil, Errf(FailedPrecondition, "you are not on tile %d,%d", req.X, req.Y)
	}

	// Pull the selected units out of the caller's groups on this tile.
	moved := make(map[string]types.Unit, len(req.UnitIDs))
	sources := make(map[string]*types.Group)
	for _, unitID := range req.UnitIDs {
		var found bool
		for gid, g := range tile.Groups {
			if g.Owner != c.UID {
				continue
			}
			u, ok := g.Units[unitID]
			if !ok {
				continue
			}
			if u.IsPlayer() {
				return nil, Errf(InvalidArgument, "unit %s is a player unit", unitID)
			}
			moved[unitID] = u
			delete(g.Units, unitID)
			sources[gid] = g
			found = true
			break
		}
		if !found {
			return nil, Errf(NotFound, "unit %s", unitID)
		}
	}

	// Boats cap their passengers: every selected non-boat unit needs a slot.
	capacity, boats, passengers := 0, 0, 0
	for _, u := range moved {
		if u.Capacity > 0 && hasMotion(u.Motion, "water") {
			capacity += u.Capacity
			boats++
		} else {
			passengers++
		}
	}
	if req.IncludePlayer {
		passengers++
	}
	if boats > 0 && passengers > capacity {
		return nil, Errf(FailedPrecondition, "boat capacity %d cannot carry %d passengers", capacity, passengers)
	}

	groupID := newID()
	if req.IncludePlayer {
		if carrier != nil {
			delete(carrier.Units, c.UID)
			sources[groupIDOf(tile, carrier)] = carrier
		}
		moved[c.UID] = types.Unit{Type: types.UnitTypePlayer, Race: req.Race}
	}

	newGroup := &types.Group{
		ID:     groupID,
		Owner:  c.UID,
		Name:   req.Name,
		Race:   req.Race,
		X:      req.X,
		Y:      req.Y,
		Status: types.StatusMobilizing,
		Units:  moved,
		Motion: types.MotionFromUnits(moved),
		Items:  types.ItemBag{},
	}
	newGroup.Recount()

	u := world.NewUpdateSet()
	for gid, g := range sources {
		if len(g.Units) == 0 {
			// Emptied source groups dissolve; their cargo rides along.
			newGroup.Items.Add(g.Items)
			u.Delete(world.GroupPath(req.WorldID, req.X, req.Y, gid))
		} else {
			g.Recount()
			u.Set(world.GroupField(req.WorldID, req.X, req.Y, gid, "units"), g.Units)
			u.Set(world.GroupField(req.WorldID, req.X, req.Y, gid, "unitCount"), g.UnitCount)
		}
	}
	u.Set(world.GroupPath(req.WorldID, req.X, req.Y, groupID), newGroup)
	if req.IncludePlayer {
		if present {
			u.Delete(world.TilePlayerPath(req.WorldID, req.X, req.Y, c.UID))
		}
		u.Set(world.PlayerWorldPath(c.UID, req.WorldID)+"/inGroup", groupID)
	}
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   groupID,
		Kind: "mobilize",
		Text: req.Name + " mobilised",
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	if err := c.commit(u); err != nil {
		return nil, err
	}
	return &MobiliseRes{GroupID: groupID}, nil
}

func hasMotion(motion []string, want string) bool {
	for _, m := range motion {
		if m == want {
			return true
		}
	}
	return false
}

func groupIDOf(tile *types.Tile, g *types.Group) string {
	for gid, candidate := range tile.Groups {
		if candidate == g {
			return gid
		}
	}
	return g.ID
}

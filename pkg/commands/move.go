package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/grid"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type MoveReq struct {
	WorldID string       `json:"worldId"`
	GroupID string       `json:"groupId"`
	FromX   int          `json:"fromX"`
	FromY   int          `json:"fromY"`
	ToX     int          `json:"toX"`
	ToY     int          `json:"toY"`
	Path    []grid.Coord `json:"path,omitempty"`
}

// Move puts an idle group on a path toward a target tile. With no explicit
// path the route is a Bresenham line between the endpoints. The group
// relocates one step per tick interval, scaled by world speed.
func Move(c *Ctx, req MoveReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	_, g, err := c.loadOwnedGroup(req.WorldID, req.FromX, req.FromY, req.GroupID)
	if err != nil {
		return err
	}
	if g.Status != types.StatusIdle {
		return Errf(FailedPrecondition, "group is %s, not idle", g.Status)
	}

	path := req.Path
	if len(path) == 0 {
		path = grid.Line(req.FromX, req.FromY, req.ToX, req.ToY)
	} else {
		if len(path) > grid.MaxPathLen+1 {
			return Errf(InvalidArgument, "path exceeds %d steps", grid.MaxPathLen)
		}
		first, last := path[0], path[len(path)-1]
		if first.X != req.FromX || first.Y != req.FromY {
			return Errf(InvalidArgument, "path must start at %d,%d", req.FromX, req.FromY)
		}
		if last.X != req.ToX || last.Y != req.ToY {
			return Errf(InvalidArgument, "path must end at %d,%d", req.ToX, req.ToY)
		}
	}
	if len(path) < 2 {
		return Errf(InvalidArgument, "already at %d,%d", req.ToX, req.ToY)
	}

	info, err := c.loadInfo(req.WorldID)
	if err != nil {
		return err
	}
	speed := info.Speed
	if speed <= 0 {
		speed = 1
	}

	u := world.NewUpdateSet()
	field := func(name string) string {
		return world.GroupField(req.WorldID, req.FromX, req.FromY, req.GroupID, name)
	}
	u.Set(field("status"), types.StatusMoving)
	u.Set(field("movementPath"), path)
	u.Set(field("pathIndex"), 0)
	u.Set(field("moveStarted"), c.Now)
	u.Set(field("moveSpeed"), speed)
	u.Set(field("nextMoveTime"), c.Now+int64(float64(info.TickInterval)/speed))
	u.Set(field("targetX"), req.ToX)
	u.Set(field("targetY"), req.ToY)
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "move",
		Text: g.Name + " is on the move",
		Ts:   c.Now,
		X:    world.At(req.FromX),
		Y:    world.At(req.FromY),
	})
	return c.commit(u)
}

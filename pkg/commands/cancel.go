package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type CancelReq struct {
	WorldID string `json:"worldId"`
	GroupID string `json:"groupId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// CancelMove aborts a move in two commits. The first flips the group to the
// transitional "cancelling" status so a concurrently running tick leaves it
// alone; the second lands it idle and clears the movement fields.
func CancelMove(c *Ctx, req CancelReq) error {
	return cancelTwoPhase(c, req, types.StatusMoving, types.StatusCancelling, "move cancelled", movementFields)
}

// CancelGather aborts a gather the same way, via "cancellingGather".
func CancelGather(c *Ctx, req CancelReq) error {
	return cancelTwoPhase(c, req, types.StatusGathering, types.StatusCancellingGather, "gathering cancelled", gatherFields)
}

var movementFields = []string{
	"movementPath", "pathIndex", "nextMoveTime", "moveStarted", "moveSpeed", "targetX", "targetY",
}

var gatherFields = []string{"gatheringBiome", "gatheringTicksRemaining"}

func cancelTwoPhase(c *Ctx, req CancelReq, want, transitional, eventText string, clear []string) error {
	if err := c.auth(); err != nil {
		return err
	}
	_, g, err := c.loadOwnedGroup(req.WorldID, req.X, req.Y, req.GroupID)
	if err != nil {
		return err
	}
	if g.Status != want {
		return Errf(FailedPrecondition, "group is %s, not %s", g.Status, want)
	}

	field := func(name string) string {
		return world.GroupField(req.WorldID, req.X, req.Y, req.GroupID, name)
	}

	// Phase 1: mark the cancellation in flight.
	mark := world.NewUpdateSet()
	mark.Set(field("status"), transitional)
	mark.Set(field("cancelRequestTime"), c.Now)
	if err := c.commit(mark); err != nil {
		return err
	}

	// Phase 2: finish it. The group may have been relocated or destroyed
	// between commits, so re-read before writing the terminal state.
	tile, err := c.loadTile(req.WorldID, req.X, req.Y)
	if err != nil {
		return err
	}
	g, ok := tile.Groups[req.GroupID]
	if !ok || g.Status != transitional {
		return Errf(FailedPrecondition, "cancellation interrupted")
	}
	done := world.NewUpdateSet()
	done.Set(field("status"), types.StatusIdle)
	done.Delete(field("cancelRequestTime"))
	for _, name := range clear {
		done.Delete(field(name))
	}
	world.EmitEvent(done, req.WorldID, types.ChatMessage{
		ID:   req.GroupID,
		Kind: "cancel",
		Text: g.Name + ": " + eventText,
		Ts:   c.Now,
		X:    world.At(req.X),
		Y:    world.At(req.Y),
	})
	return c.commit(done)
}

package commands

import (
	"github.com/lmf-git/gisaima-sub005/pkg/grid"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type JoinWorldReq struct {
	WorldID       string      `json:"worldId"`
	Race          string      `json:"race"`
	DisplayName   string      `json:"displayName,omitempty"`
	SpawnPosition *grid.Coord `json:"spawnPosition,omitempty"`
}

// JoinWorld registers the caller in a world without placing them on the map.
// The player count bump runs inside a transaction so concurrent joins cannot
// lose increments. Rejoining is a no-op for the count.
func JoinWorld(c *Ctx, req JoinWorldReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	if req.Race == "" {
		return Errf(InvalidArgument, "race is required")
	}
	if _, err := c.loadInfo(req.WorldID); err != nil {
		return err
	}

	existing, err := world.ReadPlayer(c.Store, c.UID, req.WorldID)
	if err != nil {
		return internalErr(err)
	}

	spawn := req.SpawnPosition
	if spawn == nil {
		spawn = &grid.Coord{X: 0, Y: 0}
	}
	rec := &types.PlayerRecord{
		Alive:        false,
		Race:         req.Race,
		DisplayName:  req.DisplayName,
		LastLocation: spawn,
	}
	if existing != nil {
		// Rejoin keeps accumulated state and only refreshes identity fields.
		rec = existing
		rec.Race = req.Race
		if req.DisplayName != "" {
			rec.DisplayName = req.DisplayName
		}
		if req.SpawnPosition != nil {
			rec.LastLocation = req.SpawnPosition
		}
	}

	u := world.NewUpdateSet()
	u.Set(world.PlayerWorldPath(c.UID, req.WorldID), rec)
	if err := c.commit(u); err != nil {
		return err
	}

	if existing == nil {
		err := c.Store.Transact(world.InfoPath(req.WorldID), func(current any) (any, error) {
			if current == nil {
				return nil, Errf(NotFound, "world %s", req.WorldID)
			}
			var info types.WorldInfo
			if err := world.Decode(current, &info); err != nil {
				return nil, err
			}
			info.PlayerCount++
			return &info, nil
		})
		if err != nil {
			if e, ok := err.(*Error); ok {
				return e
			}
			return internalErr(err)
		}
	}
	return nil
}

type SpawnPlayerReq struct {
	WorldID string `json:"worldId"`
	SpawnX  int    `json:"spawnX"`
	SpawnY  int    `json:"spawnY"`
}

// SpawnPlayer places a joined player on the map as a standing tile entity.
func SpawnPlayer(c *Ctx, req SpawnPlayerReq) error {
	if err := c.auth(); err != nil {
		return err
	}
	player, err := world.ReadPlayer(c.Store, c.UID, req.WorldID)
	if err != nil {
		return internalErr(err)
	}
	if player == nil {
		return Errf(FailedPrecondition, "join the world first")
	}
	if player.Alive {
		return Errf(FailedPrecondition, "already spawned")
	}

	u := world.NewUpdateSet()
	pp := world.PlayerWorldPath(c.UID, req.WorldID)
	u.Set(world.TilePlayerPath(req.WorldID, req.SpawnX, req.SpawnY, c.UID), types.PlayerPresence{
		DisplayName: player.DisplayName,
		Race:        player.Race,
		Alive:       true,
	})
	u.Set(pp+"/alive", true)
	u.Set(pp+"/lastLocation", grid.Coord{X: req.SpawnX, Y: req.SpawnY})
	world.EmitEvent(u, req.WorldID, types.ChatMessage{
		ID:   c.UID,
		Kind: "spawn",
		Text: player.DisplayName + " entered the world",
		Ts:   c.Now,
		X:    world.At(req.SpawnX),
		Y:    world.At(req.SpawnY),
	})
	return c.commit(u)
}

package commands

import (
	"math"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

type RecruitReq struct {
	WorldID     string         `json:"worldId"`
	StructureID string         `json:"structureId"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	UnitType    string         `json:"unitType"`
	Quantity    int            `json:"quantity"`
	Cost        map[string]int `json:"cost,omitempty"`
}

type RecruitRes struct {
	RecruitmentID string `json:"recruitmentId"`
	TicksRequired int    `json:"ticksRequired"`
}

// Recruit appends a training order to the structure's queue. The queue append
// and the payment run in one transaction so two racing recruits cannot both
// take the last slot or spend the same items.
func Recruit(c *Ctx, req RecruitReq) (*RecruitRes, error) {
	if err := c.auth(); err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > 100 {
		return nil, Errf(InvalidArgument, "quantity must be 1..100")
	}
	unitDef, ok := types.UnitTypes[req.UnitType]
	if !ok {
		return nil, Errf(InvalidArgument, "unknown unit type %q", req.UnitType)
	}
	cost := req.Cost
	if len(cost) == 0 {
		cost = map[string]int{}
		for item, qty := range unitDef.Cost {
			cost[item] = qty * req.Quantity
		}
	}

	info, err := c.loadInfo(req.WorldID)
	if err != nil {
		return nil, err
	}
	timePerUnit := unitDef.TimePerUnit
	if timePerUnit <= 0 {
		timePerUnit = 1
	}
	ticksRequired := int(math.Ceil(timePerUnit * float64(req.Quantity) / info.Speed))
	if ticksRequired < 1 {
		ticksRequired = 1
	}

	recruitmentID := newID()
	var cmdErr *Error
	err = c.Store.Transact(world.TilePath(req.WorldID, req.X, req.Y), func(current any) (any, error) {
		cmdErr = nil
		if current == nil {
			cmdErr = Errf(NotFound, "tile %d,%d", req.X, req.Y)
			return nil, cmdErr
		}
		var tile types.Tile
		if err := world.Decode(current, &tile); err != nil {
			return nil, err
		}
		st := tile.Structure
		if st == nil || st.ID != req.StructureID {
			cmdErr = Errf(NotFound, "structure %s", req.StructureID)
			return nil, cmdErr
		}
		if st.Status == types.StructureBuilding || st.Status == types.StructureRuins {
			cmdErr = Errf(FailedPrecondition, "structure is %s", st.Status)
			return nil, cmdErr
		}
		if st.Owner != c.UID && !st.IsSpawn() {
			cmdErr = Errf(PermissionDenied, "structure is not yours")
			return nil, cmdErr
		}
		if unitDef.RequiresRace && st.Race != "" && st.Race != unitDef.Race {
			cmdErr = Errf(FailedPrecondition, "%s cannot train %s units", st.Race, unitDef.Race)
			return nil, cmdErr
		}
		if len(st.RecruitmentQueue) >= st.QueueCapacity() {
			cmdErr = Errf(FailedPrecondition, "recruitment queue is full")
			return nil, cmdErr
		}

		personal, shared, deductions, err := payTwoStage(st, c.UID, st.Owner == c.UID, cost)
		if err != nil {
			cmdErr = err.(*Error)
			return nil, cmdErr
		}
		if st.Banks == nil {
			st.Banks = map[string]types.ItemBag{}
		}
		st.Banks[c.UID] = personal
		st.Items = shared
		if st.RecruitmentQueue == nil {
			st.RecruitmentQueue = map[string]*types.Recruitment{}
		}
		st.RecruitmentQueue[recruitmentID] = &types.Recruitment{
			ID:                recruitmentID,
			Owner:             c.UID,
			UnitType:          req.UnitType,
			Quantity:          req.Quantity,
			TicksRequired:     ticksRequired,
			StartedAt:         c.Now,
			ResourceDeduction: deductions,
		}
		return &tile, nil
	})
	if err != nil {
		if cmdErr != nil {
			return nil, cmdErr
		}
		return nil, internalErr(err)
	}
	return &RecruitRes{RecruitmentID: recruitmentID, TicksRequired: ticksRequired}, nil
}

type CancelRecruitmentReq struct {
	WorldID       string `json:"worldId"`
	RecruitmentID string `json:"recruitmentId"`
	StructureID   string `json:"structureId"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
}

// CancelRecruitment removes a queued order and refunds part of its cost to
// the caller's personal bank. The refund decays with training progress but
// never drops below half.
func CancelRecruitment(c *Ctx, req CancelRecruitmentReq) error {
	if err := c.auth(); err != nil {
		return err
	}
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
		st := tile.Structure
		if st == nil || st.ID != req.StructureID {
			cmdErr = Errf(NotFound, "structure %s", req.StructureID)
			return nil, cmdErr
		}
		rec, ok := st.RecruitmentQueue[req.RecruitmentID]
		if !ok {
			cmdErr = Errf(NotFound, "recruitment %s", req.RecruitmentID)
			return nil, cmdErr
		}
		if rec.Owner != c.UID {
			cmdErr = Errf(PermissionDenied, "recruitment %s is not yours", req.RecruitmentID)
			return nil, cmdErr
		}

		elapsedPct := 0
		if rec.TicksRequired > 0 {
			elapsedPct = rec.TicksElapsed * 100 / rec.TicksRequired
		}
		refundPct := 100 - elapsedPct
		if refundPct < 50 {
			refundPct = 50
		}

		bank := st.Banks[c.UID].Clone()
		for _, d := range rec.ResourceDeduction {
			if qty := d.Qty * refundPct / 100; qty > 0 {
				bank[d.Item] += qty
			}
		}
		if st.Banks == nil {
			st.Banks = map[string]types.ItemBag{}
		}
		st.Banks[c.UID] = bank
		delete(st.RecruitmentQueue, req.RecruitmentID)
		return &tile, nil
	})
	if err != nil {
		if cmdErr != nil {
			return cmdErr
		}
		return internalErr(err)
	}
	return nil
}

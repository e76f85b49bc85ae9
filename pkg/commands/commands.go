// Package commands implements the player-facing actions. Every handler shares
// the same skeleton: authenticate, validate arguments, read the tile and any
// referenced subtrees, enforce domain rules, stage a path-keyed update map and
// commit it once. Failures surface as error kinds with no partial mutation.
package commands

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// --- Error kinds ---

type Kind string

const (
	Unauthenticated    Kind = "unauthenticated"
	InvalidArgument    Kind = "invalid-argument"
	NotFound           Kind = "not-found"
	PermissionDenied   Kind = "permission-denied"
	FailedPrecondition Kind = "failed-precondition"
	Internal           Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Msg }

func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf maps any error to its kind; unexpected errors are internal.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Internal
}

func internalErr(err error) *Error {
	return &Error{Kind: Internal, Msg: err.Error()}
}

// --- Shared context ---

// Ctx carries the authenticated caller and the commit clock for one command
// invocation.
type Ctx struct {
	Store store.Store
	UID   string
	Now   int64 // ms epoch
}

func (c *Ctx) auth() error {
	if c.UID == "" {
		return Errf(Unauthenticated, "sign in required")
	}
	return nil
}

func newID() string { return uuid.NewString() }

// --- Shared reads ---

// loadTile fails with not-found when the tile was never written.
func (c *Ctx) loadTile(worldID string, x, y int) (*types.Tile, error) {
	tile, err := world.ReadTile(c.Store, worldID, x, y)
	if err != nil {
		return nil, internalErr(err)
	}
	if tile == nil {
		return nil, Errf(NotFound, "tile %d,%d", x, y)
	}
	return tile, nil
}

// loadOwnedGroup resolves a group on a tile and enforces caller ownership.
func (c *Ctx) loadOwnedGroup(worldID string, x, y int, groupID string) (*types.Tile, *types.Group, error) {
	tile, err := c.loadTile(worldID, x, y)
	if err != nil {
		return nil, nil, err
	}
	g, ok := tile.Groups[groupID]
	if !ok {
		return nil, nil, Errf(NotFound, "group %s", groupID)
	}
	if g.Owner != c.UID {
		return nil, nil, Errf(PermissionDenied, "group %s is not yours", groupID)
	}
	return tile, g, nil
}

func (c *Ctx) loadInfo(worldID string) (*types.WorldInfo, error) {
	info, err := world.ReadInfo(c.Store, worldID)
	if err != nil {
		return nil, internalErr(err)
	}
	if info == nil {
		return nil, Errf(NotFound, "world %s", worldID)
	}
	return info, nil
}

func (c *Ctx) commit(u *world.UpdateSet) error {
	if err := c.Store.Commit(u.Map()); err != nil {
		return internalErr(err)
	}
	return nil
}

// --- Two-stage payment ---

// payTwoStage deducts cost from the caller's personal bank first, then from
// shared storage if the caller owns the structure. If the combined balance
// cannot cover the cost nothing is deducted. Returned bags are the new
// balances; deductions record each debit for refunds.
func payTwoStage(st *types.Structure, uid string, isOwner bool, cost map[string]int) (personal, shared types.ItemBag, deductions []types.Deduction, err error) {
	personal = st.Banks[uid].Clone()
	shared = st.Items.Clone()

	for item, need := range cost {
		have := personal[item]
		if isOwner {
			have += shared[item]
		}
		if have < need {
			return nil, nil, nil, Errf(FailedPrecondition, "insufficient %s: need %d, have %d", item, need, have)
		}
	}
	for item, need := range cost {
		if need <= 0 {
			continue
		}
		fromPersonal := need
		if fromPersonal > personal[item] {
			fromPersonal = personal[item]
		}
		if fromPersonal > 0 {
			personal.Deduct(map[string]int{item: fromPersonal})
			deductions = append(deductions, types.Deduction{Source: types.StoragePersonal, Item: item, Qty: fromPersonal})
		}
		if rest := need - fromPersonal; rest > 0 {
			shared.Deduct(map[string]int{item: rest})
			deductions = append(deductions, types.Deduction{Source: types.StorageShared, Item: item, Qty: rest})
		}
	}
	return personal, shared, deductions, nil
}

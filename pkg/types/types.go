// Package types holds the persistent records of the world: groups,
// structures, battles, tiles and per-player world state. Records are plain
// JSON-tagged structs; the store normalises them on commit, so the tags are
// the storage schema.
package types

import "github.com/lmf-git/gisaima-sub005/pkg/grid"

// --- Group statuses ---

const (
	StatusIdle             = "idle"
	StatusMobilizing       = "mobilizing"
	StatusDemobilising     = "demobilising"
	StatusMoving           = "moving"
	StatusGathering        = "gathering"
	StatusBuilding         = "building"
	StatusCrafting         = "crafting"
	StatusFighting         = "fighting"
	StatusFleeing          = "fleeing"
	StatusCancelling       = "cancelling"
	StatusCancellingGather = "cancellingGather"
)

// --- Structure statuses ---

const (
	StructureIdle      = "idle"
	StructureBuilding  = "building"
	StructureUpgrading = "upgrading"
	StructureRuins     = "ruins"
)

// MonsterOwner marks groups controlled by the world, not a player.
const MonsterOwner = "monster"

// --- Units ---

// Unit is one entry in a group's unit collection. Player units carry the
// owning uid as their id and Type "player".
type Unit struct {
	Type     string   `json:"type"`
	Strength int      `json:"strength,omitempty"`
	Motion   []string `json:"motion,omitempty"`
	Capacity int      `json:"capacity,omitempty"`
	Race     string   `json:"race,omitempty"`
}

const UnitTypePlayer = "player"

func (u Unit) IsPlayer() bool { return u.Type == UnitTypePlayer }

// EffectiveStrength defaults to 1 for units with no strength stat.
func (u Unit) EffectiveStrength() int {
	if u.Strength <= 0 {
		return 1
	}
	return u.Strength
}

// --- Group ---

type Group struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Name   string `json:"name,omitempty"`
	Race   string `json:"race,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Status string `json:"status"`

	Units     map[string]Unit `json:"units,omitempty"`
	Items     ItemBag         `json:"items,omitempty"`
	UnitCount int             `json:"unitCount,omitempty"`
	Motion    []string        `json:"motion,omitempty"`

	// moving
	MovementPath []grid.Coord `json:"movementPath,omitempty"`
	PathIndex    int          `json:"pathIndex,omitempty"`
	NextMoveTime int64        `json:"nextMoveTime,omitempty"`
	TargetX      *int         `json:"targetX,omitempty"`
	TargetY      *int         `json:"targetY,omitempty"`
	MoveStarted  int64        `json:"moveStarted,omitempty"`
	MoveSpeed    float64      `json:"moveSpeed,omitempty"`

	// gathering
	GatheringBiome          string `json:"gatheringBiome,omitempty"`
	GatheringTicksRemaining int    `json:"gatheringTicksRemaining,omitempty"`

	// building
	BuildingUntil int64 `json:"buildingUntil,omitempty"`

	// fighting / fleeing
	BattleID          string `json:"battleId,omitempty"`
	BattleSide        int    `json:"battleSide,omitempty"`
	BattleRole        string `json:"battleRole,omitempty"`
	InBattle          bool   `json:"inBattle,omitempty"`
	FleeTickRequested *int   `json:"fleeTickRequested,omitempty"`

	// demobilising
	TargetStructureID  string `json:"targetStructureId,omitempty"`
	StorageDestination string `json:"storageDestination,omitempty"`

	// cancelling / cancellingGather
	CancelRequestTime int64 `json:"cancelRequestTime,omitempty"`
}

const (
	BattleRoleAttacker  = "attacker"
	BattleRoleDefender  = "defender"
	BattleRoleSupporter = "supporter"
)

const (
	StorageShared   = "shared"
	StoragePersonal = "personal"
)

// Power is the combat strength of the group: sum of unit strengths, minimum 1.
func (g *Group) Power() int {
	total := 0
	for _, u := range g.Units {
		total += u.EffectiveStrength()
	}
	if total < 1 {
		total = 1
	}
	return total
}

func (g *Group) PlayerUnitID() (string, bool) {
	for id, u := range g.Units {
		if u.IsPlayer() {
			return id, true
		}
	}
	return "", false
}

func (g *Group) Recount() { g.UnitCount = len(g.Units) }

// MotionFromUnits derives the group's capability set: ground by default,
// water-only if every non-player unit is water-bound.
func MotionFromUnits(units map[string]Unit) []string {
	caps := map[string]bool{}
	waterOnly := len(units) > 0
	for _, u := range units {
		if u.IsPlayer() {
			continue
		}
		hasWater := false
		for _, m := range u.Motion {
			caps[m] = true
			if m == "water" {
				hasWater = true
			}
		}
		if !hasWater || len(u.Motion) != 1 {
			waterOnly = false
		}
	}
	if waterOnly && caps["water"] {
		return []string{"water"}
	}
	if len(caps) == 0 {
		return []string{"ground"}
	}
	out := make([]string, 0, len(caps))
	for _, m := range []string{"ground", "water", "flying"} {
		if caps[m] {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []string{"ground"}
	}
	return out
}

// --- Structure ---

type Structure struct {
	ID     string `json:"id"`
	Owner  string `json:"owner,omitempty"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Race   string `json:"race,omitempty"`
	Level  int    `json:"level"`
	Status string `json:"status"`

	BuildProgress  int    `json:"buildProgress,omitempty"`
	BuildTotalTime int    `json:"buildTotalTime,omitempty"`
	Builder        string `json:"builder,omitempty"`

	// Units are the demobilised garrison; Items is shared storage; Banks is
	// per-player storage.
	Units map[string]Unit    `json:"units,omitempty"`
	Items ItemBag            `json:"items,omitempty"`
	Banks map[string]ItemBag `json:"banks,omitempty"`

	Buildings        map[string]*Building    `json:"buildings,omitempty"`
	RecruitmentQueue map[string]*Recruitment `json:"recruitmentQueue,omitempty"`

	InBattle bool `json:"inBattle,omitempty"`

	UpgradeInProgress  bool   `json:"upgradeInProgress,omitempty"`
	UpgradeID          string `json:"upgradeId,omitempty"`
	UpgradeCompletesAt int64  `json:"upgradeCompletesAt,omitempty"`

	// Capacity caps the recruitment queue; zero means the default.
	Capacity int `json:"capacity,omitempty"`
}

// Building is an interior installation of a structure.
type Building struct {
	Type               string `json:"type"`
	Level              int    `json:"level"`
	UpgradeInProgress  bool   `json:"upgradeInProgress,omitempty"`
	UpgradeID          string `json:"upgradeId,omitempty"`
	UpgradeCompletesAt int64  `json:"upgradeCompletesAt,omitempty"`
}

// --- Battle ---

type BattleEvent struct {
	Type    string `json:"type"`
	Ts      int64  `json:"ts"`
	GroupID string `json:"groupId,omitempty"`
	Text    string `json:"text,omitempty"`
}

type BattleSide struct {
	// Groups maps group id to battle role.
	Groups map[string]string `json:"groups,omitempty"`
}

type Battle struct {
	ID                 string      `json:"id"`
	Side1Power         int         `json:"side1Power"`
	Side2Power         int         `json:"side2Power"`
	DefenderGroupPower int         `json:"defenderGroupPower,omitempty"`
	StructurePower     int         `json:"structurePower,omitempty"`
	TargetTypes        []string    `json:"targetTypes,omitempty"`
	Side1              BattleSide  `json:"side1"`
	Side2              BattleSide  `json:"side2"`
	Events             []BattleEvent `json:"events,omitempty"`
	TickCount          int         `json:"tickCount"`
	Status             string      `json:"status"`
	StartedAt          int64       `json:"startedAt"`
}

const (
	BattleActive   = "active"
	BattleResolved = "resolved"

	TargetGroup     = "group"
	TargetStructure = "structure"
)

// --- Tile ---

type PlayerPresence struct {
	DisplayName string `json:"displayName,omitempty"`
	Race        string `json:"race,omitempty"`
	Alive       bool   `json:"alive"`
}

type Tile struct {
	Groups    map[string]*Group  `json:"groups,omitempty"`
	Players   map[string]PlayerPresence `json:"players,omitempty"`
	Structure *Structure         `json:"structure,omitempty"`
	Battles   map[string]*Battle `json:"battles,omitempty"`
	Items     ItemBag            `json:"items,omitempty"`
}

// --- World ---

type WorldInfo struct {
	Name         string  `json:"name,omitempty"`
	Seed         int64   `json:"seed"`
	Speed        float64 `json:"speed"`
	TickInterval int64   `json:"tickInterval"`
	LastTick     int64   `json:"lastTick"`
	PlayerCount  int     `json:"playerCount"`
}

type ChatMessage struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
	X    *int   `json:"x,omitempty"`
	Y    *int   `json:"y,omitempty"`
}

type World struct {
	Info     WorldInfo                   `json:"info"`
	Chunks   map[string]map[string]*Tile `json:"chunks,omitempty"`
	Upgrades map[string]*Upgrade         `json:"upgrades,omitempty"`
	Crafting map[string]*Craft           `json:"crafting,omitempty"`
	Chat     map[string]ChatMessage      `json:"chat,omitempty"`
}

// --- Upgrades / crafting / recruitment ---

type Upgrade struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	StructureID string         `json:"structureId"`
	BuildingID  string         `json:"buildingId,omitempty"`
	FromLevel   int            `json:"fromLevel"`
	ToLevel     int            `json:"toLevel"`
	StartedAt   int64          `json:"startedAt"`
	CompletesAt int64          `json:"completesAt"`
	Resources   map[string]int `json:"resources,omitempty"`
	Status      string         `json:"status"`
}

const (
	UpgradePending = "pending"
	CraftPending   = "pending"
)

type Craft struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	RecipeID    string         `json:"recipeId"`
	X           int            `json:"x"`
	Y           int            `json:"y"`
	StructureID string         `json:"structureId,omitempty"`
	StartedAt   int64          `json:"startedAt"`
	CompletesAt int64          `json:"completesAt"`
	Materials   map[string]int `json:"materials,omitempty"`
	Status      string         `json:"status"`
}

type Recruitment struct {
	ID            string            `json:"id"`
	Owner         string            `json:"owner"`
	UnitType      string            `json:"unitType"`
	Quantity      int               `json:"quantity"`
	TicksRequired int               `json:"ticksRequired"`
	TicksElapsed  int               `json:"ticksElapsed"`
	StartedAt     int64             `json:"startedAt"`
	// ResourceDeduction records where the cost came from so cancellation can
	// refund to the right place.
	ResourceDeduction []Deduction `json:"resourceDeduction,omitempty"`
}

// Deduction is one storage debit made by the two-stage payment policy.
type Deduction struct {
	Source string `json:"source"` // "personal" or "shared"
	Item   string `json:"item"`
	Qty    int    `json:"qty"`
}

// --- Player world record ---

type SkillTrack struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

type PlayerSkills struct {
	Crafting SkillTrack `json:"crafting"`
}

type PlayerCrafting struct {
	Current string `json:"current,omitempty"`
}

type PlayerRecord struct {
	LastLocation *grid.Coord     `json:"lastLocation,omitempty"`
	InGroup      string          `json:"inGroup,omitempty"`
	Alive        bool            `json:"alive"`
	Race         string          `json:"race,omitempty"`
	DisplayName  string          `json:"displayName,omitempty"`
	Achievements map[string]bool `json:"achievements,omitempty"`
	Crafting     PlayerCrafting  `json:"crafting,omitempty"`
	Skills       PlayerSkills    `json:"skills,omitempty"`
	Items        ItemBag         `json:"items,omitempty"`
}

package types

// Definition tables for structures, units, recipes and biome yields. These
// are process-wide constants, not world state.

const (
	MaxStructureLevel      = 5
	DefaultRecruitCapacity = 10
)

// --- Structures ---

type StructureType struct {
	Cost           map[string]int
	BuildTime      int // ticks
	DefensivePower int
	Capacity       int // recruitment queue slots
}

var StructureTypes = map[string]StructureType{
	"spawn":      {DefensivePower: 15, Capacity: 10},
	"outpost":    {Cost: map[string]int{"WOODEN_STICKS": 5, "STONE_PIECES": 3}, BuildTime: 1, DefensivePower: 5, Capacity: 10},
	"watchtower": {Cost: map[string]int{"WOODEN_STICKS": 10, "STONE_PIECES": 10}, BuildTime: 2, DefensivePower: 10, Capacity: 5},
	"fortress":   {Cost: map[string]int{"STONE_PIECES": 40, "IRON_ORE": 15}, BuildTime: 4, DefensivePower: 30, Capacity: 15},
	"stronghold": {Cost: map[string]int{"STONE_PIECES": 25, "IRON_ORE": 10, "WOODEN_STICKS": 10}, BuildTime: 3, DefensivePower: 25, Capacity: 12},
	"harbor":     {Cost: map[string]int{"WOODEN_STICKS": 20, "ROPE": 5}, BuildTime: 2, DefensivePower: 5, Capacity: 8},
}

func (s *Structure) IsSpawn() bool { return s.Type == "spawn" }

// DefensivePower is type-derived at any level.
func (s *Structure) DefensivePower() int {
	if def, ok := StructureTypes[s.Type]; ok && def.DefensivePower > 0 {
		return def.DefensivePower
	}
	return 5
}

func (s *Structure) QueueCapacity() int {
	if s.Capacity > 0 {
		return s.Capacity
	}
	if def, ok := StructureTypes[s.Type]; ok && def.Capacity > 0 {
		return def.Capacity
	}
	return DefaultRecruitCapacity
}

// StructureUpgradeCost scales with the level being left behind.
func StructureUpgradeCost(fromLevel int) map[string]int {
	return map[string]int{
		"WOODEN_STICKS": 10 * fromLevel,
		"STONE_PIECES":  15 * fromLevel,
		"IRON_ORE":      5 * fromLevel,
	}
}

// UpgradeTimeMs is the wall-clock duration of a structure or building upgrade.
func UpgradeTimeMs(structureType string, fromLevel int) int64 {
	base := int64(120000)
	if def, ok := StructureTypes[structureType]; ok && def.BuildTime > 1 {
		base = int64(def.BuildTime) * 60000
	}
	return base * int64(fromLevel)
}

// --- Buildings (interior installations) ---

type BuildingType struct {
	Cost          map[string]int
	CraftingBonus float64 // time reduction for crafts run at this structure
}

var BuildingTypes = map[string]BuildingType{
	"storehouse": {Cost: map[string]int{"WOODEN_STICKS": 8}},
	"forge":      {Cost: map[string]int{"STONE_PIECES": 10, "IRON_ORE": 5}, CraftingBonus: 0.15},
	"workshop":   {Cost: map[string]int{"WOODEN_STICKS": 12, "STONE_PIECES": 4}, CraftingBonus: 0.10},
	"barracks":   {Cost: map[string]int{"WOODEN_STICKS": 10, "STONE_PIECES": 10}},
}

func BuildingUpgradeCost(buildingType string, fromLevel int) map[string]int {
	cost := map[string]int{}
	for item, qty := range BuildingTypes[buildingType].Cost {
		cost[item] = qty * fromLevel
	}
	if len(cost) == 0 {
		cost["WOODEN_STICKS"] = 5 * fromLevel
	}
	return cost
}

// CraftingBonusFor returns the best crafting bonus among a structure's
// buildings.
func (s *Structure) CraftingBonusFor() float64 {
	best := 0.0
	for _, b := range s.Buildings {
		if bonus := BuildingTypes[b.Type].CraftingBonus; bonus > best {
			best = bonus
		}
	}
	return best
}

// --- Units ---

type UnitType struct {
	Race         string
	RequiresRace bool
	Strength     int
	Motion       []string
	Capacity     int     // boat passenger slots
	TimePerUnit  float64 // ticks per recruited unit
	Cost         map[string]int
}

var UnitTypes = map[string]UnitType{
	"human_warrior":  {Race: "human", RequiresRace: true, Strength: 2, Motion: []string{"ground"}, TimePerUnit: 0.5, Cost: map[string]int{"FOOD": 2, "IRON_ORE": 1}},
	"human_archer":   {Race: "human", RequiresRace: true, Strength: 2, Motion: []string{"ground"}, TimePerUnit: 0.5, Cost: map[string]int{"FOOD": 2, "WOODEN_STICKS": 2}},
	"elf_scout":      {Race: "elf", RequiresRace: true, Strength: 1, Motion: []string{"ground"}, TimePerUnit: 0.25, Cost: map[string]int{"FOOD": 1}},
	"dwarf_defender": {Race: "dwarf", RequiresRace: true, Strength: 3, Motion: []string{"ground"}, TimePerUnit: 1, Cost: map[string]int{"FOOD": 2, "STONE_PIECES": 2}},
	"boat":           {Strength: 1, Motion: []string{"water"}, Capacity: 6, TimePerUnit: 2, Cost: map[string]int{"WOODEN_STICKS": 8, "ROPE": 2}},
	"wolf":           {Race: "monster", Strength: 2, Motion: []string{"ground"}},
	"ogre":           {Race: "monster", Strength: 5, Motion: []string{"ground"}},
}

// --- Crafting recipes ---

type Recipe struct {
	BaseTimeMs int64
	Materials  map[string]int
	Output     string
	OutputQty  int
	XP         int
}

var Recipes = map[string]Recipe{
	"rope":        {BaseTimeMs: 60000, Materials: map[string]int{"PLANT_FIBER": 4}, Output: "ROPE", OutputQty: 1, XP: 5},
	"iron_sword":  {BaseTimeMs: 240000, Materials: map[string]int{"IRON_ORE": 3, "WOODEN_STICKS": 1}, Output: "IRON_SWORD", OutputQty: 1, XP: 20},
	"stone_axe":   {BaseTimeMs: 120000, Materials: map[string]int{"STONE_PIECES": 2, "WOODEN_STICKS": 2}, Output: "STONE_AXE", OutputQty: 1, XP: 10},
	"healing_tea": {BaseTimeMs: 90000, Materials: map[string]int{"HERBS": 3}, Output: "HEALING_TEA", OutputQty: 2, XP: 8},
}

// --- Biome yields ---

type LootEntry struct {
	Item string
	Min  int
	Max  int
}

// BiomeLoot drives the gather yield roll. Unknown biomes fall back to plains.
var BiomeLoot = map[string][]LootEntry{
	"plains":    {{"WOODEN_STICKS", 1, 3}, {"PLANT_FIBER", 1, 2}, {"FOOD", 1, 2}},
	"forest":    {{"WOODEN_STICKS", 2, 5}, {"PLANT_FIBER", 1, 3}, {"HERBS", 0, 2}},
	"mountains": {{"STONE_PIECES", 2, 4}, {"IRON_ORE", 0, 2}},
	"desert":    {{"STONE_PIECES", 1, 2}, {"PLANT_FIBER", 0, 1}},
	"tundra":    {{"STONE_PIECES", 1, 3}, {"FOOD", 0, 1}},
	"wetlands":  {{"PLANT_FIBER", 2, 4}, {"HERBS", 1, 2}, {"FOOD", 1, 2}},
}

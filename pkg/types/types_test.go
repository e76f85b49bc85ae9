package types

import (
	"encoding/json"
	"testing"
)

func TestItemBagDecodesMapForm(t *testing.T) {
	var bag ItemBag
	if err := json.Unmarshal([]byte(`{"WOODEN_STICKS":5,"STONE_PIECES":3}`), &bag); err != nil {
		t.Fatal(err)
	}
	if bag["WOODEN_STICKS"] != 5 || bag["STONE_PIECES"] != 3 {
		t.Errorf("bad bag: %v", bag)
	}
}

func TestItemBagDecodesLegacyList(t *testing.T) {
	raw := `["WOODEN_STICKS",{"id":"STONE_PIECES","quantity":3},{"code":"ROPE"},"WOODEN_STICKS"]`
	var bag ItemBag
	if err := json.Unmarshal([]byte(raw), &bag); err != nil {
		t.Fatal(err)
	}
	if bag["WOODEN_STICKS"] != 2 {
		t.Errorf("bare codes not counted: %v", bag)
	}
	if bag["STONE_PIECES"] != 3 {
		t.Errorf("quantity entry lost: %v", bag)
	}
	if bag["ROPE"] != 1 {
		t.Errorf("code entry without quantity should default to 1: %v", bag)
	}
	// Written back only in map form.
	out, _ := json.Marshal(bag)
	var round map[string]int
	if err := json.Unmarshal(out, &round); err != nil {
		t.Errorf("bag did not marshal as map: %s", out)
	}
}

func TestItemBagDeductNeverNegative(t *testing.T) {
	bag := ItemBag{"IRON_ORE": 3}
	if bag.Covers(map[string]int{"IRON_ORE": 4}) {
		t.Error("Covers accepted shortfall")
	}
	bag.Deduct(map[string]int{"IRON_ORE": 3})
	if _, ok := bag["IRON_ORE"]; ok {
		t.Error("zeroed entry not dropped")
	}
}

func TestGroupPower(t *testing.T) {
	g := &Group{Units: map[string]Unit{
		"a": {Type: "human_warrior", Strength: 4},
		"b": {Type: "human_warrior"}, // defaults to 1
	}}
	if got := g.Power(); got != 5 {
		t.Errorf("power = %d, want 5", got)
	}
	empty := &Group{}
	if got := empty.Power(); got != 1 {
		t.Errorf("minimum group power = %d, want 1", got)
	}
}

func TestMotionFromUnits(t *testing.T) {
	ground := MotionFromUnits(map[string]Unit{"a": {Type: "human_warrior"}})
	if len(ground) != 1 || ground[0] != "ground" {
		t.Errorf("default motion = %v, want [ground]", ground)
	}
	water := MotionFromUnits(map[string]Unit{"b": {Type: "boat", Motion: []string{"water"}}})
	if len(water) != 1 || water[0] != "water" {
		t.Errorf("water-only fleet motion = %v, want [water]", water)
	}
	mixed := MotionFromUnits(map[string]Unit{
		"a": {Type: "human_warrior", Motion: []string{"ground"}},
		"b": {Type: "boat", Motion: []string{"water"}},
	})
	if len(mixed) != 2 {
		t.Errorf("mixed motion = %v, want [ground water]", mixed)
	}
}

func TestStructureDefensivePower(t *testing.T) {
	cases := map[string]int{"spawn": 15, "fortress": 30, "watchtower": 10, "stronghold": 25, "hut": 5}
	for typ, want := range cases {
		s := &Structure{Type: typ}
		if got := s.DefensivePower(); got != want {
			t.Errorf("%s power = %d, want %d", typ, got, want)
		}
	}
}

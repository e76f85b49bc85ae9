package store

import (
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestCommitAndRead(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Commit(map[string]any{
				"worlds/w1/info":                    map[string]any{"speed": 1.0},
				"worlds/w1/chunks/0,0/1,2/items/WOOD": 5,
			})
			if err != nil {
				t.Fatal(err)
			}
			v, err := s.Read("worlds/w1/chunks/0,0/1,2/items/WOOD")
			if err != nil {
				t.Fatal(err)
			}
			if v.(float64) != 5 {
				t.Errorf("got %v, want 5", v)
			}
			if v, _ := s.Read("worlds/w1/missing"); v != nil {
				t.Errorf("absent path read %v, want nil", v)
			}
		})
	}
}

func TestCommitAppliesShallowPathsFirst(t *testing.T) {
	// A commit carrying a document and a deeper write under it must land the
	// deeper write inside the document no matter how the map iterates.
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				err := s.Commit(map[string]any{
					"worlds/w1/chunks/0,0/5,5":       map[string]any{"items": map[string]any{"WOOD": 1}},
					"worlds/w1/chunks/0,0/5,5/extra": true,
				})
				if err != nil {
					t.Fatal(err)
				}
				if v, _ := s.Read("worlds/w1/chunks/0,0/5,5/items/WOOD"); v == nil {
					t.Fatal("tile document lost")
				}
				if v, _ := s.Read("worlds/w1/chunks/0,0/5,5/extra"); v != true {
					t.Fatalf("deeper write lost: %v", v)
				}
			}
		})
	}
}

func TestCommitDeletesWithNil(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Commit(map[string]any{"worlds/w1/chunks/0,0/1,1/groups/g1": map[string]any{"id": "g1"}})
			s.Commit(map[string]any{"worlds/w1/chunks/0,0/1,1/groups/g1": nil})
			if v, _ := s.Read("worlds/w1/chunks/0,0/1,1/groups/g1"); v != nil {
				t.Errorf("deleted path still present: %v", v)
			}
			// The emptied tile node survives.
			if v, _ := s.Read("worlds/w1/chunks/0,0/1,1"); v == nil {
				t.Error("parent pruned along with deleted child")
			}
		})
	}
}

func TestCommitRejectsBadPathWithoutPartialWrite(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Commit(map[string]any{
				"worlds/w1/info": map[string]any{"speed": 1.0},
				"":               "bad",
			})
			if err == nil {
				t.Fatal("empty path accepted")
			}
			if v, _ := s.Read("worlds/w1/info"); v != nil {
				t.Errorf("partial commit leaked: %v", v)
			}
		})
	}
}

func TestStructValuesNormalise(t *testing.T) {
	type rec struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Commit(map[string]any{"players/u1/worlds/w1": rec{Name: "ash", Count: 3}})
			v, _ := s.Read("players/u1/worlds/w1/name")
			if v != "ash" {
				t.Errorf("struct field not addressable after commit: %v", v)
			}
		})
	}
}

func TestTransact(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Commit(map[string]any{"worlds/w1/info/playerCount": 2})
			err := s.Transact("worlds/w1/info/playerCount", func(cur any) (any, error) {
				return cur.(float64) + 1, nil
			})
			if err != nil {
				t.Fatal(err)
			}
			v, _ := s.Read("worlds/w1/info/playerCount")
			if v.(float64) != 3 {
				t.Errorf("got %v, want 3", v)
			}
		})
	}
}

func TestTransactAbort(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Commit(map[string]any{"worlds/w1/info/playerCount": 2})
			err := s.Transact("worlds/w1/info/playerCount", func(cur any) (any, error) {
				return nil, ErrAbort
			})
			if !errors.Is(err, ErrAbort) {
				t.Fatalf("got %v, want ErrAbort", err)
			}
			v, _ := s.Read("worlds/w1/info/playerCount")
			if v.(float64) != 2 {
				t.Errorf("aborted transaction wrote: %v", v)
			}
		})
	}
}

func TestReadReturnsSnapshot(t *testing.T) {
	s := NewMemoryStore()
	s.Commit(map[string]any{"worlds/w1/chat/a": map[string]any{"text": "hi"}})
	v, _ := s.Read("worlds/w1/chat")
	v.(map[string]any)["a"].(map[string]any)["text"] = "mutated"
	v2, _ := s.Read("worlds/w1/chat/a/text")
	if v2 != "hi" {
		t.Errorf("read snapshot aliased live tree: %v", v2)
	}
}

func TestSQLiteReload(t *testing.T) {
	dir := t.TempDir()
	dsn := dir + "/test.db"
	s, err := OpenSQLite("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	s.Commit(map[string]any{
		"worlds/w1/info":          map[string]any{"seed": 42.0},
		"worlds/w1/chunks/-1,-1/-1,-1/groups/g1": map[string]any{"id": "g1", "x": -1.0, "y": -1.0},
	})
	s.Close()

	s2, err := OpenSQLite("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	v, _ := s2.Read("worlds/w1/chunks/-1,-1/-1,-1/groups/g1/x")
	if v.(float64) != -1 {
		t.Errorf("reload lost negative-chunk group: %v", v)
	}
}

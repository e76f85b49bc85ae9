package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lmf-git/gisaima-sub005/pkg/commands"
	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/tick"
	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// setupTestEnv wires an in-memory store and a fresh world for isolated tests.
func setupTestEnv(t *testing.T) {
	setupLogging()
	Config.CommandControl = true
	Config.WorldID = "testworld"
	Config.TickMs = 60000

	s, err := store.OpenSQLite("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	gameStore = s
	engine = &tick.Engine{Store: gameStore}

	if err := ensureWorld(Config.WorldID); err != nil {
		t.Fatalf("Failed to create test world: %v", err)
	}
}

// Helper to make JSON requests
func executeRequest(handler http.HandlerFunc, method, path, uid string, payload interface{}) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("X-User-ID", uid)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestJoinAndSpawnFlow(t *testing.T) {
	setupTestEnv(t)

	join := map[string]interface{}{"worldId": Config.WorldID, "race": "human", "displayName": "Shepard"}
	rr := executeRequest(action(commands.JoinWorld), "POST", "/api/join", "u1", join)
	if rr.Code != 200 {
		t.Fatalf("Join failed. Code: %d, Body: %s", rr.Code, rr.Body.String())
	}

	spawn := map[string]interface{}{"worldId": Config.WorldID, "spawnX": 0, "spawnY": 0}
	rr = executeRequest(action(commands.SpawnPlayer), "POST", "/api/spawn", "u1", spawn)
	if rr.Code != 200 {
		t.Fatalf("Spawn failed. Code: %d, Body: %s", rr.Code, rr.Body.String())
	}

	tile, err := world.ReadTile(gameStore, Config.WorldID, 0, 0)
	if err != nil || tile == nil {
		t.Fatalf("Spawn tile missing: %v", err)
	}
	if _, ok := tile.Players["u1"]; !ok {
		t.Errorf("Player entity not placed on spawn tile")
	}

	info, _ := world.ReadInfo(gameStore, Config.WorldID)
	if info.PlayerCount != 1 {
		t.Errorf("Player count not incremented. Got %d", info.PlayerCount)
	}
}

func TestCommandsRequireIdentity(t *testing.T) {
	setupTestEnv(t)

	join := map[string]interface{}{"worldId": Config.WorldID, "race": "human"}
	rr := executeRequest(action(commands.JoinWorld), "POST", "/api/join", "", join)
	if rr.Code != 401 {
		t.Errorf("Anonymous join allowed. Code: %d", rr.Code)
	}
}

func TestMobiliseOverHTTP(t *testing.T) {
	setupTestEnv(t)

	executeRequest(action(commands.JoinWorld), "POST", "/api/join", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "race": "human"})
	executeRequest(action(commands.SpawnPlayer), "POST", "/api/spawn", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "spawnX": 0, "spawnY": 0})

	payload := map[string]interface{}{
		"worldId":       Config.WorldID,
		"x":             0,
		"y":             0,
		"includePlayer": true,
		"name":          "First Band",
		"race":          "human",
	}
	rr := executeRequest(command(commands.Mobilise), "POST", "/api/mobilize", "u1", payload)
	if rr.Code != 200 {
		t.Fatalf("Mobilise failed. Code: %d, Body: %s", rr.Code, rr.Body.String())
	}
	var res struct {
		GroupID string `json:"groupId"`
	}
	json.Unmarshal(rr.Body.Bytes(), &res)
	if res.GroupID == "" {
		t.Fatal("No group id returned")
	}

	tile, _ := world.ReadTile(gameStore, Config.WorldID, 0, 0)
	g := tile.Groups[res.GroupID]
	if g == nil || g.Status != types.StatusMobilizing {
		t.Fatalf("Group not created in mobilizing state: %+v", g)
	}

	// One tick later the group is ready for orders.
	if err := engine.TickWorld(Config.WorldID, time.Now().UnixMilli()+1); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	tile, _ = world.ReadTile(gameStore, Config.WorldID, 0, 0)
	if got := tile.Groups[res.GroupID].Status; got != types.StatusIdle {
		t.Errorf("Group status after tick = %s, want idle", got)
	}
}

func TestErrorKindsMapToHTTPStatus(t *testing.T) {
	setupTestEnv(t)

	executeRequest(action(commands.JoinWorld), "POST", "/api/join", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "race": "human"})

	// Unknown tile -> 404
	rr := executeRequest(action(commands.Move), "POST", "/api/move", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "groupId": "nope", "fromX": 99, "fromY": 99, "toX": 100, "toY": 99})
	if rr.Code != 404 {
		t.Errorf("Missing tile should 404. Code: %d, Body: %s", rr.Code, rr.Body.String())
	}

	// Double spawn -> 409
	executeRequest(action(commands.SpawnPlayer), "POST", "/api/spawn", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "spawnX": 0, "spawnY": 0})
	rr = executeRequest(action(commands.SpawnPlayer), "POST", "/api/spawn", "u1",
		map[string]interface{}{"worldId": Config.WorldID, "spawnX": 0, "spawnY": 0})
	if rr.Code != 409 {
		t.Errorf("Double spawn should 409. Code: %d", rr.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	setupTestEnv(t)

	rr := executeRequest(handleStatus, "GET", "/api/status", "", nil)
	if rr.Code != 200 {
		t.Fatalf("Status failed. Code: %d", rr.Code)
	}
	var out map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out["world"] != Config.WorldID {
		t.Errorf("Status world = %v", out["world"])
	}
}

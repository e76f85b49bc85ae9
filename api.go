package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lmf-git/gisaima-sub005/pkg/commands"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// --- Command plumbing ---

func commandCtx(r *http.Request) *commands.Ctx {
	return &commands.Ctx{
		Store: gameStore,
		UID:   r.Header.Get("X-User-ID"),
		Now:   time.Now().UnixMilli(),
	}
}

func kindStatus(err error) int {
	switch commands.KindOf(err) {
	case commands.Unauthenticated:
		return http.StatusUnauthorized
	case commands.InvalidArgument:
		return http.StatusBadRequest
	case commands.NotFound:
		return http.StatusNotFound
	case commands.PermissionDenied:
		return http.StatusForbidden
	case commands.FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := kindStatus(err)
	if status == http.StatusInternalServerError {
		ErrorLog.Printf("command failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  string(commands.KindOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad JSON", 400)
		return req, false
	}
	return req, true
}

// command adapts a returning handler; action adapts an error-only one.
func command[Req, Res any](fn func(*commands.Ctx, Req) (Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decode[Req](w, r)
		if !ok {
			return
		}
		res, err := fn(commandCtx(r), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func action[Req any](fn func(*commands.Ctx, Req) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decode[Req](w, r)
		if !ok {
			return
		}
		if err := fn(commandCtx(r), req); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// --- Read endpoints ---

func handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := world.ReadInfo(gameStore, Config.WorldID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := map[string]any{"world": Config.WorldID, "up": true}
	if info != nil {
		out["lastTick"] = info.LastTick
		out["playerCount"] = info.PlayerCount
		out["tickInterval"] = info.TickInterval
	}
	writeJSON(w, out)
}

func handleTile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	worldID := q.Get("world")
	if worldID == "" {
		worldID = Config.WorldID
	}
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	if errX != nil || errY != nil {
		http.Error(w, "Bad Coordinates", 400)
		return
	}
	tile, err := world.ReadTile(gameStore, worldID, x, y)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tile == nil {
		http.Error(w, "Unknown Tile", 404)
		return
	}
	writeJSON(w, tile)
}

func registerAPI(mux *http.ServeMux) {
	// Lifecycle
	mux.HandleFunc("/api/join", action(commands.JoinWorld))
	mux.HandleFunc("/api/spawn", action(commands.SpawnPlayer))

	// Group orders
	mux.HandleFunc("/api/mobilize", command(commands.Mobilise))
	mux.HandleFunc("/api/demobilize", action(commands.Demobilise))
	mux.HandleFunc("/api/move", action(commands.Move))
	mux.HandleFunc("/api/move/cancel", action(commands.CancelMove))
	mux.HandleFunc("/api/gather", action(commands.Gather))
	mux.HandleFunc("/api/gather/cancel", action(commands.CancelGather))

	// Combat
	mux.HandleFunc("/api/attack", command(commands.Attack))
	mux.HandleFunc("/api/battle/join", action(commands.JoinBattle))
	mux.HandleFunc("/api/battle/flee", action(commands.FleeBattle))

	// Structures
	mux.HandleFunc("/api/build", command(commands.Build))
	mux.HandleFunc("/api/upgrade/structure", command(commands.StartStructureUpgrade))
	mux.HandleFunc("/api/upgrade/building", command(commands.StartBuildingUpgrade))
	mux.HandleFunc("/api/upgrade/cancel", action(commands.CancelUpgrade))
	mux.HandleFunc("/api/recruit", command(commands.Recruit))
	mux.HandleFunc("/api/recruit/cancel", action(commands.CancelRecruitment))

	// Crafting
	mux.HandleFunc("/api/craft", command(commands.StartCrafting))
	mux.HandleFunc("/api/craft/cancel", action(commands.CancelCrafting))

	// Reads
	mux.HandleFunc("/api/status", handleStatus)
	mux.HandleFunc("/api/tile", handleTile)
}

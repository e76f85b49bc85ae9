package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lmf-git/gisaima-sub005/pkg/monsters"
	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/tick"
)

func initConfig() {
	// Default to true unless explicitly disabled
	Config.CommandControl = true
	if os.Getenv("GISAIMA_COMMAND_CONTROL") == "false" {
		Config.CommandControl = false
	}

	Config.DBPath = DefaultDBPath
	if p := os.Getenv("GISAIMA_DB"); p != "" {
		Config.DBPath = p
	}
	Config.LedgerDir = DefaultLedgerDir
	if p := os.Getenv("GISAIMA_LEDGER_DIR"); p != "" {
		Config.LedgerDir = p
	}
	Config.WorldID = DefaultWorldID
	if w := os.Getenv("GISAIMA_WORLD"); w != "" {
		Config.WorldID = w
	}
	Config.TickMs = DefaultTickMs
	if ms := os.Getenv("GISAIMA_TICK_MS"); ms != "" {
		if n, err := strconv.ParseInt(ms, 10, 64); err == nil && n > 0 {
			Config.TickMs = n
		}
	}
}

func main() {
	setupLogging()
	initConfig()

	InfoLog.Println("GISAIMA BOOT SEQUENCE")
	InfoLog.Printf("World: %s | Tick: %dms | Control: %v", Config.WorldID, Config.TickMs, Config.CommandControl)

	os.MkdirAll(filepath.Dir(Config.DBPath), 0755)
	s, err := store.OpenSQLite("sqlite3", Config.DBPath)
	if err != nil {
		ErrorLog.Fatal(err)
	}
	gameStore = s

	ai, err := monsters.NewController()
	if err != nil {
		ErrorLog.Fatal(err)
	}
	engine = &tick.Engine{
		Store:    gameStore,
		Monsters: ai,
		Ledger:   tick.NewSnapshotter(Config.LedgerDir),
	}

	if err := ensureWorld(Config.WorldID); err != nil {
		ErrorLog.Fatal(err)
	}

	go runGameLoop()

	mux := http.NewServeMux()
	registerAPI(mux)

	// Wrap Middleware
	handler := middlewareSecurity(mux)
	handler = middlewareCORS(handler)

	server := &http.Server{
		Addr:         ":8080",
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	InfoLog.Println("Listening on :8080")
	if err := server.ListenAndServe(); err != nil {
		ErrorLog.Fatal(err)
	}
}

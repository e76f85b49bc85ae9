package main

import (
	"log"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/tick"
)

// --- Configuration ---
const (
	DefaultDBPath    = "./data/gisaima.db"
	DefaultLedgerDir = "./data/ledger"
	DefaultWorldID   = "terra"
	DefaultTickMs    = 60000
)

var (
	// Infrastructure
	gameStore store.Store
	engine    *tick.Engine
	InfoLog   *log.Logger
	ErrorLog  *log.Logger

	// Config
	Config struct {
		CommandControl bool
		DBPath         string
		LedgerDir      string
		WorldID        string
		TickMs         int64
	}

	// Rate Limiting
	ipLimiters = make(map[string]*rate.Limiter)
	ipLock     sync.Mutex
)

package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// runGameLoop scans once a second and ticks every world whose interval has
// elapsed. Worlds tick in parallel; each world is sequential within itself.
func runGameLoop() {
	ticker := time.NewTicker(1 * time.Second)
	for range ticker.C {
		now := time.Now().UnixMilli()
		due, err := dueWorlds(now)
		if err != nil {
			ErrorLog.Printf("world scan failed: %v", err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		g, _ := errgroup.WithContext(context.Background())
		for _, worldID := range due {
			worldID := worldID
			g.Go(func() error {
				start := time.Now()
				if err := engine.TickWorld(worldID, now); err != nil {
					ErrorLog.Printf("tick %s failed: %v", worldID, err)
					return nil // one bad world must not stall the rest
				}
				InfoLog.Printf("tick %s done in %s", worldID, time.Since(start))
				return nil
			})
		}
		g.Wait()
	}
}

// dueWorlds lists worlds whose next tick time has passed.
func dueWorlds(now int64) ([]string, error) {
	v, err := gameStore.Read("worlds")
	if err != nil {
		return nil, err
	}
	worlds, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	var due []string
	for worldID := range worlds {
		info, err := world.ReadInfo(gameStore, worldID)
		if err != nil || info == nil {
			continue
		}
		if info.LastTick+info.TickInterval <= now {
			due = append(due, worldID)
		}
	}
	return due, nil
}

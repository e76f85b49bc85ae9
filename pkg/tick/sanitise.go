package tick

import (
	"strings"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// statusPriority ranks competing status writes for the same group. Battle
// outcomes outrank construction, construction outranks logistics.
var statusPriority = map[string]int{
	types.StatusFighting:     10,
	types.StatusBuilding:     8,
	types.StatusGathering:    6,
	types.StatusDemobilising: 5,
	types.StatusMoving:       4,
	types.StatusIdle:         2,
}

func priorityOf(status string) int {
	if p, ok := statusPriority[status]; ok {
		return p
	}
	return 1
}

// Field families that cannot coexist with a winning status.
var movementFields = []string{"movement", "path", "target", "moveSpeed", "moveStarted", "nextMoveTime"}
var battleFields = []string{"battle"}

// Sanitise resolves competing writes in a staged update set. When two phases
// produced different statuses for one group, the higher-priority status wins,
// the loser is dropped, and sibling fields incompatible with the winner are
// dropped with it.
func Sanitise(u *world.UpdateSet) {
	type contest struct {
		winner string
		losers map[string]bool
	}
	contests := map[string]*contest{}

	for _, e := range u.Entries() {
		prefix, ok := groupStatusPrefix(e.Path)
		if !ok {
			continue
		}
		status, ok := e.Value.(string)
		if !ok {
			continue
		}
		ct := contests[prefix]
		if ct == nil {
			ct = &contest{winner: status, losers: map[string]bool{}}
			contests[prefix] = ct
			continue
		}
		if status == ct.winner {
			continue
		}
		// Equal priority: the later write wins, matching plain map collapse.
		if priorityOf(status) >= priorityOf(ct.winner) {
			ct.losers[ct.winner] = true
			ct.winner = status
		} else {
			ct.losers[status] = true
		}
	}

	u.Filter(func(e world.Update) bool {
		prefix, isStatus := groupStatusPrefix(e.Path)
		if isStatus {
			ct := contests[prefix]
			if ct == nil {
				return true
			}
			status, ok := e.Value.(string)
			return !ok || !ct.losers[status]
		}
		// Deletes never conflict with a winning status; dropping one would
		// leave a stale field behind.
		if e.Value == nil {
			return true
		}
		for prefix, ct := range contests {
			if len(ct.losers) == 0 || !strings.HasPrefix(e.Path, prefix) {
				continue
			}
			field := e.Path[len(prefix):]
			if strings.Contains(field, "/") {
				continue
			}
			switch ct.winner {
			case types.StatusFighting:
				if hasAnyPrefix(field, movementFields) {
					return false
				}
			case types.StatusMoving:
				if hasAnyPrefix(field, battleFields) {
					return false
				}
			}
		}
		return true
	})
}

// groupStatusPrefix returns ".../groups/{id}/" for a group status path.
func groupStatusPrefix(path string) (string, bool) {
	if !strings.HasSuffix(path, "/status") || !strings.Contains(path, "/groups/") {
		return "", false
	}
	prefix := strings.TrimSuffix(path, "status")
	// Only direct group fields count; a status nested deeper belongs to some
	// other record.
	rest := prefix[strings.Index(prefix, "/groups/")+len("/groups/"):]
	if strings.Count(rest, "/") != 1 {
		return "", false
	}
	return prefix, true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

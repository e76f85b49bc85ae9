package world

import (
	"fmt"
	"sort"

	"github.com/lmf-git/gisaima-sub005/pkg/types"
)

// MaxChatHistory bounds the per-world event stream.
const MaxChatHistory = 500

// EventKey builds the chat map key. Keying by (kind, ts, id) keeps appends
// O(1) and lets the pruning pass delete a bounded prefix cheaply.
func EventKey(kind string, ts int64, id string) string {
	return fmt.Sprintf("%s_%d_%s", kind, ts, id)
}

// EmitEvent stages a system event on the world's chat stream.
func EmitEvent(u *UpdateSet, worldID string, msg types.ChatMessage) {
	u.Set(ChatPath(worldID, EventKey(msg.Kind, msg.Ts, msg.ID)), msg)
}

// At returns a pointer to v for optional coordinate fields on events.
func At(v int) *int { return &v }

// PruneChat stages deletions for everything but the newest MaxChatHistory
// messages by timestamp.
func PruneChat(u *UpdateSet, worldID string, chat map[string]types.ChatMessage) {
	if len(chat) <= MaxChatHistory {
		return
	}
	type keyed struct {
		key string
		ts  int64
	}
	all := make([]keyed, 0, len(chat))
	for key, msg := range chat {
		all = append(all, keyed{key: key, ts: msg.Ts})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts > all[j].ts })
	for _, old := range all[MaxChatHistory:] {
		u.Delete(ChatPath(worldID, old.key))
	}
}

package tick

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/lmf-git/gisaima-sub005/pkg/store"
	"github.com/lmf-git/gisaima-sub005/pkg/world"
)

// Snapshotter keeps an append-only ledger of post-tick world snapshots on
// disk. Each entry is lz4-compressed JSON whose blake3 hash chains to the
// previous entry, so a corrupted or tampered ledger is detectable.
type Snapshotter struct {
	Dir string

	mu    sync.Mutex
	heads map[string]string // worldID -> last entry hash
}

func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{Dir: dir, heads: make(map[string]string)}
}

type ledgerEntry struct {
	World    string `json:"world"`
	Ts       int64  `json:"ts"`
	PrevHash string `json:"prevHash,omitempty"`
	Hash     string `json:"hash"`
}

// Record writes one ledger entry for the world's current state.
func (s *Snapshotter) Record(worldID string, st store.Store) error {
	v, err := st.Read(world.WorldPath(worldID))
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.heads[worldID]
	sum := blake3.Sum256(append([]byte(prev), raw...))
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.Dir, worldID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return err
	}
	if n == 0 {
		// Incompressible; store raw.
		compressed = raw
		n = len(raw)
	}

	ts := time.Now().UnixMilli()
	name := fmt.Sprintf("%d-%s.snap", ts, hash[:16])
	if err := os.WriteFile(filepath.Join(dir, name), compressed[:n], 0o644); err != nil {
		return err
	}

	head, err := json.Marshal(ledgerEntry{World: worldID, Ts: ts, PrevHash: prev, Hash: hash})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "HEAD"), head, 0o644); err != nil {
		return err
	}
	s.heads[worldID] = hash
	return nil
}

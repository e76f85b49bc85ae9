package store

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// SQLiteStore serves reads from an in-memory tree and persists top-level
// documents (e.g. "worlds/w1", "players/u1") as lz4-compressed JSON rows.
// All rows touched by a commit are written in one sql transaction; the memory
// tree is only updated after the transaction lands, so a disk failure leaves
// both sides on the pre-commit state.
type SQLiteStore struct {
	mu   sync.Mutex
	root map[string]any
	db   *sql.DB
}

var bufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	root TEXT PRIMARY KEY,
	blob BLOB,
	hash TEXT
);
CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// OpenSQLite opens (or creates) the database and loads every document into
// memory. driver is "sqlite3" in production and "sqlite" in tests, which use
// the cgo-free driver against :memory:.
func OpenSQLite(driver, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{root: make(map[string]any), db: db}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) load() error {
	rows, err := s.db.Query("SELECT root, blob FROM documents")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var root string
		var blob []byte
		if err := rows.Scan(&root, &blob); err != nil {
			return err
		}
		raw, err := decompressLZ4(blob)
		if err != nil {
			return fmt.Errorf("store: document %s corrupt: %w", root, err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("store: document %s corrupt: %w", root, err)
		}
		parts, err := splitPath(root)
		if err != nil {
			return err
		}
		setPath(s.root, parts, value)
	}
	return rows.Err()
}

func (s *SQLiteStore) Read(path string) (any, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(getPath(s.root, parts)), nil
}

func (s *SQLiteStore) Commit(updates map[string]any) error {
	staged, err := prepare(updates)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Apply on a scratch copy of the affected documents, persist, then swap.
	roots := make(map[string][]string)
	for _, w := range staged {
		key := docRoot(w.parts)
		parts, _ := splitPath(key)
		roots[key] = parts
	}
	scratch := make(map[string]any)
	for _, parts := range roots {
		if cur := getPath(s.root, parts); cur != nil {
			setPath(scratch, parts, deepCopy(cur))
		}
	}
	apply(scratch, staged)

	if err := s.persist(roots, scratch); err != nil {
		return err
	}
	for _, parts := range roots {
		if doc := getPath(scratch, parts); doc == nil {
			deletePath(s.root, parts)
		} else {
			setPath(s.root, parts, doc)
		}
	}
	return nil
}

func (s *SQLiteStore) Transact(root string, fn func(current any) (any, error)) error {
	parts, err := splitPath(root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(deepCopy(getPath(s.root, parts)))
	if err != nil {
		return err
	}
	norm, err := normalize(next)
	if err != nil {
		return err
	}

	key := docRoot(parts)
	keyParts, _ := splitPath(key)
	scratch := make(map[string]any)
	if cur := getPath(s.root, keyParts); cur != nil {
		setPath(scratch, keyParts, deepCopy(cur))
	}
	if norm == nil {
		deletePath(scratch, parts)
	} else {
		setPath(scratch, parts, norm)
	}

	if err := s.persist(map[string][]string{key: keyParts}, scratch); err != nil {
		return err
	}
	if doc := getPath(scratch, keyParts); doc == nil {
		deletePath(s.root, keyParts)
	} else {
		setPath(s.root, keyParts, doc)
	}
	return nil
}

func (s *SQLiteStore) persist(roots map[string][]string, scratch map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for key, parts := range roots {
		doc := getPath(scratch, parts)
		if doc == nil {
			if _, err := tx.Exec("DELETE FROM documents WHERE root=?", key); err != nil {
				tx.Rollback()
				return err
			}
			continue
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			tx.Rollback()
			return err
		}
		blob := compressLZ4(raw)
		sum := blake3.Sum256(raw)
		_, err = tx.Exec("INSERT OR REPLACE INTO documents (root, blob, hash) VALUES (?,?,?)",
			key, blob, hex.EncodeToString(sum[:]))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func compressLZ4(src []byte) []byte {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)
	zw := lz4.NewWriter(buf)
	zw.Write(src)
	zw.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func decompressLZ4(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

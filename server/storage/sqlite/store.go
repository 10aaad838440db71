// Package sqlite persists the document tree in a single SQLite table of leaf values.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyp0633/calseries/server/storage"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/mo"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// Store implements storage.Store on top of SQLite
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != MemoryDSN {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			path TEXT PRIMARY KEY,
			value BLOB NOT NULL
		) WITHOUT ROWID`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// subtreeClause matches root and every path beneath it. '0' is the byte after '/'.
func subtreeClause(root string) (string, []any) {
	if root == "" {
		return "1 = 1", nil
	}
	return "(path = ? OR (path >= ? AND path < ?))", []any{root, root + "/", root + "0"}
}

func unavailable(op string, err error) error {
	return &storage.Error{Type: storage.ErrUnavailable, Message: op, Err: err}
}

func (s *Store) Get(ctx context.Context, path string) (mo.Option[json.RawMessage], error) {
	clean, err := storage.CleanPath(path)
	if err != nil {
		return mo.None[json.RawMessage](), err
	}

	where, args := subtreeClause(clean)
	rows, err := s.db.QueryContext(ctx, "SELECT path, value FROM nodes WHERE "+where, args...)
	if err != nil {
		return mo.None[json.RawMessage](), unavailable("query nodes", err)
	}
	defer rows.Close()

	leaves := make(map[string]json.RawMessage)
	for rows.Next() {
		var p string
		var v []byte
		if err := rows.Scan(&p, &v); err != nil {
			return mo.None[json.RawMessage](), unavailable("scan node", err)
		}
		leaves[p] = v
	}
	if err := rows.Err(); err != nil {
		return mo.None[json.RawMessage](), unavailable("iterate nodes", err)
	}

	raw, ok, err := storage.Assemble(clean, leaves)
	if err != nil || !ok {
		return mo.None[json.RawMessage](), err
	}
	return mo.Some(raw), nil
}

func (s *Store) Set(ctx context.Context, path string, value any) error {
	w, err := storage.PlanSet(path, value)
	if err != nil {
		return err
	}
	return s.applyAll(ctx, []storage.Write{w})
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	writes, err := storage.PlanUpdate(path, fields)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	return s.applyAll(ctx, writes)
}

func (s *Store) Remove(ctx context.Context, path string) error {
	clean, err := storage.CleanPath(path)
	if err != nil {
		return err
	}
	return s.applyAll(ctx, []storage.Write{{Path: clean}})
}

func (s *Store) Push(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := storage.CleanPath(path); err != nil {
		return "", err
	}
	return storage.NewPushID(), nil
}

// applyAll runs every write in one transaction
func (s *Store) applyAll(ctx context.Context, writes []storage.Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if err := applyWrite(ctx, tx, w); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func applyWrite(ctx context.Context, tx *sql.Tx, w storage.Write) error {
	if ancestors := storage.Ancestors(w.Path); len(ancestors) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ancestors)), ",")
		args := make([]any, len(ancestors))
		for i, a := range ancestors {
			args[i] = a
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE path IN ("+placeholders+")", args...); err != nil {
			return unavailable("clear ancestors", err)
		}
	}

	where, args := subtreeClause(w.Path)
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE "+where, args...); err != nil {
		return unavailable("clear subtree", err)
	}

	if len(w.Leaves) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes (path, value) VALUES (?, ?)")
	if err != nil {
		return unavailable("prepare insert", err)
	}
	defer stmt.Close()

	for p, v := range w.Leaves {
		if _, err := stmt.ExecContext(ctx, p, []byte(v)); err != nil {
			return unavailable("insert node", err)
		}
	}
	return nil
}

package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the graph in two tables. Save rewrites both tables
// inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath) // modernc.org/sqlite registers "sqlite"
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			position INTEGER NOT NULL,
			name TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			observations TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS relations (
			position INTEGER NOT NULL,
			from_name TEXT NOT NULL,
			to_name TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			PRIMARY KEY (from_name, to_name, relation_type)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Graph, error) {
	g := Graph{Entities: []Entity{}, Relations: []Relation{}}

	rows, err := s.db.QueryContext(ctx, `SELECT name, entity_type, observations FROM entities ORDER BY position`)
	if err != nil {
		return g, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entity
		var obs string
		if err := rows.Scan(&e.Name, &e.EntityType, &obs); err != nil {
			return g, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(obs), &e.Observations); err != nil {
			return g, fmt.Errorf("invalid observations for %s: %w", e.Name, err)
		}
		if e.Observations == nil {
			e.Observations = []string{}
		}
		g.Entities = append(g.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return g, err
	}

	relRows, err := s.db.QueryContext(ctx, `SELECT from_name, to_name, relation_type FROM relations ORDER BY position`)
	if err != nil {
		return g, fmt.Errorf("failed to query relations: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r Relation
		if err := relRows.Scan(&r.From, &r.To, &r.RelationType); err != nil {
			return g, fmt.Errorf("failed to scan relation: %w", err)
		}
		g.Relations = append(g.Relations, r)
	}
	return g, relRows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, g Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relations`); err != nil {
		return err
	}

	for i, e := range g.Entities {
		obs, err := json.Marshal(e.Observations)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (position, name, entity_type, observations) VALUES (?, ?, ?, ?)`,
			i, e.Name, e.EntityType, string(obs)); err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.Name, err)
		}
	}
	for i, r := range g.Relations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relations (position, from_name, to_name, relation_type) VALUES (?, ?, ?, ?)`,
			i, r.From, r.To, r.RelationType); err != nil {
			return fmt.Errorf("failed to insert relation: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/atlas/internal/graph"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. The database is a query index
// derived from the snapshot and can be rebuilt at any time.
type DB struct {
	db *sql.DB
}

// selectNodeFields contains the standard field list for node SELECT queries.
const selectNodeFields = `name, type, level, url, description, created_at, updated_at`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			level INTEGER NOT NULL,
			url TEXT,
			description TEXT,
			created_at TEXT,
			updated_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
		CREATE INDEX IF NOT EXISTS idx_nodes_level ON nodes(level);

		CREATE TABLE IF NOT EXISTS edges (
			key TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			relationship TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
		CREATE INDEX IF NOT EXISTS idx_edges_relationship ON edges(relationship);

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			name,
			description,
			type
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromGraph clears the database and rebuilds it from g.
// It returns the number of nodes and edges indexed.
func (d *DB) RebuildFromGraph(g *graph.Graph) (nodes, edges int, err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"nodes", "edges", "nodes_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (name, position, type, level, url, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing nodes insert: %w", err)
	}
	defer nodeStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO nodes_fts (name, description, type) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	edgeStmt, err := tx.Prepare(`
		INSERT INTO edges (key, position, source, target, relationship)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing edges insert: %w", err)
	}
	defer edgeStmt.Close()

	for i, n := range g.Nodes() {
		_, err = nodeStmt.Exec(
			n.Name, i, n.Type.String(), n.Level,
			nullableStringValue(n.Metadata.URL), nullableStringValue(n.Metadata.Description),
			formatTime(n.Metadata.CreatedAt), formatTime(n.Metadata.UpdatedAt),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting node %s: %w", n.Name, err)
		}
		if _, err = ftsStmt.Exec(n.Name, n.Metadata.Description, n.Type.String()); err != nil {
			return 0, 0, fmt.Errorf("inserting fts for %s: %w", n.Name, err)
		}
		nodes++
	}

	for i, e := range g.Edges() {
		if _, err = edgeStmt.Exec(e.Key, i, e.Source, e.Target, e.Relationship); err != nil {
			return 0, 0, fmt.Errorf("inserting edge %s: %w", e.Key, err)
		}
		edges++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return nodes, edges, nil
}

// SearchNodes performs a full-text search over node names, descriptions, and
// types. Results follow graph insertion order.
func (d *DB) SearchNodes(query string, limit int) ([]graph.Node, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectNodeFields+`
		FROM nodes
		WHERE name IN (SELECT name FROM nodes_fts WHERE nodes_fts MATCH ?)
		ORDER BY position
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// NodesAtLevel returns indexed nodes at a level in insertion order.
func (d *DB) NodesAtLevel(level int) ([]graph.Node, error) {
	rows, err := d.db.Query(`SELECT `+selectNodeFields+` FROM nodes WHERE level = ? ORDER BY position`, level)
	if err != nil {
		return nil, fmt.Errorf("querying level %d: %w", level, err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// CountNodes returns the number of indexed nodes.
func (d *DB) CountNodes() (int, error) {
	return d.count("nodes")
}

// CountEdges returns the number of indexed edges.
func (d *DB) CountEdges() (int, error) {
	return d.count("edges")
}

func (d *DB) count(table string) (int, error) {
	var n int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// EdgeCountsByRelationship returns edge counts keyed by relationship label.
func (d *DB) EdgeCountsByRelationship() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT relationship, COUNT(*) FROM edges GROUP BY relationship`)
	if err != nil {
		return nil, fmt.Errorf("counting edges by relationship: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var rel string
		var n int
		if err := rows.Scan(&rel, &n); err != nil {
			return nil, fmt.Errorf("scanning relationship count: %w", err)
		}
		counts[rel] = n
	}
	return counts, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (graph.Node, error) {
	var (
		n                    graph.Node
		typeName             string
		url, desc            sql.NullString
		createdAt, updatedAt sql.NullString
	)
	if err := s.Scan(&n.Name, &typeName, &n.Level, &url, &desc, &createdAt, &updatedAt); err != nil {
		return graph.Node{}, err
	}
	t, err := graph.ParseNodeType(typeName)
	if err != nil {
		return graph.Node{}, fmt.Errorf("node %s: %w", n.Name, err)
	}
	n.Type = t
	n.Metadata.URL = url.String
	n.Metadata.Description = desc.String
	n.Metadata.CreatedAt = parseTime(createdAt.String)
	n.Metadata.UpdatedAt = parseTime(updatedAt.String)
	return n, nil
}

func scanNodes(rows *sql.Rows) ([]graph.Node, error) {
	var nodes []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	// FTS5 uses double quotes for phrase matching
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	if strings.ContainsAny(query, "\"*+-:(){}[]^~_") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

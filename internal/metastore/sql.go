package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata_columns (
	dataset       TEXT NOT NULL,
	name          TEXT NOT NULL,
	dtype         TEXT NOT NULL,
	cell_id_field TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (dataset, name)
);
CREATE TABLE IF NOT EXISTS metadata_values (
	dataset     TEXT NOT NULL,
	column_name TEXT NOT NULL,
	cell_id     TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (dataset, column_name, cell_id)
);`

// SQLStore implements Store on database/sql. The same implementation serves
// SQLite and Postgres; only placeholder syntax differs.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLite opens (and if needed creates) a SQLite-backed metastore at path.
func NewSQLite(path string) (*SQLStore, error) {
	if path == "" {
		path = "marrowmap.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgres opens a Postgres-backed metastore using the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = "postgres://localhost/marrowmap?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &SQLStore{db: db, postgres: true}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ?-style placeholders to $N for Postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) PushColumn(ctx context.Context, dataset string, col Column) (retErr error) {
	if err := col.validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	upsert := s.rebind(`INSERT INTO metadata_columns(dataset,name,dtype,cell_id_field,description)
		VALUES(?,?,?,?,?)
		ON CONFLICT(dataset,name) DO UPDATE SET
			dtype=excluded.dtype,
			cell_id_field=excluded.cell_id_field,
			description=excluded.description`)
	if _, err := tx.ExecContext(ctx, upsert, dataset, col.Name, col.DType, col.CellIDField, col.Description); err != nil {
		return fmt.Errorf("upsert column %s: %w", col.Name, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM metadata_values WHERE dataset=? AND column_name=?`), dataset, col.Name); err != nil {
		return fmt.Errorf("clear values %s: %w", col.Name, err)
	}
	insert := s.rebind(`INSERT INTO metadata_values(dataset,column_name,cell_id,value) VALUES(?,?,?,?)`)
	for _, v := range sortedValues(col.Values) {
		if _, err := tx.ExecContext(ctx, insert, dataset, col.Name, v.CellID, v.Value); err != nil {
			return fmt.Errorf("insert value %s/%s: %w", col.Name, v.CellID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) GetColumn(ctx context.Context, dataset, name string) (Column, error) {
	var col Column
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT name,dtype,cell_id_field,description FROM metadata_columns WHERE dataset=? AND name=?`),
		dataset, name)
	if err := row.Scan(&col.Name, &col.DType, &col.CellIDField, &col.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Column{}, ErrColumnNotFound{Dataset: dataset, Name: name}
		}
		return Column{}, fmt.Errorf("select column %s: %w", name, err)
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT cell_id,value FROM metadata_values WHERE dataset=? AND column_name=? ORDER BY cell_id`),
		dataset, name)
	if err != nil {
		return Column{}, fmt.Errorf("select values %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.CellID, &v.Value); err != nil {
			return Column{}, fmt.Errorf("scan value: %w", err)
		}
		col.Values = append(col.Values, v)
	}
	if err := rows.Err(); err != nil {
		return Column{}, fmt.Errorf("iterate values: %w", err)
	}
	return col, nil
}

func (s *SQLStore) Columns(ctx context.Context, dataset string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT name FROM metadata_columns WHERE dataset=? ORDER BY name`), dataset)
	if err != nil {
		return nil, fmt.Errorf("select columns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return names, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Package metastore pushes derived metadata columns to an external store so
// downstream analysis tooling can read annotations without loading whole
// dataset snapshots. Drivers: in-memory (tests), SQLite (default on disk),
// Postgres.
package metastore

import (
	"context"
	"fmt"
	"sort"
)

// Value binds one cell's column value to the cell's dataset-wide identifier.
type Value struct {
	CellID string `json:"cell_id"`
	Value  string `json:"value"`
}

// Column is one pushed metadata column. DType is a free-form type tag
// ("categorical" for annotation labels); CellIDField names the identifier
// field readers should join on.
type Column struct {
	Name        string  `json:"name"`
	DType       string  `json:"dtype"`
	CellIDField string  `json:"cell_id_field"`
	Description string  `json:"description,omitempty"`
	Values      []Value `json:"values"`
}

func (c Column) validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name required")
	}
	if c.DType == "" {
		return fmt.Errorf("column %s: dtype required", c.Name)
	}
	if c.CellIDField == "" {
		return fmt.Errorf("column %s: cell id field required", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if v.CellID == "" {
			return fmt.Errorf("column %s: empty cell id", c.Name)
		}
		if _, dup := seen[v.CellID]; dup {
			return fmt.Errorf("column %s: duplicate cell id %s", c.Name, v.CellID)
		}
		seen[v.CellID] = struct{}{}
	}
	return nil
}

// sortedValues returns the values ordered by cell id for deterministic
// storage and comparison.
func sortedValues(in []Value) []Value {
	out := append([]Value(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].CellID < out[j].CellID })
	return out
}

// Store is the metadata push interface. PushColumn replaces any previous
// version of the column atomically: the definition is upserted and the full
// value set swapped in one transaction.
type Store interface {
	PushColumn(ctx context.Context, dataset string, col Column) error
	GetColumn(ctx context.Context, dataset, name string) (Column, error)
	Columns(ctx context.Context, dataset string) ([]string, error)
	Close() error
}

// ErrColumnNotFound reports a missing column on GetColumn.
type ErrColumnNotFound struct {
	Dataset string
	Name    string
}

func (e ErrColumnNotFound) Error() string {
	return fmt.Sprintf("metastore: column %s not found in dataset %s", e.Name, e.Dataset)
}

package storage

import (
	"fmt"
	"strings"
)

// Logical column types. Backends map them to native types.
const (
	TypeText    = "text"
	TypeInteger = "integer"
	TypeDouble  = "double"
)

// TableSpec describes a table the publisher writes.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
	// PrimaryKey lists the key columns, empty for none.
	PrimaryKey []string
}

type ColumnSpec struct {
	Name     string
	Type     string
	Nullable bool
}

// ColumnNames returns the column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate reports an empty name, an empty or duplicate column, an unknown
// type or a key column that is not declared.
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("table %s: column name is empty", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case TypeText, TypeInteger, TypeDouble:
		default:
			return fmt.Errorf("table %s: column %s: unknown type %q", t.Name, c.Name, c.Type)
		}
	}
	for _, k := range t.PrimaryKey {
		if !seen[k] {
			return fmt.Errorf("table %s: primary key column %q is not declared", t.Name, k)
		}
	}
	return nil
}

// CountriesTable is the table holding merged country records: one row per
// (code, year).
func CountriesTable(name string) TableSpec {
	return TableSpec{
		Name: name,
		Columns: []ColumnSpec{
			{Name: "country", Type: TypeText, Nullable: true},
			{Name: "code", Type: TypeText},
			{Name: "year", Type: TypeInteger},
			{Name: "gdp", Type: TypeDouble, Nullable: true},
			{Name: "life_expectancy", Type: TypeDouble, Nullable: true},
		},
	}
}

// Package query renders parameterized PostgreSQL SELECTs from a projection
// of view names onto table columns.
package query

import "strings"

// ProjectionMap maps view names, the names clients filter and sort by, onto
// alias-qualified columns of a single table.
type ProjectionMap struct {
	schema, table, alias string

	byView  map[string]string
	ordered []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		byView: map[string]string{},
	}
}

// Project maps column to viewName. Selected columns follow Project call
// order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byView[viewName] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Table returns "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.schema + "." + p.table + " " + p.alias
}

func (p *ProjectionMap) From() string {
	return p.Table()
}

// Column resolves viewName, passing unmapped names through unchanged.
// Callers that accept client input use Lookup instead.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.byView[viewName]; ok {
		return col
	}
	return viewName
}

func (p *ProjectionMap) Lookup(viewName string) (string, bool) {
	col, ok := p.byView[viewName]
	return col, ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

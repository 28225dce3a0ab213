package query_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/arbiter/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "decisions", "dc").
		Project("id", "ID").
		Project("final_category", "FinalCategory").
		Project("decided_at", "DecidedAt")
}

func ptr[T any](v T) *T { return &v }

const selectAll = "SELECT dc.id, dc.final_category, dc.decided_at FROM public.decisions dc"

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.Table(); got != "public.decisions dc" {
		t.Errorf("Table() = %q", got)
	}
	if got := p.From(); got != p.Table() {
		t.Errorf("From() = %q, want %q", got, p.Table())
	}
	if got := p.Columns(); got != "dc.id, dc.final_category, dc.decided_at" {
		t.Errorf("Columns() = %q", got)
	}

	tests := []struct {
		name     string
		viewName string
		want     string
		mapped   bool
	}{
		{"mapped", "FinalCategory", "dc.final_category", true},
		{"unmapped passthrough", "unknown", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
			if _, ok := p.Lookup(tt.viewName); ok != tt.mapped {
				t.Errorf("Lookup(%q) ok = %v, want %v", tt.viewName, ok, tt.mapped)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		input string
		want  []query.SortField
	}{
		{"", nil},
		{"DecidedAt", []query.SortField{{Field: "DecidedAt"}}},
		{"-DecidedAt", []query.SortField{{Field: "DecidedAt", Descending: true}}},
		{"FinalCategory, -DecidedAt,", []query.SortField{
			{Field: "FinalCategory"},
			{Field: "DecidedAt", Descending: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	newest := query.SortField{Field: "DecidedAt", Descending: true}
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func() (string, []any)
		wantSQL  string
		wantArgs int
	}{
		{
			name:    "build",
			build:   query.NewBuilder(testProjection()).Build,
			wantSQL: selectAll,
		},
		{
			name:    "count",
			build:   query.NewBuilder(testProjection(), newest).BuildCount,
			wantSQL: "SELECT COUNT(*) FROM public.decisions dc",
		},
		{
			name: "page with default sort",
			build: func() (string, []any) {
				return query.NewBuilder(testProjection(), newest).BuildPage(2, 10)
			},
			wantSQL: selectAll + " ORDER BY dc.decided_at DESC LIMIT 10 OFFSET 10",
		},
		{
			name: "single",
			build: func() (string, []any) {
				return query.NewBuilder(testProjection()).BuildSingle("ID", "abc")
			},
			wantSQL:  selectAll + " WHERE dc.id = $1",
			wantArgs: 1,
		},
		{
			name: "equals skips nil",
			build: query.NewBuilder(testProjection()).
				WhereEquals("FinalCategory", (*string)(nil)).
				WhereEquals("ID", "abc").
				Build,
			wantSQL:  selectAll + " WHERE dc.id = $1",
			wantArgs: 1,
		},
		{
			name: "contains skips empty",
			build: query.NewBuilder(testProjection()).
				WhereContains("FinalCategory", ptr("")).
				WhereContains("ID", ptr("ab")).
				Build,
			wantSQL:  selectAll + " WHERE dc.id ILIKE $1",
			wantArgs: 1,
		},
		{
			name: "search spans fields",
			build: query.NewBuilder(testProjection()).
				WhereSearch(ptr("conf"), "ID", "FinalCategory").
				BuildCount,
			wantSQL:  "SELECT COUNT(*) FROM public.decisions dc WHERE (dc.id ILIKE $1 OR dc.final_category ILIKE $2)",
			wantArgs: 2,
		},
		{
			name: "range lower bound only",
			build: query.NewBuilder(testProjection()).
				WhereRange("DecidedAt", &from, (*time.Time)(nil)).
				BuildCount,
			wantSQL:  "SELECT COUNT(*) FROM public.decisions dc WHERE dc.decided_at >= $1",
			wantArgs: 1,
		},
		{
			name: "parameters number across conditions",
			build: func() (string, []any) {
				return query.NewBuilder(testProjection(), newest).
					WhereEquals("FinalCategory", "UNSAFE").
					WhereRange("DecidedAt", from, from.AddDate(0, 1, 0)).
					BuildPage(3, 25)
			},
			wantSQL:  selectAll + " WHERE dc.final_category = $1 AND dc.decided_at >= $2 AND dc.decided_at < $3 ORDER BY dc.decided_at DESC LIMIT 25 OFFSET 50",
			wantArgs: 3,
		},
		{
			name: "explicit sort overrides default",
			build: query.NewBuilder(testProjection(), newest).
				OrderByFields([]query.SortField{{Field: "FinalCategory"}, {Field: "ID", Descending: true}}).
				Build,
			wantSQL: selectAll + " ORDER BY dc.final_category ASC, dc.id DESC",
		},
		{
			name: "unknown sort fields ignored",
			build: query.NewBuilder(testProjection()).
				OrderByFields([]query.SortField{{Field: "id; DROP TABLE decisions"}}).
				Build,
			wantSQL: selectAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build()
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

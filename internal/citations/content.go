package citations

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidContentMap is returned for blocks with invalid positions or
// duplicate (page, block_index) pairs.
var ErrInvalidContentMap = errors.New("invalid content map")

// Point is one corner of a bounding region.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is an axis-aligned rectangle in source coordinates.
type Region struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Corners returns the four corners clockwise from the top-left.
func (r Region) Corners() [4]Point {
	return [4]Point{
		{X: r.X0, Y: r.Y0},
		{X: r.X1, Y: r.Y0},
		{X: r.X1, Y: r.Y1},
		{X: r.X0, Y: r.Y1},
	}
}

func (r Region) String() string {
	return fmt.Sprintf("(%.1f, %.1f)-(%.1f, %.1f)", r.X0, r.Y0, r.X1, r.Y1)
}

// Block is one text block produced by the document processor.
type Block struct {
	Page       int    `json:"page"`
	BlockIndex int    `json:"block_index"`
	Region     Region `json:"bbox"`
	Text       string `json:"text"`
}

// ContentMap is the block-indexed text of a document.
type ContentMap []Block

// Validate checks page numbering and block uniqueness.
func (m ContentMap) Validate() error {
	seen := make(map[[2]int]struct{}, len(m))
	for _, b := range m {
		if b.Page < 1 {
			return fmt.Errorf("%w: page %d", ErrInvalidContentMap, b.Page)
		}
		if b.BlockIndex < 0 {
			return fmt.Errorf("%w: page %d block_index %d", ErrInvalidContentMap, b.Page, b.BlockIndex)
		}
		key := [2]int{b.Page, b.BlockIndex}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate page %d block %d", ErrInvalidContentMap, b.Page, b.BlockIndex)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Sorted returns a copy ordered by page then block_index.
func (m ContentMap) Sorted() ContentMap {
	out := slices.Clone(m)
	slices.SortStableFunc(out, compareBlocks)
	return out
}

// Pages returns the highest page number in the map.
func (m ContentMap) Pages() int {
	var n int
	for _, b := range m {
		n = max(n, b.Page)
	}
	return n
}

// Text joins block text in reading order with blank lines between blocks.
func (m ContentMap) Text() string {
	sorted := m.Sorted()
	parts := make([]string, 0, len(sorted))
	for _, b := range sorted {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Annotated renders the map with a citation marker ahead of every block so a
// model can quote excerpts that resolve back to their source.
func (m ContentMap) Annotated() string {
	var b strings.Builder
	page := 0
	for _, blk := range m.Sorted() {
		if blk.Page != page {
			page = blk.Page
			fmt.Fprintf(&b, "\n--- PAGE %d ---\n", page)
		}
		fmt.Fprintf(&b, "[CITATION: Page %d, Block %d, BBox: %s]\n%s\n",
			blk.Page, blk.BlockIndex, blk.Region, strings.TrimSpace(blk.Text))
	}
	return strings.TrimPrefix(b.String(), "\n")
}

func compareBlocks(a, b Block) int {
	return cmp.Or(
		cmp.Compare(a.Page, b.Page),
		cmp.Compare(a.BlockIndex, b.BlockIndex),
	)
}

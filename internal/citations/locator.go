// Package citations resolves excerpts quoted by the classifier back to the
// page, block, and bounding region they came from.
package citations

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidConfig is returned for out-of-range locator settings.
var ErrInvalidConfig = errors.New("invalid citation config")

// Config bounds citation matching.
type Config struct {
	// MinConfidence is the lowest match score accepted as a resolution.
	MinConfidence float64
	// MaxSpan is the largest number of adjacent blocks one excerpt may span.
	MaxSpan int
	// PreviewLength is the number of characters kept in TextPreview.
	PreviewLength int
}

// DefaultConfig returns a 0.6 threshold, three-block spans, and 200
// character previews.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.6,
		MaxSpan:       3,
		PreviewLength: 200,
	}
}

func (c Config) validate() error {
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %v outside (0,1]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MaxSpan < 1 {
		return fmt.Errorf("%w: max_span %d below 1", ErrInvalidConfig, c.MaxSpan)
	}
	if c.PreviewLength < 0 {
		return fmt.Errorf("%w: preview_length %d is negative", ErrInvalidConfig, c.PreviewLength)
	}
	return nil
}

// Resolved is one located excerpt. An excerpt that matched nothing is
// reported with Resolved false, no region, and zero confidence.
type Resolved struct {
	SourceExcerpt   string  `json:"source_excerpt"`
	Resolved        bool    `json:"resolved"`
	Page            int     `json:"page,omitempty"`
	BlockIndex      int     `json:"block_index"`
	BoundingRegion  *Region `json:"bounding_region,omitempty"`
	MatchConfidence float64 `json:"match_confidence"`
	TextPreview     string  `json:"text_preview,omitempty"`
}

// Locator matches excerpts against a content map.
type Locator struct {
	cfg Config
}

// NewLocator validates cfg and creates a Locator.
func NewLocator(cfg Config) (*Locator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Locator{cfg: cfg}, nil
}

// ResolveAll resolves each excerpt in order. Blank excerpts are skipped.
func (l *Locator) ResolveAll(excerpts []string, content ContentMap) []Resolved {
	sorted := content.Sorted()
	normalized := normalizeBlocks(sorted)

	var out []Resolved
	for _, e := range excerpts {
		if strings.TrimSpace(e) == "" {
			continue
		}
		out = append(out, l.resolve(e, sorted, normalized)...)
	}
	return out
}

// Resolve locates a single excerpt. The result has one entry per matched
// block ordered by page then block_index, or a single unresolved entry.
func (l *Locator) Resolve(excerpt string, content ContentMap) []Resolved {
	sorted := content.Sorted()
	return l.resolve(excerpt, sorted, normalizeBlocks(sorted))
}

type window struct {
	start, end int
	score      float64
}

func (l *Locator) resolve(excerpt string, blocks ContentMap, normalized []string) []Resolved {
	needle := normalize(excerpt)
	if needle == "" || len(blocks) == 0 {
		return []Resolved{unresolved(excerpt)}
	}

	tokens := tokenSet(needle)
	eligible := make([]bool, len(blocks))
	best := window{start: -1}

	for i := range blocks {
		if !sharesToken(normalized[i], tokens) {
			continue
		}
		eligible[i] = true
		if s := similarity(needle, normalized[i]); s > best.score {
			best = window{start: i, end: i + 1, score: s}
		}
	}

	// Spans only win when they strictly beat every single block.
	if best.score < 1 && l.cfg.MaxSpan > 1 {
		for i := range blocks {
			if !eligible[i] {
				continue
			}
			joined := normalized[i]
			for j := i + 1; j < len(blocks) && j-i < l.cfg.MaxSpan; j++ {
				if normalized[j] == "" {
					break
				}
				joined += " " + normalized[j]
				if s := similarity(needle, joined); s > best.score {
					best = window{start: i, end: j + 1, score: s}
				}
			}
		}
	}

	if best.start < 0 || best.score < l.cfg.MinConfidence {
		return []Resolved{unresolved(excerpt)}
	}
	best = trim(best, needle, normalized)

	out := make([]Resolved, 0, best.end-best.start)
	for _, b := range blocks[best.start:best.end] {
		region := b.Region
		out = append(out, Resolved{
			SourceExcerpt:   excerpt,
			Resolved:        true,
			Page:            b.Page,
			BlockIndex:      b.BlockIndex,
			BoundingRegion:  &region,
			MatchConfidence: best.score,
			TextPreview:     preview(b.Text, l.cfg.PreviewLength),
		})
	}
	return out
}

// trim drops edge blocks that do not contribute to a span's score.
func trim(w window, needle string, normalized []string) window {
	for w.end-w.start > 1 {
		switch {
		case similarity(needle, strings.Join(normalized[w.start+1:w.end], " ")) >= w.score:
			w.start++
		case similarity(needle, strings.Join(normalized[w.start:w.end-1], " ")) >= w.score:
			w.end--
		default:
			return w
		}
	}
	return w
}

func unresolved(excerpt string) Resolved {
	return Resolved{
		SourceExcerpt: excerpt,
		BlockIndex:    -1,
	}
}

func normalizeBlocks(blocks ContentMap) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = normalize(b.Text)
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// words splits on anything that is not a letter or digit, so punctuation
// and missing spaces do not hide a shared word.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range words(s) {
		set[f] = struct{}{}
	}
	return set
}

func sharesToken(s string, tokens map[string]struct{}) bool {
	for _, f := range words(s) {
		if _, ok := tokens[f]; ok {
			return true
		}
	}
	return false
}

// similarity is 1 when haystack contains needle, otherwise the length of
// their longest common substring relative to needle.
func similarity(needle, haystack string) float64 {
	if strings.Contains(haystack, needle) {
		return 1
	}
	n := utf8.RuneCountInString(needle)
	if n == 0 {
		return 0
	}
	return float64(longestCommonSubstring([]rune(needle), []rune(haystack))) / float64(n)
}

func longestCommonSubstring(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	var longest int
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				longest = max(longest, curr[j])
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return longest
}

func preview(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit == 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

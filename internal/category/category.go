// Package category defines the closed, ordered set of sensitivity tiers a
// document can receive. Tiers carry an explicit priority: a lower priority
// number is more restrictive and always outranks a higher one.
package category

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory is returned when a value is not a known tier.
var ErrInvalidCategory = errors.New("category must be UNSAFE, CONFIDENTIAL, SENSITIVE, or PUBLIC")

// Category is a sensitivity tier.
type Category string

// Sensitivity tiers in priority order.
const (
	Unsafe       Category = "UNSAFE"
	Confidential Category = "CONFIDENTIAL"
	Sensitive    Category = "SENSITIVE"
	Public       Category = "PUBLIC"
)

// Default is the tier assigned when nothing more restrictive applies.
const Default = Public

var categories = []Category{
	Unsafe,
	Confidential,
	Sensitive,
	Public,
}

// All returns every tier ordered from most to least restrictive.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Priority returns the evaluation priority of the tier (1 is most restrictive).
// Unknown values sort after every valid tier.
func (c Category) Priority() int {
	switch c {
	case Unsafe:
		return 1
	case Confidential:
		return 2
	case Sensitive:
		return 3
	case Public:
		return 4
	default:
		return len(categories) + 1
	}
}

// Valid reports whether c is a known tier.
func (c Category) Valid() bool {
	return c.Priority() <= len(categories)
}

// Outranks reports whether c is strictly more restrictive than other.
func (c Category) Outranks(other Category) bool {
	return Compare(c, other) < 0
}

func (c Category) String() string {
	return string(c)
}

// Compare orders tiers by priority. It returns a negative number when a is
// more restrictive than b, zero when equal, and a positive number otherwise.
func Compare(a, b Category) int {
	return cmp.Compare(a.Priority(), b.Priority())
}

// MoreRestrictive returns whichever of a and b has the higher priority.
// Ties return a.
func MoreRestrictive(a, b Category) Category {
	if Compare(b, a) < 0 {
		return b
	}
	return a
}

// Parse validates s as a tier. Matching is case-insensitive and ignores
// surrounding whitespace.
func Parse(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// UnmarshalJSON validates that the decoded string is a known tier.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

package safety

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Taxonomy errors.
var (
	ErrInvalidTag       = errors.New("unknown safety tag")
	ErrInvalidSeverity  = errors.New("severity must be low, medium, high, or critical")
	ErrInvalidAgeRating = errors.New("age rating must be all_ages, 13+, 17+, or 18+")
)

// Tag is one of the six fixed safety categories.
type Tag string

// Safety taxonomy.
const (
	Violence            Tag = "violence"
	HateSpeech          Tag = "hate_speech"
	ExplicitContent     Tag = "explicit_content"
	ChildSafety         Tag = "child_safety"
	DangerousActivities Tag = "dangerous_activities"
	IllegalContent      Tag = "illegal_content"
)

var tags = []Tag{
	Violence,
	HateSpeech,
	ExplicitContent,
	ChildSafety,
	DangerousActivities,
	IllegalContent,
}

// Tags returns the taxonomy in canonical order.
func Tags() []Tag {
	return slices.Clone(tags)
}

// ParseTag normalizes s to a known tag. Spaces, hyphens, and case are
// tolerated so model output such as "Hate Speech" resolves.
func ParseTag(s string) (Tag, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(norm)

	switch norm {
	case "violence_threats", "violence_and_threats", "threats":
		norm = string(Violence)
	case "hate":
		norm = string(HateSpeech)
	case "explicit", "sexual_content", "adult_content":
		norm = string(ExplicitContent)
	case "child", "child_exploitation":
		norm = string(ChildSafety)
	case "dangerous", "dangerous_activity", "self_harm":
		norm = string(DangerousActivities)
	case "illegal", "illegal_activity", "illegal_activities":
		norm = string(IllegalContent)
	}

	t := Tag(norm)
	if !slices.Contains(tags, t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, s)
	}
	return t, nil
}

// Title returns the tag as a heading, e.g. "Hate Speech".
func (t Tag) Title() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Severity ranks how serious a safety finding is.
type Severity int

// Severity levels in ascending order.
const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityNone:     "none",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity converts a textual severity. An empty string is SeverityNone.
func ParseSeverity(s string) (Severity, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return SeverityNone, nil
	}
	for sev, name := range severityNames {
		if name == norm {
			return sev, nil
		}
	}
	return SeverityNone, fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AgeRating is the age-appropriateness rating of the child-safety layer.
type AgeRating string

// Age ratings from least to most restrictive.
const (
	AllAges AgeRating = "all_ages"
	Teen    AgeRating = "13+"
	Mature  AgeRating = "17+"
	Adult   AgeRating = "18+"
)

var ageRatings = []AgeRating{AllAges, Teen, Mature, Adult}

// ParseAgeRating validates s as an age rating.
func ParseAgeRating(s string) (AgeRating, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "all ages" || norm == "all-ages" {
		norm = string(AllAges)
	}
	r := AgeRating(norm)
	if !slices.Contains(ageRatings, r) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgeRating, s)
	}
	return r, nil
}

func (r AgeRating) rank() int {
	return slices.Index(ageRatings, r)
}

// Layer identifies one of the three validation layers.
type Layer string

// Validation layers in execution order.
const (
	LayerPattern     Layer = "pattern"
	LayerSemantic    Layer = "semantic"
	LayerChildSafety Layer = "child_safety"
)

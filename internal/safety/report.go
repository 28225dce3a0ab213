package safety

import (
	"fmt"
	"slices"
	"strings"
)

const generalRecommendation = "General safety violation detected. Review required before classification."

var recommendations = map[Tag]string{
	Violence:            "Content contains violent or threatening material. Mark as UNSAFE and require escalation.",
	HateSpeech:          "Content contains hate speech or discriminatory language. Immediate rejection required.",
	ExplicitContent:     "Explicit or adult content detected. Mark as UNSAFE and restrict access.",
	ChildSafety:         "Child safety concerns identified. URGENT: Escalate to compliance team immediately.",
	DangerousActivities: "Content promotes dangerous activities. Mark as UNSAFE and consider reporting.",
	IllegalContent:      "Potentially illegal content detected. Legal review required.",
}

// Recommendations returns the reviewer guidance for flagged tags in taxonomy
// order. Content that is unsafe without a tagged violation gets the general
// recommendation.
func Recommendations(flagged []Tag) []string {
	var out []string
	for _, t := range tags {
		if slices.Contains(flagged, t) {
			out = append(out, recommendations[t])
		}
	}
	if len(out) == 0 {
		out = append(out, generalRecommendation)
	}
	return out
}

// Report renders the verdict as a plain-text review summary.
func (v Verdict) Report() string {
	rule := strings.Repeat("=", 80)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "CONTENT SAFETY VALIDATION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Overall Safety Status: %s\n", mark(v.IsSafe, "SAFE", "UNSAFE"))
	fmt.Fprintf(&b, "Safety Score: %.2f%%\n", v.SafetyScore*100)
	fmt.Fprintf(&b, "Child Safe: %s\n", mark(v.ChildSafe, "Yes", "No"))
	if v.Degraded {
		layers := make([]string, len(v.DegradedLayers))
		for i, l := range v.DegradedLayers {
			layers[i] = string(l)
		}
		fmt.Fprintf(&b, "Degraded Layers: %s\n", strings.Join(layers, ", "))
	}
	fmt.Fprintln(&b)

	if len(v.Findings) > 0 {
		fmt.Fprintln(&b, "VIOLATIONS DETECTED:")
		for _, f := range v.Findings {
			desc := f.Description
			if len(f.Matches) > 0 {
				desc = fmt.Sprintf("%s - %q", desc, f.Matches)
			}
			fmt.Fprintf(&b, "  • %s\n", desc)
		}
		fmt.Fprintln(&b)
	}

	if len(v.Violations) > 0 {
		fmt.Fprintln(&b, "FLAGGED CATEGORIES:")
		for _, t := range v.Violations {
			fmt.Fprintf(&b, "  • %s\n", t.Title())
		}
		fmt.Fprintln(&b)
	}

	if len(v.Recommendations) > 0 {
		fmt.Fprintln(&b, "RECOMMENDATIONS:")
		for _, r := range v.Recommendations {
			fmt.Fprintf(&b, "  → %s\n", r)
		}
		fmt.Fprintln(&b)
	}

	b.WriteString(rule)
	return b.String()
}

func mark(ok bool, yes, no string) string {
	if ok {
		return "✓ " + yes
	}
	return "✗ " + no
}

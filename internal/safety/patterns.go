package safety

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const maxMatchesPerTag = 3

// Catalog maps each tag to the case-insensitive expressions that flag it.
type Catalog map[Tag][]*regexp.Regexp

var defaultPatterns = map[Tag][]string{
	Violence: {
		`\b(kill|murder|assault|attack|weapon|gun|knife|bomb|explosive)\b`,
		`\b(violence|violent|harm|hurt|injure|wound)\b`,
		`\b(threat|threatening|terroris[mt]|radical)\b`,
	},
	HateSpeech: {
		`\b(hate|hatred|racist|racism|sexist|sexism|discrimination)\b`,
		`\b(slur|derogatory|offensive|insult)\b`,
		`\b(supremac[yi]|extremis[mt]|bigot)\b`,
	},
	ExplicitContent: {
		`\b(porn|pornograph[yi]|xxx|explicit|sexual|nude|naked)\b`,
		`\b(adult content|nsfw|mature content)\b`,
	},
	ChildSafety: {
		`\b(child|children|minor|kid|teen|adolescent|youth)\b.*\b(abuse|exploitation|harm|danger)`,
		`\b(predator|grooming|inappropriate contact)\b`,
		`\b(age.*verification|parental.*consent)\b`,
	},
	DangerousActivities: {
		`\b(suicide|self-harm|self harm)\b`,
		`\b(drug|narcotic|illegal substance)\b`,
		`\b(instruct.*\w*.*harm|how to.*\w*.*damage)\b`,
	},
	IllegalContent: {
		`\b(illegal|unlawful|criminal|contraband)\b`,
		`\b(fraud|scam|phishing|malware)\b`,
		`\b(piracy|counterfeit|stolen)\b`,
	},
}

// DefaultCatalog returns the built-in keyword patterns.
func DefaultCatalog() Catalog {
	c, err := compile(defaultPatterns)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadPatterns reads a YAML file mapping tags to expression lists and
// appends them to the default catalog:
//
//	violence:
//	  - '\bbrandish\w*\b'
func LoadPatterns(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	return ParsePatterns(data)
}

// ParsePatterns decodes YAML pattern definitions and merges them with the
// default catalog.
func ParsePatterns(data []byte) (Catalog, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}

	merged := make(map[Tag][]string, len(defaultPatterns))
	for tag, exprs := range defaultPatterns {
		merged[tag] = append([]string(nil), exprs...)
	}

	for name, exprs := range raw {
		tag, err := ParseTag(name)
		if err != nil {
			return nil, err
		}
		merged[tag] = append(merged[tag], exprs...)
	}

	return compile(merged)
}

func compile(src map[Tag][]string) (Catalog, error) {
	c := make(Catalog, len(src))
	for tag, exprs := range src {
		for _, expr := range exprs {
			re, err := regexp.Compile(`(?i)` + expr)
			if err != nil {
				return nil, fmt.Errorf("compile %s pattern %q: %w", tag, expr, err)
			}
			c[tag] = append(c[tag], re)
		}
	}
	return c, nil
}

// Match returns up to three matched snippets per flagged tag.
func (c Catalog) Match(content string) map[Tag][]string {
	out := make(map[Tag][]string)
	for _, tag := range tags {
		var matches []string
		for _, re := range c[tag] {
			matches = append(matches, re.FindAllString(content, maxMatchesPerTag-len(matches))...)
			if len(matches) >= maxMatchesPerTag {
				break
			}
		}
		if len(matches) > 0 {
			out[tag] = matches
		}
	}
	return out
}

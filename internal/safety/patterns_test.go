package safety_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/JaimeStill/arbiter/internal/safety"
)

func TestCatalogMatch(t *testing.T) {
	catalog := safety.DefaultCatalog()

	tests := []struct {
		name    string
		content string
		want    map[safety.Tag][]string
	}{
		{
			name:    "clean",
			content: "Quarterly revenue grew in the northeast region.",
			want:    map[safety.Tag][]string{},
		},
		{
			name:    "violence",
			content: "He carried a knife and planned to attack.",
			want: map[safety.Tag][]string{
				safety.Violence: {"knife", "attack"},
			},
		},
		{
			name:    "case insensitive",
			content: "PHISHING campaign",
			want: map[safety.Tag][]string{
				safety.IllegalContent: {"PHISHING"},
			},
		},
		{
			name:    "capped at three",
			content: "kill kill kill kill kill",
			want: map[safety.Tag][]string{
				safety.Violence: {"kill", "kill", "kill"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.Match(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("Match() flagged %d tags, want %d: %v", len(got), len(tt.want), got)
			}
			for tag, want := range tt.want {
				if !slices.Equal(got[tag], want) {
					t.Errorf("Match()[%s] = %v, want %v", tag, got[tag], want)
				}
			}
		})
	}
}

func TestParsePatterns(t *testing.T) {
	t.Run("extends defaults", func(t *testing.T) {
		catalog, err := safety.ParsePatterns([]byte("violence:\n  - '\\bbrandish\\w*\\b'\n"))
		if err != nil {
			t.Fatalf("ParsePatterns() error: %v", err)
		}

		got := catalog.Match("she was brandishing a sword")
		if !slices.Equal(got[safety.Violence], []string{"brandishing"}) {
			t.Errorf("custom pattern matches = %v", got[safety.Violence])
		}

		if len(catalog.Match("a bomb threat")[safety.Violence]) == 0 {
			t.Error("default patterns dropped after merge")
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := safety.ParsePatterns([]byte("gossip:\n  - rumor\n"))
		if !errors.Is(err, safety.ErrInvalidTag) {
			t.Errorf("err = %v, want %v", err, safety.ErrInvalidTag)
		}
	})

	t.Run("bad expression", func(t *testing.T) {
		_, err := safety.ParsePatterns([]byte("violence:\n  - '(unclosed'\n"))
		if err == nil {
			t.Error("expected compile error")
		}
	})
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		input string
		want  safety.Tag
	}{
		{"violence", safety.Violence},
		{"Hate Speech", safety.HateSpeech},
		{"dangerous-activities", safety.DangerousActivities},
		{"explicit", safety.ExplicitContent},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := safety.ParseTag(tt.input)
			if err != nil {
				t.Fatalf("ParseTag(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTag(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

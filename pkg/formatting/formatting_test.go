package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/arbiter/pkg/formatting"
)

func TestBytes(t *testing.T) {
	parse := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"50MB", 50 * 1024 * 1024, false},
		{"10mb", 10 * 1024 * 1024, false},
		{" 100 MB ", 100 * 1024 * 1024, false},
		{"0", 0, false},
		{"", 0, true},
		{"50XX", 0, true},
		{"-5MB", 0, true},
	}

	for _, tt := range parse {
		t.Run("parse "+tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}

	format := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{500, 0, "500 B"},
		{50 * 1024 * 1024, 0, "50 MB"},
		{1536 * 1024, 1, "1.5 MB"},
		{1024, -1, "1 KB"},
	}

	for _, tt := range format {
		t.Run("format "+tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

type draft struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    draft
		wantErr bool
	}{
		{
			name:  "bare json",
			input: `  {"category":"PUBLIC","confidence":0.91}  `,
			want:  draft{"PUBLIC", 0.91},
		},
		{
			name:  "fenced with language",
			input: "```json\n{\"category\":\"SENSITIVE\",\"confidence\":0.7}\n```",
			want:  draft{"SENSITIVE", 0.7},
		},
		{
			name:  "fenced inside prose",
			input: "Result:\n```\n{\"category\":\"UNSAFE\",\"confidence\":0.99}\n```\nDone.",
			want:  draft{"UNSAFE", 0.99},
		},
		{
			name:  "object inside prose",
			input: `The document is {"category":"CONFIDENTIAL","confidence":0.8} based on page 2.`,
			want:  draft{"CONFIDENTIAL", 0.8},
		},
		{name: "no json", input: "cannot classify", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "unbalanced", input: `} nothing {`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[draft](tt.input)
			if tt.wantErr {
				if !errors.Is(err, formatting.ErrParseFailed) {
					t.Fatalf("error = %v, want ErrParseFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

package category_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/JaimeStill/arbiter/internal/category"
)

func TestPriorityOrder(t *testing.T) {
	all := category.All()
	for i := 1; i < len(all); i++ {
		if !all[i-1].Outranks(all[i]) {
			t.Errorf("%s should outrank %s", all[i-1], all[i])
		}
	}
}

func TestMoreRestrictive(t *testing.T) {
	tests := []struct {
		name string
		a, b category.Category
		want category.Category
	}{
		{"confidential over public", category.Public, category.Confidential, category.Confidential},
		{"unsafe over sensitive", category.Unsafe, category.Sensitive, category.Unsafe},
		{"equal", category.Sensitive, category.Sensitive, category.Sensitive},
		{"invalid loses", category.Category("OTHER"), category.Public, category.Public},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := category.MoreRestrictive(tt.a, tt.b); got != tt.want {
				t.Errorf("MoreRestrictive(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    category.Category
		wantErr bool
	}{
		{"UNSAFE", category.Unsafe, false},
		{" confidential ", category.Confidential, false},
		{"Sensitive", category.Sensitive, false},
		{"public", category.Public, false},
		{"SECRET", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := category.Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, category.ErrInvalidCategory) {
					t.Fatalf("err = %v, want ErrInvalidCategory", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var v struct {
		Category category.Category `json:"category"`
	}

	if err := json.Unmarshal([]byte(`{"category":"sensitive"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Category != category.Sensitive {
		t.Errorf("category = %s, want SENSITIVE", v.Category)
	}

	if err := json.Unmarshal([]byte(`{"category":"TOP"}`), &v); !errors.Is(err, category.ErrInvalidCategory) {
		t.Errorf("err = %v, want ErrInvalidCategory", err)
	}
}

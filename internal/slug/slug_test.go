package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple two words",
			input: "Running Shoes",
			want:  "running-shoes",
		},
		{
			name:  "already lowercase",
			input: "electronics",
			want:  "electronics",
		},
		{
			name:  "ampersand dropped",
			input: "Shoes & Socks",
			want:  "shoes-socks",
		},
		{
			name:  "punctuation stripped",
			input: "Kids' Toys, Games!",
			want:  "kids-toys-games",
		},
		{
			name:  "surrounding whitespace",
			input: "  Home Decor  ",
			want:  "home-decor",
		},
		{
			name:  "multiple inner spaces",
			input: "Big    Sale",
			want:  "big-sale",
		},
		{
			name:  "existing hyphens preserved",
			input: "T-Shirts",
			want:  "t-shirts",
		},
		{
			name:  "digits kept",
			input: "Top 10 Gadgets 2026",
			want:  "top-10-gadgets-2026",
		},
		{
			name:  "only punctuation",
			input: "!!!",
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

package util

import (
	"strings"
	"testing"
)

func TestBuildPlanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		statement string
		want      string
	}{
		{
			name:      "empty_statement_gets_default",
			statement: "   ",
			want:      "Untitled plan",
		},
		{
			name:      "short_statement_used_verbatim",
			statement: "A 5 kg block rests on a 30 degree incline",
			want:      "A 5 kg block rests on a 30 degree incline",
		},
		{
			name:      "surrounding_whitespace_trimmed",
			statement: "  circuit with two resistors  ",
			want:      "circuit with two resistors",
		},
		{
			name:      "long_statement_truncated",
			statement: strings.Repeat("x", 200),
			want:      strings.Repeat("x", 120),
		},
		{
			name:      "truncation_drops_trailing_space",
			statement: strings.Repeat("y", 119) + " tail words beyond the cap",
			want:      strings.Repeat("y", 119),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := BuildPlanTitle(tc.statement)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "plain statement",
			input: "A 12 V battery is connected to a resistor.",
			want:  "A 12 V battery is connected to a resistor.",
		},
		{
			name:  "null bytes stripped",
			input: "R1\x00 = 4.7 k\x00Ω",
			want:  "R1 = 4.7 kΩ",
		},
		{
			name:  "invalid utf8 dropped",
			input: string([]byte{'m', 0xfe, ' ', '=', ' ', '5', 0xff, ' ', 'k', 'g'}),
			want:  "m = 5 kg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

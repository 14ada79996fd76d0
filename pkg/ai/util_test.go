package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type entity struct {
		Text string `json:"text"`
		Type string `json:"type,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  entity
	}{
		{
			name:  "valid json object",
			input: `{"text":"resistor"}`,
			want:  entity{Text: "resistor"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{text: 'resistor'}`,
			want:  entity{Text: "resistor"},
		},
		{
			name:  "trailing comma",
			input: `{"text":"resistor",}`,
			want:  entity{Text: "resistor"},
		},
		{
			name:  "missing endbracket",
			input: `{"text":"resistor`,
			want:  entity{Text: "resistor"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{text: 'resistor'}"`,
			want:  entity{Text: "resistor"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"text\": \"resistor\"\n}\n",
			want:  entity{Text: "resistor"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "text": "resistor" }`,
			want:  entity{Text: "resistor"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got entity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Text != tc.want.Text || got.Type != tc.want.Type {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type entity struct {
		Text string `json:"text"`
		Type string `json:"type,omitempty"`
	}

	input := `[{text:'battery'},{text:'resistor',}]`
	var got []entity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "battery" || got[1].Text != "resistor" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want battery and resistor", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type entity struct {
		Text string `json:"text"`
	}

	var got entity
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_ExtractionPayloads(t *testing.T) {
	type extraction struct {
		Entities []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"entities"`
		Relations []struct {
			Subject  string `json:"subject"`
			Relation string `json:"relation"`
			Object   string `json:"object"`
		} `json:"relations"`
	}

	tests := []struct {
		name          string
		input         string
		wantEntities  int
		wantRelations int
	}{
		{
			name:          "clean payload",
			input:         `{"entities":[{"text":"battery","type":"component"},{"text":"12 V","type":"quantity"}],"relations":[{"subject":"battery","relation":"has_value","object":"12 V"}]}`,
			wantEntities:  2,
			wantRelations: 1,
		},
		{
			name:          "stringified payload with newlines",
			input:         `"{\n  \"entities\": [{\"text\": \"spring\", \"type\": \"object\"}],\n  \"relations\": []\n}"`,
			wantEntities:  1,
			wantRelations: 0,
		},
		{
			name:          "single quoted keys",
			input:         `{entities: [{text: 'incline', type: 'parameter'}], relations: []}`,
			wantEntities:  1,
			wantRelations: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got extraction
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if len(got.Entities) != tc.wantEntities {
				t.Fatalf("entities got = %d, want %d (%+v)", len(got.Entities), tc.wantEntities, got)
			}
			if len(got.Relations) != tc.wantRelations {
				t.Fatalf("relations got = %d, want %d (%+v)", len(got.Relations), tc.wantRelations, got)
			}
		})
	}
}

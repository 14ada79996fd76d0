package common

// ExtractedEntity is one entity mention reported by an extraction adapter,
// before fusion assigns it a stable node identity.
type ExtractedEntity struct {
	Text       string            `json:"text"`
	Type       NodeType          `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ExtractedRelation is one (subject, relation, object) triple reported by an
// extraction adapter. Subject and object are entity texts, not node ids;
// fusion resolves or creates the endpoints.
type ExtractedRelation struct {
	Subject  string       `json:"subject"`
	Relation RelationType `json:"relation"`
	Object   string       `json:"object"`
	Label    string       `json:"label,omitempty"`
}

// Extraction is the complete output of one adapter for one statement.
// Confidence applies to every entity and relation in the payload.
type Extraction struct {
	Entities   []ExtractedEntity   `json:"entities"`
	Relations  []ExtractedRelation `json:"relations"`
	Confidence float64             `json:"confidence"`
}

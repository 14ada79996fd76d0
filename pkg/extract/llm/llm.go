package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/ai"
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

// ExtractorName is the registry and provenance name of the model-backed
// extractor.
const ExtractorName = "llm"

const (
	// Schema-constrained model output still gets a confidence below 1 so
	// scanner facts outrank hallucinated values during fusion.
	modelConfidence = 0.8

	defaultChunkTokens = 2000
	defaultMaxRetries  = 2

	encodingName = "o200k_base"
)

type entityDTO struct {
	Text string `json:"text" jsonschema_description:"Entity text exactly as it appears in the statement."`
	Type string `json:"type" jsonschema:"enum=object,enum=component,enum=quantity,enum=concept,enum=force,enum=parameter" jsonschema_description:"Classification of the entity."`
}

type relationDTO struct {
	Subject  string `json:"subject" jsonschema_description:"Text of the subject entity."`
	Relation string `json:"relation" jsonschema:"enum=related_to,enum=has_value,enum=has_unit,enum=part_of,enum=connected_to,enum=acts_on,enum=causes" jsonschema_description:"Relation between subject and object."`
	Object   string `json:"object" jsonschema_description:"Text of the object entity."`
}

type extractionDTO struct {
	Entities  []entityDTO   `json:"entities" jsonschema_description:"All entities mentioned in the statement."`
	Relations []relationDTO `json:"relations" jsonschema_description:"All relations between the entities."`
}

// Extractor asks a model for schema-constrained entities and relations.
// Long statements are split into token-bounded chunks; later chunks see the
// entity labels found so far so mentions merge across chunks.
type Extractor struct {
	client      ai.ModelClient
	model       string
	chunkTokens int
	maxRetries  int

	split func(text string, budget int) ([]string, error)
}

// NewExtractorParams contains configuration options for creating an
// Extractor. Client is required; zero values elsewhere fall back to
// defaults.
type NewExtractorParams struct {
	Client      ai.ModelClient
	Model       string
	ChunkTokens int
	MaxRetries  int
}

// NewExtractor creates a model-backed extractor over the given client.
func NewExtractor(params NewExtractorParams) *Extractor {
	chunkTokens := params.ChunkTokens
	if chunkTokens <= 0 {
		chunkTokens = defaultChunkTokens
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Extractor{
		client:      params.Client,
		model:       params.Model,
		chunkTokens: chunkTokens,
		maxRetries:  maxRetries,
		split:       chunkByTokens,
	}
}

func (e *Extractor) Name() string {
	return ExtractorName
}

func (e *Extractor) Extract(ctx context.Context, text string) (common.Extraction, error) {
	if e.client == nil {
		return common.Extraction{}, fmt.Errorf("llm extractor: no model client configured")
	}

	chunks, err := e.split(text, e.chunkTokens)
	if err != nil {
		return common.Extraction{}, fmt.Errorf("llm extractor: chunk statement: %w", err)
	}

	extraction := common.Extraction{Confidence: modelConfidence}
	seenEntity := make(map[string]bool)
	seenRelation := make(map[string]bool)
	var knownLabels []string

	for i, chunk := range chunks {
		prompt := fmt.Sprintf(ai.ExtractionPrompt, chunk)
		if i > 0 {
			prompt = fmt.Sprintf(ai.ExtractionChunkPrompt, formatKnown(knownLabels), chunk)
		}

		var dto extractionDTO
		err := util.RetryErrWithContext(ctx, e.maxRetries, func(ctx context.Context) error {
			dto = extractionDTO{}
			return e.client.GenerateCompletionWithFormat(
				ctx,
				"extraction",
				"Entities and relations extracted from a problem statement.",
				prompt,
				&dto,
				e.generateOptions()...,
			)
		})
		if err != nil {
			return common.Extraction{}, fmt.Errorf("llm extractor: chunk %d/%d: %w", i+1, len(chunks), err)
		}

		knownLabels = mergeChunk(&extraction, dto, seenEntity, seenRelation, knownLabels)
	}

	if len(chunks) > 1 {
		logger.Debug("[Extract] model extraction merged",
			"chunks", len(chunks),
			"entities", len(extraction.Entities),
			"relations", len(extraction.Relations),
		)
	}
	return extraction, nil
}

func (e *Extractor) generateOptions() []ai.GenerateOption {
	if e.model == "" {
		return nil
	}
	return []ai.GenerateOption{ai.WithModel(e.model)}
}

// mergeChunk folds one chunk's results into the running extraction,
// deduplicating across chunks, and returns the updated known-label list.
func mergeChunk(
	extraction *common.Extraction,
	dto extractionDTO,
	seenEntity map[string]bool,
	seenRelation map[string]bool,
	knownLabels []string,
) []string {
	for _, entity := range dto.Entities {
		text := strings.TrimSpace(entity.Text)
		if text == "" {
			continue
		}
		nodeType := common.NodeType(entity.Type)
		if !nodeType.Valid() {
			nodeType = common.NodeObject
		}
		key := strings.ToLower(text) + "|" + string(nodeType)
		if seenEntity[key] {
			continue
		}
		seenEntity[key] = true
		extraction.Entities = append(extraction.Entities, common.ExtractedEntity{
			Text: text,
			Type: nodeType,
		})
		knownLabels = append(knownLabels, text)
	}

	for _, relation := range dto.Relations {
		subject := strings.TrimSpace(relation.Subject)
		object := strings.TrimSpace(relation.Object)
		if subject == "" || object == "" {
			continue
		}
		relType := common.RelationType(relation.Relation)
		if !relType.Valid() {
			relType = common.RelRelatedTo
		}
		key := strings.ToLower(subject) + "|" + string(relType) + "|" + strings.ToLower(object)
		if seenRelation[key] {
			continue
		}
		seenRelation[key] = true
		extraction.Relations = append(extraction.Relations, common.ExtractedRelation{
			Subject:  subject,
			Relation: relType,
			Object:   object,
		})
	}

	return knownLabels
}

func formatKnown(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s\n", label)
	}
	return b.String()
}

// chunkByTokens splits text into pieces of at most budget tokens, cutting
// at sentence boundaries where possible. A single oversized sentence is
// split hard at the token budget.
func chunkByTokens(text string, budget int) ([]string, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if len(enc.Encode(text, nil, nil)) <= budget {
		return []string{text}, nil
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	for _, sentence := range splitSentences(text) {
		tokens := len(enc.Encode(sentence, nil, nil))

		if tokens > budget {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
				currentTokens = 0
			}
			chunks = append(chunks, hardSplit(enc, sentence, budget)...)
			continue
		}

		if currentTokens+tokens > budget && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks, nil
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func hardSplit(enc *tiktoken.Tiktoken, sentence string, budget int) []string {
	tokens := enc.Encode(sentence, nil, nil)
	var chunks []string
	for start := 0; start < len(tokens); start += budget {
		end := min(start+budget, len(tokens))
		chunks = append(chunks, enc.Decode(tokens[start:end]))
	}
	return chunks
}

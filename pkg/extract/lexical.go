package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/skizzehq/skizze/pkg/common"
)

// LexicalName is the registry and provenance name of the built-in
// phrase-pattern extractor.
const LexicalName = "lexical"

// Pattern matches are heuristic; fusion weighs them below the quantity
// scanner and the model extractor.
const lexicalConfidence = 0.6

// npSubject is the left-hand noun phrase: up to four words, matched lazily
// so the phrase closest to the verb wins. Words start with a letter but may
// carry digits, so designators like "r1" match.
const npSubject = `((?:[a-z][a-z0-9-]*\s+){0,3}?[a-z][a-z0-9-]*)`

// npObject is the right-hand noun phrase. Nothing anchors it on the right,
// so it matches greedily and wide enough to swallow comma/and lists, which
// splitConjunction takes apart afterwards.
const npObject = `((?:[a-z][a-z0-9-]*,?\s+){0,7}[a-z][a-z0-9-]*)`

var phrasePatterns = []struct {
	re       *regexp.Regexp
	relation common.RelationType
	label    string
	flip     bool
}{
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?connected\s+(?:to|with)\s+` + npObject), relation: common.RelConnectedTo},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?(?:wired|joined)\s+to\s+` + npObject), relation: common.RelConnectedTo},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?in\s+series\s+with\s+` + npObject), relation: common.RelConnectedTo, label: "series"},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?in\s+parallel\s+with\s+` + npObject), relation: common.RelConnectedTo, label: "parallel"},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?(?:attached|fixed|anchored|tied)\s+to\s+` + npObject), relation: common.RelConnectedTo, label: "attached"},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:hangs?|is\s+suspended)\s+from\s+` + npObject), relation: common.RelConnectedTo, label: "suspended"},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+acts?\s+on\s+` + npObject), relation: common.RelActsOn},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:pushes|pulls|accelerates|decelerates)\s+` + npObject), relation: common.RelActsOn},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:is\s+|are\s+)?(?:a\s+|an\s+)?part\s+of\s+` + npObject), relation: common.RelPartOf},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+consists?\s+of\s+` + npObject), relation: common.RelPartOf, flip: true},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:contains?|includes?|comprises?)\s+` + npObject), relation: common.RelPartOf, flip: true},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:causes?|produces?|induces?)\s+` + npObject), relation: common.RelCauses},
	{re: regexp.MustCompile(`(?i)\b` + npSubject + `\s+(?:rests?|sits?|lies?|stands?|is\s+placed)\s+on\s+` + npObject), relation: common.RelRelatedTo, label: "on"},
}

// typeLexicon types the words the pattern extractor is confident about.
// Everything else stays untyped so fusion can adopt a better source's type.
var typeLexicon = map[string]common.NodeType{
	"battery":   common.NodeComponent,
	"resistor":  common.NodeComponent,
	"capacitor": common.NodeComponent,
	"inductor":  common.NodeComponent,
	"switch":    common.NodeComponent,
	"wire":      common.NodeComponent,
	"lamp":      common.NodeComponent,
	"bulb":      common.NodeComponent,
	"diode":     common.NodeComponent,
	"voltmeter": common.NodeComponent,
	"ammeter":   common.NodeComponent,
	"circuit":   common.NodeObject,
	"block":     common.NodeObject,
	"ball":      common.NodeObject,
	"cart":      common.NodeObject,
	"beam":      common.NodeObject,
	"spring":    common.NodeObject,
	"rope":      common.NodeObject,
	"string":    common.NodeObject,
	"pulley":    common.NodeObject,
	"incline":   common.NodeObject,
	"ramp":      common.NodeObject,
	"pendulum":  common.NodeObject,
	"table":     common.NodeObject,
	"wall":      common.NodeObject,
	"ground":    common.NodeObject,
	"floor":     common.NodeObject,
	"ceiling":   common.NodeObject,
	"gravity":   common.NodeForce,
	"friction":  common.NodeForce,
	"tension":   common.NodeForce,
	"weight":    common.NodeForce,
	"force":     common.NodeForce,
}

var lexArticles = map[string]bool{
	"a": true, "an": true, "the": true, "its": true, "this": true,
	"that": true, "each": true, "both": true, "another": true, "one": true,
	"two": true, "second": true, "first": true, "ideal": true, "small": true,
	"large": true, "heavy": true, "light": true,
}

// Lexical is a dependency-free extractor that reads relation triples off
// fixed verb-phrase patterns. It reports entities only for endpoints its
// lexicon can type; everything else resolves against other sources' nodes
// during fusion.
type Lexical struct{}

// NewLexical returns the built-in phrase-pattern extractor.
func NewLexical() *Lexical {
	return &Lexical{}
}

func (l *Lexical) Name() string {
	return LexicalName
}

func (l *Lexical) Extract(ctx context.Context, text string) (common.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return common.Extraction{}, err
	}

	extraction := common.Extraction{Confidence: lexicalConfidence}
	seenEntity := make(map[string]bool)
	seenRelation := make(map[string]bool)

	for _, pattern := range phrasePatterns {
		for _, match := range pattern.re.FindAllStringSubmatch(text, -1) {
			subjects := splitConjunction(match[1])
			objects := splitConjunction(match[2])
			if pattern.flip {
				subjects, objects = objects, subjects
			}
			for _, subject := range subjects {
				for _, object := range objects {
					if subject == "" || object == "" || subject == object {
						continue
					}
					addLexEntity(&extraction, seenEntity, subject)
					addLexEntity(&extraction, seenEntity, object)

					key := subject + "|" + string(pattern.relation) + "|" + object + "|" + pattern.label
					if seenRelation[key] {
						continue
					}
					seenRelation[key] = true
					extraction.Relations = append(extraction.Relations, common.ExtractedRelation{
						Subject:  subject,
						Relation: pattern.relation,
						Object:   object,
						Label:    pattern.label,
					})
				}
			}
		}
	}

	return extraction, nil
}

// addLexEntity reports an endpoint as an entity only when the lexicon knows
// its type.
func addLexEntity(extraction *common.Extraction, seen map[string]bool, label string) {
	nodeType, ok := lookupType(label)
	if !ok || seen[label] {
		return
	}
	seen[label] = true
	extraction.Entities = append(extraction.Entities, common.ExtractedEntity{
		Text: label,
		Type: nodeType,
	})
}

// lookupType matches the full label first and falls back to its head noun,
// so "ideal battery" still types as a component.
func lookupType(label string) (common.NodeType, bool) {
	if t, ok := typeLexicon[label]; ok {
		return t, true
	}
	words := strings.Fields(label)
	if len(words) > 1 {
		if t, ok := typeLexicon[words[len(words)-1]]; ok {
			return t, true
		}
	}
	return "", false
}

var reConjunction = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)

// splitConjunction turns "a battery and two resistors" into separate
// cleaned endpoint labels.
func splitConjunction(phrase string) []string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	parts := reConjunction.Split(phrase, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := cleanEndpoint(part)
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// boundaryWords end an endpoint label: the greedy object capture can run
// past the noun phrase into a trailing clause.
var boundaryWords = map[string]bool{
	"in": true, "on": true, "at": true, "of": true, "with": true,
	"from": true, "to": true, "for": true, "near": true, "between": true,
	"through": true, "that": true, "which": true, "is": true, "are": true,
	"was": true, "were": true, "shown": true, "given": true, "as": true,
}

// cleanEndpoint drops leading articles, determiners and stray single
// letters (unit symbols picked up next to a noun), then cuts the label at
// the first boundary word.
func cleanEndpoint(label string) string {
	words := strings.Fields(label)
	for len(words) > 0 && (lexArticles[words[0]] || len(words[0]) == 1) {
		words = words[1:]
	}
	for i, word := range words {
		if boundaryWords[word] {
			words = words[:i]
			break
		}
	}
	return strings.Join(words, " ")
}

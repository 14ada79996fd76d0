package fusion

import (
	"regexp"
	"strings"

	"github.com/skizzehq/skizze/pkg/common"
)

// Assignment form: "V = 12 V", "R1 = 4.7 kΩ", "m=5kg". The unit is optional;
// a quantity without one is surfaced later by the missing-unit gap rule.
var reAssignment = regexp.MustCompile(`(?m)\b([A-Za-zα-ωΑ-Ω][A-Za-z0-9_]{0,7})\s*=\s*(-?\d+(?:\.\d+)?)\s*([A-Za-zΩµ°%][A-Za-z0-9µΩ°%/^]*)?`)

// Narrative form: "a resistance of 10 Ω", "mass of 5 kg".
var reNarrative = regexp.MustCompile(`(?i)\b((?:[a-z][a-z-]*\s+){0,3}?[a-z][a-z-]*)\s+of\s+(-?\d+(?:\.\d+)?)\s*([A-Za-zΩµ°%][A-Za-z0-9µΩ°%/^]*)?`)

var articles = map[string]bool{"a": true, "an": true, "the": true, "with": true, "has": true, "have": true}

// stopLabels filters narrative matches that are grammar, not measurements
// ("consists of 3 parts").
var stopLabels = map[string]bool{"consists": true, "made": true, "composed": true, "because": true, "instead": true, "out": true}

// symbolComponents maps a quantity symbol's leading letter to the component
// that conventionally carries the value.
var symbolComponents = map[string]string{
	"v": "voltage source",
	"u": "voltage source",
	"i": "current source",
	"r": "resistor",
	"c": "capacitor",
	"l": "inductor",
	"m": "body",
	"f": "force",
	"g": "gravity",
}

// propertyComponents maps a narrative measurement name to the component it
// implies ("a resistance of 10 Ω" implies a resistor).
var propertyComponents = map[string]string{
	"resistance":  "resistor",
	"voltage":     "voltage source",
	"current":     "current source",
	"capacitance": "capacitor",
	"inductance":  "inductor",
	"mass":        "body",
	"weight":      "body",
	"force":       "force",
	"length":      "segment",
	"radius":      "circle",
	"height":      "body",
	"speed":       "body",
	"velocity":    "body",
	"charge":      "particle",
	"pressure":    "gas",
	"volume":      "container",
	"temperature": "body",
}

// unitConcepts maps a lowercased unit token to its canonical concept label.
// Unknown units pass through unchanged.
var unitConcepts = map[string]string{
	"v":   "volt",
	"a":   "ampere",
	"ω":   "ohm",
	"ohm": "ohm",
	"f":   "farad",
	"h":   "henry",
	"w":   "watt",
	"j":   "joule",
	"n":   "newton",
	"pa":  "pascal",
	"hz":  "hertz",
	"kg":  "kilogram",
	"g":   "gram",
	"m":   "metre",
	"cm":  "centimetre",
	"km":  "kilometre",
	"s":   "second",
	"k":   "kelvin",
	"°":   "degree",
	"deg": "degree",
	"%":   "percent",
}

var siPrefixes = []string{"k", "m", "µ", "u", "n", "p", "g", "t"}

// unitStopwords are word tokens the unit capture group can swallow that are
// grammar, not units ("n = 3 in the following").
var unitStopwords = map[string]bool{
	"in": true, "the": true, "and": true, "at": true, "is": true, "of": true,
	"on": true, "for": true, "to": true, "as": true, "by": true, "or": true,
	"with": true, "from": true, "then": true, "that": true, "units": true,
}

// ScanTextQuantities is the deterministic, dependency-free lexical pass over
// the problem statement. It recognizes "symbol = value unit" assignments and
// "<label> of <value> <unit>" narrative phrases, emitting canonical Quantity
// nodes linked to inferred Component and Unit-Concept nodes.
func ScanTextQuantities(text string) common.Extraction {
	extraction := common.Extraction{Confidence: ScannerConfidence}
	seen := make(map[string]bool)

	for _, match := range reAssignment.FindAllStringSubmatch(text, -1) {
		symbol, value, unit := match[1], match[2], strings.TrimSpace(match[3])
		leading := strings.ToLower(string([]rune(symbol)[0]))
		appendQuantity(&extraction, seen, symbol, value, unit, symbolComponents[leading])
	}

	for _, match := range reNarrative.FindAllStringSubmatch(text, -1) {
		label, value, unit := narrativeLabel(match[1]), match[2], strings.TrimSpace(match[3])
		if label == "" {
			continue
		}
		appendQuantity(&extraction, seen, label, value, unit, propertyComponents[label])
	}

	return extraction
}

func appendQuantity(extraction *common.Extraction, seen map[string]bool, label, value, unit, component string) {
	key := normalizeLabel(label)
	if key == "" || seen[key] {
		return
	}
	seen[key] = true

	if unitStopwords[strings.ToLower(unit)] {
		unit = ""
	}

	properties := map[string]string{"value": value}
	if unit != "" {
		properties["unit"] = unit
	}
	extraction.Entities = append(extraction.Entities, common.ExtractedEntity{
		Text:       label,
		Type:       common.NodeQuantity,
		Properties: properties,
	})

	if component != "" && normalizeLabel(component) != key {
		extraction.Entities = append(extraction.Entities, common.ExtractedEntity{
			Text: component,
			Type: common.NodeComponent,
		})
		extraction.Relations = append(extraction.Relations, common.ExtractedRelation{
			Subject:  component,
			Relation: common.RelHasValue,
			Object:   label,
		})
	}

	if unit != "" {
		concept := canonicalUnit(unit)
		extraction.Entities = append(extraction.Entities, common.ExtractedEntity{
			Text: concept,
			Type: common.NodeConcept,
		})
		extraction.Relations = append(extraction.Relations, common.ExtractedRelation{
			Subject:  label,
			Relation: common.RelHasUnit,
			Object:   concept,
		})
	}
}

// canonicalUnit maps a unit token to its concept label, trying an SI-prefix
// strip when the token itself is unknown ("kΩ" resolves to ohm).
func canonicalUnit(unit string) string {
	lowered := strings.ToLower(unit)
	if concept, ok := unitConcepts[lowered]; ok {
		return concept
	}
	for _, prefix := range siPrefixes {
		if strings.HasPrefix(lowered, prefix) && len(lowered) > len(prefix) {
			if concept, ok := unitConcepts[lowered[len(prefix):]]; ok {
				return concept
			}
		}
	}
	return unit
}

// narrativeLabel cleans a captured measurement phrase. The capture starts at
// the leftmost word that still matches, so it drags in whatever noun phrase
// precedes the determiner ("a block with a mass" for "mass"). Only the words
// after the last determiner name the measurement; a grammar-verb tail means
// the match was never a measurement at all.
func narrativeLabel(phrase string) string {
	words := strings.Fields(strings.ToLower(phrase))
	start := 0
	for i, word := range words {
		if articles[word] {
			start = i + 1
		}
	}
	words = words[start:]
	if len(words) == 0 || stopLabels[words[len(words)-1]] {
		return ""
	}
	return strings.Join(words, " ")
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

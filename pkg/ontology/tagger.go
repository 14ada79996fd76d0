package ontology

import (
	"sort"
	"strings"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
	"github.com/skizzehq/skizze/pkg/logger"
)

// uriPrefix is the scheme every concept URI in the curated table starts with.
// URIs have the shape skizze:onto/<domain>/<concept>.
const uriPrefix = "skizze:onto/"

// tagEntry maps a label keyword to the concept URI it implies. Matching is a
// case-insensitive substring test, so several keywords may map to one URI.
type tagEntry struct {
	keyword string
	uri     string
}

// tagTable is the curated keyword→concept table. Ordered so tags attach in a
// stable sequence; AppendTags dedupes by URI.
var tagTable = []tagEntry{
	// electrical
	{"resistor", uriPrefix + "electrical/resistor"},
	{"resistance", uriPrefix + "electrical/resistance"},
	{"ohm", uriPrefix + "electrical/resistance"},
	{"battery", uriPrefix + "electrical/battery"},
	{"voltage", uriPrefix + "electrical/voltage"},
	{"volt", uriPrefix + "electrical/voltage"},
	{"current source", uriPrefix + "electrical/current"},
	{"ampere", uriPrefix + "electrical/current"},
	{"capacitor", uriPrefix + "electrical/capacitor"},
	{"farad", uriPrefix + "electrical/capacitance"},
	{"inductor", uriPrefix + "electrical/inductor"},
	{"henry", uriPrefix + "electrical/inductance"},
	{"circuit", uriPrefix + "electrical/circuit"},
	{"switch", uriPrefix + "electrical/switch"},
	{"wire", uriPrefix + "electrical/wire"},
	{"diode", uriPrefix + "electrical/diode"},

	// mechanics
	{"mass", uriPrefix + "mechanics/mass"},
	{"kilogram", uriPrefix + "mechanics/mass"},
	{"force", uriPrefix + "mechanics/force"},
	{"newton", uriPrefix + "mechanics/force"},
	{"spring", uriPrefix + "mechanics/spring"},
	{"friction", uriPrefix + "mechanics/friction"},
	{"gravity", uriPrefix + "mechanics/gravity"},
	{"pendulum", uriPrefix + "mechanics/pendulum"},
	{"velocity", uriPrefix + "mechanics/velocity"},
	{"acceleration", uriPrefix + "mechanics/acceleration"},
	{"incline", uriPrefix + "mechanics/incline"},
	{"pulley", uriPrefix + "mechanics/pulley"},
	{"block", uriPrefix + "mechanics/body"},
	{"body", uriPrefix + "mechanics/body"},

	// geometry
	{"triangle", uriPrefix + "geometry/triangle"},
	{"circle", uriPrefix + "geometry/circle"},
	{"radius", uriPrefix + "geometry/circle"},
	{"rectangle", uriPrefix + "geometry/rectangle"},
	{"square", uriPrefix + "geometry/square"},
	{"angle", uriPrefix + "geometry/angle"},
	{"vertex", uriPrefix + "geometry/vertex"},
	{"polygon", uriPrefix + "geometry/polygon"},
	{"segment", uriPrefix + "geometry/segment"},
}

// MatchTags returns the concept URIs implied by a label, deduplicated and in
// table order.
func MatchTags(label string) []string {
	lowered := strings.ToLower(label)
	var uris []string
	seen := make(map[string]bool)
	for _, entry := range tagTable {
		if !strings.Contains(lowered, entry.keyword) {
			continue
		}
		if seen[entry.uri] {
			continue
		}
		seen[entry.uri] = true
		uris = append(uris, entry.uri)
	}
	return uris
}

// AppendTags merges new URIs into an existing tag list, preserving order and
// skipping URIs already present. Tags are append-only; enrichment never
// removes or rewrites a tag.
func AppendTags(existing, uris []string) ([]string, int) {
	seen := make(map[string]bool, len(existing))
	for _, uri := range existing {
		seen[uri] = true
	}
	added := 0
	for _, uri := range uris {
		if seen[uri] {
			continue
		}
		seen[uri] = true
		existing = append(existing, uri)
		added++
	}
	return existing, added
}

// Enrich tags every node in the graph whose label matches the curated table.
// Runs between fusion and Finalize; it touches tag lists only and returns the
// number of tags attached.
func Enrich(g *graph.Graph) (int, error) {
	total := 0
	for _, node := range g.Nodes() {
		uris := MatchTags(node.Label)
		if len(uris) == 0 {
			continue
		}
		tags, added := AppendTags(node.Metadata.OntologyTags, uris)
		if added == 0 {
			continue
		}
		node.Metadata.OntologyTags = tags
		if err := g.UpdateNode(node); err != nil {
			return total, err
		}
		total += added
	}
	logger.Debug("[Ontology] Enriched graph", "tags", total)
	return total, nil
}

// TagDomain extracts the domain segment from a concept URI, or "" when the
// URI does not use the skizze:onto scheme.
func TagDomain(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return ""
	}
	domain, _, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return domain
}

// DetectDomain infers the problem domain from the ontology tags of a
// finalized snapshot. The domain with the strictly highest tag count wins;
// ties and untagged graphs fall back to generic.
func DetectDomain(snapshot *graph.Snapshot) common.Domain {
	counts := make(map[string]int)
	for _, node := range snapshot.Nodes {
		for _, uri := range node.Metadata.OntologyTags {
			if domain := TagDomain(uri); domain != "" {
				counts[domain]++
			}
		}
	}
	if len(counts) == 0 {
		return common.DomainGeneric
	}

	domains := make([]string, 0, len(counts))
	for domain := range counts {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		if counts[domains[i]] != counts[domains[j]] {
			return counts[domains[i]] > counts[domains[j]]
		}
		return domains[i] < domains[j]
	})

	if len(domains) > 1 && counts[domains[0]] == counts[domains[1]] {
		return common.DomainGeneric
	}

	switch domains[0] {
	case string(common.DomainElectrical):
		return common.DomainElectrical
	case string(common.DomainMechanics):
		return common.DomainMechanics
	case string(common.DomainGeometry):
		return common.DomainGeometry
	}
	return common.DomainGeneric
}

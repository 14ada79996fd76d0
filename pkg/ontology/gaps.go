package ontology

import (
	"sort"
	"strings"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
	"github.com/skizzehq/skizze/pkg/logger"
)

// Rule names for the fixed gap queries. Reports are keyed by these.
const (
	RuleQuantityMissingUnit    = "quantity_missing_unit"
	RuleQuantityMissingValue   = "quantity_missing_value"
	RuleImpliedPropertyMissing = "implied_property_missing"
	RuleIsolatedNode           = "isolated_node"
)

// Report maps a gap rule name to the sorted ids of offending nodes. Rules
// with no offenders are absent from the map.
type Report map[string][]string

// Total returns the number of offending node entries across all rules.
func (r Report) Total() int {
	total := 0
	for _, ids := range r {
		total += len(ids)
	}
	return total
}

// impliedProperty links a label keyword to the property a node carrying that
// label is expected to have, directly or through a has_value edge.
type impliedProperty struct {
	keyword  string
	property string
}

var impliedProperties = []impliedProperty{
	{"resistor", "resistance"},
	{"battery", "voltage"},
	{"voltage source", "voltage"},
	{"current source", "current"},
	{"capacitor", "capacitance"},
	{"inductor", "inductance"},
	{"spring", "stiffness"},
	{"block", "mass"},
	{"body", "mass"},
}

// Analyze runs the fixed gap rules over a finalized snapshot and returns the
// report. Read-only: the snapshot is never touched.
func Analyze(snapshot *graph.Snapshot) Report {
	outgoing := outgoingRelations(snapshot)

	report := Report{}
	record := func(rule string, ids []string) {
		if len(ids) == 0 {
			return
		}
		sort.Strings(ids)
		report[rule] = ids
	}

	record(RuleQuantityMissingUnit, quantitiesMissingUnit(snapshot, outgoing))
	record(RuleQuantityMissingValue, quantitiesMissingValue(snapshot))
	record(RuleImpliedPropertyMissing, impliedPropertiesMissing(snapshot, outgoing))
	record(RuleIsolatedNode, append([]string(nil), snapshot.Isolated...))

	logger.Debug("[Ontology] Gap analysis", "rules", len(report), "findings", report.Total())
	return report
}

// outgoingRelations indexes which relation types leave each node.
func outgoingRelations(snapshot *graph.Snapshot) map[string]map[common.RelationType]bool {
	index := make(map[string]map[common.RelationType]bool)
	for _, edge := range snapshot.Edges {
		relations, ok := index[edge.SourceID]
		if !ok {
			relations = make(map[common.RelationType]bool)
			index[edge.SourceID] = relations
		}
		relations[edge.Relation] = true
	}
	return index
}

func quantitiesMissingUnit(snapshot *graph.Snapshot, outgoing map[string]map[common.RelationType]bool) []string {
	var ids []string
	for _, node := range snapshot.Nodes {
		if node.Type != common.NodeQuantity {
			continue
		}
		if node.Properties["unit"] != "" {
			continue
		}
		if outgoing[node.ID][common.RelHasUnit] {
			continue
		}
		ids = append(ids, node.ID)
	}
	return ids
}

func quantitiesMissingValue(snapshot *graph.Snapshot) []string {
	var ids []string
	for _, node := range snapshot.Nodes {
		if node.Type != common.NodeQuantity {
			continue
		}
		if node.Properties["value"] != "" {
			continue
		}
		ids = append(ids, node.ID)
	}
	return ids
}

// impliedPropertiesMissing flags objects and components whose label implies a
// property they neither carry directly nor reference through a has_value
// edge. Quantity and concept nodes are exempt; their labels name the property
// itself.
func impliedPropertiesMissing(snapshot *graph.Snapshot, outgoing map[string]map[common.RelationType]bool) []string {
	var ids []string
	for _, node := range snapshot.Nodes {
		if node.Type != common.NodeObject && node.Type != common.NodeComponent {
			continue
		}
		lowered := strings.ToLower(node.Label)
		for _, implied := range impliedProperties {
			if !strings.Contains(lowered, implied.keyword) {
				continue
			}
			if node.Properties[implied.property] != "" {
				continue
			}
			if outgoing[node.ID][common.RelHasValue] {
				continue
			}
			ids = append(ids, node.ID)
			break
		}
	}
	return ids
}

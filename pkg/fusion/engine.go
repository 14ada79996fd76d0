package fusion

import (
	"fmt"
	"sort"

	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
	"github.com/skizzehq/skizze/pkg/logger"
)

// ScannerSourceName identifies the built-in lexical quantity scanner in
// provenance records. The scanner is always available and carries the highest
// default confidence of any source.
const ScannerSourceName = "quantity-scanner"

// ScannerConfidence is the default confidence attached to scanner output.
const ScannerConfidence = 0.95

// Engine fuses the outputs of multiple extraction sources into one
// attributed knowledge graph. An engine is owned by a single request
// pipeline: ingestion is single-writer and the graph becomes visible to later
// stages only through the snapshot returned by Finalize.
//
// Ingestion is idempotent. Re-ingesting an identical payload from the same
// source changes nothing: nodes resolve to their existing identity, edges
// deduplicate, and provenance entries are recorded at most once per source.
type Engine struct {
	graph   *graph.Graph
	byLabel map[string]string
	// propConfidence tracks, per node and property key, the confidence of the
	// source whose value currently wins. Conflicting scalars resolve highest
	// confidence first; ties keep the first-seen value.
	propConfidence map[string]map[string]float64
	sources        []string
	finalized      bool
}

// NewEngine creates an empty fusion engine.
func NewEngine() *Engine {
	return &Engine{
		graph:          graph.New(),
		byLabel:        make(map[string]string),
		propConfidence: make(map[string]map[string]float64),
	}
}

// IngestSource merges one adapter's extraction into the graph. Malformed
// items inside the payload are logged as warnings and skipped; a bad item
// never aborts ingestion of the remaining items or sources. The returned
// error reports internal failures only (id generation), not payload quality.
func (e *Engine) IngestSource(name string, extraction common.Extraction) error {
	if e.finalized {
		return fmt.Errorf("fusion: engine already finalized")
	}
	if name == "" {
		return fmt.Errorf("fusion: source name is empty")
	}

	confidence := clamp01(extraction.Confidence)

	for _, entity := range extraction.Entities {
		if _, err := e.mergeEntity(name, entity, confidence); err != nil {
			if isMalformed(err) {
				logger.Warn("[Fusion] Skipping malformed entity", "source", name, "text", entity.Text, "error", err)
				continue
			}
			return err
		}
	}

	for _, relation := range extraction.Relations {
		if err := e.mergeRelation(name, relation, confidence); err != nil {
			if isMalformed(err) {
				logger.Warn("[Fusion] Skipping malformed relation", "source", name, "subject", relation.Subject, "object", relation.Object, "error", err)
				continue
			}
			return err
		}
	}

	e.recordSource(name)
	return nil
}

// ScanText runs the built-in lexical quantity scan over the statement and
// ingests the result. This source guarantees a non-empty graph whenever the
// statement mentions any quantity, even with every adapter absent or failed.
func (e *Engine) ScanText(text string) error {
	extraction := ScanTextQuantities(text)
	if len(extraction.Entities) == 0 {
		logger.Debug("[Fusion] Quantity scan found nothing")
		return nil
	}
	return e.IngestSource(ScannerSourceName, extraction)
}

// Finalize freezes the graph and returns its immutable snapshot with
// connected components and isolated-node candidates computed. After Finalize
// the engine rejects further ingestion.
func (e *Engine) Finalize() *graph.Snapshot {
	e.finalized = true
	snapshot := e.graph.Snapshot()
	logger.Debug("[Fusion] Finalized graph",
		"nodes", len(snapshot.Nodes),
		"edges", len(snapshot.Edges),
		"components", len(snapshot.Components),
	)
	return snapshot
}

// Graph exposes the still-mutable graph for the enrichment stage, which
// appends ontology tags before Finalize. Later stages get the snapshot only.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Sources returns the names of every source that contributed, sorted.
func (e *Engine) Sources() []string {
	sources := append([]string(nil), e.sources...)
	sort.Strings(sources)
	return sources
}

// NodeCount returns the current number of fused nodes.
func (e *Engine) NodeCount() int {
	return e.graph.NodeCount()
}

// EdgeCount returns the current number of fused edges.
func (e *Engine) EdgeCount() int {
	return e.graph.EdgeCount()
}

type malformedError struct{ reason string }

func (m malformedError) Error() string { return m.reason }

func isMalformed(err error) bool {
	_, ok := err.(malformedError)
	return ok
}

// mergeEntity resolves an extracted entity to a node, creating it when
// absent. On merge, new property keys are added, conflicting scalars resolve
// by confidence ordering (ties keep first-seen), and provenance appends at
// most once per source.
func (e *Engine) mergeEntity(source string, entity common.ExtractedEntity, confidence float64) (string, error) {
	if entity.Text == "" {
		return "", malformedError{"entity text is empty"}
	}
	nodeType := entity.Type
	if nodeType == "" {
		nodeType = common.NodeObject
	}
	if !nodeType.Valid() {
		return "", malformedError{fmt.Sprintf("unknown node type %q", nodeType)}
	}

	key := common.NodeKey(entity.Text, nodeType)
	if existing, ok := e.graph.NodeByKey(key); ok {
		return existing.ID, e.mergeInto(existing, source, entity.Properties, confidence)
	}

	id, err := util.NewID("node")
	if err != nil {
		return "", fmt.Errorf("fusion: generate node id: %w", err)
	}

	node, err := common.NewNode(id, nodeType, entity.Text)
	if err != nil {
		return "", malformedError{err.Error()}
	}
	for k, v := range entity.Properties {
		node.Properties[k] = v
	}
	node.Metadata.Provenance = []common.ProvenanceRecord{{SourceName: source, Confidence: confidence}}
	node.Metadata.Confidence = confidence

	if err := e.graph.AddNode(node); err != nil {
		return "", fmt.Errorf("fusion: add node: %w", err)
	}

	confidences := make(map[string]float64, len(entity.Properties))
	for k := range entity.Properties {
		confidences[k] = confidence
	}
	e.propConfidence[id] = confidences

	normalized := normalizeLabel(entity.Text)
	if _, ok := e.byLabel[normalized]; !ok {
		e.byLabel[normalized] = id
	}
	return id, nil
}

func (e *Engine) mergeInto(node common.Node, source string, properties map[string]string, confidence float64) error {
	confidences := e.propConfidence[node.ID]
	if confidences == nil {
		confidences = make(map[string]float64)
		e.propConfidence[node.ID] = confidences
	}

	for k, v := range properties {
		current, exists := node.Properties[k]
		switch {
		case !exists:
			node.Properties[k] = v
			confidences[k] = confidence
		case current == v:
			// Agreement from another source only strengthens the value.
			if confidence > confidences[k] {
				confidences[k] = confidence
			}
		case confidence > confidences[k]:
			node.Properties[k] = v
			confidences[k] = confidence
		}
	}

	node.Metadata.Provenance = appendProvenance(node.Metadata.Provenance, source, confidence)
	if confidence > node.Metadata.Confidence {
		node.Metadata.Confidence = confidence
	}
	return e.graph.UpdateNode(node)
}

// mergeRelation adds an edge for the triple, auto-creating placeholder
// Object nodes for missing endpoints. Conflicting relations from different
// sources on the same pair stay distinct edges.
func (e *Engine) mergeRelation(source string, relation common.ExtractedRelation, confidence float64) error {
	if relation.Subject == "" || relation.Object == "" {
		return malformedError{"relation endpoint text is empty"}
	}
	relType := relation.Relation
	if relType == "" {
		relType = common.RelRelatedTo
	}
	if !relType.Valid() {
		return malformedError{fmt.Sprintf("unknown relation type %q", relType)}
	}

	sourceID, err := e.resolveEndpoint(source, relation.Subject, confidence)
	if err != nil {
		return err
	}
	targetID, err := e.resolveEndpoint(source, relation.Object, confidence)
	if err != nil {
		return err
	}

	id, err := util.NewID("edge")
	if err != nil {
		return fmt.Errorf("fusion: generate edge id: %w", err)
	}
	edge, err := common.NewEdge(id, sourceID, targetID, relType, relation.Label)
	if err != nil {
		return malformedError{err.Error()}
	}
	edge.Weight = confidence
	edge.Metadata.Provenance = []common.ProvenanceRecord{{SourceName: source, Confidence: confidence}}
	edge.Metadata.Confidence = confidence

	storedID, created, err := e.graph.AddEdge(edge)
	if err != nil {
		return fmt.Errorf("fusion: add edge: %w", err)
	}
	if created {
		return nil
	}

	// The pair already carries this exact relation; fold the new source into
	// the stored edge instead of dropping it silently.
	stored, ok := e.graph.Edge(edge.Key())
	if !ok {
		return fmt.Errorf("fusion: stored edge %s vanished", storedID)
	}
	before := len(stored.Metadata.Provenance)
	stored.Metadata.Provenance = appendProvenance(stored.Metadata.Provenance, source, confidence)
	if len(stored.Metadata.Provenance) == before {
		// Same source re-ingested; idempotent no-op.
		return nil
	}
	stored.Weight = (stored.Weight + confidence) / 2
	if confidence > stored.Metadata.Confidence {
		stored.Metadata.Confidence = confidence
	}
	return e.graph.UpdateEdge(stored)
}

// resolveEndpoint maps a relation endpoint text to a node id. Endpoints
// resolve by normalized label across all node types; a miss creates a
// minimal placeholder Object node so the edge is never dangling.
func (e *Engine) resolveEndpoint(source, text string, confidence float64) (string, error) {
	normalized := normalizeLabel(text)
	if normalized == "" {
		return "", malformedError{"relation endpoint text is empty"}
	}
	if id, ok := e.byLabel[normalized]; ok {
		return id, nil
	}

	return e.mergeEntity(source, common.ExtractedEntity{
		Text: text,
		Type: common.NodeObject,
	}, confidence)
}

func (e *Engine) recordSource(name string) {
	for _, existing := range e.sources {
		if existing == name {
			return
		}
	}
	e.sources = append(e.sources, name)
}

func appendProvenance(records []common.ProvenanceRecord, source string, confidence float64) []common.ProvenanceRecord {
	for _, record := range records {
		if record.SourceName == source {
			return records
		}
	}
	return append(records, common.ProvenanceRecord{SourceName: source, Confidence: confidence})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package engine

import "fmt"

// Flow is a directed graph of typed nodes authored by a flow designer and
// activated against a session. Immutable once built by NewFlow.
type Flow struct {
	ID    string
	Name  string
	Nodes map[string]*Node

	edges    []Edge
	outEdges map[string][]Edge // from node id -> its outgoing edges, in author order
}

// NewFlow validates nodes and edges and builds the outgoing-edge index.
//
// Returns a *ConfigError (never a generic error) if any edge references a
// node id absent from nodes; this lets a caller log and skip only the
// offending flow rather than failing flow activation wholesale.
func NewFlow(id, name string, nodes []*Node, edges []Edge) (*Flow, error) {
	nodeMap := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		nodeMap[n.ID] = n
	}

	out := make(map[string][]Edge, len(nodeMap))
	for _, e := range edges {
		if _, ok := nodeMap[e.From]; !ok {
			return nil, &ConfigError{FlowID: id, NodeID: e.From, Reason: fmt.Sprintf("edge references unknown source node %q", e.From)}
		}
		if _, ok := nodeMap[e.To]; !ok {
			return nil, &ConfigError{FlowID: id, NodeID: e.To, Reason: fmt.Sprintf("edge references unknown target node %q", e.To)}
		}
		out[e.From] = append(out[e.From], e)
	}

	return &Flow{ID: id, Name: name, Nodes: nodeMap, edges: edges, outEdges: out}, nil
}

// EdgesFrom returns the outgoing edges of nodeID in authoring order.
func (f *Flow) EdgesFrom(nodeID string) []Edge {
	return f.outEdges[nodeID]
}

// EdgesFromHandle returns the outgoing edges of nodeID whose Handle equals
// handle.
func (f *Flow) EdgesFromHandle(nodeID, handle string) []Edge {
	all := f.outEdges[nodeID]
	var matched []Edge
	for _, e := range all {
		if e.Handle == handle {
			matched = append(matched, e)
		}
	}
	return matched
}

// ActiveFlow is a Flow activated against a session at a priority tier.
// Lower Priority wins on preemption: 0=global, 1=character, 2=persona.
type ActiveFlow struct {
	Flow     *Flow
	Priority int
}

const (
	PriorityGlobal    = 0
	PriorityCharacter = 1
	PriorityPersona   = 2
)

// FlowState tracks per-active-flow "once" bookkeeping for condition nodes
// (trigger fireOnlyOnce is tracked globally on Engine.fireOnceNodes instead,
// since spec.md §9 preserves the source behavior that fireOnlyOnce survives
// an emergencyStop but not a deactivateFlow; see control.go). Co-lives with
// its ActiveFlow: created on activation, discarded on deactivation.
type FlowState struct {
	ExecutedOnceConditions map[string]bool
}

// NewFlowState returns an empty FlowState.
func NewFlowState() *FlowState {
	return &FlowState{
		ExecutedOnceConditions: make(map[string]bool),
	}
}

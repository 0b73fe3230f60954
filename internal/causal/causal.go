package causal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FactType classifies the fact a node describes.
type FactType string

const (
	FactVariation FactType = "variacion"
	FactPermanent FactType = "permanente"
)

// NodeType is the role a node plays in the tree.
type NodeType string

const (
	FinalEvent   NodeType = "final_event"
	Intermediate NodeType = "intermediate"
	RootCause    NodeType = "root_cause"
)

// LinkType records how strongly a causal edge is asserted.
type LinkType string

const (
	LinkConfirmed LinkType = "confirmada"
	LinkProbable  LinkType = "probable"
	LinkDiscarded LinkType = "descartada"
)

// LinkTypes lists the known link types in cycling order.
var LinkTypes = []LinkType{LinkConfirmed, LinkProbable, LinkDiscarded}

// RelationType is derived from the parent count of a node, never stored.
type RelationType string

const (
	Chain       RelationType = "chain"
	Conjunctive RelationType = "conjunctive"
)

// Node is one fact or event in a causal tree. The tree is rooted at the final
// event: a node's parents are the effects it contributes to, so the final
// event has none and root causes sit at the leaves.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Numero      int      `json:"numero" yaml:"numero"`
	Fact        string   `json:"fact" yaml:"fact"`
	FactType    FactType `json:"factType" yaml:"factType"`
	NodeType    NodeType `json:"nodeType" yaml:"nodeType"`
	ParentNodes []string `json:"parentNodes" yaml:"parentNodes"`
}

// ParentLink is a causal edge from a parent node, tagged with its link type.
type ParentLink struct {
	ParentNodeID string   `json:"parentNodeId" yaml:"parentNodeId"`
	LinkType     LinkType `json:"linkType" yaml:"linkType"`
}

// Analysis is the node store of a single causal-tree analysis.
type Analysis struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

var (
	ErrNoFinalEvent         = errors.New("analysis has no final event")
	ErrMultipleFinalEvents  = errors.New("analysis has more than one final event")
	ErrFinalEventHasParents = errors.New("final event must not have parents")
	ErrDuplicateNode        = errors.New("duplicate node id")
	ErrUnknownParent        = errors.New("parent references unknown node")
	ErrInvalidType          = errors.New("invalid node or fact type")
	ErrNodeNotFound         = errors.New("node not found")
)

// Valid reports whether t is a known fact type.
func (t FactType) Valid() bool {
	return t == FactVariation || t == FactPermanent
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == FinalEvent || t == Intermediate || t == RootCause
}

// Valid reports whether l is a known link type.
func (l LinkType) Valid() bool {
	return l == LinkConfirmed || l == LinkProbable || l == LinkDiscarded
}

// Next returns the link type following l in LinkTypes, wrapping around.
// Unknown link types move to the first known one.
func (l LinkType) Next() LinkType {
	for i, lt := range LinkTypes {
		if lt == l {
			return LinkTypes[(i+1)%len(LinkTypes)]
		}
	}
	return LinkTypes[0]
}

// RelationFor derives the relation type from the number of parents.
func RelationFor(parents int) RelationType {
	if parents > 1 {
		return Conjunctive
	}
	return Chain
}

// HasParent reports whether id is one of n's parents.
func (n Node) HasParent(id string) bool {
	for _, p := range n.ParentNodes {
		if p == id {
			return true
		}
	}
	return false
}

// Label returns a short display label such as "#3 Worker slipped".
func (n Node) Label() string {
	fact := strings.TrimSpace(n.Fact)
	if n.Numero > 0 {
		return fmt.Sprintf("#%d %s", n.Numero, fact)
	}
	return fact
}

// Node returns the node with the given id.
func (a *Analysis) Node(id string) (*Node, error) {
	for i := range a.Nodes {
		if a.Nodes[i].ID == id {
			return &a.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

// FinalEvent returns the final event of the analysis, or nil if it has none.
func (a *Analysis) FinalEvent() *Node {
	for i := range a.Nodes {
		if a.Nodes[i].NodeType == FinalEvent {
			return &a.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes listing id as a parent (its causes), in store
// order.
func (a *Analysis) Children(id string) []Node {
	var out []Node
	for _, n := range a.Nodes {
		if n.HasParent(id) {
			out = append(out, n)
		}
	}
	return out
}

// Isolated returns the non-final nodes that have no parent and therefore hang
// off no branch of the tree.
func (a *Analysis) Isolated() []Node {
	var out []Node
	for _, n := range a.Nodes {
		if n.NodeType != FinalEvent && len(n.ParentNodes) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks the structural invariants of the analysis. All problems are
// returned joined; use errors.Is with the Err* sentinels to inspect them.
func (a *Analysis) Validate() error {
	var errs []error
	ids := make(map[string]bool, len(a.Nodes))
	finals := 0

	for _, n := range a.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("%w: empty id (numero %d)", ErrDuplicateNode, n.Numero))
			continue
		}
		if ids[n.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID))
		}
		ids[n.ID] = true
		if !n.NodeType.Valid() {
			errs = append(errs, fmt.Errorf("%w: node %s has node type %q", ErrInvalidType, n.ID, n.NodeType))
		}
		if !n.FactType.Valid() {
			errs = append(errs, fmt.Errorf("%w: node %s has fact type %q", ErrInvalidType, n.ID, n.FactType))
		}
		if n.NodeType == FinalEvent {
			finals++
			if len(n.ParentNodes) > 0 {
				errs = append(errs, fmt.Errorf("%w: %s", ErrFinalEventHasParents, n.ID))
			}
		}
	}

	switch {
	case finals == 0:
		errs = append(errs, ErrNoFinalEvent)
	case finals > 1:
		errs = append(errs, fmt.Errorf("%w: found %d", ErrMultipleFinalEvents, finals))
	}

	for _, n := range a.Nodes {
		for _, p := range n.ParentNodes {
			if !ids[p] {
				errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrUnknownParent, n.ID, p))
			}
		}
	}

	return errors.Join(errs...)
}

// Sorted returns the nodes ordered by Numero, then id.
func (a *Analysis) Sorted() []Node {
	out := make([]Node, len(a.Nodes))
	copy(out, a.Nodes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Numero != out[j].Numero {
			return out[i].Numero < out[j].Numero
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NextNumero returns the display sequence for a newly added node.
func (a *Analysis) NextNumero() int {
	max := 0
	for _, n := range a.Nodes {
		if n.Numero > max {
			max = n.Numero
		}
	}
	return max + 1
}

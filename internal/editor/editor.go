// Package editor holds the transient parent-selection state used while a
// causal node is being edited, and maps it to the update payload.
package editor

import (
	"sort"
	"strings"

	"github.com/msalah0e/causa/internal/causal"
	"go.uber.org/zap"
)

// UpdateNodeDTO is the payload sent to the update API for one node.
type UpdateNodeDTO struct {
	Fact         string              `json:"fact"`
	FactType     causal.FactType     `json:"factType"`
	NodeType     causal.NodeType     `json:"nodeType"`
	ParentNodes  []string            `json:"parentNodes"`
	ParentLinks  []causal.ParentLink `json:"parentLinks"`
	RelationType causal.RelationType `json:"relationType"`
}

// SubmitFunc receives the frozen selection for a node. Network I/O, retries
// and error reporting are its responsibility.
type SubmitFunc func(nodeID string, dto UpdateNodeDTO) error

// Session is the parent-selection state of one edit dialog.
type Session struct {
	node        *causal.Node
	candidates  []causal.Node
	selected    map[string]causal.LinkType
	defaultLink causal.LinkType
	strict      bool
	log         *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithDefaultLink sets the link type given to newly selected parents and to
// parents loaded on Open.
func WithDefaultLink(lt causal.LinkType) Option {
	return func(s *Session) {
		if lt != "" {
			s.defaultLink = lt
		}
	}
}

// WithStrictGuard excludes every transitive cause of the edited node from
// the candidates, not only its direct causes.
func WithStrictGuard(strict bool) Option {
	return func(s *Session) { s.strict = strict }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a closed session.
func New(opts ...Option) *Session {
	s := &Session{
		selected:    make(map[string]causal.LinkType),
		defaultLink: causal.LinkConfirmed,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts editing node against the full node set. Any previous selection
// is discarded and replaced by the node's current parents.
func (s *Session) Open(node causal.Node, existing []causal.Node) {
	n := node
	n.ParentNodes = append([]string(nil), node.ParentNodes...)
	s.node = &n

	if s.strict {
		s.candidates = causal.EligibleParentsStrict(existing, node)
	} else {
		s.candidates = causal.EligibleParents(existing, node)
	}

	s.selected = make(map[string]causal.LinkType, len(node.ParentNodes))
	for _, p := range node.ParentNodes {
		s.selected[p] = s.defaultLink
	}
	s.log.Debug("editor opened",
		zap.String("node", node.ID),
		zap.Int("parents", len(s.selected)),
		zap.Int("candidates", len(s.candidates)))
}

// IsOpen reports whether a node is being edited.
func (s *Session) IsOpen() bool {
	return s.node != nil
}

// Node returns the node being edited, or nil when closed.
func (s *Session) Node() *causal.Node {
	return s.node
}

// Candidates returns the nodes eligible as parents of the edited node.
func (s *Session) Candidates() []causal.Node {
	return s.candidates
}

// Toggle selects id with the default link type, or deselects it if it is
// already selected. It reports whether id is selected afterwards.
func (s *Session) Toggle(id string) bool {
	if !s.IsOpen() {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = s.defaultLink
	return true
}

// IsSelected reports whether id is a selected parent.
func (s *Session) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// LinkType returns the link type of a selected parent.
func (s *Session) LinkType(id string) (causal.LinkType, bool) {
	lt, ok := s.selected[id]
	return lt, ok
}

// SetLinkType changes the link type of a selected parent. It reports false
// when id is not selected.
func (s *Session) SetLinkType(id string, lt causal.LinkType) bool {
	if _, ok := s.selected[id]; !ok {
		return false
	}
	s.selected[id] = lt
	return true
}

// Selection returns a copy of the selection map.
func (s *Session) Selection() map[string]causal.LinkType {
	out := make(map[string]causal.LinkType, len(s.selected))
	for k, v := range s.selected {
		out[k] = v
	}
	return out
}

// Links returns the selected parents in candidate order. Parents that are
// not candidates (kept from the node's existing links) follow, sorted by id.
func (s *Session) Links() []causal.ParentLink {
	links := make([]causal.ParentLink, 0, len(s.selected))
	for _, c := range s.candidates {
		if lt, ok := s.selected[c.ID]; ok {
			links = append(links, causal.ParentLink{ParentNodeID: c.ID, LinkType: lt})
		}
	}
	for _, id := range s.Ineligible() {
		links = append(links, causal.ParentLink{ParentNodeID: id, LinkType: s.selected[id]})
	}
	return links
}

// Ineligible returns the selected parents that are not candidates, sorted
// by id. These come from the loaded node and fail the cycle guard; they can
// be deselected but not selected again.
func (s *Session) Ineligible() []string {
	eligible := make(map[string]bool, len(s.candidates))
	for _, c := range s.candidates {
		eligible[c.ID] = true
	}
	var ids []string
	for id := range s.selected {
		if !eligible[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Isolated reports whether the current selection would leave the node with
// no parent. The final event is never isolated. Advisory only.
func (s *Session) Isolated() bool {
	return s.IsOpen() && s.node.NodeType != causal.FinalEvent && len(s.selected) == 0
}

// Close discards the selection without submitting.
func (s *Session) Close() {
	if s.node != nil {
		s.log.Debug("editor closed", zap.String("node", s.node.ID))
	}
	s.node = nil
	s.candidates = nil
	s.selected = make(map[string]causal.LinkType)
}

// Submit maps the selection to an UpdateNodeDTO and hands it to onSubmit,
// then closes the session. It is a no-op when the session is closed or the
// fact is blank; the first return value reports whether onSubmit was called.
// The session closes once onSubmit returns, whatever its error.
func (s *Session) Submit(fact string, factType causal.FactType, nodeType causal.NodeType, onSubmit SubmitFunc) (bool, error) {
	if !s.IsOpen() || onSubmit == nil {
		return false, nil
	}
	dto, ok := BuildPayload(fact, factType, nodeType, s.Links())
	if !ok {
		s.log.Debug("submit blocked: empty fact", zap.String("node", s.node.ID))
		return false, nil
	}

	nodeID := s.node.ID
	s.log.Info("submitting node update",
		zap.String("node", nodeID),
		zap.Strings("parents", dto.ParentNodes),
		zap.String("relation", string(dto.RelationType)))

	err := onSubmit(nodeID, dto)
	s.Close()
	return true, err
}

// BuildPayload builds the update payload from the fact fields and the
// selected parent links. It returns false when fact is empty or whitespace.
func BuildPayload(fact string, factType causal.FactType, nodeType causal.NodeType, links []causal.ParentLink) (UpdateNodeDTO, bool) {
	if strings.TrimSpace(fact) == "" {
		return UpdateNodeDTO{}, false
	}
	parents := make([]string, len(links))
	for i, l := range links {
		parents[i] = l.ParentNodeID
	}
	return UpdateNodeDTO{
		Fact:         fact,
		FactType:     factType,
		NodeType:     nodeType,
		ParentNodes:  parents,
		ParentLinks:  append([]causal.ParentLink{}, links...),
		RelationType: causal.RelationFor(len(links)),
	}, true
}

// Package store reads and writes local analysis files, the offline
// counterpart of the backend node store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/editor"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported analysis file format")

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads an analysis from a .json, .yaml or .yml file.
func Load(path string) (*causal.Analysis, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a causal.Analysis
	switch f {
	case formatJSON:
		err = json.Unmarshal(data, &a)
	case formatYAML:
		err = yaml.Unmarshal(data, &a)
	}
	if err != nil {
		return nil, fmt.Errorf("analysis parse %s: %w", path, err)
	}
	if a.ID == "" {
		a.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &a, nil
}

// Save writes the analysis in the format implied by the file extension. The
// file is replaced atomically.
func Save(path string, a *causal.Analysis) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(a, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case formatYAML:
		data, err = yaml.Marshal(a)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".causa-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Apply writes an update payload onto the node with the given id. The
// update is checked against the rest of the analysis first: at most one
// final event, no parents on it, known parents, valid types. A rejected
// update leaves a unchanged.
func Apply(a *causal.Analysis, nodeID string, dto editor.UpdateNodeDTO) (causal.Node, error) {
	n, err := a.Node(nodeID)
	if err != nil {
		return causal.Node{}, err
	}
	if err := checkUpdate(a, nodeID, dto); err != nil {
		return causal.Node{}, err
	}
	n.Fact = dto.Fact
	n.FactType = dto.FactType
	n.NodeType = dto.NodeType
	n.ParentNodes = append([]string{}, dto.ParentNodes...)
	return *n, nil
}

func checkUpdate(a *causal.Analysis, nodeID string, dto editor.UpdateNodeDTO) error {
	if strings.TrimSpace(dto.Fact) == "" {
		return fmt.Errorf("fact cannot be empty")
	}
	if !dto.FactType.Valid() || !dto.NodeType.Valid() {
		return fmt.Errorf("%w: %s/%s", causal.ErrInvalidType, dto.FactType, dto.NodeType)
	}
	if dto.NodeType == causal.FinalEvent {
		if len(dto.ParentNodes) > 0 {
			return fmt.Errorf("%w: %s", causal.ErrFinalEventHasParents, nodeID)
		}
		if fe := a.FinalEvent(); fe != nil && fe.ID != nodeID {
			return fmt.Errorf("%w: %s is already the final event", causal.ErrMultipleFinalEvents, fe.Label())
		}
	}
	for _, p := range dto.ParentNodes {
		if p == nodeID {
			return fmt.Errorf("node %s cannot be its own parent", nodeID)
		}
		if _, err := a.Node(p); err != nil {
			return fmt.Errorf("%w: %s", causal.ErrUnknownParent, p)
		}
	}
	return nil
}

// AddNode appends a new node with a generated id and the next display
// sequence number.
func AddNode(a *causal.Analysis, fact string, factType causal.FactType, nodeType causal.NodeType, parents []string) (causal.Node, error) {
	if strings.TrimSpace(fact) == "" {
		return causal.Node{}, fmt.Errorf("fact cannot be empty")
	}
	if !factType.Valid() || !nodeType.Valid() {
		return causal.Node{}, fmt.Errorf("%w: %s/%s", causal.ErrInvalidType, factType, nodeType)
	}
	if nodeType == causal.FinalEvent && a.FinalEvent() != nil {
		return causal.Node{}, causal.ErrMultipleFinalEvents
	}
	for _, p := range parents {
		if _, err := a.Node(p); err != nil {
			return causal.Node{}, fmt.Errorf("%w: %s", causal.ErrUnknownParent, p)
		}
	}

	n := causal.Node{
		ID:          uuid.NewString(),
		Numero:      a.NextNumero(),
		Fact:        fact,
		FactType:    factType,
		NodeType:    nodeType,
		ParentNodes: append([]string{}, parents...),
	}
	a.Nodes = append(a.Nodes, n)
	return n, nil
}

// RemoveNode deletes a node and drops it from every parent list.
func RemoveNode(a *causal.Analysis, nodeID string) error {
	if _, err := a.Node(nodeID); err != nil {
		return err
	}
	kept := make([]causal.Node, 0, len(a.Nodes)-1)
	for _, n := range a.Nodes {
		if n.ID == nodeID {
			continue
		}
		parents := n.ParentNodes[:0:0]
		for _, p := range n.ParentNodes {
			if p != nodeID {
				parents = append(parents, p)
			}
		}
		n.ParentNodes = parents
		kept = append(kept, n)
	}
	a.Nodes = kept
	return nil
}

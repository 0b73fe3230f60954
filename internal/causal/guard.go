package causal

// EligibleParents returns the nodes that may be chosen as parents of current,
// in input order. It excludes current itself and any node that already lists
// current as a parent. Only direct two-node cycles are prevented; see
// EligibleParentsStrict for the transitive check.
func EligibleParents(existing []Node, current Node) []Node {
	out := make([]Node, 0, len(existing))
	for _, n := range existing {
		if n.ID == current.ID {
			continue
		}
		if n.HasParent(current.ID) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// EligibleParentsStrict is EligibleParents with every transitive descendant
// of current also excluded, so no selection can close a cycle of any length.
func EligibleParentsStrict(existing []Node, current Node) []Node {
	desc := Descendants(existing, current.ID)
	out := make([]Node, 0, len(existing))
	for _, n := range EligibleParents(existing, current) {
		if desc[n.ID] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Descendants returns the ids of all nodes whose chain of parents reaches id:
// its causes, their causes, and so on.
func Descendants(nodes []Node, id string) map[string]bool {
	children := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		for _, p := range n.ParentNodes {
			children[p] = append(children[p], n.ID)
		}
	}

	visited := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range children[current] {
			if visited[c] {
				continue
			}
			visited[c] = true
			queue = append(queue, c)
		}
	}
	delete(visited, id)
	return visited
}

// WouldCycle reports whether making parent a parent of child closes a cycle.
func WouldCycle(nodes []Node, child, parent string) bool {
	if child == parent {
		return true
	}
	return Descendants(nodes, child)[parent]
}

// HasCycle reports whether the parent links of nodes contain a cycle and
// returns one node on it.
func HasCycle(nodes []Node) (bool, string) {
	const (
		white = iota
		grey
		black
	)
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	color := make(map[string]int, len(nodes))

	var visit func(id string) (bool, string)
	visit = func(id string) (bool, string) {
		color[id] = grey
		for _, p := range byID[id].ParentNodes {
			if _, ok := byID[p]; !ok {
				continue
			}
			switch color[p] {
			case grey:
				return true, p
			case white:
				if found, at := visit(p); found {
					return true, at
				}
			}
		}
		color[id] = black
		return false, ""
	}

	for _, n := range nodes {
		if color[n.ID] == white {
			if found, at := visit(n.ID); found {
				return true, at
			}
		}
	}
	return false, ""
}

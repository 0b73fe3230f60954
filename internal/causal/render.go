package causal

import (
	"fmt"
	"strings"
)

// Style holds the colour functions used by RenderTree. Nil functions render
// text unchanged, so the zero Style draws without colour.
type Style struct {
	Brand  func(string) string
	Subtle func(string) string
	Info   func(string) string
	Warn   func(string) string
}

func (st Style) filled() Style {
	for _, f := range []*func(string) string{&st.Brand, &st.Subtle, &st.Info, &st.Warn} {
		if *f == nil {
			*f = func(s string) string { return s }
		}
	}
	return st
}

// RenderTree produces a terminal tree view rooted at the final event, with
// the causes of each node drawn beneath it. Nodes not reachable from the
// final event are listed afterwards.
func RenderTree(a *Analysis, st Style) string {
	st = st.filled()
	var b strings.Builder
	seen := make(map[string]bool)

	root := a.FinalEvent()
	if root == nil {
		b.WriteString(st.Warn("  (no final event)") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("  ● %s %s\n", st.Brand(root.Label()), st.Subtle("["+string(root.FactType)+"]")))
		seen[root.ID] = true
		renderCauses(&b, a, *root, "  ", map[string]bool{root.ID: true}, seen, st)
	}

	var rest []Node
	for _, n := range a.Sorted() {
		if !seen[n.ID] {
			rest = append(rest, n)
		}
	}
	if len(rest) > 0 {
		b.WriteString("\n")
		b.WriteString(st.Warn("  Detached from the tree:") + "\n")
		for _, n := range rest {
			b.WriteString(fmt.Sprintf("    %s %s\n", st.Info(n.Label()), st.Subtle("("+string(n.NodeType)+")")))
		}
	}
	return b.String()
}

func renderCauses(b *strings.Builder, a *Analysis, n Node, indent string, path, seen map[string]bool, st Style) {
	causes := a.Children(n.ID)
	for i, c := range causes {
		prefix, next := "├── ", "│   "
		if i == len(causes)-1 {
			prefix, next = "└── ", "    "
		}

		if path[c.ID] {
			b.WriteString(indent + prefix + st.Warn(c.Label()+" (cycle)") + "\n")
			continue
		}

		line := fmt.Sprintf("%s%s%s %s", indent, prefix, st.Info(c.Label()), st.Subtle("("+string(c.NodeType)+", "+string(c.FactType)+")"))
		if len(c.ParentNodes) > 1 {
			line += " " + st.Subtle(fmt.Sprintf("[%s: %d effects]", Conjunctive, len(c.ParentNodes)))
		}
		b.WriteString(line + "\n")

		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		path[c.ID] = true
		renderCauses(b, a, c, indent+next, path, seen, st)
		delete(path, c.ID)
	}
}

// ExportDOT returns the analysis in Graphviz DOT format with edges pointing
// from cause to effect.
func ExportDOT(a *Analysis) string {
	var b strings.Builder
	name := a.ID
	if name == "" {
		name = "causal_tree"
	}
	b.WriteString(fmt.Sprintf("digraph %q {\n", name))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, n := range a.Sorted() {
		attrs := fmt.Sprintf("label=%q", n.Label())
		switch {
		case n.NodeType == FinalEvent:
			attrs += ", peripheries=2"
		case n.FactType == FactPermanent:
			attrs += ", shape=ellipse"
		}
		b.WriteString(fmt.Sprintf("  %q [%s];\n", n.ID, attrs))
	}

	b.WriteString("\n")
	for _, n := range a.Sorted() {
		for _, p := range n.ParentNodes {
			b.WriteString(fmt.Sprintf("  %q -> %q;\n", n.ID, p))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

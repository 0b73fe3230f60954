package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/editor"
	"github.com/msalah0e/causa/internal/tui"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
)

func newSession() *editor.Session {
	return editor.New(
		editor.WithDefaultLink(cfg.LinkType()),
		editor.WithStrictGuard(cfg.Editor.StrictAcyclic),
		editor.WithLogger(logger.Named("editor")),
	)
}

func treeEditCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:               "edit <node>",
		Short:             "Edit a node's fact and causal links in an interactive dialog",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := src.open(ctx)
			if err != nil {
				return err
			}
			n, err := lookup(s.analysis, args[0])
			if err != nil {
				return err
			}

			var updated causal.Node
			m, err := tui.Run(tui.Props{
				Node:          *n,
				ExistingNodes: s.analysis.Nodes,
				Session:       newSession(),
				OnSubmit: func(nodeID string, dto editor.UpdateNodeDTO) error {
					var err error
					updated, err = s.update(ctx, nodeID, dto)
					return err
				},
			})
			if err != nil {
				return err
			}

			switch {
			case m.Cancelled():
				ui.Subtle.Println("  No changes.")
			case m.Submitted():
				printUpdated(updated, *m.Payload())
			}
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func treeLinkCmd() *cobra.Command {
	var (
		src      sourceFlags
		add      []string
		remove   []string
		fact     string
		factType string
		nodeType string
	)

	cmd := &cobra.Command{
		Use:   "link <node>",
		Short: "Change a node's parents without the interactive dialog",
		Long: `Change a node's parents without the interactive dialog.

Parents are given as <id> or <id>=<link type>:

  causa tree link a --file inc.yaml --add f --add b=probable
  causa tree link a --analysis 42 --remove c`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := src.open(ctx)
			if err != nil {
				return err
			}
			n, err := lookup(s.analysis, args[0])
			if err != nil {
				return err
			}

			sess := newSession()
			sess.Open(*n, s.analysis.Nodes)
			warnings, err := applyLinkFlags(sess, s.analysis, add, remove)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				ui.Warn.Printf("  %s %s\n", ui.WarnIcon(), w)
			}
			if sess.Isolated() {
				ui.Warn.Printf("  %s No parent selected: the node will be isolated from the tree\n", ui.WarnIcon())
			}

			if fact == "" {
				fact = n.Fact
			}
			ft, nt := n.FactType, n.NodeType
			if factType != "" {
				ft = causal.FactType(factType)
			}
			if nodeType != "" {
				nt = causal.NodeType(nodeType)
			}
			if !ft.Valid() || !nt.Valid() {
				return fmt.Errorf("%w: %s/%s", causal.ErrInvalidType, ft, nt)
			}

			return submitLink(ctx, s, sess, fact, ft, nt)
		},
	}
	src.register(cmd)
	cmd.Flags().StringArrayVar(&add, "add", nil, "Select a parent, optionally with a link type (id[=type])")
	cmd.Flags().StringArrayVar(&remove, "remove", nil, "Deselect a parent")
	cmd.Flags().StringVar(&fact, "fact", "", "New fact description")
	cmd.Flags().StringVar(&factType, "fact-type", "", "New fact type (variacion, permanente)")
	cmd.Flags().StringVar(&nodeType, "node-type", "", "New node type (final_event, intermediate, root_cause)")
	return cmd
}

// applyLinkFlags selects and deselects parents on an open session. Added
// parents must pass the session's cycle guard; with the shallow guard an
// added parent may still close an indirect cycle, which is returned as a
// warning.
func applyLinkFlags(sess *editor.Session, a *causal.Analysis, add, remove []string) ([]string, error) {
	node := sess.Node()
	var warnings []string
	eligible := make(map[string]bool, len(sess.Candidates()))
	for _, c := range sess.Candidates() {
		eligible[c.ID] = true
	}

	for _, ref := range remove {
		p, err := lookup(a, ref)
		if err != nil {
			return nil, err
		}
		if sess.IsSelected(p.ID) {
			sess.Toggle(p.ID)
		}
	}

	for _, arg := range add {
		ref, lt, hasType := strings.Cut(arg, "=")
		p, err := lookup(a, ref)
		if err != nil {
			return nil, err
		}
		if !eligible[p.ID] {
			return nil, fmt.Errorf("%s cannot be a parent of %s: it would create a cycle", p.Label(), node.Label())
		}
		if !node.HasParent(p.ID) && causal.WouldCycle(a.Nodes, node.ID, p.ID) {
			warnings = append(warnings, fmt.Sprintf("%s is an indirect cause of %s: the link closes a cycle", p.Label(), node.Label()))
		}
		if !sess.IsSelected(p.ID) {
			sess.Toggle(p.ID)
		}
		if hasType {
			sess.SetLinkType(p.ID, causal.LinkType(lt))
		}
	}
	return warnings, nil
}

func submitLink(ctx context.Context, s *source, sess *editor.Session, fact string, ft causal.FactType, nt causal.NodeType) error {
	var (
		updated causal.Node
		sent    editor.UpdateNodeDTO
	)
	called, err := sess.Submit(fact, ft, nt, func(nodeID string, dto editor.UpdateNodeDTO) error {
		sent = dto
		var err error
		updated, err = s.update(ctx, nodeID, dto)
		return err
	})
	if !called {
		return fmt.Errorf("a fact description is required")
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	printUpdated(updated, sent)
	return nil
}

func printUpdated(n causal.Node, dto editor.UpdateNodeDTO) {
	label := n.Label()
	if label == "" {
		label = n.ID
	}
	ui.Good.Printf("  %s Updated %s\n", ui.StatusIcon(true), ui.Brand.Sprint(label))
	if len(dto.ParentLinks) == 0 {
		fmt.Printf("    %s\n", ui.Subtle.Sprint("no parents"))
		return
	}
	fmt.Printf("    %s %s\n", ui.Subtle.Sprint("relation:"), dto.RelationType)
	for _, l := range dto.ParentLinks {
		fmt.Printf("    %s %s %s\n", ui.Subtle.Sprint("└─"), l.ParentNodeID, ui.Subtle.Sprint("("+string(l.LinkType)+")"))
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/store"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func treeCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:     "tree",
		Short:   "Inspect and edit a causal tree",
		Aliases: []string{"t"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			a := s.analysis

			ui.Banner("causal tree")
			if len(a.Nodes) == 0 {
				fmt.Println("  Empty analysis. Get started:")
				fmt.Println()
				ui.Info.Println("  causa tree add --file inc.yaml --fact \"Worker injured\" --node-type final_event")
				return nil
			}

			chains, conj := 0, 0
			for _, n := range a.Nodes {
				switch {
				case len(n.ParentNodes) > 1:
					conj++
				case len(n.ParentNodes) == 1:
					chains++
				}
			}
			final := "-"
			if fe := a.FinalEvent(); fe != nil {
				final = fe.Label()
			}

			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-16s", "Analysis"), a.ID)
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-16s", "Final event"), final)
			fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Nodes"), len(a.Nodes))
			fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Chain links"), chains)
			fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-16s", "Conjunctions"), conj)
			if iso := a.Isolated(); len(iso) > 0 {
				fmt.Printf("  %s  %s\n", ui.Warn.Sprintf("%-16s", "Isolated"), ui.Warn.Sprint(len(iso)))
			}
			return nil
		},
	}
	src.register(cmd)

	cmd.AddCommand(
		treeShowCmd(),
		treeListCmd(),
		treeEligibleCmd(),
		treeEditCmd(),
		treeLinkCmd(),
		treeAddCmd(),
		treeRemoveCmd(),
		treeCheckCmd(),
		treeExportCmd(),
	)
	return cmd
}

func treeShowCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Draw the tree from the final event down to its root causes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			title := s.analysis.ID
			if s.analysis.Title != "" {
				title += " — " + s.analysis.Title
			}
			ui.Banner(title)
			fmt.Print(causal.RenderTree(s.analysis, ui.TreeStyle()))
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func treeListCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the nodes of an analysis",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}

			ui.Banner("nodes")
			var rows [][]string
			for _, n := range s.analysis.Sorted() {
				parents := "-"
				if len(n.ParentNodes) > 0 {
					parents = strings.Join(n.ParentNodes, ",")
				}
				rows = append(rows, []string{
					fmt.Sprint(n.Numero),
					n.ID,
					string(n.NodeType),
					string(n.FactType),
					string(causal.RelationFor(len(n.ParentNodes))),
					parents,
					ui.Truncate(n.Fact, 40),
				})
			}
			ui.Table([]string{"#", "ID", "Type", "Fact type", "Relation", "Parents", "Fact"}, rows)
			fmt.Printf("\n  %d nodes\n", len(rows))
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func treeEligibleCmd() *cobra.Command {
	var (
		src    sourceFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:               "eligible <node>",
		Short:             "List the nodes that can be chosen as parents of a node",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := lookup(s.analysis, args[0])
			if err != nil {
				return err
			}

			guard := causal.EligibleParents
			if strict || cfg.Editor.StrictAcyclic {
				guard = causal.EligibleParentsStrict
			}
			eligible := guard(s.analysis.Nodes, *n)

			ui.Banner("eligible parents of " + n.Label())
			if len(eligible) == 0 {
				fmt.Println("  No eligible nodes.")
				return nil
			}
			var rows [][]string
			for _, e := range eligible {
				mark := " "
				if n.HasParent(e.ID) {
					mark = ui.StatusIcon(true)
				}
				rows = append(rows, []string{mark, fmt.Sprint(e.Numero), e.ID, string(e.NodeType), ui.Truncate(e.Fact, 50)})
			}
			ui.Table([]string{"", "#", "ID", "Type", "Fact"}, rows)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "Also exclude indirect causes (prevents cycles of any length)")
	return cmd
}

func treeAddCmd() *cobra.Command {
	var (
		src      sourceFlags
		fact     string
		factType string
		nodeType string
		parents  []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a node to a local analysis file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.requireFile("add"); err != nil {
				return err
			}

			n, err := store.AddNode(s.analysis, fact, causal.FactType(factType), causal.NodeType(nodeType), parents)
			if err != nil {
				return err
			}
			if err := store.Save(s.file, s.analysis); err != nil {
				return fmt.Errorf("failed to save analysis: %w", err)
			}
			s.record("add", n.ID, string(n.NodeType))

			ui.Good.Printf("  %s Added %s (%s)\n", ui.StatusIcon(true), ui.Brand.Sprint(n.Label()), n.ID)
			if n.NodeType != causal.FinalEvent && len(n.ParentNodes) == 0 {
				ui.Warn.Printf("  %s Node is isolated from the tree; link it with `causa tree link`\n", ui.WarnIcon())
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&fact, "fact", "", "Fact description")
	cmd.Flags().StringVar(&factType, "fact-type", string(causal.FactVariation), "Fact type (variacion, permanente)")
	cmd.Flags().StringVar(&nodeType, "node-type", string(causal.Intermediate), "Node type (final_event, intermediate, root_cause)")
	cmd.Flags().StringSliceVar(&parents, "parent", nil, "Parent node id (repeatable)")
	return cmd
}

func treeRemoveCmd() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:               "rm <node>",
		Short:             "Remove a node from a local analysis file",
		Aliases:           []string{"remove"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.requireFile("rm"); err != nil {
				return err
			}
			n, err := lookup(s.analysis, args[0])
			if err != nil {
				return err
			}
			id, label := n.ID, n.Label()
			orphaned := len(s.analysis.Children(id))

			if err := store.RemoveNode(s.analysis, id); err != nil {
				return err
			}
			if err := store.Save(s.file, s.analysis); err != nil {
				return fmt.Errorf("failed to save analysis: %w", err)
			}
			s.record("remove", id, label)

			ui.Good.Printf("  %s Removed %s\n", ui.StatusIcon(true), ui.Brand.Sprint(label))
			if orphaned > 0 {
				ui.Warn.Printf("  %s %d node(s) lost a parent\n", ui.WarnIcon(), orphaned)
			}
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func treeExportCmd() *cobra.Command {
	var (
		src    sourceFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the analysis as DOT, JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := src.open(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch format {
			case "dot":
				fmt.Fprint(out, causal.ExportDOT(s.analysis))
			case "json":
				data, err := json.MarshalIndent(s.analysis, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				data, err := yaml.Marshal(s.analysis)
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
			default:
				return fmt.Errorf("unknown format %q (use dot, json or yaml)", format)
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&format, "format", "dot", "Output format: dot, json, yaml")
	return cmd
}

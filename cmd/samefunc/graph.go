package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"github.com/zboralski/lattice/render"

	"github.com/StanHash/samefunc/internal/dupgraph"
	"github.com/StanHash/samefunc/internal/output"
)

func (a *app) graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph FILE...",
		Short: "Write duplicated functions as a Graphviz DOT graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.v.GetString("graph.out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}

			r, err := extractAll(args, a.options(cmd))
			if err != nil {
				return err
			}

			groups := output.Groups(r, len(args) > 1 && a.v.GetBool("graph.cross"))
			g := dupgraph.Build(groups)
			if err := os.WriteFile(out, []byte(render.DOT(g, "samefunc")), 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.WithFields(log.Fields{
				"file":  out,
				"nodes": len(g.Nodes),
				"edges": len(g.Edges),
			}).Info("wrote graph")
			return nil
		},
	}

	cmd.Flags().Bool("lax", false, "also mask Thumb immediate operands")
	cmd.Flags().Bool("cross", true, "with several files, only graph functions found in more than one")
	cmd.Flags().StringP("out", "o", "", "output DOT file")
	a.bindFlags(cmd, "lax", "cross", "out")
	return cmd
}

package main

import (
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/StanHash/samefunc/internal/output"
)

func (a *app) matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match FILE...",
		Short: "List functions that share the same code",
		Long: `match prints one line per duplicated function body: its size followed by
every symbol name with that body. With several files, names are suffixed
with (FILE), and --cross keeps only bodies found in more than one file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := extractAll(args, a.options(cmd))
			if err != nil {
				return err
			}

			cross := len(args) > 1 && a.v.GetBool("match.cross")
			groups := output.Groups(r, cross)
			if err := output.WriteText(cmd.OutOrStdout(), groups); err != nil {
				return err
			}

			if path := a.v.GetString("match.json"); path != "" {
				rep := output.Report{
					Images: args,
					Lax:    a.v.GetBool("match.lax"),
					Cross:  cross,
					Groups: groups,
				}
				if err := output.WriteReportJSON(path, rep); err != nil {
					return err
				}
				log.WithField("file", path).Info("wrote report")
			}
			return nil
		},
	}

	cmd.Flags().Bool("lax", false, "also mask Thumb immediate operands")
	cmd.Flags().Bool("cross", true, "with several files, only report functions found in more than one")
	cmd.Flags().String("json", "", "also write the report as JSON to this file")
	a.bindFlags(cmd, "lax", "cross", "json")
	return cmd
}

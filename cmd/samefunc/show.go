package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/StanHash/samefunc/internal/disasm"
	"github.com/StanHash/samefunc/internal/funcs"
)

var colorHeader = color.New(color.Bold, color.FgHiGreen).SprintFunc()

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show FILE NAME",
		Short: "Print the masked listing of one function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name := args[0], args[1]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}

			r := funcs.NewRegistry()
			if _, err := funcs.Extract(r, "", data, a.options(cmd)); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fn, ok := r.Lookup(name)
			if !ok {
				return fmt.Errorf("%s: function %q not found", path, name)
			}

			mode := "arm"
			if fn.Thumb {
				mode = "thumb"
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d bytes %s\n", colorHeader(strings.Join(fn.Names, " ")), fn.Size(), mode)
			insts := disasm.Disassemble(fn.Data, fn.Mask, disasm.Options{
				Thumb:    fn.Thumb,
				MaxSteps: a.v.GetInt("show.max"),
			})
			fmt.Fprint(w, disasm.Format(insts))
			return nil
		},
	}

	cmd.Flags().Bool("lax", false, "also mask Thumb immediate operands")
	cmd.Flags().Int("max", 0, "maximum instructions to list (0 = all)")
	a.bindFlags(cmd, "lax", "max")
	return cmd
}

package commands

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	var quiet bool
	c := &cobra.Command{
		Use:   "models",
		Short: "List the models served by the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := gw.chat.Models(cmd.Context())
			if err != nil {
				return err
			}
			if quiet {
				for _, id := range ids {
					cmd.Println(id)
				}
				return nil
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"MODEL"})
			table.SetBorder(false)
			table.SetColumnSeparator("")
			table.SetHeaderLine(false)
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT})
			for _, id := range ids {
				table.Append([]string{id})
			}
			table.Render()
			return nil
		},
	}
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print model identifiers")
	return c
}

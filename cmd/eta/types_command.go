package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eta/internal/data"
)

func newTypesCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "types",
		Short:       "List the registered container and element classes",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			containers := data.ContainerClasses()
			elements := data.ElementClasses()
			if jsonOutput {
				return writeJSON(cmd, map[string][]string{
					"containers": containers,
					"elements":   elements,
				})
			}
			rows := make([][]string, 0, len(containers)+len(elements))
			for _, name := range containers {
				rows = append(rows, []string{"container", name})
			}
			for _, name := range elements {
				rows = append(rows, []string{"element", name})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Class"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the classes as JSON")
	return cmd
}

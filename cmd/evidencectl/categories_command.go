package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"incident-insights-go/internal/types"
)

func newCategoriesCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "categories",
		Short:       "List the incident categories offered to the classifier",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantJSON(cmd, jsonOut) {
				return writeJSON(cmd, types.DefaultCategories)
			}
			rows := make([][]string, 0, len(types.DefaultCategories))
			for _, c := range types.DefaultCategories {
				rows = append(rows, []string{c.Name, c.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Category", "Description"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON even on a terminal")
	return cmd
}

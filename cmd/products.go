package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sanctuari/rfq-cli/internal/model"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the insurance products in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := initCatalog()
		if err != nil {
			return err
		}
		return printProducts(cmd.OutOrStdout(), cat.List())
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
}

func printProducts(w io.Writer, products []model.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSOURCE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.DisplayName, p.SourceRef)
	}
	return tw.Flush()
}

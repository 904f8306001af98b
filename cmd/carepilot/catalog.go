package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carepilot/carepilot/internal/platform/db"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the detected table names and schema capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.resolver.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}
}

func printCatalog(w io.Writer, cat *db.Catalog) {
	fmt.Fprintf(w, "%-20s %s\n", "lab reports", cat.LabReports)
	fmt.Fprintf(w, "%-20s %s\n", "insurance benefits", cat.InsuranceBenefits)
	fmt.Fprintf(w, "%-20s %s\n", "eob records", cat.EOBRecords)
	fmt.Fprintf(w, "%-20s %t\n", "oauth columns", cat.SupportsOAuth())
	fmt.Fprintf(w, "%-20s %s\n", "user columns", strings.Join(cat.UserColumns(), ", "))
}

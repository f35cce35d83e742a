// Command tagcatalog runs the product-tag catalog: the HTTP API, queue
// workers, database maintenance and the batch ingest pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/tagcatalog/database/migrations"
	_ "github.com/shashiranjanraj/tagcatalog/database/seeders"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tagcatalog",
	Short:         "Product-tag catalog service",
	Long:          "Reads product tag photos, prices them from the supplier rate list and serves the catalog API.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)

	// Catalog
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ratelistCmd)
	rootCmd.AddCommand(ocrCmd)
}

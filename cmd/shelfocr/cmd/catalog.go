package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/store"
)

func newCatalogCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog",
	}

	importCmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Import products from a CSV file",
		Long: `Import products from a CSV file into the product database.

The header row names the columns. Known columns (brand, price, image,
description, type, category, skin_types, personal_colors, number) are
mapped onto the product record. UTF-8, CP949 and EUC-KR files are accepted.

Examples:
  shelfocr catalog import products.csv
  shelfocr catalog import products.csv --name-column product_name --db data/kiosk.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			column := a.cfg.Catalog.NameColumn
			if cmd.Flags().Changed("name-column") {
				column, _ = cmd.Flags().GetString("name-column")
			}
			cat, err := catalog.LoadCSV(args[0], column)
			if err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), a.cfg.Catalog.DBPath, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := db.Import(cmd.Context(), cat)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products into %s\n", n, a.cfg.Catalog.DBPath)
			return nil
		},
	}
	importCmd.Flags().String("name-column", "name", "CSV column holding the product name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the products in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := store.Open(cmd.Context(), a.cfg.Catalog.DBPath, a.cfg.Catalog.Seed)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			products, err := db.All(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(products) > limit {
				products = products[:limit]
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(products)
			case "table":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tBRAND\tNAME\tTYPE\tNUMBER\tPRICE")
				for _, p := range products {
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Brand, p.Name, p.Type, p.Number, p.Price)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported format %q (use table or json)", format)
			}
		},
	}
	listCmd.Flags().StringP("format", "f", "table", "output format: table or json")
	listCmd.Flags().IntP("limit", "n", 0, "show at most this many products (0 = all)")

	c.AddCommand(importCmd, listCmd)
	return c
}

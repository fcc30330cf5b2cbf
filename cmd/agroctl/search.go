package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mavuno/agrolink/internal/domain"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		location string
		filter   string
		sortBy   string
	)
	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search products, falling back to substitutes when nothing is in stock",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.Search(cmd.Context(), domain.SearchRequest{
				Query:    strings.Join(args, " "),
				Location: location,
				Filter:   domain.SearchFilter(filter),
				Sort:     domain.SearchSort(sortBy),
			})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			if len(res.Substitutes) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no direct match in stock, %d substitute(s) found\n", len(res.Substitutes))
			}
			return writeResults(cmd.OutOrStdout(), res.Combined)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "farmer location")
	cmd.Flags().StringVar(&filter, "filter", string(domain.FilterAll), "all | in_stock | has_agronomist")
	cmd.Flags().StringVar(&sortBy, "sort", string(domain.SortDistance), "distance | price")
	return cmd
}

func newProductsCmd(opts *rootOptions) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "products <terms...>",
		Short: "List every dealer stocking a matching product, in stock or not",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := svc.FindDealersWithProduct(cmd.Context(), strings.Join(args, " "), location)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "farmer location")
	return cmd
}

func newSubstitutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "substitutes <product name>",
		Short: "Rank substitutes for an unavailable product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.marketplace(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := svc.FindSubstitutes(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
}

func writeResults(w io.Writer, results []domain.ProductDealerResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tDEALER\tKM\tQTY\tPRICE\tEXPIRY\tBIO")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%d\t%.0f\t%s\t%t\n",
			r.Product.Name, r.Dealer.Name, r.Dealer.Distance,
			r.Product.Quantity, r.Product.Price, r.Product.ExpiryDate, r.Product.IsBiocontrol)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/imoji"
)

func searchCommand(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [term...]",
		Short: "Search stickers; an empty term lists the featured set",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			opts := imoji.SearchOptions{
				Offset: intFlag(cmd, "offset"),
				Limit:  intFlag(cmd, "limit"),
			}
			out := newListing(cmd.OutOrStdout())
			op := sess.Search(strings.Join(args, " "), opts, out.resultSet, out.item)
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			return out.flush()
		},
	}
	cmd.Flags().Int("offset", 0, "number of results to skip")
	cmd.Flags().Int("limit", 0, "maximum number of results")
	return cmd
}

func featuredCommand(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List featured stickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			out := newListing(cmd.OutOrStdout())
			op := sess.Featured(intFlag(cmd, "limit"), out.resultSet, out.item)
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			return out.flush()
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of results")
	return cmd
}

func fetchCommand(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id>...",
		Short: "Resolve stickers by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			out := newListing(cmd.OutOrStdout())
			out.total = len(args)
			if err := await(cmd.Context(), sess.FetchByIdentifiers(args, out.item)); err != nil {
				return err
			}
			return out.flush()
		},
	}
}

func categoriesCommand(app *cli) *cobra.Command {
	var generic bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List sticker categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.session()
			if err != nil {
				return err
			}
			class := imoji.ClassificationTrending
			if generic {
				class = imoji.ClassificationGeneric
			}

			var (
				result []imoji.Category
				failed error
			)
			op := sess.Categories(class, func(categories []imoji.Category, err error) {
				result, failed = categories, err
			})
			if err := await(cmd.Context(), op); err != nil {
				return err
			}
			if failed != nil {
				return failed
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPREVIEW")
			for _, c := range result {
				preview := "-"
				if c.Preview != nil {
					preview = c.Preview.ID()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Title, preview)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&generic, "generic", false, "list generic instead of trending categories")
	return cmd
}

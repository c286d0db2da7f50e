package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/pouch"
)

func newPouchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pouch",
		Short: "Browse the cosmetics you registered",
	}
	cmd.AddCommand(newPouchListCmd(opts), newPouchShowCmd(opts))
	return cmd
}

func newPouchListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered cosmetics, newest first",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			items, err := a.pouch().List(cmd.Context())
			if err != nil {
				return errors.New(pouch.Describe(err))
			}

			views := make([]summaryView, 0, len(items))
			for _, item := range items {
				views = append(views, summaryView{ID: item.ID.String(), Name: item.Name, Thumbnail: item.Thumbnail, CreatedAt: item.CreatedAt})
			}
			return render(cmd.OutOrStdout(), opts.output, views, func(w io.Writer) error {
				if len(views) == 0 {
					_, err := fmt.Fprintln(w, "Your pouch is empty")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tREGISTERED")
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Name, v.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		}),
	}
}

func newPouchShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cosmetic and its photos",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			catalog := a.pouch()
			record, err := catalog.Get(cmd.Context(), cosmetic.ID(args[0]))
			if err != nil {
				return errors.New(pouch.Describe(err))
			}

			view := newRecordView(record, catalog.PhotoURL)
			return render(cmd.OutOrStdout(), opts.output, view, func(w io.Writer) error {
				fmt.Fprintf(w, "%s (%s)\n", view.Name, view.ID)
				fmt.Fprintf(w, "registered %s\n", view.CreatedAt.Local().Format(time.DateTime))
				for _, p := range view.Photos {
					fmt.Fprintf(w, "  %s  %s\n", p.OriginalName, p.URL)
				}
				return nil
			})
		}),
	}
}

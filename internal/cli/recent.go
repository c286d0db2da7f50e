package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/viewlulu/internal/usecase"
)

func newRecentCmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		summary bool
		last    bool
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recorded detections",
		Long: `Lists the detections kept in the history database (DATABASE_DSN).
With --last the most recent result is read from the result cache when
RESULT_CACHE is on.`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			if summary && last {
				return errors.New("--summary and --last cannot be combined")
			}
			uc := a.detectUseCase()
			defer uc.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case last:
				log, err := uc.LastResult(ctx)
				if err != nil {
					return errors.New(describeRecent(err))
				}
				view := newLogView(*log)
				return render(out, opts.output, view, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Last detection: cosmetic %s (%s) at %s\n", view.DetectedID, view.Source, view.CreatedAt.Local().Format(time.DateTime))
					return err
				})

			case summary:
				s, err := uc.Summarize(ctx, limit)
				if err != nil {
					return errors.New(describeRecent(err))
				}
				return render(out, opts.output, s, func(w io.Writer) error {
					return writeSummary(w, s)
				})

			default:
				logs, err := uc.Recent(ctx, limit)
				if err != nil {
					return errors.New(describeRecent(err))
				}
				views := make([]logView, 0, len(logs))
				for _, log := range logs {
					views = append(views, newLogView(log))
				}
				return render(out, opts.output, views, func(w io.Writer) error {
					if len(views) == 0 {
						_, err := fmt.Fprintln(w, "No detections recorded yet")
						return err
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "WHEN\tCOSMETIC\tSOURCE\tDISTANCE\tPHOTO")
					for _, v := range views {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.CreatedAt.Local().Format(time.DateTime), v.DetectedID, v.Source, formatDistance(v.BestDistance), v.Photo)
					}
					return tw.Flush()
				})
			}
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of detections to read")
	cmd.Flags().BoolVar(&summary, "summary", false, "Aggregate the detections instead of listing them")
	cmd.Flags().BoolVar(&last, "last", false, "Show only the most recent detection")

	return cmd
}

func writeSummary(w io.Writer, s *usecase.HistorySummary) error {
	fmt.Fprintf(w, "%d detections of %d distinct cosmetics\n", s.Total, s.Distinct)
	if s.AverageDistance > 0 {
		fmt.Fprintf(w, "average distance %.4f\n", s.AverageDistance)
	}
	sources := make([]string, 0, len(s.BySource))
	for source := range s.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(w, "  %-8s %d\n", source, s.BySource[source])
	}
	return nil
}

// describeRecent reports a missing history store plainly.
func describeRecent(err error) string {
	switch {
	case errors.Is(err, usecase.ErrHistoryDisabled):
		return "Detection history is off. Set DATABASE_DSN to keep it."
	case errors.Is(err, usecase.ErrNoHistory):
		return "No detections recorded yet."
	default:
		return usecase.Message(err)
	}
}

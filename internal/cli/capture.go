package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/example/viewlulu/internal/capture"
	"github.com/example/viewlulu/internal/usecase"
)

func newDetectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <photo>",
		Short: "Identify the cosmetic in one photo",
		Long: `Takes one photo through the capture flow and asks the recognition service
which product it shows. Logging in is optional.`,
		Example: `  viewlulu detect ./lipstick.jpg --camera-permission granted
  viewlulu detect ./lipstick.jpg -o json`,
		Args: cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			cam, err := NewFileCamera(args[0])
			if err != nil {
				return err
			}

			uc := a.detectUseCase()
			defer uc.Close()

			outcome, err := uc.Run(cmd.Context(), cam)
			if err != nil {
				return errors.New(usecase.Message(err))
			}

			view := newDetectionView(outcome.RequestID, outcome.Photo, outcome.Result)
			return render(cmd.OutOrStdout(), opts.output, view, func(w io.Writer) error {
				fmt.Fprintf(w, "Detected cosmetic %s", view.DetectedID)
				if view.Source != "" {
					fmt.Fprintf(w, " (source %s, distance %s)", view.Source, formatDistance(view.BestDistance))
				}
				fmt.Fprintln(w)
				for i, c := range view.Candidates {
					fmt.Fprintf(w, "  %d. %s  score %.3f\n", i+1, c.ID, c.Score)
				}
				return nil
			})
		}),
	}
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register --name <name> <front> <side> <top> <detail>",
		Short: "Register a cosmetic from four guided photos",
		Long: fmt.Sprintf(`Walks through the %d guided shots (front, side, top, detail), then uploads
them together under the given name. Requires a login.`, capture.Capacity),
		Example: `  viewlulu register --name "Lip Tint" front.jpg side.jpg top.jpg detail.jpg`,
		Args:    cobra.ExactArgs(capture.Capacity),
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			cam, err := NewFileCamera(args...)
			if err != nil {
				return err
			}

			uc := a.registerUseCase()
			defer uc.Close()

			record, err := uc.Run(cmd.Context(), cam, name)
			if err != nil {
				return errors.New(usecase.Message(err))
			}

			catalog := a.pouch()
			view := newRecordView(record, catalog.PhotoURL)
			return render(cmd.OutOrStdout(), opts.output, view, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Registered %s as cosmetic %s with %d photos\n", view.Name, view.ID, len(view.Photos))
				return err
			})
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the cosmetic")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

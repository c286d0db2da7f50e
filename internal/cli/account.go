package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/viewlulu/internal/account"
	"github.com/example/viewlulu/internal/auth"
	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/upload"
	"github.com/example/viewlulu/internal/usecase"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Example: `  viewlulu login --email mina@example.com
  viewlulu login --email mina@example.com --password secret`,
		Args: cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			if password == "" {
				var err error
				if password, err = a.console.ask("Password: "); err != nil {
					return err
				}
			}

			session, err := a.accounts().Login(cmd.Context(), email, password)
			if err != nil {
				return errors.New(accountMessage(err))
			}
			return render(cmd.OutOrStdout(), opts.output, userView(session.User), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Logged in as %s\n", displayName(session.User))
				return err
			})
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var req account.RegisterRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = a.console.ask("Password: "); err != nil {
					return err
				}
			}

			user, err := a.accounts().Register(cmd.Context(), req)
			if err != nil {
				return errors.New(accountMessage(err))
			}
			return render(cmd.OutOrStdout(), opts.output, userView(user), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Account created for %s. Run login to sign in.\n", displayName(user))
				return err
			})
		}),
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (prompted when empty)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().IntVar(&req.Age, "age", 0, "Age")
	cmd.Flags().StringVar(&req.Gender, "gender", "", "Gender")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.accounts().Logout(cmd.Context()); err != nil {
				return err
			}
			if opts.output == outputText {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			}
			return nil
		}),
	}
}

type claimsView struct {
	Subject   string    `json:"subject" yaml:"subject"`
	IssuedAt  time.Time `json:"issued_at,omitempty" yaml:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool      `json:"expired" yaml:"expired"`
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity carried by the stored token",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, a *app, args []string) error {
			token, err := a.tokens.Token(cmd.Context())
			if errors.Is(err, auth.ErrTokenMissing) {
				return errors.New("not logged in")
			}
			if err != nil {
				return err
			}
			claims, err := auth.Inspect(token)
			if err != nil {
				return err
			}

			view := claimsView{
				Subject:   claims.Subject,
				IssuedAt:  claims.IssuedAt,
				ExpiresAt: claims.ExpiresAt,
				Expired:   claims.Expired(time.Now()),
			}
			return render(cmd.OutOrStdout(), opts.output, view, func(w io.Writer) error {
				fmt.Fprintf(w, "user %s\n", view.Subject)
				switch {
				case view.ExpiresAt.IsZero():
					_, err = fmt.Fprintln(w, "token has no expiry")
				case view.Expired:
					_, err = fmt.Fprintf(w, "token expired at %s\n", view.ExpiresAt.Format(time.RFC3339))
				default:
					_, err = fmt.Fprintf(w, "token valid until %s\n", view.ExpiresAt.Format(time.RFC3339))
				}
				return err
			})
		}),
	}
}

type accountView struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

func userView(u cosmetic.User) accountView {
	return accountView{ID: u.ID.String(), Email: u.Email, Name: u.Name}
}

// accountMessage reads 401 and 409 as credential problems rather than a missing login.
func accountMessage(err error) string {
	switch status, _ := upload.StatusCode(err); status {
	case http.StatusUnauthorized:
		return "Invalid email or password."
	case http.StatusConflict:
		return "That email is already registered."
	}
	return usecase.Message(err)
}

func displayName(u cosmetic.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

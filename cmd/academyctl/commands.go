package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/techfemme/academy/backend/go-services/internal/accounts"
	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/cache"
	"github.com/techfemme/academy/backend/go-services/internal/editor"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
)

// run opens a client for the duration of fn.
func (e *cliEnv) run(cmd *cobra.Command, fn func(ctx context.Context, c *client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := e.client(ctx)
	if err != nil {
		return err
	}
	defer c.close()
	return fn(ctx, c)
}

func newSignUpCmd(env *cliEnv) *cobra.Command {
	var form accounts.SignUpForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, func(ctx context.Context, c *client) error {
				res, err := c.accounts.SignUp(ctx, form)
				if res != nil {
					if rerr := c.remember(ctx, res.Session); rerr != nil {
						return rerr
					}
				}
				if err != nil {
					return cliError(err)
				}
				printState(cmd.OutOrStdout(), res.State)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.FirstName, "first-name", "", "First name")
	f.StringVar(&form.LastName, "last-name", "", "Last name")
	f.StringVar(&form.Email, "email", "", "Email address")
	f.StringVar(&form.Password, "password", "", "Password")
	f.StringVar(&form.Phone, "phone", "", "Phone number")
	f.StringVar(&form.Country, "country", "", "Country")
	f.StringVar(&form.Occupation, "occupation", "", "Occupation")
	f.StringVar(&form.Course, "course", "", "Course to enroll in")
	return cmd
}

func newSignInCmd(env *cliEnv) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, func(ctx context.Context, c *client) error {
				res, err := c.accounts.SignIn(ctx, email, password)
				if err != nil {
					return cliError(err)
				}
				if err := c.remember(ctx, res.Session); err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), res.State)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newWhoAmICmd(env *cliEnv) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, func(ctx context.Context, c *client) error {
				out := cmd.OutOrStdout()
				cached := c.hydrate(ctx)
				if offline {
					if cached == nil {
						return errNotSignedIn
					}
					printProfile(out, cached)
					return nil
				}
				if cached != nil {
					fmt.Fprintln(out, "cached:")
					printProfile(out, cached)
				}
				if _, err := c.restore(ctx); err != nil {
					return cliError(err)
				}
				s, err := c.reload(ctx)
				if err != nil {
					return cliError(err)
				}
				if cached != nil {
					fmt.Fprintln(out, "current:")
				}
				printState(out, s)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Print the local snapshot without contacting the profile store")
	return cmd
}

func newProfileCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}
	cmd.AddCommand(newProfileEditCmd(env))
	return cmd
}

func newProfileEditCmd(env *cliEnv) *cobra.Command {
	var avatar string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Update profile details and the avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, func(ctx context.Context, c *client) error {
				c.hydrate(ctx)
				s, err := c.restore(ctx)
				if err != nil {
					return cliError(err)
				}
				if s.Profile == nil {
					if s.Err == nil {
						return errNotSignedIn
					}
					return cliError(s.Err)
				}
				next := editor.BeginEdit(s.Profile)
				flags := cmd.Flags()
				for name, dst := range map[string]*string{
					"first-name": &next.FirstName,
					"last-name":  &next.LastName,
					"phone":      &next.Phone,
					"country":    &next.Country,
					"occupation": &next.Occupation,
					"email":      &next.Email,
				} {
					if flags.Changed(name) {
						v, _ := flags.GetString(name)
						*dst = v
					}
				}

				var upload *editor.AvatarUpload
				if avatar != "" {
					f, up, err := openAvatar(avatar)
					if err != nil {
						return err
					}
					defer f.Close()
					upload = up
				}

				saved, err := c.editor.Save(ctx, s.Profile, next, upload)
				if err != nil {
					return cliError(err)
				}
				printProfile(cmd.OutOrStdout(), saved)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.String("first-name", "", "First name")
	f.String("last-name", "", "Last name")
	f.String("phone", "", "Phone number")
	f.String("country", "", "Country")
	f.String("occupation", "", "Occupation")
	f.String("email", "", "Email address")
	f.StringVar(&avatar, "avatar", "", "Path of an image to upload as the avatar")
	return cmd
}

func newSignOutCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and clear the local snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, func(ctx context.Context, c *client) error {
				access, ok, err := c.local.Get(ctx, cache.TokenKey)
				if err != nil {
					return err
				}
				if !ok {
					return errNotSignedIn
				}
				refresh, _, err := c.local.Get(ctx, refreshKey)
				if err != nil {
					return err
				}
				var identity models.Identity
				if id, err := c.tokens.Identity(access); err == nil {
					identity = id
				}
				signOutErr := c.accounts.SignOut(ctx, identity, refresh, access)
				if err := c.local.Clear(ctx); err != nil {
					return err
				}
				if err := c.forget(ctx); err != nil {
					return err
				}
				if signOutErr != nil {
					return cliError(signOutErr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func openAvatar(path string) (*os.File, *editor.AvatarUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open avatar: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat avatar: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		ct = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("rewind avatar: %w", err)
		}
	}
	return f, &editor.AvatarUpload{Reader: f, Size: info.Size(), ContentType: ct}, nil
}

// cliError flattens an application error into its user-facing message and field list.
func cliError(err error) error {
	if err == nil || apperr.KindOf(err) == apperr.KindUnknown {
		return err
	}
	msg := apperr.Message(err)
	for _, fe := range apperr.FieldsOf(err) {
		msg += fmt.Sprintf("\n  %s: %s", fe.Field, fe.Message)
	}
	return fmt.Errorf("%s (%s)", msg, apperr.KindOf(err))
}

func printState(w io.Writer, s session.State) {
	switch {
	case !s.SignedIn():
		fmt.Fprintln(w, "signed out")
	case s.Profile != nil:
		printProfile(w, s.Profile)
	case s.ProfileMissing():
		fmt.Fprintf(w, "signed in as %s, no profile on record\n", s.Identity.Email)
	case s.Err != nil:
		fmt.Fprintf(w, "signed in as %s, profile unavailable: %s\n", s.Identity.Email, apperr.Message(s.Err))
	default:
		fmt.Fprintf(w, "signed in as %s, profile loading\n", s.Identity.Email)
	}
}

func printProfile(w io.Writer, p *models.Profile) {
	fmt.Fprintf(w, "%s %s <%s>\n", p.FirstName, p.LastName, p.Email)
	fmt.Fprintf(w, "  role:    %s\n", p.Role)
	fmt.Fprintf(w, "  phone:   %s\n", p.Phone)
	fmt.Fprintf(w, "  country: %s\n", p.Country)
	if p.Occupation != "" {
		fmt.Fprintf(w, "  occupation: %s\n", p.Occupation)
	}
	if p.AvatarURL != nil {
		fmt.Fprintf(w, "  avatar:  %s\n", *p.AvatarURL)
	}
	for _, course := range p.EnrolledCourses {
		fmt.Fprintf(w, "  course:  %s\n", course)
	}
}

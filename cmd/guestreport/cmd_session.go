package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"guestreport_client/internal/common"
	"guestreport_client/internal/platform/crypto"
	"guestreport_client/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

func newLoginCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := env.manager.Login(cmd.Context(), email, password)
			if err != nil {
				return describeAuthError(err)
			}
			return printResult(cmd.OutOrStdout(), opts, u, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s (%s)\n", u.UserName, u.Email)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newGoogleLoginCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	var credential, code string
	var printURL bool
	cmd := &cobra.Command{
		Use:   "google-login",
		Short: "Sign in with a Google account",
		Long: `Sign in with a Google account.

Pass the ID token from Google Identity Services with --credential, or run with
--auth-url, open the printed URL, and pass the returned code with --code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := googleOAuthConfig(env)
			out := cmd.OutOrStdout()
			if printURL {
				state, err := crypto.RandomToken(24)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, conf.AuthCodeURL(state, oauth2.AccessTypeOnline))
				return nil
			}

			if credential == "" && code != "" {
				tok, err := conf.Exchange(cmd.Context(), code)
				if err != nil {
					return fmt.Errorf("exchange authorization code: %w", err)
				}
				idToken, ok := tok.Extra("id_token").(string)
				if !ok || idToken == "" {
					return errors.New("Google did not return an ID token; check the openid scope")
				}
				credential = idToken
			}
			if credential == "" {
				return errors.New("one of --credential, --code or --auth-url is required")
			}

			u, err := env.manager.LoginWithGoogle(cmd.Context(), credential)
			if err != nil {
				return describeAuthError(err)
			}
			return printResult(out, opts, u, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in with Google as %s (%s)\n", u.UserName, u.Email)
			})
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token")
	cmd.Flags().StringVar(&code, "code", "", "OAuth authorization code to exchange for an ID token")
	cmd.Flags().BoolVar(&printURL, "auth-url", false, "print the Google consent URL and exit")
	cmd.MarkFlagsMutuallyExclusive("credential", "code", "auth-url")
	return cmd
}

func googleOAuthConfig(env *cliEnv) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     env.cfg.GoogleClientID,
		ClientSecret: env.cfg.GoogleClientSecret,
		RedirectURL:  env.cfg.GoogleRedirectURI,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func newRegisterCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	var req session.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := env.manager.Register(cmd.Context(), req)
			if err != nil {
				return describeAuthError(err)
			}
			return printResult(cmd.OutOrStdout(), opts, created, func(w io.Writer) {
				fmt.Fprintf(w, "Account created for %s. Sign in with 'guestreport login'.\n", created.Email)
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.UserName, "username", "", "display name (defaults to the part of the email before @)")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "password again")
	cmd.Flags().BoolVar(&req.AgreeTerms, "agree-terms", false, "accept the terms of service")
	return cmd
}

func newLogoutCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of this tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			env.manager.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				p, err := env.manager.Profile(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), opts, p, func(w io.Writer) {
					fmt.Fprintf(w, "#%d %s <%s>\n", p.ID, p.UserName, p.Email)
					if p.Bio != "" {
						fmt.Fprintln(w, p.Bio)
					}
					fmt.Fprintf(w, "Reports submitted: %d\n", p.ReportsSubmittedCount)
				})
			}

			u, ok := env.manager.CurrentUser(cmd.Context())
			if !ok {
				return session.ErrNotSignedIn
			}
			return printResult(cmd.OutOrStdout(), opts, u, func(w io.Writer) {
				role := "user"
				if u.IsAdmin() {
					role = "admin"
				}
				fmt.Fprintf(w, "%s <%s> via %s, %s\n", u.UserName, u.Email, u.AuthProvider, role)
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the profile from the server")
	return cmd
}

func newEditProfileCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	var upd session.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "edit-profile",
		Short: "Change your display name or bio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if !flags.Changed("username") || !flags.Changed("bio") {
				current, err := env.manager.Profile(ctx)
				if err != nil {
					return err
				}
				if !flags.Changed("username") {
					upd.UserName = current.UserName
				}
				if !flags.Changed("bio") {
					upd.Bio = current.Bio
				}
			}

			p, err := env.manager.UpdateProfile(ctx, upd)
			if errors.Is(err, session.ErrNoProfileChanges) {
				fmt.Fprintln(cmd.OutOrStdout(), err.Error())
				return nil
			}
			if err != nil {
				return describeAuthError(err)
			}
			return printResult(cmd.OutOrStdout(), opts, p, func(w io.Writer) {
				fmt.Fprintf(w, "Profile updated: %s\n", p.UserName)
			})
		},
	}
	cmd.Flags().StringVar(&upd.UserName, "username", "", "new display name")
	cmd.Flags().StringVar(&upd.Bio, "bio", "", "new bio (empty clears it)")
	return cmd
}

type statusView struct {
	Scope string `json:"scope"`
	Store string `json:"store"`
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

func newStatusCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state of this tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := statusView{
				Scope: env.cfg.SessionScope,
				Store: env.cfg.SessionStore,
				State: env.manager.State(cmd.Context()).String(),
			}
			if email, ok := env.manager.UserEmail(cmd.Context()); ok {
				v.Email = email
			}
			return printResult(cmd.OutOrStdout(), opts, v, func(w io.Writer) {
				fmt.Fprintf(w, "tab %s (%s store): %s", v.Scope, v.Store, v.State)
				if v.Email != "" {
					fmt.Fprintf(w, " as %s", v.Email)
				}
				fmt.Fprintln(w)
			})
		},
	}
}

// describeAuthError turns client errors into the message a user should read.
func describeAuthError(err error) error {
	var authErr *common.AuthenticationError
	switch {
	case errors.As(err, &authErr):
		return errors.New(authErr.Message)
	case common.IsValidationError(err):
		return fmt.Errorf("invalid input: %s", strings.TrimPrefix(err.Error(), "validation failed: "))
	case common.IsNetworkError(err):
		return fmt.Errorf("cannot reach the server: %w", err)
	}
	return err
}

package main

import (
	"fmt"

	"guestreport_client/internal/session/tabstore"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTabCmd(env *cliEnv) *cobra.Command {
	tab := &cobra.Command{
		Use:   "tab",
		Short: "Open, reload or close a tab scope",
		Long: `A tab scope is an isolated session. Signing in under one scope does not
sign in any other. Closing a tab ends its session; reloading keeps it.`,
	}

	tab.AddCommand(&cobra.Command{
		Use:   "open",
		Short: "Print a new tab scope id",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), uuid.NewString())
			return nil
		},
	})

	tab.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Reload the tab, keeping its session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lc := tabstore.NewLifecycle(env.store)
			if err := lc.BeforeUnload(ctx); err != nil {
				return err
			}
			if _, err := lc.Unload(ctx); err != nil {
				return err
			}
			if err := lc.Load(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tab %s reloaded: %s\n", env.cfg.SessionScope, env.manager.Restore(ctx))
			return nil
		},
	})

	tab.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Close the tab, ending its session",
		RunE: func(cmd *cobra.Command, args []string) error {
			wiped, err := tabstore.NewLifecycle(env.store).Unload(cmd.Context())
			if err != nil {
				return err
			}
			env.client.RequestContext().ClearBearer()
			if wiped {
				fmt.Fprintf(cmd.OutOrStdout(), "tab %s closed\n", env.cfg.SessionScope)
			}
			return nil
		},
	})
	return tab
}

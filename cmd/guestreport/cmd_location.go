package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"guestreport_client/internal/location"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const treeFetchLimit = 4

func newLocationsCmd(env *cliEnv, opts *rootOptions) *cobra.Command {
	loc := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"loc"},
		Short:   "Browse countries, states and cities",
	}

	loc.AddCommand(&cobra.Command{
		Use:   "countries",
		Short: "List countries",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newResolver(env, cmd)
			defer r.Close()
			list := r.LoadCountries(cmd.Context())
			return printItems(cmd.OutOrStdout(), opts, list.Items)
		},
	})

	loc.AddCommand(&cobra.Command{
		Use:   "states <countryId>",
		Short: "List the states of a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			countryID, err := parseID(args[0])
			if err != nil {
				return err
			}
			r := newResolver(env, cmd)
			defer r.Close()
			r.OnCountryChanged(cmd.Context(), &countryID)
			r.Wait()
			return printItems(cmd.OutOrStdout(), opts, r.Snapshot().States.Items)
		},
	})

	loc.AddCommand(&cobra.Command{
		Use:   "cities <stateId>",
		Short: "List the cities of a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stateID, err := parseID(args[0])
			if err != nil {
				return err
			}
			items, err := location.NewAPISource(env.client).Cities(cmd.Context(), stateID)
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), opts, items)
		},
	})

	var named location.NamedLocation
	prefill := &cobra.Command{
		Use:   "prefill",
		Short: "Resolve a country, state and city by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := location.NewResolver(location.NewAPISource(env.client), nil, env.logger)
			defer r.Close()
			sel, err := r.Prefill(cmd.Context(), named)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, sel, func(w io.Writer) {
				fmt.Fprintf(w, "country=%d state=%d city=%d\n", *sel.CountryID, *sel.StateID, *sel.CityID)
			})
		},
	}
	prefill.Flags().StringVar(&named.Country, "country", "", "country name")
	prefill.Flags().StringVar(&named.State, "state", "", "state name")
	prefill.Flags().StringVar(&named.City, "city", "", "city name")
	_ = prefill.MarkFlagRequired("country")
	_ = prefill.MarkFlagRequired("state")
	_ = prefill.MarkFlagRequired("city")
	loc.AddCommand(prefill)

	loc.AddCommand(&cobra.Command{
		Use:   "tree",
		Short: "Print the whole hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := fetchTree(cmd.Context(), location.NewAPISource(env.client))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, tree, func(w io.Writer) {
				for _, c := range tree {
					fmt.Fprintln(w, c.Name)
					for _, s := range c.States {
						fmt.Fprintf(w, "  %s\n", s.Name)
						for _, city := range s.Cities {
							fmt.Fprintf(w, "    %s\n", city.Name)
						}
					}
				}
			})
		},
	})
	return loc
}

// newResolver reports background fetch failures on stderr.
func newResolver(env *cliEnv, cmd *cobra.Command) *location.Resolver {
	errOut := cmd.ErrOrStderr()
	var mu sync.Mutex
	return location.NewResolver(location.NewAPISource(env.client), location.NotifierFunc(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(errOut, "warning:", err)
	}), env.logger)
}

type stateNode struct {
	location.Item
	Cities []location.Item `json:"cities"`
}

type countryNode struct {
	location.Item
	States []stateNode `json:"states"`
}

// fetchTree loads every level. States and cities are fetched concurrently,
// and the result keeps the server's order.
func fetchTree(ctx context.Context, src location.Source) ([]countryNode, error) {
	countries, err := src.Countries(ctx)
	if err != nil {
		return nil, err
	}
	tree := make([]countryNode, len(countries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(treeFetchLimit)
	for i, c := range countries {
		i, c := i, c
		tree[i].Item = c
		g.Go(func() error {
			states, err := src.States(gctx, c.ID)
			if err != nil {
				return fmt.Errorf("states of %s: %w", c.Name, err)
			}
			tree[i].States = make([]stateNode, len(states))
			for j, s := range states {
				tree[i].States[j].Item = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(treeFetchLimit)
	for i := range tree {
		for j := range tree[i].States {
			node := &tree[i].States[j]
			g.Go(func() error {
				cities, err := src.Cities(gctx, node.ID)
				if err != nil {
					return fmt.Errorf("cities of %s: %w", node.Name, err)
				}
				node.Cities = cities
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tree, nil
}

func printItems(w io.Writer, opts *rootOptions, items []location.Item) error {
	return printResult(w, opts, items, func(w io.Writer) {
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\n", it.ID, it.Name)
		}
	})
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive number")
	}
	return id, nil
}

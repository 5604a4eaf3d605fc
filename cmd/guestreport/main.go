// Command guestreport is a terminal front end for the GuestReport API. Each
// invocation runs as one tab: the session lives in the tab scope's store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"guestreport_client/internal/apiclient"
	"guestreport_client/internal/config"
	"guestreport_client/internal/platform/logger"
	"guestreport_client/internal/session"
	"guestreport_client/internal/session/tabstore"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultScope = "default"

// cliEnv holds what every command needs once configuration is loaded.
type cliEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   tabstore.Store
	client  *apiclient.Client
	manager *session.Manager
	closers []func()
}

func (e *cliEnv) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

type rootOptions struct {
	scope     string
	storeKind string
	apiURL    string
	jsonOut   bool
}

func main() {
	env := &cliEnv{}
	if err := execute(newRootCmd(env), env); err != nil {
		os.Exit(1)
	}
}

// execute runs cmd and releases what the command opened, whether or not it
// succeeded.
func execute(cmd *cobra.Command, env *cliEnv) error {
	defer env.close()
	return cmd.Execute()
}

func newRootCmd(env *cliEnv) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "guestreport",
		Short:         "GuestReport client",
		Long:          "Sign in to GuestReport and browse the location hierarchy from a terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.open(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.scope, "scope", "", "tab scope (defaults to SESSION_SCOPE, then \""+defaultScope+"\")")
	root.PersistentFlags().StringVar(&opts.storeKind, "store", "", "session store: memory, file or redis (defaults to SESSION_STORE)")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL (defaults to API_BASE_URL)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newLoginCmd(env, opts),
		newGoogleLoginCmd(env, opts),
		newRegisterCmd(env, opts),
		newLogoutCmd(env),
		newWhoamiCmd(env, opts),
		newEditProfileCmd(env, opts),
		newStatusCmd(env, opts),
		newTabCmd(env),
		newLocationsCmd(env, opts),
	)
	return root
}

func (e *cliEnv) open(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.storeKind != "" {
		cfg.SessionStore = strings.ToLower(opts.storeKind)
	}
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.scope != "" {
		cfg.SessionScope = opts.scope
	}
	if cfg.SessionScope == "" {
		cfg.SessionScope = defaultScope
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	e.cfg = cfg
	e.logger = log
	e.closers = append(e.closers, func() { _ = log.Sync() })

	store, err := e.openStore(cmd.Context())
	if err != nil {
		e.close()
		return err
	}
	e.store = store

	client, err := apiclient.New(cfg.APIBaseURL, apiclient.NewRequestContext(), log, apiclient.WithTimeout(cfg.APITimeout))
	if err != nil {
		e.close()
		return err
	}
	e.client = client

	errOut := cmd.ErrOrStderr()
	e.manager = session.NewManager(client, store, log, session.WithTeardownListener(func() {
		fmt.Fprintln(errOut, "Your session has ended. Please sign in again with 'guestreport login'.")
	}))
	e.manager.Restore(cmd.Context())
	return nil
}

func (e *cliEnv) openStore(ctx context.Context) (tabstore.Store, error) {
	switch e.cfg.SessionStore {
	case config.SessionStoreMemory:
		return tabstore.NewMemoryStore(tabstore.MemoryStoreConfig{}), nil
	case config.SessionStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     e.cfg.RedisAddr,
			Password: e.cfg.RedisPassword,
			DB:       e.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", e.cfg.RedisAddr, err)
		}
		e.closers = append(e.closers, func() { _ = rdb.Close() })
		return tabstore.NewRedisStore(rdb, e.cfg.SessionScope)
	default:
		return tabstore.NewFileStore(e.cfg.SessionDir, e.cfg.SessionScope, e.logger)
	}
}

// printResult writes v as JSON when --json is set and calls text otherwise.
func printResult(w io.Writer, opts *rootOptions, v interface{}, text func(io.Writer)) error {
	if opts.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// Command routectl inspects and edits persisted routing state: the active
// credential pointer and the per-credential model cursors.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/af-corp/aireader-gateway/internal/credential"
	"github.com/af-corp/aireader-gateway/internal/state"
	"github.com/af-corp/aireader-gateway/internal/types"
	"github.com/spf13/cobra"
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is an opened state backend plus the credentials resolved from
// the same configuration directory.
type session struct {
	store       state.Store
	credentials []credential.Credential
	close       func()
}

var openSessionFunc = openSession

func openSession(ctx context.Context, configDir string) (*session, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	loader := config.NewLoader(configDir, logger)
	if err := loader.Load(); err != nil {
		return nil, err
	}
	cfg := loader.Config()

	var backends state.Backends
	var closers []func()
	switch cfg.State.Backend {
	case config.StateBackendRedis:
		rdb, err := state.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if rdb != nil {
			backends.Redis = rdb
			closers = append(closers, func() { rdb.Close() })
		}
	case config.StateBackendPostgres:
		pool, err := state.ConnectPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		backends.Postgres = pool
		closers = append(closers, pool.Close)
	}

	st, err := state.Open(cfg.State, backends, logger)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	return &session{
		store:       st,
		credentials: credential.Resolve(loader.Credentials().Credentials),
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

func newRootCommand() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Inspect and reset AI routing state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "configs", "path to configuration directory")

	root.AddCommand(newShowCommand(&configDir))
	root.AddCommand(newResetCommand(&configDir))
	root.AddCommand(newSetActiveCommand(&configDir))
	return root
}

func withSession(cmd *cobra.Command, configDir string, fn func(*session) error) error {
	s, err := openSessionFunc(cmd.Context(), configDir)
	if err != nil {
		return cliError{code: 2, err: fmt.Errorf("open routing state: %w", err)}
	}
	defer s.close()
	return fn(s)
}

type credentialView struct {
	Index       int    `json:"index"`
	Fingerprint string `json:"fingerprint"`
	Redacted    string `json:"redacted"`
}

type showOutput struct {
	Active      int                           `json:"active"`
	Credentials []credentialView              `json:"credentials"`
	Cursors     map[types.Kind]map[string]int `json:"cursors"`
}

func newShowCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active credential and model cursors as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, *configDir, func(s *session) error {
				return writeShow(cmd.Context(), cmd.OutOrStdout(), s)
			})
		},
	}
}

func writeShow(ctx context.Context, w io.Writer, s *session) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	out := showOutput{
		Active:      snap.Active,
		Credentials: make([]credentialView, 0, len(s.credentials)),
		Cursors:     snap.Cursors,
	}
	for _, c := range s.credentials {
		out.Credentials = append(out.Credentials, credentialView{
			Index:       c.Index,
			Fingerprint: c.Fingerprint(),
			Redacted:    c.Redacted(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newResetCommand(configDir *string) *cobra.Command {
	var kind string
	var credIndex int
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all routing state, or rewind one credential's cursor to the preferred model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, *configDir, func(s *session) error {
				if credIndex < 0 {
					if err := s.store.Clear(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "routing state cleared")
					return nil
				}
				return resetCredential(cmd.Context(), cmd.OutOrStdout(), s, kind, credIndex)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "request kind to reset (text or image; default both)")
	cmd.Flags().IntVar(&credIndex, "credential", -1, "credential index to reset (default: clear everything)")
	return cmd
}

func resetCredential(ctx context.Context, w io.Writer, s *session, kind string, index int) error {
	if index >= len(s.credentials) {
		return cliError{code: 2, err: fmt.Errorf("credential %d out of range: %d configured", index, len(s.credentials))}
	}
	kinds := types.Kinds
	if kind != "" {
		k, ok := types.ParseKind(kind)
		if !ok {
			return cliError{code: 2, err: fmt.Errorf("unknown kind %q", kind)}
		}
		kinds = []types.Kind{k}
	}
	c := s.credentials[index]
	for _, k := range kinds {
		if err := s.store.SetCursor(ctx, k, c.Fingerprint(), 0); err != nil {
			return err
		}
		fmt.Fprintf(w, "reset %s cursor for credential %d (%s)\n", k, c.Index, c.Redacted())
	}
	return nil
}

func newSetActiveCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-active INDEX",
		Short: "Point routing at a credential index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 0 {
				return cliError{code: 2, err: fmt.Errorf("invalid credential index %q", args[0])}
			}
			return withSession(cmd, *configDir, func(s *session) error {
				if n := len(s.credentials); n > 0 && index >= n {
					return cliError{code: 2, err: fmt.Errorf("credential %d out of range: %d configured", index, n)}
				}
				if err := s.store.SetActive(cmd.Context(), index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active credential set to %d\n", index)
				return nil
			})
		},
	}
}

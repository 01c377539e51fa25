package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/noor/internal/infra/kvstore"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage stored user preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a preference",
	Args:  cobra.ExactArgs(1),
	Run:   runPrefs(prefsGet),
}

var prefsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a preference",
	Args:  cobra.ExactArgs(2),
	Run:   runPrefs(prefsSet),
}

var prefsRmCmd = &cobra.Command{
	Use:     "rm [key]",
	Aliases: []string{"remove"},
	Short:   "Remove a preference",
	Args:    cobra.ExactArgs(1),
	Run:     runPrefs(prefsRemove),
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored preference keys",
	Args:  cobra.NoArgs,
	Run:   runPrefs(prefsList),
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd, prefsRmCmd, prefsListCmd)
	rootCmd.AddCommand(prefsCmd)
}

type prefsOp func(ctx context.Context, store kvstore.Store, out io.Writer, args []string) error

func runPrefs(op prefsOp) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if cfg.Redis.URL == "" {
			slog.Error("Preferences need redis.url (or NOOR_REDIS_URL)")
			os.Exit(1)
		}

		store, err := kvstore.NewRedis(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = store.Close()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := op(ctx, store, os.Stdout, args); err != nil {
			slog.Error("Preference command failed", "error", err)
			os.Exit(1)
		}
	}
}

func prefsGet(ctx context.Context, store kvstore.Store, out io.Writer, args []string) error {
	v, err := store.Get(ctx, args[0])
	if errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("no preference %q", args[0])
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, v)
	return nil
}

func prefsSet(ctx context.Context, store kvstore.Store, _ io.Writer, args []string) error {
	return store.Set(ctx, args[0], args[1])
}

func prefsRemove(ctx context.Context, store kvstore.Store, _ io.Writer, args []string) error {
	return store.Remove(ctx, args[0])
}

func prefsList(ctx context.Context, store kvstore.Store, out io.Writer, _ []string) error {
	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

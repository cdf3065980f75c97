package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	coreconfig "github.com/karacho11/first-chatbot-back/core/config"
	"github.com/karacho11/first-chatbot-back/validations"
)

const cliTimeout = 10 * time.Second

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the stored conversation of a user",
}

var historyShowCmd = &cobra.Command{
	Use:   "show <userName>",
	Short: "Print the stored conversation history as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), args[0], func(ctx context.Context, e *engine) error {
			turns := e.history.GetHistory(ctx, args[0])
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(turns)
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <userName>",
	Short: "Delete the stored conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), args[0], func(ctx context.Context, e *engine) error {
			if err := e.history.Clear(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "history of %s cleared\n", args[0])
			return nil
		})
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots <userName>",
	Short: "List the conversation snapshots of a user as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), args[0], func(ctx context.Context, e *engine) error {
			snaps, err := e.snapshots.List(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snaps)
		})
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyClearCmd, snapshotsCmd)
	rootCmd.AddCommand(historyCmd)
}

func withStores(parent context.Context, userName string, fn func(ctx context.Context, e *engine) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, cliTimeout)
	defer cancel()

	if err := validations.ValidateUserName(ctx, userName); err != nil {
		return err
	}

	cfg := coreconfig.Global
	if !cfg.Valkey.Enabled {
		logrus.Warn("[HISTORY] In-process cache selected; nothing persisted by a server is visible here")
	}

	e, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	return fn(ctx, e)
}

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"catalog-crawler/internal/reconcile"
)

// newReconcileCmd creates the 'reconcile' subcommand. It replays the
// diff-and-tombstone pass for a completed session, useful after a crawl
// that ran with --skip-reconcile.
func newReconcileCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Tombstones entities a completed session did not see",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}
			return runReconcile(cmd.Context(), sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "completed session ID to reconcile against")
	return cmd
}

func runReconcile(ctx context.Context, sessionID string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	session, ok, err := deps.sessions.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if !ok {
		return fmt.Errorf("session %s has no checkpoint", sessionID)
	}

	if err := reconcile.New(deps.entities, logger).Run(ctx, session); err != nil {
		return fmt.Errorf("reconcile session %s: %w", sessionID, err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/listingscope/internal/engine"
	"github.com/kiranshivaraju/listingscope/internal/project"
	"github.com/kiranshivaraju/listingscope/internal/reaper"
)

// noNotify satisfies engine.Notifier for a sweep, which never dispatches.
type noNotify struct{}

func (noNotify) Notify(context.Context, engine.Notification) error { return nil }

func newReapCmd(opts *rootOptions, open opener) *cobra.Command {
	var (
		timeout time.Duration
		batch   int
	)

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Fail projects stuck in processing, once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeout <= 0 {
				return fmt.Errorf("--timeout must be positive")
			}

			b, err := open(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer b.close()

			// The signer and base URL are never used on the expiry path.
			svc := project.NewService(b.store, b.cache, noNotify{}, project.NewSigner(""),
				project.Config{ProcessingTimeout: timeout})
			r := reaper.New(b.store, svc, reaper.Config{ProcessingTimeout: timeout, BatchSize: batch})

			total := 0
			for {
				n, err := r.Sweep(cmd.Context())
				total += n
				if err != nil {
					return fmt.Errorf("sweep after %d expired: %w", total, err)
				}
				if n < batch || n == 0 {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d projects\n", total)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Hour, "Processing time after which a project is failed")
	cmd.Flags().IntVar(&batch, "batch", 100, "Projects expired per sweep")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := pollHealth(cmd.Context(), wait)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying until the server answers or this long has passed")
	return cmd
}

// pollHealth retries until the arbiter answers or wait elapses
func pollHealth(ctx context.Context, wait time.Duration) (HealthResult, error) {
	deadline := time.Now().Add(wait)
	for {
		result, err := client.Health(ctx)
		if err == nil || time.Now().After(deadline) {
			return result, err
		}
		select {
		case <-ctx.Done():
			return HealthResult{}, fmt.Errorf("waiting for server: %w", ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

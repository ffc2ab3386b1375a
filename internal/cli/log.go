package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mcoot/rpsarbiter/internal/config"
	"github.com/mcoot/rpsarbiter/internal/dependencies/clock"
	"github.com/mcoot/rpsarbiter/internal/dependencies/random"
	"github.com/mcoot/rpsarbiter/internal/eventid"
	"github.com/mcoot/rpsarbiter/internal/factory"
	"github.com/mcoot/rpsarbiter/internal/services/dispatch"
	filestorage "github.com/mcoot/rpsarbiter/internal/storage/file"
)

// errVerifyFailed makes verify exit non-zero after printing its summary
var errVerifyFailed = errors.New("log contains lines that failed verification")

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Offline replay log tools",
	}

	cmd.PersistentFlags().StringVar(&cfg.Secret, "secret", cfg.Secret, "Event id secret (env: RPS_SECRET, prompted when empty)")

	cmd.AddCommand(newLogVerifyCmd())
	cmd.AddCommand(newLogExportCmd())
	cmd.AddCommand(newLogFoldCmd())

	return cmd
}

// secret returns the configured secret, prompting on a terminal
func secret() (string, error) {
	if cfg.Secret != "" {
		return cfg.Secret, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--secret is required")
	}

	fmt.Fprint(os.Stderr, "Secret: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("secret must not be empty")
	}
	cfg.Secret = string(b)
	return cfg.Secret, nil
}

// logFiles accepts a single log file or a log directory
func logFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return filestorage.Files(path)
}

func newLogVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <path>",
		Short: "Check every event id in a log file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret()
			if err != nil {
				return err
			}
			files, err := logFiles(args[0])
			if err != nil {
				return err
			}

			result, err := verify(cmd.Context(), key, files)
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			if result.Invalid > 0 || result.Malformed > 0 {
				return errVerifyFailed
			}
			return nil
		},
	}
}

// verify counts well-formed lines whose event id does or does not carry a
// valid tag for key
func verify(ctx context.Context, key string, files []string) (VerifyResult, error) {
	codec := eventid.New(key, clock.New(), random.New())
	result := VerifyResult{Files: len(files)}

	err := filestorage.ReplayFiles(ctx, files, func(line string) error {
		result.Lines++
		id, _, _, ok := dispatch.ParseLine(line)
		switch {
		case !ok:
			result.Malformed++
		case codec.Valid(id):
			result.Valid++
		default:
			result.Invalid++
		}
		return nil
	})
	return result, err
}

func newLogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir> <out.zst>",
		Short: "Compress every log in a directory into one zstd archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}

			n, err := filestorage.WriteArchive(cmd.Context(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(args[1])
				return fmt.Errorf("exporting %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d lines to %s\n", n, args[1])
			return nil
		},
	}
}

func newLogFoldCmd() *cobra.Command {
	var (
		identity string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "fold <dir>",
		Short: "Replay a log directory and print the resulting leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret()
			if err != nil {
				return err
			}

			c := config.Default()
			c.Secret = key
			c.Identity = identity

			app := factory.NewOffline(&c, filestorage.OpenDir(args[0]), nil)
			n, err := app.Arbiter.Restore(cmd.Context())
			if err != nil {
				return err
			}

			stats := app.Registry.Leaderboard(limit)
			entries := make([]LeaderboardEntry, len(stats))
			for i, p := range stats {
				entries[i] = LeaderboardEntry{
					Rank: i + 1, Name: p.Name, Score: p.Score,
					Wins: p.Wins, Losses: p.Losses, Ties: p.Ties,
				}
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(FoldResult{
				Lines:       n,
				Players:     app.Registry.Len(),
				Matches:     app.Matches.Len(),
				OpenMatches: len(app.Matches.Open()),
				Leaderboard: Leaderboard{Entries: entries},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&identity, "identity", config.Default().Identity, "Arbiter identity the log was recorded under")
	cmd.Flags().IntVar(&limit, "limit", 10, "Leaderboard entries (0 for all)")
	return cmd
}

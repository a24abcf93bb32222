package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var fetch bool

	cmd := &cobra.Command{
		Use:   "show <number>",
		Short: "Print a cached RFC",
		Long: `Print the text of the given RFC from the local cache.

With --fetch, a document missing from the cache is downloaded first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid RFC number: %s", args[0])
			}
			return runShow(cmd.Context(), cmd, number, fetch)
		},
	}

	cmd.Flags().BoolVar(&fetch, "fetch", true, "Download the document if it is not cached yet")

	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, number int, fetch bool) error {
	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	entry, err := reg.ByNumber(number)
	if err != nil {
		return err
	}

	if !entry.Exists() {
		if !fetch {
			return fmt.Errorf("RFC %d is not cached locally (re-run with --fetch)", number)
		}
		if err := entry.Update(ctx); err != nil {
			return err
		}
	}

	body, err := os.ReadFile(entry.Path())
	if err != nil {
		return fmt.Errorf("error reading %s: %w", entry.Path(), err)
	}

	_, err = cmd.OutOrStdout().Write(body)
	return err
}

package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"rfcmirror/internal/output"
)

// updateOptions holds CLI flags for update.
type updateOptions struct {
	indexOnly bool
	skipFetch bool
}

func newUpdateCmd() *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh the index, fetch missing RFCs and reindex",
		Long: `Update the local mirror in three steps:

  1. Download the remote RFC index file and reload the registry.
  2. Fetch RFC text files missing from the local cache.
  3. Add documents missing from the search index.

Each step is restartable; re-running update resumes where a previous
run failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.indexOnly, "index-only", false, "Only refresh the index file, skip documents")
	cmd.Flags().BoolVar(&opts.skipFetch, "skip-fetch", false, "Skip downloading missing documents, still reindex")

	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, opts updateOptions) error {
	out := output.New(cmd.OutOrStdout())

	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	out.Status("📥", "Updating RFC index...")
	if err := reg.Update(ctx); err != nil {
		return err
	}
	out.Successf("Index updated: %d entries, latest RFC %d", reg.Len(), reg.Latest())

	if opts.indexOnly {
		return nil
	}

	if !opts.skipFetch {
		out.Status("📥", "Fetching missing documents...")
		fetched, err := reg.FetchMissing(ctx, func(done, total int) {
			out.Progress(done, total, "downloading")
		})
		if err != nil {
			slog.Error("fetch failed", slog.String("error", err.Error()))
			return err
		}
		if fetched == 0 {
			out.Status("", "All documents already cached")
		} else {
			out.Successf("Fetched %d documents", fetched)
		}
	}

	out.Status("🔍", "Indexing missing documents...")
	added, err := reg.IndexMissing(ctx)
	if err != nil {
		return err
	}
	if added == 0 {
		out.Status("", "Search index already up to date")
	} else {
		out.Successf("Indexed %d documents", added)
	}

	return nil
}

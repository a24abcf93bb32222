package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rfcmirror/internal/cache"
	"rfcmirror/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	body   bool
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search the mirrored RFC corpus",
		Long: `Search RFC titles, and optionally the cached document bodies, for
the given terms.

Examples:
  rfcmirror search transmission control
  rfcmirror search --body congestion window
  rfcmirror search --format json http`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.body, "body", "b", false, "Also search cached document bodies")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, terms []string, opts searchOptions) error {
	switch opts.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q (expected text or json)", opts.format)
	}

	out := output.New(cmd.OutOrStdout())

	reg, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	results, err := reg.Search(ctx, terms, opts.body)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		out.Statusf("", "No results for %q", strings.Join(terms, " "))
		return nil
	}

	switch opts.format {
	case "json":
		return formatJSON(cmd, results)
	default:
		formatText(out, results)
		return nil
	}
}

// formatText outputs results in human-readable form.
func formatText(out *output.Writer, results []*cache.Entry) {
	for _, entry := range results {
		line := fmt.Sprintf("RFC %-5d %s", entry.Number, entry.Title)
		if entry.HasDate() {
			line += fmt.Sprintf(" (%s)", entry.Date.Format("January 2006"))
		}
		out.Status("", line)
	}
}

// formatJSON outputs results as a JSON array.
func formatJSON(cmd *cobra.Command, results []*cache.Entry) error {
	type jsonResult struct {
		Number      int               `json:"number"`
		Title       string            `json:"title"`
		Date        string            `json:"date,omitempty"`
		Flags       map[string]string `json:"flags,omitempty"`
		Description string            `json:"description"`
		Cached      bool              `json:"cached"`
	}

	out := make([]jsonResult, 0, len(results))
	for _, entry := range results {
		r := jsonResult{
			Number:      entry.Number,
			Title:       entry.Title,
			Flags:       entry.Flags,
			Description: entry.Description,
			Cached:      entry.Exists(),
		}
		if entry.HasDate() {
			r.Date = entry.Date.Format("2006-01")
		}
		out = append(out, r)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"rfcmirror/internal/output"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show mirror health and counts",
		Long: `Display the state of the three local stores:
  - entries loaded from the index file
  - document files present in the cache
  - documents present in the search index`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	reg, cfg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	cached := 0
	for _, entry := range reg.Entries() {
		if entry.Exists() {
			cached++
		}
	}

	indexed, err := reg.Indexed()
	if err != nil {
		return err
	}

	if jsonOutput {
		status := struct {
			CacheDir string `json:"cache_dir"`
			IndexURL string `json:"index_url"`
			Entries  int    `json:"entries"`
			Latest   int    `json:"latest"`
			Cached   int    `json:"cached"`
			Indexed  int    `json:"indexed"`
		}{
			CacheDir: cfg.CacheDir,
			IndexURL: cfg.IndexURL,
			Entries:  reg.Len(),
			Latest:   reg.Latest(),
			Cached:   cached,
			Indexed:  len(indexed),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out.Statusf("", "Cache root:      %s", cfg.CacheDir)
	out.Statusf("", "Index source:    %s", cfg.IndexURL)
	out.Statusf("", "Loaded entries:  %d (latest RFC %d)", reg.Len(), reg.Latest())
	out.Statusf("", "Cached files:    %d", cached)
	out.Statusf("", "Indexed:         %d", len(indexed))

	if reg.Len() == 0 {
		out.Newline()
		out.Warning("No index loaded. Run 'rfcmirror update' first.")
	}

	return nil
}

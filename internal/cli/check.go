package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zoobzio/areabook/contacts"
)

func newCheckCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate every area file in the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), dataDir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "data_files", "directory of area files")
	return cmd
}

// runCheck runs every area file through the lookup pipeline and reports
// per-area results. It returns an error if any area fails, so the
// command exits non-zero on bad data.
func runCheck(ctx context.Context, dataDir string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}

	var areas []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		areas = append(areas, strings.TrimSuffix(entry.Name(), ".txt"))
	}
	sort.Strings(areas)

	if len(areas) == 0 {
		return fmt.Errorf("no area files found in %s", dataDir)
	}

	store := contacts.NewStore(dataDir)
	pipeline := store.Pipeline()
	defer func() { _ = pipeline.Close() }()

	ok := color.New(color.FgGreen).Sprint("OK ")
	bad := color.New(color.FgRed).Sprint("ERR")

	failed := 0
	for _, area := range areas {
		people, err := pipeline.Process(ctx, area)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %-20s %s\n", bad, area, err)
			continue
		}
		fmt.Fprintf(out, "%s %-20s %d contact(s)\n", ok, area, len(people))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d area(s) failed validation", failed, len(areas))
	}
	return nil
}

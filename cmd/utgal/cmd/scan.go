package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/store"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <gallery>",
	Short: "Visit every template in a gallery file",
	Long: `Walk a gallery file record by record and print a line per template.

Sequential scans visit templates in file order and stop at the first
structural error. Parallel scans locate every record boundary first, so a
corrupt file produces no output at all, then visit templates on a bounded
worker pool in no particular order. Files ending in .zst are read through
the zstd decoder.

Examples:
  utgal scan faces
  utgal scan ./faces.utg --parallel --workers 8 --count
  utgal scan faces.utg.zst`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		scanConfig := container.ScannerConfig()

		parallel := cfg.Scan.Parallel
		if cmd.Flags().Changed("parallel") {
			parallel, _ = cmd.Flags().GetBool("parallel")
		}
		if cmd.Flags().Changed("streaming") {
			scanConfig.Streaming, _ = cmd.Flags().GetBool("streaming")
		}
		if cmd.Flags().Changed("workers") {
			scanConfig.Workers, _ = cmd.Flags().GetInt("workers")
		}
		compressed, _ := cmd.Flags().GetBool("compressed")
		limit, _ := cmd.Flags().GetInt("limit")
		countOnly, _ := cmd.Flags().GetBool("count")

		path := galleryPath(args[0])
		if strings.HasSuffix(path, ".zst") {
			compressed = true
		}
		if compressed && parallel {
			return fmt.Errorf("compressed galleries can only be scanned sequentially")
		}

		out := cmd.OutOrStdout()
		if !countOnly {
			printTemplateHeader(out)
		}

		var (
			mu      sync.Mutex
			visited int
			offset  int64
		)
		visit := func(r *codec.Record) error {
			mu.Lock()
			defer mu.Unlock()
			if limit > 0 && visited >= limit {
				return codec.ErrStop
			}
			visited++
			if !countOnly {
				// offsets are only known in file order
				shown := int64(-1)
				if !parallel {
					shown = offset
				}
				printTemplate(out, shown, r)
			}
			offset += r.Size()
			return nil
		}

		scanner := store.NewScanner(scanConfig)
		var err error
		if compressed {
			err = scanner.ScanCompressedFile(cmd.Context(), path, visit)
		} else {
			err = scanner.ScanFile(cmd.Context(), path, visit, parallel)
		}
		if err != nil {
			return fmt.Errorf("scan stopped after %d templates: %w", visited, err)
		}

		fmt.Fprintf(out, "%d templates\n", visited)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("parallel", false, "Visit templates on a worker pool (default from config)")
	scanCmd.Flags().Bool("streaming", false, "Read incrementally instead of loading the file")
	scanCmd.Flags().Int("workers", 0, "Parallel worker bound (0 for GOMAXPROCS)")
	scanCmd.Flags().Bool("compressed", false, "Read a zstd-compressed gallery")
	scanCmd.Flags().Int("limit", 0, "Stop after this many templates (0 for all)")
	scanCmd.Flags().Bool("count", false, "Only print the number of templates")
}

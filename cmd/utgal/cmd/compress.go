package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/store"
)

// compressCmd represents the compress command
var compressCmd = &cobra.Command{
	Use:   "compress <src> <dst>",
	Short: "Write a zstd-compressed copy of a gallery",
	Long: `Write a zstd-compressed copy of a gallery for archival or transfer. The
source is validated while it streams, so a corrupt gallery never produces a
compressed copy. With --decompress the direction is reversed.

Examples:
  utgal compress faces faces.utg.zst --level 19
  utgal compress --decompress faces.utg.zst restored.utg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetInt("level")
		decompress, _ := cmd.Flags().GetBool("decompress")

		var (
			result *store.CompressResult
			err    error
		)
		if decompress {
			result, err = store.DecompressFile(cmd.Context(), args[0], args[1])
		} else {
			result, err = store.CompressFile(cmd.Context(), galleryPath(args[0]), args[1], level)
		}
		if err != nil {
			return err
		}

		ratio := 0.0
		if result.BytesIn > 0 {
			ratio = float64(result.BytesOut) / float64(result.BytesIn)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d templates: %s -> %s (%.2fx)\n",
			result.Records, formatBytes(result.BytesIn), formatBytes(result.BytesOut), ratio)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().Int("level", 0, "zstd compression level (0 for the default)")
	compressCmd.Flags().Bool("decompress", false, "Restore a plain gallery from a compressed one")
}

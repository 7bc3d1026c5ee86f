package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/store"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <gallery>...",
	Short: "Check gallery files for structural corruption",
	Long: `Walk every record boundary of each gallery file and report the offset of
the first truncated or misaligned record. Exits non-zero if any file is
corrupt.

Example:
  utgal verify faces ./archive/*.utg`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var corrupt int
		for _, arg := range args {
			result, err := store.VerifyFile(cmd.Context(), galleryPath(arg))
			if err != nil {
				return err
			}
			if result.Corrupt {
				corrupt++
				fmt.Fprintf(out, "CORRUPT %s: %d valid templates, corruption at offset %d of %d: %s\n",
					result.Path, result.Records, result.CorruptionOffset, result.FileSize, result.Error)
				continue
			}
			fmt.Fprintf(out, "OK      %s: %d templates, %s\n",
				result.Path, result.Records, formatBytes(result.FileSize))
		}
		if corrupt > 0 {
			return fmt.Errorf("%d of %d galleries are corrupt; run utgal repair to truncate them", corrupt, len(args))
		}
		return nil
	},
}

// repairCmd represents the repair command
var repairCmd = &cobra.Command{
	Use:   "repair <gallery>",
	Short: "Truncate a corrupt gallery to its last valid record",
	Long: `Truncate a gallery file at the last record boundary that verifies, dropping
the corrupt tail. Everything after the first structural error is lost, so
run verify first and keep a copy if the tail matters.

Example:
  utgal repair faces`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := store.RepairFile(cmd.Context(), galleryPath(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if result.BytesTruncated == 0 {
			fmt.Fprintf(out, "Gallery is intact: %d templates\n", result.RecordsKept)
			return nil
		}
		fmt.Fprintf(out, "Truncated %d bytes: kept %d templates, %d -> %d bytes\n",
			result.BytesTruncated, result.RecordsKept, result.FileSizeBefore, result.FileSizeAfter)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd, repairCmd)
}

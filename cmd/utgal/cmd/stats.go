package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/store"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <gallery>",
	Short: "Show gallery statistics",
	Long: `Open a gallery, build its indexes and print template, image, label and
algorithm counts.

Examples:
  utgal stats faces
  utgal stats ./faces.utg --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		path := galleryPath(args[0])
		gallery, err := store.NewGallery(container.GalleryConfig(path))
		if err != nil {
			return err
		}
		opened, err := gallery.Open()
		if err != nil {
			return err
		}
		defer gallery.Close()

		stats := gallery.Stats()
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Fprintf(out, "Gallery:     %s\n", stats.Path)
		fmt.Fprintf(out, "Size:        %s (%d bytes)\n", formatBytes(stats.DataSize), stats.DataSize)
		fmt.Fprintf(out, "Templates:   %d\n", stats.Templates)
		fmt.Fprintf(out, "Images:      %d\n", stats.Images)
		fmt.Fprintf(out, "Labels:      %d\n", stats.Labels)
		fmt.Fprintf(out, "Algorithms:  %d\n", stats.Algorithms)
		fmt.Fprintf(out, "Index build: %s\n", opened.BuildTime)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")
}

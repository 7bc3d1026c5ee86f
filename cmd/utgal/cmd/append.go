package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/store"
)

// appendCmd represents the append command
var appendCmd = &cobra.Command{
	Use:   "append <gallery>",
	Short: "Append templates to a gallery",
	Long: `Append a template to a gallery file, creating the file if needed.

The gallery is a file path or the name of a gallery in the data directory.
With --from, every template of another gallery file is copied instead.

Examples:
  utgal append faces --image photo.jpg --label 7 --url http://x/photo.jpg --features 0.1,0.2,0.3
  utgal append ./faces.utg --image-id 0123456789abcdef0123456789abcdef --fv-file vec.bin
  utgal append faces --from incoming.utg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := galleryPath(args[0])
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create gallery directory: %w", err)
		}

		if from, _ := cmd.Flags().GetString("from"); from != "" {
			return appendFrom(cmd, path, from)
		}

		record, err := templateFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := store.AppendRecord(path, record); err != nil {
			return err
		}

		h := record.Header()
		fmt.Fprintf(cmd.OutOrStdout(), "Appended %d-byte template for image %s to %s\n",
			record.Size(), h.ImageIDHex(), path)
		return nil
	},
}

// appendFrom copies every template of the gallery at src onto the gallery at dst
func appendFrom(cmd *cobra.Command, dst, src string) error {
	gallery, err := store.NewGallery(container.GalleryConfig(dst))
	if err != nil {
		return err
	}
	if _, err := gallery.Open(); err != nil {
		return err
	}
	defer gallery.Close()

	var appended int
	scanner := store.NewScanner(container.ScannerConfig())
	err = scanner.ScanFile(cmd.Context(), src, func(r *codec.Record) error {
		if _, err := gallery.Append(r); err != nil {
			return err
		}
		appended++
		return nil
	}, false)
	if err != nil {
		return fmt.Errorf("appended %d templates before failing: %w", appended, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Appended %d templates from %s to %s\n", appended, src, dst)
	return nil
}

func init() {
	rootCmd.AddCommand(appendCmd)
	addTemplateFlags(appendCmd)
	appendCmd.Flags().String("from", "", "Copy every template of this gallery file")
}

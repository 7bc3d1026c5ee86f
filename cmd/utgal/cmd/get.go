package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/codec"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <gallery> <image-id>",
	Short: "Show the templates recorded for an image",
	Long: `Show every template a gallery holds for an image ID, in file order.

The image ID may be a unique hex prefix.

Example:
  utgal get faces 0123456789abcdef0123456789abcdef
  utgal get faces 01234567`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gallery, err := openGallery(args[0])
		if err != nil {
			return err
		}
		defer gallery.Close()

		idHex := args[1]
		if len(idHex) < 32 {
			matches := gallery.ImageIDs(idHex)
			switch len(matches) {
			case 0:
				return fmt.Errorf("no image ID starts with %q", idHex)
			case 1:
				idHex = matches[0]
			default:
				return fmt.Errorf("image ID prefix %q is ambiguous (%d matches)", idHex, len(matches))
			}
		}
		imageID, err := codec.ParseImageID(idHex)
		if err != nil {
			return err
		}

		records, err := gallery.Get(imageID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, record := range records {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printTemplateDetail(out, record)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

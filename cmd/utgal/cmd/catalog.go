package cmd

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/codec"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage templates waiting to be added to a gallery",
	Long: `The catalog holds templates that have been submitted but not yet written
to a gallery. Entries are keyed by time-ordered IDs, and export appends them
to a gallery oldest first.`,
}

var catalogPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Add a template to the catalog",
	Long: `Add a template to the catalog.

Example:
  utgal catalog put --image photo.jpg --label 3 --features 0.5,0.25`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := templateFromFlags(cmd)
		if err != nil {
			return err
		}
		catalog, err := container.Catalog()
		if err != nil {
			return err
		}
		id, err := catalog.Create(record)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

var catalogGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}
		catalog, err := container.Catalog()
		if err != nil {
			return err
		}
		record, err := catalog.Read(id)
		if err != nil {
			return err
		}
		printTemplateDetail(cmd.OutOrStdout(), record)
		return nil
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}
		catalog, err := container.Catalog()
		if err != nil {
			return err
		}
		if err := catalog.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		catalog, err := container.Catalog()
		if err != nil {
			return err
		}
		entries, err := catalog.List(limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, entry := range entries {
			h := entry.Record.Header()
			fmt.Fprintf(out, "%s  %s  image=%s label=%d alg=%d %s\n",
				entry.ID, entry.CreatedAt().Format(time.RFC3339),
				h.ImageIDHex(), h.Label, h.AlgorithmID, entry.Record.URL())
		}
		fmt.Fprintf(out, "%d entries\n", len(entries))
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <gallery>",
	Short: "Append every catalog entry to a gallery",
	Long: `Append every catalog entry to the named gallery in ID order and remove the
exported entries from the catalog.

Example:
  utgal catalog export faces`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := container.Registry()
		if err != nil {
			return err
		}
		gallery, err := registry.GetOrCreate(args[0])
		if err != nil {
			return err
		}
		catalog, err := container.Catalog()
		if err != nil {
			return err
		}

		result, err := catalog.Export(cmd.Context(), func(r *codec.Record) error {
			_, err := gallery.Append(r)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d templates (%s) to %s\n",
			result.Exported, formatBytes(result.Bytes), gallery.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogPutCmd, catalogGetCmd, catalogDeleteCmd, catalogListCmd, catalogExportCmd)

	addTemplateFlags(catalogPutCmd)
	catalogListCmd.Flags().Int("limit", 0, "Maximum entries to list (0 for all)")
}

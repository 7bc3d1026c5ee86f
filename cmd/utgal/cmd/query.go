package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/utgallery/pkg/query"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <gallery>",
	Short: "Select templates by a header field",
	Long: `Select templates whose header field satisfies a comparison. label and
algorithm_id are answered from the in-memory B+tree indexes; other fields
(x, y, width, height, url_size, fv_size) use a filtered scan. Results are
printed in file order.

Examples:
  utgal query faces --field label --value 7
  utgal query faces --field width --op ">=" --value 64 --explain`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, _ := cmd.Flags().GetString("field")
		op, _ := cmd.Flags().GetString("op")
		value, _ := cmd.Flags().GetString("value")
		explain, _ := cmd.Flags().GetBool("explain")

		q, err := query.ParseFieldQuery(field, op, value)
		if err != nil {
			return err
		}

		gallery, err := openGallery(args[0])
		if err != nil {
			return err
		}
		defer gallery.Close()

		engine := query.NewSimpleQueryEngine(gallery)
		out := cmd.OutOrStdout()
		if explain {
			fmt.Fprintf(out, "plan: %s (%s)\n", engine.Explain(q), q)
		}

		it, err := engine.ExecuteQuery(cmd.Context(), q)
		if err != nil {
			return err
		}
		defer it.Close()

		printTemplateHeader(out)
		var n int
		for it.Next() {
			result := it.Result()
			printTemplate(out, result.Offset, result.Record)
			n++
		}
		fmt.Fprintf(out, "%d templates\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("field", "label", "Header field to compare")
	queryCmd.Flags().String("op", "=", "Comparison operator (=, !=, >, <, >=, <=)")
	queryCmd.Flags().String("value", "", "Value to compare against")
	queryCmd.Flags().Bool("explain", false, "Print the query plan")
	_ = queryCmd.MarkFlagRequired("value")
}

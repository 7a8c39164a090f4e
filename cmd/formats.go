package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablescope/internal/parser"
	"github.com/KaramelBytes/tablescope/internal/source"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported file formats and database dialects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "files:     %s\n", strings.Join(parser.SupportedFormats(), " "))
		fmt.Fprintf(out, "databases: %s\n", strings.Join(source.Dialects(), " "))
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

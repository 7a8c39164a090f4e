package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablescope/internal/parser"
	"github.com/KaramelBytes/tablescope/internal/utils"
)

var (
	anaOutputPath string
	anaEngine     engineFlags
	anaDecode     decodeFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify and profile every column of a table file",
	Long: `Reads a CSV, TSV, TXT, JSON, XLSX, Markdown, DOCX or SQLite file, classifies
each column and prints per-column statistics.

Examples:
  tablescope analyze sales.csv
  tablescope analyze report.xlsx --sheet Q3 --format json -o q3.json
  tablescope analyze users.csv --policy name_aware_id --override zip=categorical`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := anaDecode.options()
		if err != nil {
			return err
		}
		t, err := parser.DecodeFile(path, opt)
		if err != nil {
			return err
		}
		rep, err := runAnalysis(cmd.Context(), &anaEngine, filepath.Base(path), t)
		if err != nil {
			return err
		}

		if anaOutputPath == "" {
			return writeReport(cmd.OutOrStdout(), rep, anaEngine.format)
		}
		var buf bytes.Buffer
		if err := writeReport(&buf, rep, anaEngine.format); err != nil {
			return err
		}
		if dir := filepath.Dir(anaOutputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := utils.SafeWriteFile(anaOutputPath, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to a file instead of stdout")
	anaEngine.register(analyzeCmd.Flags())
	anaDecode.register(analyzeCmd.Flags())
}

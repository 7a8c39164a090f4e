package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablescope/internal/parser"
	"github.com/KaramelBytes/tablescope/internal/utils"
)

var (
	abOutputDir string
	abQuiet     bool
	abKeepGoing bool
	abEngine    engineFlags
	abDecode    decodeFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple table files with progress output",
	Long: `Analyzes every file matched by the given paths or glob patterns. Reports go to
stdout, or to one file per input under --output-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := abDecode.options()
		if err != nil {
			return err
		}
		if abOutputDir != "" {
			if err := os.MkdirAll(abOutputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var failed []error
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			var buf bytes.Buffer
			err := analyzeOne(cmd, path, opt, &buf)
			if err != nil {
				err = fmt.Errorf("%s: %w", path, err)
				if !abKeepGoing {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
				failed = append(failed, err)
				continue
			}

			if abOutputDir == "" {
				if !abQuiet {
					_, _ = out.Write(buf.Bytes())
				}
				continue
			}
			outFile := uniqueOutputPath(abOutputDir, summaryBase(path, abDecode.sheet), formatExt(abEngine.format))
			if err := utils.SafeWriteFile(outFile, buf.Bytes()); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed: %w", len(failed), total, errors.Join(failed...))
		}
		return nil
	},
}

func analyzeOne(cmd *cobra.Command, path string, opt parser.Options, buf *bytes.Buffer) error {
	t, err := parser.DecodeFile(path, opt)
	if err != nil {
		return err
	}
	rep, err := runAnalysis(cmd.Context(), &abEngine, filepath.Base(path), t)
	if err != nil {
		return err
	}
	return writeReport(buf, rep, abEngine.format)
}

// expandInputs resolves globs and literal paths, dropping duplicates, sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// summaryBase names a report after its input, plus a slug of the sheet.
func summaryBase(path, sheet string) string {
	base := filepath.Base(path)
	safe := strings.TrimSuffix(base, filepath.Ext(base)) + ".summary"
	if sheet == "" {
		return safe
	}
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(sheet)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return strings.TrimSuffix(safe, ".summary") + "__sheet-" + ss + ".summary"
}

// uniqueOutputPath appends __2, __3, ... until the name is free.
func uniqueOutputPath(dir, base, ext string) string {
	out := filepath.Join(dir, base+ext)
	if _, err := os.Stat(out); err != nil {
		return out
	}
	stem := strings.TrimSuffix(base, ".summary")
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.summary%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "write one report per input into this directory")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "continue past files that fail to decode or analyze")
	abEngine.register(analyzeBatchCmd.Flags())
	abDecode.register(analyzeBatchCmd.Flags())
}

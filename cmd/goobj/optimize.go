package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/philipparndt/goobj/pkg/analysis"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/spf13/cobra"
)

var optimizeFlags struct {
	reduction int
	output    string
	stdout    bool
	clamp     bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [file|glob]...",
	Short: "Remove a percentage of the vertices of OBJ files",
	Long: `Keep the first vertices of each model and clamp face references to removed
vertices onto the last one kept. The result is written next to the input as
<name>_optimized.obj unless --output or --stdout is given.

Patterns support ** globbing, e.g. "models/**/*.obj".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().IntVarP(&optimizeFlags.reduction, "reduction", "r", 50, "percentage of vertices to remove")
	optimizeCmd.Flags().StringVarP(&optimizeFlags.output, "output", "o", "", "output file (single input) or directory")
	optimizeCmd.Flags().BoolVar(&optimizeFlags.stdout, "stdout", false, "write the optimized model to stdout")
	optimizeCmd.Flags().BoolVar(&optimizeFlags.clamp, "clamp", false, "clamp the reduction to 0..99")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %v", args)
	}
	if optimizeFlags.stdout && len(files) > 1 {
		return fmt.Errorf("--stdout accepts a single file, got %d", len(files))
	}

	var opts []obj.Option
	if optimizeFlags.clamp {
		opts = append(opts, obj.WithPercentClamp())
	}
	opts = append(opts, obj.WithMalformedHandler(func(m obj.MalformedReference) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", m)
	}))

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		result, err := obj.Optimize(data, optimizeFlags.reduction, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		if optimizeFlags.stdout {
			_, err := cmd.OutOrStdout().Write(result.Optimized)
			return err
		}

		target, err := outputPath(file, optimizeFlags.output, len(files) > 1)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, result.Optimized, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}

		summary := analysis.Summarize(result.OriginalVertexCount, result.OptimizedVertexCount)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", file, summary, target)
	}
	return nil
}

// expandPatterns resolves glob patterns. Arguments without glob
// metacharacters are kept as given so missing files are reported on read.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches := []string{pattern}
		if doublestar.ValidatePattern(pattern) && hasMeta(pattern) {
			var err error
			matches, err = doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}
	return files, nil
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// outputPath returns where the optimized copy of file goes. With several
// inputs a non-empty output must be a directory.
func outputPath(file, output string, multiple bool) (string, error) {
	name := obj.OptimizedFileName(filepath.Base(file))
	if output == "" {
		return filepath.Join(filepath.Dir(file), name), nil
	}

	info, err := os.Stat(output)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(output, name), nil
	case multiple:
		return "", fmt.Errorf("--output must be an existing directory when optimizing several files")
	default:
		return output, nil
	}
}

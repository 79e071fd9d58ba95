package main

import (
	"fmt"
	"os"

	"github.com/philipparndt/goobj/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "goobj",
	Short: "A CLI tool for counting and reducing vertices of OBJ files",
	Long: `goobj reduces Wavefront OBJ models by dropping a percentage of their vertices
and clamping face references onto the ones that remain. It can also inspect
models, watch them for changes and run the model upload service.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count [file]",
	Short: "Count the vertex lines of an OBJ file",
	Long:  `Count lines starting with "v ". Normals and texture coordinates are not counted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	count, err := obj.CountVertices(data)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), count)
	return nil
}

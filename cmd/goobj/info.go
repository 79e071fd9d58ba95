package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/philipparndt/goobj/pkg/analysis"
	"github.com/philipparndt/goobj/pkg/geometry"
	"github.com/philipparndt/goobj/pkg/mesh"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var infoFormat string

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about an OBJ file",
	Long:  "Show vertex and face counts, dimensions, surface area and face defects.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(infoCmd)
}

// infoReport is the machine readable form of info
type infoReport struct {
	File               string     `json:"file" yaml:"file"`
	Name               string     `json:"name,omitempty" yaml:"name,omitempty"`
	VertexLines        int        `json:"vertexLines" yaml:"vertexLines"`
	Faces              int        `json:"faces" yaml:"faces"`
	Triangles          int        `json:"triangles" yaml:"triangles"`
	Normals            int        `json:"normals" yaml:"normals"`
	TexCoords          int        `json:"texCoords" yaml:"texCoords"`
	Min                [3]float64 `json:"min" yaml:"min,flow"`
	Max                [3]float64 `json:"max" yaml:"max,flow"`
	Dimensions         [3]float64 `json:"dimensions" yaml:"dimensions,flow"`
	SurfaceArea        float64    `json:"surfaceArea" yaml:"surfaceArea"`
	DegenerateFaces    int        `json:"degenerateFaces" yaml:"degenerateFaces"`
	DanglingReferences int        `json:"danglingReferences" yaml:"danglingReferences"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	vertexLines, err := obj.CountVertices(data)
	if err != nil {
		return err
	}

	model, err := mesh.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("error parsing OBJ file: %w", err)
	}
	result := analysis.AnalyzeModel(model)

	report := infoReport{
		File:               filename,
		Name:               model.Name,
		VertexLines:        vertexLines,
		Faces:              result.FaceCount,
		Triangles:          result.TriangleCount,
		Normals:            result.NormalCount,
		TexCoords:          result.TexCoordCount,
		Min:                array(result.BoundingBox.Min),
		Max:                array(result.BoundingBox.Max),
		Dimensions:         array(result.Dimensions),
		SurfaceArea:        result.SurfaceArea,
		DegenerateFaces:    result.DegenerateFaces,
		DanglingReferences: result.DanglingReferences,
	}

	out := cmd.OutOrStdout()
	switch infoFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		printInfo(out, report, result)
		return nil
	default:
		return fmt.Errorf("unknown format %q", infoFormat)
	}
}

func printInfo(w io.Writer, report infoReport, result *analysis.Result) {
	fmt.Fprintln(w, "OBJ File Information")
	fmt.Fprintln(w, "====================")
	if report.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", report.Name)
	}
	fmt.Fprintf(w, "File: %s\n\n", report.File)

	fmt.Fprintln(w, "Model Statistics:")
	fmt.Fprintf(w, "  Vertices: %s\n", analysis.FormatCount(report.VertexLines))
	fmt.Fprintf(w, "  Faces: %s\n", analysis.FormatCount(report.Faces))
	fmt.Fprintf(w, "  Triangles: %s\n", analysis.FormatCount(report.Triangles))
	fmt.Fprintf(w, "  Normals: %s\n", analysis.FormatCount(report.Normals))
	fmt.Fprintf(w, "  Texture Coordinates: %s\n", analysis.FormatCount(report.TexCoords))
	fmt.Fprintf(w, "  Surface Area: %.6f square units\n\n", report.SurfaceArea)

	fmt.Fprintln(w, "Bounding Box:")
	fmt.Fprintf(w, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(w, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(w, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(w, "Dimensions:")
	fmt.Fprintf(w, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(w, "  Height (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(w, "  Depth (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(w, "  Diagonal: %.6f units\n\n", result.BoundingBox.Diagonal())

	fmt.Fprintln(w, "Defects:")
	fmt.Fprintf(w, "  Degenerate Faces: %s\n", analysis.FormatCount(report.DegenerateFaces))
	fmt.Fprintf(w, "  Dangling References: %s\n", analysis.FormatCount(report.DanglingReferences))
}

func array(v geometry.Vector3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

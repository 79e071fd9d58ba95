package analysis

import (
	"fmt"
	"math"

	"github.com/philipparndt/goobj/pkg/geometry"
	"github.com/philipparndt/goobj/pkg/mesh"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Result contains statistics of a parsed OBJ model
type Result struct {
	VertexCount        int
	FaceCount          int
	TriangleCount      int
	NormalCount        int
	TexCoordCount      int
	BoundingBox        geometry.BoundingBox
	Dimensions         geometry.Vector3
	SurfaceArea        float64
	DegenerateFaces    int
	DanglingReferences int
}

// AnalyzeModel collects counts, extent and area of a model. Faces that
// reference a missing vertex, repeat a vertex or have no area are counted
// as degenerate; a reducer that collapses references produces many.
func AnalyzeModel(model *mesh.Model) *Result {
	result := &Result{
		VertexCount:   model.VertexCount(),
		FaceCount:     model.FaceCount(),
		NormalCount:   model.Normals,
		TexCoordCount: model.TexCoords,
		BoundingBox:   model.BoundingBox(),
	}
	result.Dimensions = result.BoundingBox.Size()

	for _, face := range model.Faces {
		for _, index := range face {
			if index < 0 || index >= result.VertexCount {
				result.DanglingReferences++
			}
		}

		triangles := model.FaceTriangles(face)
		result.TriangleCount += len(triangles)

		area := 0.0
		for _, triangle := range triangles {
			area += triangle.Area()
		}
		result.SurfaceArea += area

		if len(triangles) == 0 || hasRepeatedIndex(face) || area < 1e-12 {
			result.DegenerateFaces++
		}
	}

	return result
}

func hasRepeatedIndex(face mesh.Face) bool {
	seen := make(map[int]bool, len(face))
	for _, index := range face {
		if seen[index] {
			return true
		}
		seen[index] = true
	}
	return false
}

// Reduction summarizes an optimization the way the upload form shows it
type Reduction struct {
	Original  int
	Optimized int
	Percent   int
}

// Summarize computes the rounded share of vertices removed. An original
// count of zero is treated as one to avoid dividing by zero.
func Summarize(original, optimized int) Reduction {
	denominator := original
	if denominator == 0 {
		denominator = 1
	}
	ratio := float64(original-optimized) / float64(denominator) * 100
	return Reduction{
		Original:  original,
		Optimized: optimized,
		Percent:   int(math.Floor(ratio + 0.5)),
	}
}

// String formats the reduction as "1,000 -> 500 (50% reduction)"
func (r Reduction) String() string {
	return fmt.Sprintf("%s -> %s (%d%% reduction)", FormatCount(r.Original), FormatCount(r.Optimized), r.Percent)
}

var printer = message.NewPrinter(language.English)

// FormatCount formats an integer with thousands separators
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}

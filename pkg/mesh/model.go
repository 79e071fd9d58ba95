package mesh

import (
	"github.com/philipparndt/goobj/pkg/geometry"
)

// Face lists the 0-based vertex indices of a polygon. An index of -1 marks a
// reference that could not be parsed.
type Face []int

// Valid reports whether every index of the face resolves to one of
// vertexCount vertices
func (f Face) Valid(vertexCount int) bool {
	for _, index := range f {
		if index < 0 || index >= vertexCount {
			return false
		}
	}
	return true
}

// Model represents the geometry of an OBJ file
type Model struct {
	Name      string
	Vertices  []geometry.Vector3
	Faces     []Face
	Normals   int
	TexCoords int
}

// NewModel creates a new empty model
func NewModel(name string) *Model {
	return &Model{
		Name:     name,
		Vertices: make([]geometry.Vector3, 0),
		Faces:    make([]Face, 0),
	}
}

// AddVertex appends a vertex and returns its 0-based index
func (m *Model) AddVertex(v geometry.Vector3) int {
	m.Vertices = append(m.Vertices, v)
	return len(m.Vertices) - 1
}

// AddFace appends a face
func (m *Model) AddFace(face Face) {
	m.Faces = append(m.Faces, face)
}

// VertexCount returns the number of vertices in the model
func (m *Model) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of faces in the model
func (m *Model) FaceCount() int {
	return len(m.Faces)
}

// FaceTriangles fan-triangulates a single face. Faces with fewer than three
// corners or an unresolved reference yield nothing.
func (m *Model) FaceTriangles(face Face) []geometry.Triangle {
	if len(face) < 3 || !face.Valid(len(m.Vertices)) {
		return nil
	}

	triangles := make([]geometry.Triangle, 0, len(face)-2)
	for i := 1; i < len(face)-1; i++ {
		triangles = append(triangles, geometry.TriangleFromVertices(
			m.Vertices[face[0]],
			m.Vertices[face[i]],
			m.Vertices[face[i+1]],
		))
	}
	return triangles
}

// Triangles fan-triangulates all valid faces
func (m *Model) Triangles() []geometry.Triangle {
	var triangles []geometry.Triangle
	for _, face := range m.Faces {
		triangles = append(triangles, m.FaceTriangles(face)...)
	}
	return triangles
}

// BoundingBox calculates the bounding box of all vertices, including ones
// no face references
func (m *Model) BoundingBox() geometry.BoundingBox {
	return geometry.BoundingBoxOf(m.Vertices)
}

// SurfaceArea calculates the total area of all valid faces
func (m *Model) SurfaceArea() float64 {
	totalArea := 0.0
	for _, triangle := range m.Triangles() {
		totalArea += triangle.Area()
	}
	return totalArea
}

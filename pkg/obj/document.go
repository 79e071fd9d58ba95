// Package obj implements a naive polygon reducer for Wavefront OBJ text.
//
// The reducer keeps the first N vertex lines, collapses every face
// reference to a removed vertex onto the last surviving vertex and writes
// the result as vertices, then faces, then every other line. It does not
// try to preserve the shape of the mesh.
package obj

import (
	"strings"
)

const (
	vertexPrefix = "v "
	facePrefix   = "f "
)

// Document is a geometry file split into its three line classes. Order
// within each class follows the source.
type Document struct {
	Vertices []string
	Faces    []string
	Others   []string

	// source line numbers of Faces, used for warnings
	faceLines []int
}

// Parse decodes src and classifies every line by literal prefix:
// "v " is a vertex, "f " is a face, anything else is passed through.
// Lines are split on '\n' only; a trailing '\r' stays part of the line.
func Parse(src []byte) (*Document, error) {
	text, err := decode(src)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	for i, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, vertexPrefix):
			doc.Vertices = append(doc.Vertices, line)
		case strings.HasPrefix(line, facePrefix):
			doc.Faces = append(doc.Faces, line)
			doc.faceLines = append(doc.faceLines, i+1)
		default:
			doc.Others = append(doc.Others, line)
		}
	}
	return doc, nil
}

// VertexCount returns the number of vertex lines
func (d *Document) VertexCount() int {
	return len(d.Vertices)
}

// Bytes serializes the document as vertices, faces, others joined by '\n'.
// The original interleaving of the classes is not restored.
func (d *Document) Bytes() []byte {
	lines := make([]string, 0, len(d.Vertices)+len(d.Faces)+len(d.Others))
	lines = append(lines, d.Vertices...)
	lines = append(lines, d.Faces...)
	lines = append(lines, d.Others...)
	return []byte(strings.Join(lines, "\n"))
}

// faceLine returns the source line number of face i, or 0 when unknown
func (d *Document) faceLine(i int) int {
	if i < len(d.faceLines) {
		return d.faceLines[i]
	}
	return 0
}

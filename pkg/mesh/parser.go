package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/goobj/pkg/geometry"
)

// maxLineSize bounds a single OBJ line; long polygon faces can exceed the
// scanner default
const maxLineSize = 4 * 1024 * 1024

// ParseFile reads an OBJ file and returns a Model
func ParseFile(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// ParseBytes parses OBJ text held in memory
func ParseBytes(b []byte) (*Model, error) {
	return Parse(bytes.NewReader(b))
}

// Parse reads OBJ text. Only geometry needed for statistics and previews is
// kept: vertex positions, faces, and counts of normals and texture
// coordinates. Unknown statements are ignored.
func Parse(reader io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	model := NewModel("")

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "o", "g":
			if model.Name == "" && len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}

		case "v":
			if len(fields) >= 4 {
				x, _ := strconv.ParseFloat(fields[1], 64)
				y, _ := strconv.ParseFloat(fields[2], 64)
				z, _ := strconv.ParseFloat(fields[3], 64)
				model.AddVertex(geometry.NewVector3(x, y, z))
			}

		case "vn":
			model.Normals++

		case "vt":
			model.TexCoords++

		case "f":
			face := make(Face, 0, len(fields)-1)
			for _, token := range fields[1:] {
				face = append(face, resolveIndex(token, len(model.Vertices)))
			}
			model.AddFace(face)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading OBJ: %w", err)
	}

	return model, nil
}

// resolveIndex converts the vertex part of a face token to a 0-based index.
// Negative indices are relative to the vertices read so far.
func resolveIndex(token string, seen int) int {
	if i := strings.IndexByte(token, '/'); i >= 0 {
		token = token[:i]
	}

	index, err := strconv.Atoi(token)
	switch {
	case err != nil || index == 0:
		return -1
	case index < 0:
		if seen+index < 0 {
			return -1
		}
		return seen + index
	default:
		return index - 1
	}
}

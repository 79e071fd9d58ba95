package obj

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
)

// Result is the outcome of a reduction
type Result struct {
	Optimized            []byte
	OriginalVertexCount  int
	OptimizedVertexCount int
}

// Removed returns the number of vertices dropped
func (r *Result) Removed() int {
	return r.OriginalVertexCount - r.OptimizedVertexCount
}

type options struct {
	clampPercent bool
	onMalformed  func(MalformedReference)
}

// Option configures Optimize
type Option func(*options)

// WithPercentClamp limits the reduction percentage to [0, 99] before the
// target count is computed. Without it the percentage is used as given.
func WithPercentClamp() Option {
	return func(o *options) {
		o.clampPercent = true
	}
}

// WithMalformedHandler registers a callback for face tokens whose leading
// index is not numeric
func WithMalformedHandler(fn func(MalformedReference)) Option {
	return func(o *options) {
		o.onMalformed = fn
	}
}

// ClampPercent limits a reduction percentage to [0, 99]
func ClampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 99 {
		return 99
	}
	return percent
}

// TargetCount returns floor(original * (1 - percent/100)) limited to
// [0, original]
func TargetCount(original, percent int) int {
	target := int(math.Floor(float64(original) * (1 - float64(percent)/100)))
	if target < 0 {
		return 0
	}
	if target > original {
		return original
	}
	return target
}

// CountVertices returns the number of lines starting with "v ".
// Normals ("vn") and texture coordinates ("vt") are not counted.
func CountVertices(src []byte) (int, error) {
	text, err := decode(src)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, vertexPrefix) {
			count++
		}
	}
	return count, nil
}

// Optimize removes reductionPercent of the vertex lines in src, keeping the
// first ones, and rewrites face references so none points past the new
// vertex count. The only error is a *DecodeError for invalid UTF-8.
func Optimize(src []byte, reductionPercent int, opts ...Option) (*Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}

	percent := reductionPercent
	if o.clampPercent {
		percent = ClampPercent(percent)
	}

	original := doc.VertexCount()
	target := TargetCount(original, percent)

	reduced := &Document{
		Vertices: doc.Vertices[:target],
		Faces:    make([]string, len(doc.Faces)),
		Others:   doc.Others,
	}
	for i, face := range doc.Faces {
		reduced.Faces[i] = remapFace(face, doc.faceLine(i), original, target, o.onMalformed)
	}

	return &Result{
		Optimized:            reduced.Bytes(),
		OriginalVertexCount:  original,
		OptimizedVertexCount: target,
	}, nil
}

// OptimizeReader reads all of r and optimizes it. ctx is checked before the
// read and after the transform.
func OptimizeReader(ctx context.Context, r io.Reader, reductionPercent int, opts ...Option) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry: %w", err)
	}

	result, err := Optimize(src, reductionPercent, opts...)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// OptimizedFileName inserts "_optimized" before the last extension:
// "chair.obj" becomes "chair_optimized.obj"
func OptimizedFileName(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return name + "_optimized"
	}
	return name[:dot] + "_optimized" + name[dot:]
}

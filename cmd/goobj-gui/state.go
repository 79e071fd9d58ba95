package main

import (
	"fmt"
	"path/filepath"

	"github.com/philipparndt/goobj/internal/config"
	"github.com/philipparndt/goobj/pkg/analysis"
	"github.com/philipparndt/goobj/pkg/mesh"
	"github.com/philipparndt/goobj/pkg/obj"
)

// session holds the file being optimized and the chosen reduction
type session struct {
	fileName      string
	original      []byte
	originalCount int
	reduction     int
	clamp         bool
}

func newSession(fileName string, data []byte, optimizer config.OptimizerConfig) (*session, error) {
	count, err := obj.CountVertices(data)
	if err != nil {
		return nil, err
	}
	return &session{
		fileName:      filepath.Base(fileName),
		original:      data,
		originalCount: count,
		reduction:     optimizer.DefaultReduction,
		clamp:         optimizer.ClampPercent,
	}, nil
}

// preview is the reduction shown next to the slider. It is computed from
// the counts only; the file is rewritten on apply.
func (s *session) preview() analysis.Reduction {
	percent := s.reduction
	if s.clamp {
		percent = obj.ClampPercent(percent)
	}
	return analysis.Summarize(s.originalCount, obj.TargetCount(s.originalCount, percent))
}

func (s *session) summary() string {
	return fmt.Sprintf("File: %s\nPolygons: %s", s.fileName, analysis.FormatCount(s.originalCount))
}

func (s *session) previewText() string {
	p := s.preview()
	return fmt.Sprintf("Optimized: %s polygons (%d%% reduction)", analysis.FormatCount(p.Optimized), p.Percent)
}

// apply runs the reducer with the current reduction
func (s *session) apply(onMalformed func(obj.MalformedReference)) (*obj.Result, error) {
	opts := []obj.Option{obj.WithMalformedHandler(onMalformed)}
	if s.clamp {
		opts = append(opts, obj.WithPercentClamp())
	}
	return obj.Optimize(s.original, s.reduction, opts...)
}

func (s *session) outputName() string {
	return obj.OptimizedFileName(s.fileName)
}

// previewMesh parses data for the wireframe preview
func previewMesh(data []byte) *mesh.Model {
	model, err := mesh.ParseBytes(data)
	if err != nil {
		return mesh.NewModel("")
	}
	return model
}

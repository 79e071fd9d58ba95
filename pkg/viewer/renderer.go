package viewer

import (
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/goobj/pkg/mesh"
)

// edge joins two vertex indices of the model
type edge struct {
	a, b int
}

// WireframeView renders the polygon edges of a mesh. Drag rotates, scroll
// zooms.
type WireframeView struct {
	widget.BaseWidget
	model     *mesh.Model
	camera    *Camera
	edges     []edge
	lines     []*canvas.Line
	dragStart *fyne.Position
	width     float64
	height    float64
}

// NewWireframeView creates a view of model
func NewWireframeView(model *mesh.Model) *WireframeView {
	v := &WireframeView{}
	v.ExtendBaseWidget(v)
	v.SetModel(model)
	return v
}

// SetModel replaces the displayed mesh and reframes the camera
func (v *WireframeView) SetModel(model *mesh.Model) {
	v.model = model
	v.camera = NewCamera(model.BoundingBox())
	v.edges = collectEdges(model)
	if v.width > 0 && v.height > 0 {
		v.Render(v.width, v.height)
	}
}

// collectEdges lists each polygon edge once. References to missing vertices
// are skipped so a reduced mesh still draws.
func collectEdges(model *mesh.Model) []edge {
	seen := make(map[edge]bool)
	var edges []edge

	for _, face := range model.Faces {
		for i := range face {
			a, b := face[i], face[(i+1)%len(face)]
			if a < 0 || b < 0 || a >= model.VertexCount() || b >= model.VertexCount() || a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			e := edge{a, b}
			if seen[e] {
				continue
			}
			seen[e] = true
			edges = append(edges, e)
		}
	}
	return edges
}

// EdgeCount returns the number of distinct edges drawn
func (v *WireframeView) EdgeCount() int {
	return len(v.edges)
}

// CreateRenderer creates the renderer for the widget
func (v *WireframeView) CreateRenderer() fyne.WidgetRenderer {
	return &wireframeRenderer{view: v}
}

// Render projects every edge for a canvas of the given size
func (v *WireframeView) Render(width, height float64) {
	v.width = width
	v.height = height

	lines := make([]*canvas.Line, 0, len(v.edges))
	for _, e := range v.edges {
		x1, y1, z1 := v.camera.Project(v.model.Vertices[e.a], width, height)
		x2, y2, z2 := v.camera.Project(v.model.Vertices[e.b], width, height)

		// Simple depth-based color
		avgZ := (z1 + z2) / 2
		brightness := uint8(math.Max(50, math.Min(255, 255-avgZ/v.camera.Distance*80)))

		line := canvas.NewLine(color.RGBA{brightness, brightness, brightness, 255})
		line.StrokeWidth = 1
		line.Position1 = fyne.NewPos(float32(x1), float32(y1))
		line.Position2 = fyne.NewPos(float32(x2), float32(y2))
		lines = append(lines, line)
	}
	v.lines = lines

	v.Refresh()
}

// Dragged handles mouse drag events for rotation
func (v *WireframeView) Dragged(event *fyne.DragEvent) {
	if v.dragStart != nil {
		deltaX := event.Position.X - v.dragStart.X
		deltaY := event.Position.Y - v.dragStart.Y

		v.camera.Rotate(float64(-deltaY)*0.01, float64(deltaX)*0.01)
		v.Render(v.width, v.height)
	}
	v.dragStart = &event.Position
}

// DragEnd handles the end of a drag event
func (v *WireframeView) DragEnd() {
	v.dragStart = nil
}

// Scrolled handles scroll events for zooming
func (v *WireframeView) Scrolled(event *fyne.ScrollEvent) {
	v.camera.Zoom(-float64(event.Scrolled.DY) * 0.001)
	v.Render(v.width, v.height)
}

// wireframeRenderer implements fyne.WidgetRenderer
type wireframeRenderer struct {
	view    *WireframeView
	objects []fyne.CanvasObject
}

func (r *wireframeRenderer) Layout(size fyne.Size) {
	r.view.Render(float64(size.Width), float64(size.Height))
}

func (r *wireframeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 400)
}

func (r *wireframeRenderer) Refresh() {
	r.objects = make([]fyne.CanvasObject, 0, len(r.view.lines))
	for _, line := range r.view.lines {
		r.objects = append(r.objects, line)
	}
	canvas.Refresh(r.view)
}

func (r *wireframeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *wireframeRenderer) Destroy() {}

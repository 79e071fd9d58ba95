package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/goobj/internal/config"
	"github.com/philipparndt/goobj/internal/logger"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/philipparndt/goobj/pkg/viewer"
	"go.uber.org/zap"
)

type App struct {
	window    fyne.Window
	log       *zap.Logger
	optimizer config.OptimizerConfig
	session   *session

	view         *viewer.WireframeView
	infoLabel    *widget.Label
	previewLabel *widget.Label
	statusLabel  *widget.Label
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a := app.New()
	w := a.NewWindow("goobj - Model Optimizer")

	appInstance := &App{
		window:    w,
		log:       log,
		optimizer: cfg.Optimizer,
	}

	if len(os.Args) > 1 {
		appInstance.loadFile(os.Args[1])
	} else {
		appInstance.showWelcomeScreen()
	}

	w.Resize(fyne.NewSize(1100, 720))
	w.ShowAndRun()
}

func (a *App) showWelcomeScreen() {
	welcomeLabel := widget.NewLabel("Optimize 3D Model")
	welcomeLabel.TextStyle = fyne.TextStyle{Bold: true}

	instructionLabel := widget.NewLabel("Open an OBJ file to reduce its polygon count")

	openButton := widget.NewButton("Open OBJ File", func() {
		a.showFileDialog()
	})

	content := container.NewVBox(
		layout.NewSpacer(),
		container.NewCenter(welcomeLabel),
		container.NewCenter(instructionLabel),
		layout.NewSpacer(),
		container.NewCenter(openButton),
		layout.NewSpacer(),
	)

	a.window.SetContent(content)
}

func (a *App) showFileDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		a.loadFile(reader.URI().Path())
	}, a.window)
}

func (a *App) loadFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to read model: %w", err), a.window)
		return
	}

	s, err := newSession(filename, data, a.optimizer)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to load model: %w", err), a.window)
		return
	}

	a.log.Info("Model loaded", zap.String("file", filename), zap.Int("vertices", s.originalCount))
	a.session = s
	a.setupMainUI()
}

func (a *App) setupMainUI() {
	a.infoLabel = widget.NewLabel(a.session.summary())
	a.previewLabel = widget.NewLabel(a.session.previewText())
	a.previewLabel.TextStyle = fyne.TextStyle{Bold: true}
	a.statusLabel = widget.NewLabel("")
	a.statusLabel.Wrapping = fyne.TextWrapWord

	reductionLabel := widget.NewLabel(fmt.Sprintf("Reduction: %d%%", a.session.reduction))

	slider := widget.NewSlider(float64(a.optimizer.MinReduction), float64(a.optimizer.MaxReduction))
	slider.Step = float64(a.optimizer.Step)
	slider.SetValue(float64(a.session.reduction))
	slider.OnChanged = func(value float64) {
		a.session.reduction = int(value)
		reductionLabel.SetText(fmt.Sprintf("Reduction: %d%%", a.session.reduction))
		a.previewLabel.SetText(a.session.previewText())
	}

	a.view = viewer.NewWireframeView(previewMesh(a.session.original))

	applyButton := widget.NewButton("Apply Optimization", func() {
		a.applyOptimization()
	})
	applyButton.Importance = widget.HighImportance

	originalButton := widget.NewButton("Use Original", func() {
		a.view.SetModel(previewMesh(a.session.original))
		a.statusLabel.SetText("Using original model")
	})

	openButton := widget.NewButton("Open File", func() {
		a.showFileDialog()
	})

	instructions := widget.NewLabel(
		"Instructions:\n" +
			"• Move the slider to choose how many polygons to remove\n" +
			"• Drag to rotate the preview\n" +
			"• Scroll to zoom in/out",
	)
	instructions.Wrapping = fyne.TextWrapWord

	infoPanel := container.NewVBox(
		widget.NewLabel("Original Model:"),
		widget.NewSeparator(),
		a.infoLabel,
		widget.NewSeparator(),
		reductionLabel,
		slider,
		a.previewLabel,
		widget.NewSeparator(),
		applyButton,
		originalButton,
		a.statusLabel,
		widget.NewSeparator(),
		instructions,
		widget.NewSeparator(),
		openButton,
	)

	infoScroll := container.NewVScroll(infoPanel)
	infoScroll.SetMinSize(fyne.NewSize(300, 0))

	content := container.NewBorder(
		nil,        // top
		nil,        // bottom
		nil,        // left
		infoScroll, // right
		a.view,     // center
	)

	a.window.SetContent(content)
	a.view.Render(800, 600)
}

func (a *App) applyOptimization() {
	malformed := 0
	result, err := a.session.apply(func(m obj.MalformedReference) {
		malformed++
		a.log.Warn("Malformed face reference", zap.Int("line", m.Line), zap.String("token", m.Token))
	})
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to optimize model: %w", err), a.window)
		return
	}

	a.view.SetModel(previewMesh(result.Optimized))

	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		if _, err := writer.Write(result.Optimized); err != nil {
			dialog.ShowError(fmt.Errorf("failed to save model: %w", err), a.window)
			return
		}

		status := fmt.Sprintf("Saved %s: %d -> %d polygons",
			writer.URI().Name(), result.OriginalVertexCount, result.OptimizedVertexCount)
		if malformed > 0 {
			status += fmt.Sprintf(" (%d malformed references kept)", malformed)
		}
		a.statusLabel.SetText(status)
		a.log.Info("Optimized model saved",
			zap.String("file", writer.URI().Path()),
			zap.Int("original_vertices", result.OriginalVertexCount),
			zap.Int("optimized_vertices", result.OptimizedVertexCount),
		)
	}, a.window)
	save.SetFileName(a.session.outputName())
	save.Show()
}

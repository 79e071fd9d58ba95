package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philipparndt/goobj/internal/config"
	"github.com/philipparndt/goobj/internal/logger"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/philipparndt/goobj/pkg/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchFlags struct {
	reduction int
	debounce  time.Duration
	clamp     bool
	logLevel  string
}

var watchCmd = &cobra.Command{
	Use:   "watch [file]...",
	Short: "Re-optimize OBJ files whenever they are saved",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&watchFlags.reduction, "reduction", "r", 50, "percentage of vertices to remove")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 500*time.Millisecond, "quiet period before re-optimizing")
	watchCmd.Flags().BoolVar(&watchFlags.clamp, "clamp", false, "clamp the reduction to 0..99")
	watchCmd.Flags().StringVar(&watchFlags.logLevel, "log-level", "info", "log level")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log, err := logger.New(config.LogConfig{Level: watchFlags.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fw, err := watcher.NewFileWatcher(watchFlags.debounce, watcher.WithErrorHandler(func(err error) {
		log.Warn("Watcher error", zap.Error(err))
	}))
	if err != nil {
		return err
	}
	defer fw.Close()

	optimizeFile := func(path string) {
		reoptimize(log, path)
	}
	if err := fw.Watch(args, optimizeFile); err != nil {
		return err
	}

	for _, file := range args {
		reoptimize(log, file)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Watching for changes", zap.Strings("files", args), zap.Int("reduction", watchFlags.reduction))
	if err := fw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func reoptimize(log *zap.Logger, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read model", zap.String("file", path), zap.Error(err))
		return
	}

	opts := []obj.Option{obj.WithMalformedHandler(func(m obj.MalformedReference) {
		log.Warn("Malformed face reference", zap.String("file", path), zap.Int("line", m.Line), zap.String("token", m.Token))
	})}
	if watchFlags.clamp {
		opts = append(opts, obj.WithPercentClamp())
	}

	result, err := obj.Optimize(data, watchFlags.reduction, opts...)
	if err != nil {
		log.Error("Failed to optimize model", zap.String("file", path), zap.Error(err))
		return
	}

	target, err := outputPath(path, "", false)
	if err != nil {
		log.Error("Failed to resolve output", zap.String("file", path), zap.Error(err))
		return
	}
	if err := os.WriteFile(target, result.Optimized, 0o644); err != nil {
		log.Error("Failed to write model", zap.String("file", target), zap.Error(err))
		return
	}

	log.Info("Model optimized",
		zap.String("file", path),
		zap.String("output", target),
		zap.String("vertices", fmt.Sprintf("%d -> %d", result.OriginalVertexCount, result.OptimizedVertexCount)),
	)
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/philipparndt/goobj/internal/metrics"
	"github.com/philipparndt/goobj/internal/storage"
	"github.com/philipparndt/goobj/pkg/mesh"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a model does not exist
	ErrNotFound = errors.New("catalog: model not found")
	// ErrInvalidUpload wraps validation failures of upload and update requests
	ErrInvalidUpload = errors.New("catalog: invalid upload")
)

// Recorder receives optimization and upload events
type Recorder interface {
	ObserveOptimization(outcome string, removed int, elapsed time.Duration)
	IncUploads()
}

type nopRecorder struct{}

func (nopRecorder) ObserveOptimization(string, int, time.Duration) {}
func (nopRecorder) IncUploads()                                   {}

// UploadRequest carries a new model and its files
type UploadRequest struct {
	Title       string   `validate:"required,max=200"`
	Description string   `validate:"max=5000"`
	Category    string   `validate:"required"`
	SubCategory string
	Style       string
	Materials   []string `validate:"dive,required"`
	IsPro       bool
	Price       decimal.Decimal
	FileName    string   `validate:"required"`
	ModelFile   []byte   `validate:"required,min=1"`
	Thumbnails  [][]byte `validate:"required,min=1,dive,min=1"`

	// Optimize reduces the model by ReductionPercent before it is stored
	Optimize         bool
	ReductionPercent int `validate:"min=0,max=99"`
}

// UpdateRequest patches a model. Nil fields are left unchanged; a new model
// file or thumbnail set replaces the stored one.
type UpdateRequest struct {
	Title       *string `validate:"omitempty,min=1,max=200"`
	Description *string `validate:"omitempty,max=5000"`
	Category    *string `validate:"omitempty,min=1"`
	SubCategory *string
	Style       *string
	Materials   []string `validate:"omitempty,dive,required"`
	IsPro       *bool
	Price       *decimal.Decimal
	Status      *Status `validate:"omitempty,oneof=pending approved rejected"`

	FileName   string
	ModelFile  []byte
	Thumbnails [][]byte `validate:"omitempty,dive,min=1"`
}

// Service manages models in a storage.Store
type Service struct {
	store        storage.Store
	logger       *zap.Logger
	recorder     Recorder
	validate     *validator.Validate
	clampPercent bool
	now          func() time.Time
	newID        func() string
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithPercentClamp clamps reduction percentages passed to Optimize to [0, 99]
func WithPercentClamp(clamp bool) Option {
	return func(s *Service) {
		s.clampPercent = clamp
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides the UUID generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a catalog service over store
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Optimize runs the reducer, logging malformed face references and
// recording the outcome. The returned error is an *obj.DecodeError when src
// is not UTF-8.
func (s *Service) Optimize(ctx context.Context, src []byte, reductionPercent int) (*obj.Result, error) {
	result, elapsed, err := s.optimize(ctx, src, reductionPercent)
	if err != nil {
		if errors.Is(err, obj.ErrDecode) {
			s.recorder.ObserveOptimization(metrics.OutcomeFailed, 0, elapsed)
		}
		return nil, err
	}
	s.recorder.ObserveOptimization(metrics.OutcomeOptimized, result.Removed(), elapsed)
	return result, nil
}

func (s *Service) optimize(ctx context.Context, src []byte, reductionPercent int) (*obj.Result, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	opts := []obj.Option{
		obj.WithMalformedHandler(func(m obj.MalformedReference) {
			s.logger.Warn("Malformed face reference",
				zap.Int("line", m.Line),
				zap.String("token", m.Token),
			)
		}),
	}
	if s.clampPercent {
		opts = append(opts, obj.WithPercentClamp())
	}

	start := time.Now()
	result, err := obj.Optimize(src, reductionPercent, opts...)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}

	s.logger.Debug("Optimized model",
		zap.Int("reduction_percent", reductionPercent),
		zap.Int("original_vertices", result.OriginalVertexCount),
		zap.Int("optimized_vertices", result.OptimizedVertexCount),
	)
	return result, elapsed, nil
}

// Upload validates req, optionally reduces the model and stores file,
// thumbnails and metadata. A model that cannot be decoded is stored as
// uploaded instead of failing the upload.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Model, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidUpload)
	}

	id := s.newID()
	now := s.now().UTC()
	data := req.ModelFile

	model := &Model{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		Style:       req.Style,
		Materials:   nonNil(req.Materials),
		IsPro:       req.IsPro,
		Price:       req.Price,
		Status:      StatusPending,
		FileName:    req.FileName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Optimize {
		result, elapsed, err := s.optimize(ctx, data, req.ReductionPercent)
		switch {
		case errors.Is(err, obj.ErrDecode):
			s.recorder.ObserveOptimization(metrics.OutcomeFallback, 0, elapsed)
			s.logger.Warn("Model could not be optimized, storing original",
				zap.String("model_id", id),
				zap.Error(err),
			)
		case err != nil:
			return nil, err
		default:
			s.recorder.ObserveOptimization(metrics.OutcomeOptimized, result.Removed(), elapsed)
			data = result.Optimized
			model.FileName = obj.OptimizedFileName(req.FileName)
			model.Optimization = &Optimization{
				OriginalVertexCount:  result.OriginalVertexCount,
				OptimizedVertexCount: result.OptimizedVertexCount,
				ReductionPercent:     req.ReductionPercent,
			}
		}
	}

	s.describeFile(model, data)

	if err := s.store.Set(ctx, storage.CollectionFiles, modelFileKey(id), data); err != nil {
		return nil, fmt.Errorf("failed to store model file: %w", err)
	}
	thumbnails, err := s.storeThumbnails(ctx, id, req.Thumbnails)
	if err != nil {
		s.cleanup(ctx, id, len(req.Thumbnails))
		return nil, err
	}
	model.Thumbnails = thumbnails

	if err := s.save(ctx, model); err != nil {
		s.cleanup(ctx, id, len(req.Thumbnails))
		return nil, err
	}

	s.recorder.IncUploads()
	s.logger.Info("Model uploaded",
		zap.String("model_id", id),
		zap.String("title", model.Title),
		zap.Int("poly_count", model.PolyCount),
	)
	return model, nil
}

// describeFile fills format, polygon count and dimensions from the file
func (s *Service) describeFile(model *Model, data []byte) {
	model.Format = strings.TrimPrefix(strings.ToLower(path.Ext(model.FileName)), ".")

	count, err := obj.CountVertices(data)
	if err != nil {
		model.PolyCount = 0
	} else {
		model.PolyCount = count
	}

	parsed, err := mesh.ParseBytes(data)
	if err != nil {
		s.logger.Debug("Could not measure model", zap.String("model_id", model.ID), zap.Error(err))
		model.Dimensions = Dimensions{}
		return
	}
	size := parsed.BoundingBox().Size()
	model.Dimensions = Dimensions{Width: size.X, Height: size.Y, Depth: size.Z}
}

func (s *Service) storeThumbnails(ctx context.Context, id string, thumbnails [][]byte) ([]string, error) {
	keys := make([]string, 0, len(thumbnails))
	for i, thumbnail := range thumbnails {
		key := thumbnailKey(id, i)
		if err := s.store.Set(ctx, storage.CollectionThumbnails, key, thumbnail); err != nil {
			return nil, fmt.Errorf("failed to store thumbnail %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// cleanup removes whatever an interrupted upload stored
func (s *Service) cleanup(ctx context.Context, id string, thumbnails int) {
	if err := s.store.Remove(ctx, storage.CollectionFiles, modelFileKey(id)); err != nil {
		s.logger.Warn("Failed to remove model file", zap.String("model_id", id), zap.Error(err))
	}
	for i := 0; i < thumbnails; i++ {
		if err := s.store.Remove(ctx, storage.CollectionThumbnails, thumbnailKey(id, i)); err != nil {
			s.logger.Warn("Failed to remove thumbnail", zap.String("model_id", id), zap.Error(err))
		}
	}
}

func (s *Service) save(ctx context.Context, model *Model) error {
	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := s.store.Set(ctx, storage.CollectionModels, model.ID, data); err != nil {
		return fmt.Errorf("failed to store model: %w", err)
	}
	return nil
}

// Get returns a model by id
func (s *Service) Get(ctx context.Context, id string) (*Model, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := s.store.Get(ctx, storage.CollectionModels, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", id, err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", id, err)
	}
	return &model, nil
}

// List returns all models, newest first
func (s *Service) List(ctx context.Context) ([]*Model, error) {
	items, err := s.store.List(ctx, storage.CollectionModels)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]*Model, 0, len(items))
	for _, item := range items {
		var model Model
		if err := json.Unmarshal(item.Value, &model); err != nil {
			s.logger.Warn("Skipping unreadable model", zap.String("model_id", item.Key), zap.Error(err))
			continue
		}
		models = append(models, &model)
	}

	sort.SliceStable(models, func(i, j int) bool {
		return models[i].CreatedAt.After(models[j].CreatedAt)
	})
	return models, nil
}

// Update applies req to the model with the given id. The id never changes.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Model, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidUpload)
	}

	model, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyPatch(model, req)

	if len(req.ModelFile) > 0 {
		if req.FileName != "" {
			model.FileName = req.FileName
		}
		model.Optimization = nil
		s.describeFile(model, req.ModelFile)
		if err := s.store.Set(ctx, storage.CollectionFiles, modelFileKey(id), req.ModelFile); err != nil {
			return nil, fmt.Errorf("failed to store model file: %w", err)
		}
	}

	if len(req.Thumbnails) > 0 {
		previous := len(model.Thumbnails)
		thumbnails, err := s.storeThumbnails(ctx, id, req.Thumbnails)
		if err != nil {
			return nil, err
		}
		for i := len(thumbnails); i < previous; i++ {
			if err := s.store.Remove(ctx, storage.CollectionThumbnails, thumbnailKey(id, i)); err != nil {
				return nil, fmt.Errorf("failed to remove thumbnail %d: %w", i, err)
			}
		}
		model.Thumbnails = thumbnails
	}

	model.ID = id
	model.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

func applyPatch(model *Model, req UpdateRequest) {
	if req.Title != nil {
		model.Title = *req.Title
	}
	if req.Description != nil {
		model.Description = *req.Description
	}
	if req.Category != nil {
		model.Category = *req.Category
	}
	if req.SubCategory != nil {
		model.SubCategory = *req.SubCategory
	}
	if req.Style != nil {
		model.Style = *req.Style
	}
	if req.Materials != nil {
		model.Materials = req.Materials
	}
	if req.IsPro != nil {
		model.IsPro = *req.IsPro
	}
	if req.Price != nil {
		model.Price = *req.Price
	}
	if req.Status != nil {
		model.Status = *req.Status
	}
}

// Delete removes the model file, its thumbnails and the metadata
func (s *Service) Delete(ctx context.Context, id string) error {
	model, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, storage.CollectionFiles, modelFileKey(id)); err != nil {
		return fmt.Errorf("failed to remove model file: %w", err)
	}
	for i := range model.Thumbnails {
		if err := s.store.Remove(ctx, storage.CollectionThumbnails, thumbnailKey(id, i)); err != nil {
			return fmt.Errorf("failed to remove thumbnail %d: %w", i, err)
		}
	}
	if err := s.store.Remove(ctx, storage.CollectionModels, id); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}

	s.logger.Info("Model deleted", zap.String("model_id", id))
	return nil
}

// Download returns the stored model file and its file name, and counts the
// download
func (s *Service) Download(ctx context.Context, id string) ([]byte, string, error) {
	model, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.store.Get(ctx, storage.CollectionFiles, modelFileKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load model file: %w", err)
	}

	model.Stats.Downloads++
	if err := s.save(ctx, model); err != nil {
		s.logger.Warn("Failed to count download", zap.String("model_id", id), zap.Error(err))
	}
	return data, model.FileName, nil
}

// Thumbnail returns one stored thumbnail
func (s *Service) Thumbnail(ctx context.Context, id string, index int) ([]byte, error) {
	data, err := s.store.Get(ctx, storage.CollectionThumbnails, thumbnailKey(id, index))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load thumbnail: %w", err)
	}
	return data, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

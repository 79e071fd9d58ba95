package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/philipparndt/goobj/internal/metrics"
	"github.com/philipparndt/goobj/internal/storage"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cubeOBJ = "v 0 0 0\nv 2 0 0\nv 2 3 0\nv 0 3 4\nf 1 2 3\nf 1 3 4\n"

type recordedOptimization struct {
	outcome string
	removed int
}

type fakeRecorder struct {
	optimizations []recordedOptimization
	uploads       int
}

func (r *fakeRecorder) ObserveOptimization(outcome string, removed int, _ time.Duration) {
	r.optimizations = append(r.optimizations, recordedOptimization{outcome, removed})
}

func (r *fakeRecorder) IncUploads() {
	r.uploads++
}

type failingStore struct {
	storage.Store
	failCollection string
}

func (s *failingStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if collection == s.failCollection {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, collection, key, value)
}

func newTestService(t *testing.T, store storage.Store, opts ...Option) (*Service, *fakeRecorder) {
	t.Helper()
	recorder := &fakeRecorder{}
	ids := 0
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithRecorder(recorder),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	}, opts...)
	return NewService(store, opts...), recorder
}

func validUpload() UploadRequest {
	return UploadRequest{
		Title:      "Cube",
		Category:   "furniture",
		Materials:  []string{"wood"},
		Price:      decimal.RequireFromString("9.99"),
		FileName:   "cube.obj",
		ModelFile:  []byte(cubeOBJ),
		Thumbnails: [][]byte{[]byte("png-1"), []byte("png-2")},
	}
}

func TestUploadStoresModel(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, recorder := newTestService(t, store)

	model, err := svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	assert.Equal(t, "id-1", model.ID)
	assert.Equal(t, StatusPending, model.Status)
	assert.Equal(t, "obj", model.Format)
	assert.Equal(t, "cube.obj", model.FileName)
	assert.Equal(t, 4, model.PolyCount)
	assert.Equal(t, Dimensions{Width: 2, Height: 3, Depth: 4}, model.Dimensions)
	assert.Equal(t, []string{"thumbnail_id-1_0", "thumbnail_id-1_1"}, model.Thumbnails)
	assert.Nil(t, model.Optimization)
	assert.True(t, model.Price.Equal(decimal.RequireFromString("9.99")))

	file, err := store.Get(ctx, storage.CollectionFiles, "model_id-1")
	require.NoError(t, err)
	assert.Equal(t, cubeOBJ, string(file))

	thumb, err := store.Get(ctx, storage.CollectionThumbnails, "thumbnail_id-1_1")
	require.NoError(t, err)
	assert.Equal(t, "png-2", string(thumb))

	loaded, err := svc.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, model.Title, loaded.Title)
	assert.True(t, loaded.CreatedAt.Equal(model.CreatedAt))

	assert.Equal(t, 1, recorder.uploads)
	assert.Empty(t, recorder.optimizations)
}

func TestUploadWithOptimization(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, recorder := newTestService(t, store)

	req := validUpload()
	req.Optimize = true
	req.ReductionPercent = 50

	model, err := svc.Upload(ctx, req)
	require.NoError(t, err)

	require.NotNil(t, model.Optimization)
	assert.Equal(t, Optimization{OriginalVertexCount: 4, OptimizedVertexCount: 2, ReductionPercent: 50}, *model.Optimization)
	assert.Equal(t, "cube_optimized.obj", model.FileName)
	assert.Equal(t, 2, model.PolyCount)

	file, err := store.Get(ctx, storage.CollectionFiles, "model_id-1")
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0\nv 2 0 0\nf 1 2 2\nf 1 2 2\n", string(file))

	assert.Equal(t, []recordedOptimization{{metrics.OutcomeOptimized, 2}}, recorder.optimizations)
}

func TestUploadFallsBackOnUndecodableModel(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, recorder := newTestService(t, store)

	raw := []byte("v 0 0 0\n\xff\xfe\n")
	req := validUpload()
	req.ModelFile = raw
	req.Optimize = true
	req.ReductionPercent = 50

	model, err := svc.Upload(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, model.Optimization)
	assert.Equal(t, "cube.obj", model.FileName)

	file, err := store.Get(ctx, storage.CollectionFiles, "model_id-1")
	require.NoError(t, err)
	assert.Equal(t, raw, file)

	assert.Equal(t, []recordedOptimization{{metrics.OutcomeFallback, 0}}, recorder.optimizations)
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestService(t, storage.NewMemoryStore())

	cases := map[string]func(*UploadRequest){
		"missing title":      func(r *UploadRequest) { r.Title = "" },
		"missing category":   func(r *UploadRequest) { r.Category = "" },
		"empty model file":   func(r *UploadRequest) { r.ModelFile = nil },
		"no thumbnails":      func(r *UploadRequest) { r.Thumbnails = nil },
		"empty thumbnail":    func(r *UploadRequest) { r.Thumbnails = [][]byte{{}} },
		"percent too large":  func(r *UploadRequest) { r.ReductionPercent = 100 },
		"negative percent":   func(r *UploadRequest) { r.ReductionPercent = -1 },
		"negative price":     func(r *UploadRequest) { r.Price = decimal.NewFromInt(-1) },
		"missing file name":  func(r *UploadRequest) { r.FileName = "" },
		"blank material":     func(r *UploadRequest) { r.Materials = []string{""} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validUpload()
			mutate(&req)
			_, err := svc.Upload(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidUpload)
		})
	}
}

func TestUploadCleansUpOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	store := &failingStore{Store: mem, failCollection: storage.CollectionModels}
	svc, recorder := newTestService(t, store)

	_, err := svc.Upload(ctx, validUpload())
	require.Error(t, err)

	files, err := mem.List(ctx, storage.CollectionFiles)
	require.NoError(t, err)
	assert.Empty(t, files)

	thumbs, err := mem.List(ctx, storage.CollectionThumbnails)
	require.NoError(t, err)
	assert.Empty(t, thumbs)

	assert.Zero(t, recorder.uploads)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, storage.NewMemoryStore())

	for _, title := range []string{"first", "second", "third"} {
		req := validUpload()
		req.Title = title
		_, err := svc.Upload(ctx, req)
		require.NoError(t, err)
	}

	models, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "third", models[0].Title)
	assert.Equal(t, "second", models[1].Title)
	assert.Equal(t, "first", models[2].Title)
}

func TestGetMissing(t *testing.T) {
	svc, _ := newTestService(t, storage.NewMemoryStore())

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, _ := newTestService(t, store)

	req := validUpload()
	req.Optimize = true
	req.ReductionPercent = 25
	created, err := svc.Upload(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, created.Optimization)

	title := "Renamed"
	status := StatusApproved
	price := decimal.NewFromInt(20)
	updated, err := svc.Update(ctx, created.ID, UpdateRequest{
		Title:      &title,
		Status:     &status,
		Price:      &price,
		FileName:   "big.obj",
		ModelFile:  []byte("v 0 0 0\nv 10 0 0\nv 0 10 0\nf 1 2 3\n"),
		Thumbnails: [][]byte{[]byte("new")},
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "furniture", updated.Category)
	assert.Equal(t, StatusApproved, updated.Status)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "big.obj", updated.FileName)
	assert.Equal(t, 3, updated.PolyCount)
	assert.Equal(t, Dimensions{Width: 10, Height: 10, Depth: 0}, updated.Dimensions)
	assert.Nil(t, updated.Optimization)
	assert.Equal(t, []string{"thumbnail_id-1_0"}, updated.Thumbnails)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = store.Get(ctx, storage.CollectionThumbnails, "thumbnail_id-1_1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateInvalidStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, storage.NewMemoryStore())

	created, err := svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	status := Status("archived")
	_, err = svc.Update(ctx, created.ID, UpdateRequest{Status: &status})
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Update(ctx, "missing", UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, _ := newTestService(t, store)

	created, err := svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	for _, collection := range []string{storage.CollectionModels, storage.CollectionFiles, storage.CollectionThumbnails} {
		items, err := store.List(ctx, collection)
		require.NoError(t, err)
		assert.Empty(t, items, collection)
	}

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestDownloadCountsDownloads(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, storage.NewMemoryStore())

	created, err := svc.Upload(ctx, validUpload())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		data, name, err := svc.Download(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, cubeOBJ, string(data))
		assert.Equal(t, "cube.obj", name)
	}

	model, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, model.Stats.Downloads)

	thumb, err := svc.Thumbnail(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "png-1", string(thumb))

	_, err = svc.Thumbnail(ctx, created.ID, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceOptimize(t *testing.T) {
	svc, recorder := newTestService(t, storage.NewMemoryStore(), WithPercentClamp(true))

	result, err := svc.Optimize(context.Background(), []byte(cubeOBJ), 150)
	require.NoError(t, err)
	// clamped to 99%: floor(4 * 0.01) = 0
	assert.Equal(t, 0, result.OptimizedVertexCount)

	_, err = svc.Optimize(context.Background(), []byte{0xff}, 50)
	var decodeErr *obj.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	assert.Equal(t, []recordedOptimization{
		{metrics.OutcomeOptimized, 4},
		{metrics.OutcomeFailed, 0},
	}, recorder.optimizations)
}

func TestServiceOptimizeCanceled(t *testing.T) {
	svc, recorder := newTestService(t, storage.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Optimize(ctx, []byte(cubeOBJ), 50)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.optimizations)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/philipparndt/goobj/internal/catalog"
	"github.com/philipparndt/goobj/pkg/obj"
	"github.com/shopspring/decimal"
)

const (
	defaultReduction   = 50
	thumbnailFieldName = "thumbnail_"
)

// optimize reduces the uploaded "file" by the "reduction" percentage and
// returns the optimized geometry as an attachment
func (s *Server) optimize(c *gin.Context) {
	name, data, ok := s.formFile(c, "file")
	if !ok {
		return
	}
	reduction, ok := reductionParam(c, s.reduction)
	if !ok {
		return
	}

	result, err := s.catalog.Optimize(c.Request.Context(), data, reduction)
	if err != nil {
		failFor(c, "failed to optimize model", err)
		return
	}

	c.Header("X-Original-Vertex-Count", strconv.Itoa(result.OriginalVertexCount))
	c.Header("X-Optimized-Vertex-Count", strconv.Itoa(result.OptimizedVertexCount))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", obj.OptimizedFileName(name)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", result.Optimized)
}

func (s *Server) count(c *gin.Context) {
	_, data, ok := s.formFile(c, "file")
	if !ok {
		return
	}

	count, err := obj.CountVertices(data)
	if err != nil {
		failFor(c, "failed to count vertices", err)
		return
	}
	success(c, http.StatusOK, gin.H{"vertexCount": count})
}

func (s *Server) listModels(c *gin.Context) {
	models, err := s.catalog.List(c.Request.Context())
	if err != nil {
		failFor(c, "failed to list models", err)
		return
	}
	success(c, http.StatusOK, models)
}

func (s *Server) getModel(c *gin.Context) {
	model, err := s.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, "failed to load model", err)
		return
	}
	success(c, http.StatusOK, model)
}

// modelMetadata is the JSON "data" part of a model upload
type modelMetadata struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	Style       string          `json:"style"`
	Materials   []string        `json:"materials"`
	IsPro       bool            `json:"isPro"`
	Price       decimal.Decimal `json:"price"`
}

// createModel accepts multipart uploads with a "data" JSON part, a "model"
// file and one or more "thumbnail_<n>" files. A "reduction" field enables
// optimization before the model is stored.
func (s *Server) createModel(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		failForm(c, err)
		return
	}

	var meta modelMetadata
	if raw := formValue(form, "data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			fail(c, http.StatusBadRequest, "invalid model data", err)
			return
		}
	}

	modelFiles := form.File["model"]
	if len(modelFiles) == 0 {
		fail(c, http.StatusBadRequest, "model file is required", nil)
		return
	}
	modelData, err := readPart(modelFiles[0])
	if err != nil {
		failForm(c, err)
		return
	}

	thumbnails, err := readThumbnails(form)
	if err != nil {
		failForm(c, err)
		return
	}

	req := catalog.UploadRequest{
		Title:       meta.Title,
		Description: meta.Description,
		Category:    meta.Category,
		SubCategory: meta.SubCategory,
		Style:       meta.Style,
		Materials:   meta.Materials,
		IsPro:       meta.IsPro,
		Price:       meta.Price,
		FileName:    modelFiles[0].Filename,
		ModelFile:   modelData,
		Thumbnails:  thumbnails,
	}
	if raw := formValue(form, "reduction"); raw != "" {
		reduction, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "reduction must be an integer", err)
			return
		}
		req.Optimize = true
		req.ReductionPercent = reduction
	}

	model, err := s.catalog.Upload(c.Request.Context(), req)
	if err != nil {
		failFor(c, "failed to upload model", err)
		return
	}
	success(c, http.StatusCreated, model)
}

// updateBody is the JSON patch accepted by PUT /api/models/:id
type updateBody struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	SubCategory *string          `json:"subCategory"`
	Style       *string          `json:"style"`
	Materials   []string         `json:"materials"`
	IsPro       *bool            `json:"isPro"`
	Price       *decimal.Decimal `json:"price"`
	Status      *catalog.Status  `json:"status"`
}

func (s *Server) updateModel(c *gin.Context) {
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	model, err := s.catalog.Update(c.Request.Context(), c.Param("id"), catalog.UpdateRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		SubCategory: body.SubCategory,
		Style:       body.Style,
		Materials:   body.Materials,
		IsPro:       body.IsPro,
		Price:       body.Price,
		Status:      body.Status,
	})
	if err != nil {
		failFor(c, "failed to update model", err)
		return
	}
	success(c, http.StatusOK, model)
}

func (s *Server) deleteModel(c *gin.Context) {
	if err := s.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failFor(c, "failed to delete model", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) downloadModel(c *gin.Context) {
	data, name, err := s.catalog.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, "failed to download model", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) thumbnail(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		fail(c, http.StatusBadRequest, "invalid thumbnail index", nil)
		return
	}

	data, err := s.catalog.Thumbnail(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		failFor(c, "failed to load thumbnail", err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// formFile reads a single uploaded file. It writes the error response and
// returns false when the file is missing or unreadable.
func (s *Server) formFile(c *gin.Context, field string) (string, []byte, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			fail(c, http.StatusBadRequest, field+" is required", nil)
		} else {
			failForm(c, err)
		}
		return "", nil, false
	}

	data, err := readPart(header)
	if err != nil {
		failForm(c, err)
		return "", nil, false
	}
	return header.Filename, data, true
}

func reductionParam(c *gin.Context, fallback int) (int, bool) {
	raw := c.PostForm("reduction")
	if raw == "" {
		return fallback, true
	}
	reduction, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "reduction must be an integer", err)
		return 0, false
	}
	return reduction, true
}

func failForm(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		fail(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	fail(c, http.StatusBadRequest, "invalid multipart form", err)
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// readThumbnails returns the "thumbnail_*" files ordered by field name
func readThumbnails(form *multipart.Form) ([][]byte, error) {
	var fields []string
	for field := range form.File {
		if strings.HasPrefix(field, thumbnailFieldName) {
			fields = append(fields, field)
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		return thumbnailOrder(fields[i]) < thumbnailOrder(fields[j])
	})

	thumbnails := make([][]byte, 0, len(fields))
	for _, field := range fields {
		for _, header := range form.File[field] {
			data, err := readPart(header)
			if err != nil {
				return nil, err
			}
			thumbnails = append(thumbnails, data)
		}
	}
	return thumbnails, nil
}

// thumbnailOrder sorts "thumbnail_2" before "thumbnail_10"
func thumbnailOrder(field string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(field, thumbnailFieldName))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

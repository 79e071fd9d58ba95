// Package catalog implements the model upload workflow: validation,
// optional mesh reduction, and persistence of files, thumbnails and
// metadata in a storage.Store.
package catalog

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Status of a model in the review pipeline
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Dimensions is the extent of the model's bounding box
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Stats are engagement counters
type Stats struct {
	Likes     int `json:"likes"`
	Downloads int `json:"downloads"`
	Views     int `json:"views"`
}

// Optimization records a reduction applied at upload time
type Optimization struct {
	OriginalVertexCount  int `json:"originalVertexCount"`
	OptimizedVertexCount int `json:"optimizedVertexCount"`
	ReductionPercent     int `json:"reductionPercent"`
}

// Model is the catalog record of an uploaded 3D model
type Model struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	SubCategory  string          `json:"subCategory,omitempty"`
	Style        string          `json:"style,omitempty"`
	Materials    []string        `json:"materials"`
	IsPro        bool            `json:"isPro"`
	Price        decimal.Decimal `json:"price"`
	Status       Status          `json:"status"`
	FileName     string          `json:"fileName"`
	Format       string          `json:"format"`
	Thumbnails   []string        `json:"thumbnails"`
	PolyCount    int             `json:"polyCount"`
	Dimensions   Dimensions      `json:"dimensions"`
	Stats        Stats           `json:"stats"`
	Optimization *Optimization   `json:"optimization,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func modelFileKey(id string) string {
	return "model_" + id
}

func thumbnailKey(id string, index int) string {
	return "thumbnail_" + id + "_" + strconv.Itoa(index)
}

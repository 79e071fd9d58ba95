package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/philipparndt/goobj/internal/catalog"
	"github.com/philipparndt/goobj/internal/logger"
	"github.com/philipparndt/goobj/pkg/obj"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func fail(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// failFor maps service errors to status codes
func failFor(c *gin.Context, message string, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fail(c, http.StatusNotFound, "model not found", nil)
	case errors.Is(err, catalog.ErrInvalidUpload):
		fail(c, http.StatusBadRequest, message, err)
	case errors.Is(err, obj.ErrDecode):
		fail(c, http.StatusUnprocessableEntity, "geometry is not valid UTF-8 text", err)
	case errors.As(err, &maxBytes):
		fail(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
	default:
		logger.FromGin(c).Error(message, zap.Error(err))
		fail(c, http.StatusInternalServerError, message, nil)
	}
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/newhorizons/case-service/internal/errs"
	"github.com/newhorizons/case-service/internal/middleware"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

const msgValidation = "Validation Error"

// respondError maps service errors to status codes. Unknown errors are logged and hidden.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrPaymentCapture):
		// Capture failures are final for the caller, who must restart the checkout.
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrExternalService):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into dst. Field-level problems are logged, not returned.
func bind(c *gin.Context, log *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		validationFailed(c, log, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, log *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		validationFailed(c, log, err)
		return false
	}
	return true
}

func validationFailed(c *gin.Context, log *zap.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
		log.Debug("request validation failed",
			zap.String("path", c.FullPath()),
			zap.Strings("fields", fields))
	} else {
		log.Debug("request body rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msgValidation})
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// actor is set by the auth middleware on every protected route.
func actor(c *gin.Context) service.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// statusForKind maps internal error kinds to HTTP status codes.
func statusForKind(kind string) int {
	switch kind {
	case models.ErrKindValidation:
		return http.StatusUnprocessableEntity
	case models.ErrKindRateLimit:
		return http.StatusTooManyRequests
	case models.ErrKindTooLarge:
		return http.StatusRequestEntityTooLarge
	case models.ErrKindNotFound:
		return http.StatusNotFound
	case models.ErrKindConflict:
		return http.StatusBadRequest
	case models.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case models.ErrKindNetwork, models.ErrKindRendering:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a failed envelope with the status derived from
// the error kind.
func respondError(c *gin.Context, err error) {
	var taskErr *models.TaskError
	if !errors.As(err, &taskErr) {
		taskErr = models.NewTaskError(models.ErrKindInternal, "internal error", err)
	}
	detail := taskErr.ToDetail()
	detail.Timestamp = time.Now().Unix()
	c.JSON(statusForKind(taskErr.Kind), models.Fail(taskErr.Message, *detail))
}

// respondBindError distinguishes malformed bodies (400) from payloads
// that parsed but failed validation (422).
func respondBindError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		details := make([]models.ErrorDetail, 0, len(vErrs))
		for _, fe := range vErrs {
			details = append(details, models.ErrorDetail{
				Kind:      models.ErrKindValidation,
				Message:   "field '" + fe.Field() + "' failed rule '" + fe.Tag() + "'",
				Timestamp: time.Now().Unix(),
			})
		}
		c.JSON(http.StatusUnprocessableEntity, models.Fail("validation failed", details...))
		return
	}
	c.JSON(http.StatusBadRequest, models.Fail("malformed request body", models.ErrorDetail{
		Kind:      models.ErrKindValidation,
		Message:   err.Error(),
		Timestamp: time.Now().Unix(),
	}))
}

func respondNotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, models.Fail(msg, models.ErrorDetail{
		Kind:      models.ErrKindNotFound,
		Message:   msg,
		Timestamp: time.Now().Unix(),
	}))
}

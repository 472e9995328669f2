package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentabot/rentabot/engine/core"
	"github.com/rentabot/rentabot/pkg/logger"
)

// statusForCode maps domain error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case core.ErrCodeResourceNotFound, core.ErrCodeReservationNotFound:
		return http.StatusNotFound
	case core.ErrCodeResourceAlreadyLocked,
		core.ErrCodeResourceAlreadyUnlocked,
		core.ErrCodeInvalidLockToken:
		return http.StatusForbidden
	case core.ErrCodeInvalidTTL,
		core.ErrCodeInvalidReservationTags,
		core.ErrCodeBadRequest:
		return http.StatusBadRequest
	case core.ErrCodeInsufficientResources,
		core.ErrCodeReservationNotFulfilled,
		core.ErrCodeReservationCannotBeCancelled:
		return http.StatusConflict
	case core.ErrCodeReservationClaimExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// RespondError renders a domain error as {message, ...context keys} with
// the status mapped from its code.
func RespondError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context())
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	body := make(gin.H, len(coreErr.Details)+1)
	for key, value := range coreErr.Details {
		body[key] = value
	}
	body["message"] = coreErr.Message
	c.JSON(statusForCode(coreErr.Code), body)
}

// RespondBadRequest renders a request parsing failure.
func RespondBadRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": detail})
}

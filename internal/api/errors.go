package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	jerrors "trade-journal/internal/errors"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case jerrors.Is(err, jerrors.ErrRiskLocked):
		return http.StatusLocked
	case jerrors.Is(err, jerrors.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case jerrors.Is(err, jerrors.ErrTradeNotFound), jerrors.Is(err, jerrors.ErrAccountNotFound):
		return http.StatusNotFound
	case jerrors.Is(err, jerrors.ErrTradeClosed), jerrors.Is(err, jerrors.ErrNothingToUndo):
		return http.StatusConflict
	case jerrors.Is(err, jerrors.ErrInsufficientBalance), jerrors.Is(err, jerrors.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	case jerrors.Is(err, jerrors.ErrInvalidTrade), jerrors.Is(err, jerrors.ErrMissingExitPrice):
		return http.StatusBadRequest
	}

	var pe *jerrors.PriceError
	if jerrors.As(err, &pe) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error response. Risk locks carry their reason.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	var lock *jerrors.RiskLockError
	if jerrors.As(err, &lock) {
		c.JSON(status, gin.H{
			"error":   true,
			"message": err.Error(),
			"reason":  lock.Reason,
		})
		return
	}
	errorResponse(c, status, err.Error())
}

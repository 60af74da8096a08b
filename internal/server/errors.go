package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/intake"
	"mindful-trader/pkg/response"
)

// respond sends data, or the warning when err is a storage warning, or the
// error response for err.
func (s *Server) respond(c *gin.Context, status int, data interface{}, err error) {
	if err == nil {
		if status == http.StatusCreated {
			response.Created(c, data)
			return
		}
		response.Success(c, data)
		return
	}
	if apperrors.IsWarning(err) {
		s.logger.Warn().Err(err).Str("path", c.FullPath()).Msg("Change not persisted")
		response.Warning(c, status, data, "saved in memory only: "+err.Error())
		return
	}
	s.fail(c, err)
}

// fail maps err onto an HTTP error response.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrTradeNotFound):
		response.NotFound(c, err.Error())
	case apperrors.Is(err, apperrors.ErrEmotionalOverride):
		response.Error(c, http.StatusConflict, response.CodeConfirm, intake.EmotionalWarning)
	case apperrors.Is(err, apperrors.ErrTradeBusy),
		apperrors.Is(err, apperrors.ErrSessionBusy):
		response.Conflict(c, err.Error())
	case apperrors.Is(err, apperrors.ErrInputValidation),
		apperrors.Is(err, apperrors.ErrExitPriceRequired),
		apperrors.Is(err, apperrors.ErrMalformedImport),
		apperrors.Is(err, apperrors.ErrEmptyMessage):
		response.BadRequest(c, err.Error())
	case apperrors.Is(err, apperrors.ErrMissingAPIKey):
		response.Unavailable(c, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.InternalError(c, err.Error())
	}
}

// confirmed reports whether the request carries confirm=true.
func confirmed(c *gin.Context) bool {
	return c.Query("confirm") == "true"
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/composer"
	"github.com/stemsi/qbank-composer/internal/response"
	"github.com/stemsi/qbank-composer/internal/service"
)

// failWith maps domain errors onto the response envelope.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	var fetchErr *composer.FetchError
	switch {
	case errors.As(err, &fetchErr):
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("question store fetch failed")
		response.FailWithDetail(c, http.StatusBadGateway, response.ErrFetchFailed, fetchErr.Error())

	case errors.Is(err, service.ErrTemplateNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTemplateNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, composer.ErrUnknownSection):
		response.Fail(c, http.StatusNotFound, response.ErrSectionNotFound)
	case errors.Is(err, composer.ErrQuestionNotInComposition):
		response.Fail(c, http.StatusNotFound, response.ErrNotInComposition)

	case errors.Is(err, composer.ErrInvalidCount),
		errors.Is(err, composer.ErrInvalidCeiling),
		errors.Is(err, composer.ErrInvalidType),
		errors.Is(err, composer.ErrInvalidTarget):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidRule, err.Error())
	case errors.Is(err, composer.ErrInvalidVersionCount):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidVersion, err.Error())

	case errors.Is(err, composer.ErrNoSections):
		response.Fail(c, http.StatusConflict, response.ErrNoSections)
	case errors.Is(err, composer.ErrSuperseded), errors.Is(err, composer.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrCompositionBusy)

	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

package vocabulary

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cablesync/internal/logger"
	"cablesync/pkg/errors"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	vocabulary := router.Group("/api/v1/scopes/:scope/vocabulary")
	{
		vocabulary.GET("", h.GetVocabulary)
		vocabulary.PUT("", h.PutVocabulary)
		vocabulary.DELETE("", h.DeleteVocabulary)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// GetVocabulary godoc
// @Summary      Get the status vocabulary override of a scope
// @Tags         vocabulary
// @Produce      json
// @Param        scope  path      string  true  "Dataset scope ID"
// @Success      200    {object}  Override
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/vocabulary [get]
func (h *Handler) GetVocabulary(c *gin.Context) {
	override, err := h.service.Get(c.Request.Context(), c.Param("scope"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, override)
}

// PutVocabulary godoc
// @Summary      Replace the status vocabulary override of a scope
// @Description  Entries map source text to a canonical status; they are merged over the default vocabulary at import time
// @Tags         vocabulary
// @Accept       json
// @Produce      json
// @Param        scope     path      string         true  "Dataset scope ID"
// @Param        override  body      UpdateRequest  true  "Vocabulary entries"
// @Success      200       {object}  Override
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/vocabulary [put]
func (h *Handler) PutVocabulary(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", "invalid request body"))
		return
	}

	override, err := h.service.Put(c.Request.Context(), c.Param("scope"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, override)
}

// DeleteVocabulary godoc
// @Summary      Remove the status vocabulary override of a scope
// @Tags         vocabulary
// @Param        scope  path  string  true  "Dataset scope ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/vocabulary [delete]
func (h *Handler) DeleteVocabulary(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("scope")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

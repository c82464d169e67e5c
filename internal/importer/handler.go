package importer

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cablesync/internal/inventory"
	"cablesync/internal/logger"
	"cablesync/pkg/errors"
)

type BaseHandler struct {
	Service *Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.WarnwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

type Handler struct {
	BaseHandler
	maxUploadBytes int64
}

func NewHandler(service *Service, log logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the import API. writeMiddleware runs only in front of
// the endpoints that start work (import and recompute).
func (h *Handler) RegisterRoutes(router *gin.Engine, writeMiddleware ...gin.HandlerFunc) {
	write := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writeMiddleware...), handler)
	}

	v1 := router.Group("/api/v1")
	{
		scopes := v1.Group("/scopes/:scope")
		{
			scopes.POST("/imports", write(h.CreateImport)...)
			scopes.GET("/imports", h.ListImports)
			scopes.GET("/projection", h.ListProjection)
		}

		imports := v1.Group("/imports/:id")
		{
			imports.GET("", h.GetImport)
			imports.GET("/summary", h.GetSummary)
			imports.POST("/summary/recompute", write(h.RecomputeSummary)...)
			imports.GET("/events", h.ListEvents)
			imports.GET("/snapshot", h.ListSnapshot)
		}
	}
}

// CreateImport godoc
// @Summary      Import a snapshot
// @Description  Runs an import synchronously. The source is either a multipart "file" field or the raw request body.
// @Tags         imports
// @Accept       octet-stream,mpfd
// @Produce      json
// @Param        scope   path      string  true   "Dataset scope ID"
// @Param        format  query     string  false  "Source format (csv, xlsx); sniffed when empty"
// @Param        note    query     string  false  "Free-text note stored with the import"
// @Param        file    formData  file    false  "Source file"
// @Success      201     {object}  RunResult
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      409     {object}  errors.ErrorResponse
// @Failure      429     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/imports [post]
func (h *Handler) CreateImport(c *gin.Context) {
	data, err := h.readSource(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.Service.Run(c.Request.Context(), RunRequest{
		ScopeID:   c.Param("scope"),
		Source:    data,
		Format:    c.Query("format"),
		Note:      c.Query("note"),
		RequestID: c.GetHeader("X-Request-ID"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) readSource(c *gin.Context) ([]byte, error) {
	body := c.Request.Body
	if h.maxUploadBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxUploadBytes)
		c.Request.Body = body
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, errors.ErrInput.WithCause(err).WithDetail("message", "multipart upload requires a file field")
		}
		f, err := header.Open()
		if err != nil {
			return nil, errors.ErrInput.WithCause(err)
		}
		defer f.Close()
		return readAll(f)
	}
	return readAll(body)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, errors.ErrInput.WithDetail("message", "source exceeds "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
		}
		return nil, errors.ErrInput.WithCause(err).WithDetail("message", "failed to read source")
	}
	return data, nil
}

// ListImports godoc
// @Summary      List imports of a scope
// @Description  Newest first
// @Tags         imports
// @Produce      json
// @Param        scope   path      string  true   "Dataset scope ID"
// @Param        limit   query     int     false  "Page size" default(100)
// @Param        offset  query     int     false  "Rows to skip"
// @Success      200     {array}   Import
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/imports [get]
func (h *Handler) ListImports(c *gin.Context) {
	imports, err := h.Service.ListImports(c.Request.Context(), c.Param("scope"), parsePage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, imports)
}

// GetImport godoc
// @Summary      Get an import
// @Tags         imports
// @Produce      json
// @Param        id   path      string  true  "Import ID"
// @Success      200  {object}  Import
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /imports/{id} [get]
func (h *Handler) GetImport(c *gin.Context) {
	imp, err := h.Service.GetImport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

// GetSummary godoc
// @Summary      Get the summary of an import
// @Tags         summaries
// @Produce      json
// @Param        id   path      string  true  "Import ID"
// @Success      200  {object}  Summary
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /imports/{id}/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.Service.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RecomputeSummary godoc
// @Summary      Recompute the summary of an import
// @Description  Rebuilds the summary from the stored change events
// @Tags         summaries
// @Produce      json
// @Param        id   path      string  true  "Import ID"
// @Success      200  {object}  Summary
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      429  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /imports/{id}/summary/recompute [post]
func (h *Handler) RecomputeSummary(c *gin.Context) {
	summary, err := h.Service.RecomputeSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListEvents godoc
// @Summary      List change events of an import
// @Tags         events
// @Produce      json
// @Param        id           path      string  true   "Import ID"
// @Param        change_type  query     string  false  "Filter by change type"
// @Param        severity     query     string  false  "Filter by severity" Enums(INFO, WARN, BLOCK)
// @Param        code         query     string  false  "Filter by entity code"
// @Param        limit        query     int     false  "Page size" default(100)
// @Param        offset       query     int     false  "Rows to skip"
// @Success      200          {array}   inventory.ChangeEvent
// @Failure      400          {object}  errors.ErrorResponse
// @Failure      404          {object}  errors.ErrorResponse
// @Failure      500          {object}  errors.ErrorResponse
// @Router       /imports/{id}/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	var filter EventFilter
	if raw := c.Query("change_type"); raw != "" {
		ct, err := inventory.ParseChangeType(raw)
		if err != nil {
			h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("field", "change_type"))
			return
		}
		filter.ChangeType = &ct
	}
	if raw := c.Query("severity"); raw != "" {
		sev, err := inventory.ParseSeverity(raw)
		if err != nil {
			h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("field", "severity"))
			return
		}
		filter.Severity = &sev
	}
	filter.Code = c.Query("code")

	events, err := h.Service.ListEvents(c.Request.Context(), c.Param("id"), filter, parsePage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// ListSnapshot godoc
// @Summary      List the snapshot rows of an import
// @Tags         imports
// @Produce      json
// @Param        id      path      string  true   "Import ID"
// @Param        limit   query     int     false  "Page size" default(100)
// @Param        offset  query     int     false  "Rows to skip"
// @Success      200     {array}   SnapshotRow
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /imports/{id}/snapshot [get]
func (h *Handler) ListSnapshot(c *gin.Context) {
	rows, err := h.Service.ListSnapshot(c.Request.Context(), c.Param("id"), parsePage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ListProjection godoc
// @Summary      List the current projection of a scope
// @Tags         projection
// @Produce      json
// @Param        scope    path      string  true   "Dataset scope ID"
// @Param        missing  query     bool    false  "Only entities missing in the latest import"
// @Param        status   query     string  false  "Filter by status"
// @Param        limit    query     int     false  "Page size" default(100)
// @Param        offset   query     int     false  "Rows to skip"
// @Success      200      {array}   ProjectionRow
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      500      {object}  errors.ErrorResponse
// @Router       /scopes/{scope}/projection [get]
func (h *Handler) ListProjection(c *gin.Context) {
	var filter ProjectionFilter
	if raw := c.Query("missing"); raw != "" {
		missing, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("field", "missing"))
			return
		}
		filter.MissingOnly = missing
	}
	if raw := c.Query("status"); raw != "" {
		status, err := inventory.ParseStatus(raw)
		if err != nil {
			h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("field", "status"))
			return
		}
		filter.Status = &status
	}

	rows, err := h.Service.ListProjection(c.Request.Context(), c.Param("scope"), filter, parsePage(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// parsePage ignores malformed values; the store clamps the rest.
func parsePage(c *gin.Context) Page {
	var page Page
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		page.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		page.Offset = offset
	}
	return page
}

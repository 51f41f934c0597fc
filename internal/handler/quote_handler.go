package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/apperror"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quoteService service.QuoteService
}

func NewQuoteHandler(quoteService service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotes := router.Group("/api/quotes")
	quotes.Use(middleware.RequireAuth())
	{
		quotes.POST("/calculate", h.Calculate)
		quotes.POST("", h.CreateQuote)
		quotes.GET("", h.ListQuotes)
		quotes.GET("/:id", h.GetQuote)
		quotes.PUT("/:id", h.UpdateQuote)
		quotes.POST("/:id/submit", h.SubmitQuote)
		quotes.POST("/:id/cancel", h.CancelQuote)
	}

	review := router.Group("/api/quotes")
	review.Use(middleware.RequireRole(model.RoleStaff))
	{
		review.PUT("/:id/review", h.StartReview)
		review.PUT("/:id/confirm", h.ConfirmQuote)
		review.PUT("/:id/reject", h.RejectQuote)
	}
}

// Calculate prices a quote request without persisting anything
// @Summary      Calculate quote
// @Description  Prices the requested equipment and service lines and returns the breakdown without creating a quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateQuoteRequest  true  "Calculation Payload"
// @Success      200      {object}  response.Response{data=service.BreakdownResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotes/calculate [post]
func (h *QuoteHandler) Calculate(c *gin.Context) {
	var req service.CalculateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorCoded(http.StatusBadRequest, apperror.CodeValidation, "Invalid request payload: "+err.Error()))
		return
	}

	breakdown, err := h.quoteService.Calculate(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// CreateQuote calculates and persists a new draft quote
// @Summary      Create quote
// @Description  Prices the requested lines and persists a new draft quote owned by the caller
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuoteRequest  true  "Create Quote Payload"
// @Success      201      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req service.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorCoded(http.StatusBadRequest, apperror.CodeValidation, "Invalid request payload: "+err.Error()))
		return
	}

	quote, err := h.quoteService.CreateQuote(c.Request.Context(), callerID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quote))
}

// ListQuotes returns the caller's quotes, paginated
// @Summary      List quotes
// @Description  Retrieves the caller's quotes, optionally filtered by status, with pagination and sorting
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        status      query     string  false  "Filter by status (DRAFT, SUBMITTED, IN_REVIEW, CONFIRMED, REJECTED, CANCELLED)"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Param        sort_by     query     string  false  "Sort column: created_at, total, status (default created_at)"
// @Param        sort_order  query     string  false  "Sort order: asc, desc (default desc)"
// @Success      200         {object}  response.Response{data=object}
// @Failure      500         {object}  response.Response
// @Router       /api/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	params := pagination.ParseWithSort(c, "created_at", "total", "status")

	quotes, total, err := h.quoteService.ListQuotes(c.Request.Context(), callerID(c), service.QuoteFilter{
		Status:    c.Query("status"),
		Page:      params.Page,
		Limit:     params.Limit,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"quotes": quotes,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// GetQuote returns one quote with its lines
// @Summary      Get quote
// @Description  Retrieves a quote by ID; accessible to its owner and to staff
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quote, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("id"), callerID(c), callerRole(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// UpdateQuote patches a draft quote
// @Summary      Update quote
// @Description  Replaces the line set (recomputing totals) and/or updates notes on a draft quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Quote ID"
// @Param        payload  body      service.UpdateQuoteRequest  true  "Patch Payload"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/quotes/{id} [put]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	var req service.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorCoded(http.StatusBadRequest, apperror.CodeValidation, "Invalid request payload: "+err.Error()))
		return
	}

	quote, err := h.quoteService.UpdateQuote(c.Request.Context(), c.Param("id"), callerID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// SubmitQuote submits a draft quote for review
// @Summary      Submit quote
// @Description  Transitions a draft quote to submitted; a quote can only be submitted once
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/quotes/{id}/submit [post]
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	quote, err := h.quoteService.SubmitQuote(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// CancelQuote cancels a draft or submitted quote
// @Summary      Cancel quote
// @Description  Transitions a draft or submitted quote to cancelled
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/{id}/cancel [post]
func (h *QuoteHandler) CancelQuote(c *gin.Context) {
	quote, err := h.quoteService.CancelQuote(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// StartReview moves a submitted quote into review
// @Summary      Start review
// @Description  Staff-only: transitions a submitted quote to in_review
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/{id}/review [put]
func (h *QuoteHandler) StartReview(c *gin.Context) {
	quote, err := h.quoteService.StartReview(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// ConfirmQuote confirms a quote under review
// @Summary      Confirm quote
// @Description  Staff-only: transitions an in_review quote to confirmed
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/{id}/confirm [put]
func (h *QuoteHandler) ConfirmQuote(c *gin.Context) {
	quote, err := h.quoteService.ConfirmQuote(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// RejectQuote rejects a quote under review
// @Summary      Reject quote
// @Description  Staff-only: transitions an in_review quote to rejected
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/{id}/reject [put]
func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	quote, err := h.quoteService.RejectQuote(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// --- Helpers ---

func callerID(c *gin.Context) string {
	id, _ := c.Get("userID")
	s, _ := id.(string)
	return s
}

func callerRole(c *gin.Context) string {
	role, _ := c.Get("userRole")
	s, _ := role.(string)
	return s
}

// renderError maps a business error to its stable code and status.
// Errors outside the taxonomy collapse to a generic 500 so internals
// never leak.
func renderError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, response.ErrorCoded(appErr.Status, appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, response.ErrorCoded(http.StatusInternalServerError, apperror.CodeDatabase, "internal server error"))
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/eaglebank/product-transactions/internal/logger"
	"github.com/eaglebank/product-transactions/internal/repository"
	"github.com/eaglebank/product-transactions/shared/cqrs"
	"github.com/eaglebank/product-transactions/shared/middleware"
	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/gin-gonic/gin"
)

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	GetStatistics(context.Context, cqrs.MonthQuery) (*models.Statistics, error)
	GetBarChart(context.Context, cqrs.MonthQuery) ([]models.PriceRangeCount, error)
	GetPieChart(context.Context, cqrs.MonthQuery) ([]models.CategoryCount, error)
	GetCombinedData(context.Context, cqrs.MonthQuery) (*models.CombinedView, error)
}

type TransactionHandler struct {
	queries TransactionQuerier
}

type ListTransactionsRequest struct {
	Month   string `form:"month"`
	Search  string `form:"search"`
	Page    int    `form:"page,default=1" validate:"gte=1"`
	PerPage int    `form:"perPage,default=10" validate:"gte=1,lte=100"`
}

type MonthRequest struct {
	Month string `form:"month"`
}

func NewTransactionHandler(queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{queries: queries}
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	transactions, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		Month:   req.Month,
		Search:  req.Search,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		respondWithQueryError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) GetStatistics(c *gin.Context) {
	q, ok := bindMonth(c)
	if !ok {
		return
	}
	stats, err := h.queries.GetStatistics(c.Request.Context(), q)
	if err != nil {
		respondWithQueryError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TransactionHandler) GetBarChart(c *gin.Context) {
	q, ok := bindMonth(c)
	if !ok {
		return
	}
	bars, err := h.queries.GetBarChart(c.Request.Context(), q)
	if err != nil {
		respondWithQueryError(c, err, "Failed to compute bar chart")
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *TransactionHandler) GetPieChart(c *gin.Context) {
	q, ok := bindMonth(c)
	if !ok {
		return
	}
	pie, err := h.queries.GetPieChart(c.Request.Context(), q)
	if err != nil {
		respondWithQueryError(c, err, "Failed to compute pie chart")
		return
	}
	c.JSON(http.StatusOK, pie)
}

func (h *TransactionHandler) GetCombinedData(c *gin.Context) {
	q, ok := bindMonth(c)
	if !ok {
		return
	}
	view, err := h.queries.GetCombinedData(c.Request.Context(), q)
	if err != nil {
		respondWithQueryError(c, err, "Failed to fetch combined data")
		return
	}
	c.JSON(http.StatusOK, view)
}

func bindMonth(c *gin.Context) (cqrs.MonthQuery, bool) {
	var req MonthRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return cqrs.MonthQuery{}, false
	}
	return cqrs.MonthQuery{Month: req.Month}, true
}

// respondWithQueryError maps read-side failures to status codes. Anything
// unrecognised is reported as a 500 with fallback as the message.
func respondWithQueryError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrInvalidMonth):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid month")
	case errors.Is(err, context.DeadlineExceeded):
		l := logger.FromContext(c.Request.Context())
		l.Warn().Err(err).Msg("query timed out")
		middleware.RespondWithError(c, http.StatusGatewayTimeout, "Request timed out")
	default:
		l := logger.FromContext(c.Request.Context())
		l.Error().Err(err).Msg(fallback)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}

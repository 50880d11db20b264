package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/eaglebank/product-transactions/internal/logger"
	"github.com/eaglebank/product-transactions/internal/seed"
	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/gin-gonic/gin"
)

const (
	seedSuccessMessage = "Data has been seeded to the database"
	seedFailureMessage = "Error seeding data"
)

// TransactionSeeder defines the write-side operation used by SeedHandler.
type TransactionSeeder interface {
	SeedTransactions(context.Context) (*models.SeedResult, error)
}

type SeedHandler struct {
	commands TransactionSeeder
}

func NewSeedHandler(commands TransactionSeeder) *SeedHandler {
	return &SeedHandler{commands: commands}
}

// SeedData loads the seed dataset. Responses are plain text.
func (h *SeedHandler) SeedData(c *gin.Context) {
	if _, err := h.commands.SeedTransactions(c.Request.Context()); err != nil {
		l := logger.FromContext(c.Request.Context())
		l.Error().Err(err).
			Str("reason", seedFailureReason(err)).
			Msg("seeding failed")
		c.String(http.StatusInternalServerError, seedFailureMessage)
		return
	}
	c.String(http.StatusOK, seedSuccessMessage)
}

// seedFailureReason classifies a seeding error for the log line. The response
// body is the same for every class.
func seedFailureReason(err error) string {
	switch {
	case errors.Is(err, seed.ErrSourceStatus):
		return "source_status"
	case errors.Is(err, seed.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "store"
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/eaglebank/product-transactions/internal/logger"
	"github.com/eaglebank/product-transactions/shared/middleware"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		l := logger.FromContext(c.Request.Context())
		l.Warn().Err(err).Msg("store ping failed")
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
